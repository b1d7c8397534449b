package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/sakif/starminder/internal/apperror"
)

func TestClusterAssign_Replaces(t *testing.T) {
	db := newTestDB(t)
	svc := NewClusterService(db, quietLogger())
	ctx := context.Background()
	starID := seedStarID(t, db, "repo")

	if _, err := svc.Assign(ctx, starID, 5, 0.3); err != nil {
		t.Fatalf("Assign(5) error = %v", err)
	}
	if _, err := svc.Assign(ctx, starID, 10, 0.2); err != nil {
		t.Fatalf("Assign(10) error = %v", err)
	}

	got, err := svc.Get(ctx, starID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ClusterID != 10 {
		t.Errorf("ClusterID = %d, want 10", got.ClusterID)
	}
	old, err := svc.Members(ctx, 5)
	if err != nil {
		t.Fatalf("Members(5) error = %v", err)
	}
	if len(old) != 0 {
		t.Errorf("cluster 5 still has %d members", len(old))
	}
}

func TestClusterCreate_Duplicate(t *testing.T) {
	db := newTestDB(t)
	svc := NewClusterService(db, quietLogger())
	ctx := context.Background()
	starID := seedStarID(t, db, "repo")

	if _, err := svc.Create(ctx, starID, 1, 0.5); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := svc.Create(ctx, starID, 2, 0.5); !errors.Is(err, apperror.ErrDuplicate) {
		t.Errorf("second Create() error = %v, want ErrDuplicate", err)
	}
}

func TestClusterAssign_Validation(t *testing.T) {
	svc := NewClusterService(newTestDB(t), quietLogger())
	ctx := context.Background()

	cases := map[string]func() error{
		"empty star":        func() error { _, err := svc.Assign(ctx, "", 1, 0); return err },
		"negative cluster":  func() error { _, err := svc.Assign(ctx, "s", -1, 0); return err },
		"negative distance": func() error { _, err := svc.Assign(ctx, "s", 1, -0.1); return err },
		"infinite distance": func() error { _, err := svc.Assign(ctx, "s", 1, math.Inf(1)); return err },
	}
	for name, call := range cases {
		t.Run(name, func(t *testing.T) {
			if err := call(); !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("error = %v, want ErrValidation", err)
			}
		})
	}
}
