package sqlite

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sakif/starminder/internal/apperror"
	"github.com/sakif/starminder/internal/model"
)

func TestCreateAssignment_Duplicate(t *testing.T) {
	db := newTestDB(t)
	star := seedStar(t, db)
	ctx := context.Background()

	if err := db.CreateAssignment(ctx, &model.ClusterAssignment{ClusterID: 1, StarID: star.ID, CentroidDistance: 0.3}); err != nil {
		t.Fatalf("CreateAssignment() error = %v", err)
	}
	err := db.CreateAssignment(ctx, &model.ClusterAssignment{ClusterID: 2, StarID: star.ID, CentroidDistance: 0.1})
	if !errors.Is(err, apperror.ErrDuplicate) {
		t.Errorf("second CreateAssignment() error = %v, want ErrDuplicate", err)
	}
}

// Reassigning replaces the row: the star ends up in exactly one cluster.
func TestAssign_ReplacesExisting(t *testing.T) {
	db := newTestDB(t)
	star := seedStar(t, db)
	ctx := context.Background()

	first := &model.ClusterAssignment{ClusterID: 5, StarID: star.ID, CentroidDistance: 0.4}
	if err := db.Assign(ctx, first); err != nil {
		t.Fatalf("Assign(5) error = %v", err)
	}
	second := &model.ClusterAssignment{ClusterID: 10, StarID: star.ID, CentroidDistance: 0.2}
	if err := db.Assign(ctx, second); err != nil {
		t.Fatalf("Assign(10) error = %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("Assign() created a new row %q, want existing %q", second.ID, first.ID)
	}

	var rows int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cluster_assignments WHERE star_id = ?`, star.ID,
	).Scan(&rows); err != nil {
		t.Fatalf("counting assignments: %v", err)
	}
	if rows != 1 {
		t.Fatalf("star has %d assignments, want 1", rows)
	}

	got, err := db.GetAssignment(ctx, star.ID)
	if err != nil {
		t.Fatalf("GetAssignment() error = %v", err)
	}
	if got.ClusterID != 10 || got.CentroidDistance != 0.2 {
		t.Errorf("assignment = cluster %d distance %v, want cluster 10 distance 0.2", got.ClusterID, got.CentroidDistance)
	}

	old, err := db.ClusterMembers(ctx, 5)
	if err != nil {
		t.Fatalf("ClusterMembers(5) error = %v", err)
	}
	if len(old) != 0 {
		t.Errorf("old cluster still has %d members", len(old))
	}
}

// Racing reassignments of one star leave a single row holding one of the
// written clusters.
func TestAssign_ConcurrentSameStar(t *testing.T) {
	db := newTestDB(t)
	star := seedStar(t, db)
	ctx := context.Background()

	const writers = 8
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = db.Assign(ctx, &model.ClusterAssignment{ClusterID: i, StarID: star.ID, CentroidDistance: float64(i) / 10})
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("Assign(%d) error = %v", i, err)
		}
	}

	var rows int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cluster_assignments WHERE star_id = ?`, star.ID,
	).Scan(&rows); err != nil {
		t.Fatalf("counting assignments: %v", err)
	}
	if rows != 1 {
		t.Fatalf("star has %d assignments, want 1", rows)
	}

	got, err := db.GetAssignment(ctx, star.ID)
	if err != nil {
		t.Fatalf("GetAssignment() error = %v", err)
	}
	if got.ClusterID < 0 || got.ClusterID >= writers {
		t.Errorf("ClusterID = %d, want one of the written clusters", got.ClusterID)
	}
	if got.CentroidDistance != float64(got.ClusterID)/10 {
		t.Errorf("CentroidDistance = %v does not belong to cluster %d", got.CentroidDistance, got.ClusterID)
	}
}

func TestClusterMembers_ClosestFirst(t *testing.T) {
	db := newTestDB(t)
	stars := seedStars(t, db, 3)
	ctx := context.Background()

	for i, d := range []float64{0.7, 0.1, 0.4} {
		if err := db.Assign(ctx, &model.ClusterAssignment{ClusterID: 3, StarID: stars[i].ID, CentroidDistance: d}); err != nil {
			t.Fatalf("Assign() error = %v", err)
		}
	}

	got, err := db.ClusterMembers(ctx, 3)
	if err != nil {
		t.Fatalf("ClusterMembers() error = %v", err)
	}
	want := []float64{0.1, 0.4, 0.7}
	if len(got) != len(want) {
		t.Fatalf("ClusterMembers() returned %d, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].CentroidDistance != w {
			t.Errorf("position %d: distance = %v, want %v", i, got[i].CentroidDistance, w)
		}
	}
}

func TestGetAssignment_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetAssignment(context.Background(), "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetAssignment() error = %v, want ErrNotFound", err)
	}
}
