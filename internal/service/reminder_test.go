package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sakif/starminder/internal/apperror"
	"github.com/sakif/starminder/internal/model"
	"github.com/sakif/starminder/internal/repository"
)

func TestReminderCreate_RendersDescriptions(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, 1)
	svc := NewReminderService(db, quietLogger())

	detail, err := svc.Create(context.Background(), user.ID, []model.StarFields{fields("a", "rocketship", 3)})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if !strings.HasPrefix(detail.Title, "Reminder: ") {
		t.Errorf("Title = %q", detail.Title)
	}
	star := detail.Stars[0]
	if star.Description != ":rocket: rocketship" {
		t.Errorf("stored Description = %q, want raw alias", star.Description)
	}
	if strings.Contains(star.DescriptionPretty, ":rocket:") || !strings.Contains(star.DescriptionPretty, "🚀") {
		t.Errorf("DescriptionPretty = %q, want rendered glyph", star.DescriptionPretty)
	}
	if star.FullName != "a/rocketship" {
		t.Errorf("FullName = %q", star.FullName)
	}
}

func TestReminderCreate_Validation(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, 1)
	svc := NewReminderService(db, quietLogger())

	bad := fields("a", "b", 1)
	bad.RepoURL = ""
	negative := fields("a", "c", -1)

	for name, f := range map[string]model.StarFields{"missing url": bad, "negative stars": negative} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), user.ID, []model.StarFields{f})
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("Create() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestReminderGet_OwnerOnly(t *testing.T) {
	db := newTestDB(t)
	owner := seedUser(t, db, 1)
	other := seedUser(t, db, 2)
	svc := NewReminderService(db, quietLogger())
	ctx := context.Background()

	created, err := svc.Create(ctx, owner.ID, []model.StarFields{fields("a", "b", 1), fields("c", "d", 9)})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := svc.Get(ctx, owner.ID, created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(got.Stars) != 2 || got.Stars[0].Name != "d" {
		t.Errorf("Get() stars = %+v, want 2 with most-starred first", got.Stars)
	}

	if _, err := svc.Get(ctx, other.ID, created.ID); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("Get() by other user error = %v, want ErrForbidden", err)
	}
	if _, err := svc.GetStar(ctx, other.ID, got.Stars[0].ID); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("GetStar() by other user error = %v, want ErrForbidden", err)
	}
	if _, err := svc.Get(ctx, owner.ID, "missing"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestReminderList(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, 1)
	svc := NewReminderService(db, quietLogger())

	for i := range 3 {
		stars := []model.StarFields{fields("o", "small", 1), fields("o", "big", 10)}
		if i == 0 {
			stars = nil
		}
		if _, err := svc.Create(context.Background(), user.ID, stars); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	list, err := svc.List(context.Background(), user.ID, repository.ListOptions{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("List() = %d reminders, want 3", len(list))
	}
	withStars := 0
	for _, r := range list {
		if r.Title != r.Reminder.Title() {
			t.Errorf("Title = %q, want %q", r.Title, r.Reminder.Title())
		}
		if r.Stars == nil {
			t.Fatalf("reminder %s Stars = nil, want a non-nil slice", r.ID)
		}
		if len(r.Stars) == 0 {
			continue
		}
		withStars++
		if len(r.Stars) != 2 {
			t.Fatalf("reminder %s has %d stars, want 2", r.ID, len(r.Stars))
		}
		if r.Stars[0].FullName != "o/big" {
			t.Errorf("Stars[0].FullName = %q, want o/big", r.Stars[0].FullName)
		}
		if r.Stars[0].DescriptionPretty != "🚀 big" {
			t.Errorf("Stars[0].DescriptionPretty = %q, want rendered glyph", r.Stars[0].DescriptionPretty)
		}
	}
	if withStars != 2 {
		t.Errorf("%d reminders listed with stars, want 2", withStars)
	}
}
