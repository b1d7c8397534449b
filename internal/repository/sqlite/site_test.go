package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/starminder/internal/apperror"
	"github.com/sakif/starminder/internal/model"
)

func TestGetCurrentSite_Seeded(t *testing.T) {
	db := newTestDB(t)

	site, err := db.GetCurrentSite(context.Background())
	if err != nil {
		t.Fatalf("GetCurrentSite() error = %v", err)
	}
	if site.ID != 1 || site.Domain != "example.com" {
		t.Errorf("seeded site = %+v, want id 1 domain example.com", site)
	}
}

func TestSaveSite(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.SaveSite(ctx, &model.Site{Domain: "127.0.0.1:8000", Name: "Starminder Local"}); err != nil {
		t.Fatalf("SaveSite() error = %v", err)
	}

	site, err := db.GetCurrentSite(ctx)
	if err != nil {
		t.Fatalf("GetCurrentSite() error = %v", err)
	}
	if site.Domain != "127.0.0.1:8000" || site.Name != "Starminder Local" {
		t.Errorf("site = %+v after save", site)
	}
}

func TestUpsertSocialApp_CreateThenUpdate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	app := &model.SocialApp{Provider: "github", Name: "GitHub", ClientID: "id-1", Secret: "s-1"}
	created, err := db.UpsertSocialApp(ctx, app)
	if err != nil {
		t.Fatalf("UpsertSocialApp() error = %v", err)
	}
	if !created {
		t.Error("first UpsertSocialApp() created = false, want true")
	}

	again := &model.SocialApp{Provider: "github", Name: "GitHub", ClientID: "id-2", Secret: "s-2"}
	created, err = db.UpsertSocialApp(ctx, again)
	if err != nil {
		t.Fatalf("second UpsertSocialApp() error = %v", err)
	}
	if created {
		t.Error("second UpsertSocialApp() created = true, want false")
	}
	if again.ID != app.ID {
		t.Errorf("app id changed: %q -> %q", app.ID, again.ID)
	}

	got, err := db.GetSocialApp(ctx, "github")
	if err != nil {
		t.Fatalf("GetSocialApp() error = %v", err)
	}
	if got.ClientID != "id-2" || got.Secret != "s-2" {
		t.Errorf("credentials = %q/%q, want id-2/s-2", got.ClientID, got.Secret)
	}
}

func TestLinkSocialAppSite_Idempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	app := &model.SocialApp{Provider: "github", Name: "GitHub", ClientID: "id", Secret: "s"}
	if _, err := db.UpsertSocialApp(ctx, app); err != nil {
		t.Fatalf("UpsertSocialApp() error = %v", err)
	}
	for range 2 {
		if err := db.LinkSocialAppSite(ctx, app.ID, 1); err != nil {
			t.Fatalf("LinkSocialAppSite() error = %v", err)
		}
	}

	got, err := db.GetSocialApp(ctx, "github")
	if err != nil {
		t.Fatalf("GetSocialApp() error = %v", err)
	}
	if len(got.SiteIDs) != 1 || got.SiteIDs[0] != 1 {
		t.Errorf("SiteIDs = %v, want [1]", got.SiteIDs)
	}
}

func TestGetSocialApp_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetSocialApp(context.Background(), "gitlab")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetSocialApp() error = %v, want ErrNotFound", err)
	}
}
