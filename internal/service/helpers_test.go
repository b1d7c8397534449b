package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/sakif/starminder/internal/model"
	"github.com/sakif/starminder/internal/repository/sqlite"
)

// quietLogger drops everything below Error.
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// captureLogger records every line so tests can assert on diagnostics.
func captureLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

// newTestDB returns a real, migrated SQLite database in a temp directory.
// Services are thin enough that exercising them against the real
// repository catches more than a fake would.
func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "service.db"))
	if err != nil {
		t.Fatalf("sqlite.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedUser(t *testing.T, db *sqlite.DB, githubID int64) *model.User {
	t.Helper()
	u := &model.User{GitHubID: githubID, Login: fmt.Sprintf("user%d", githubID)}
	if err := db.Upsert(context.Background(), u); err != nil {
		t.Fatalf("seeding user: %v", err)
	}
	return u
}

func fields(owner, name string, stars int) model.StarFields {
	return model.StarFields{
		Provider:    "github",
		ProviderID:  owner + "/" + name,
		Owner:       owner,
		OwnerID:     owner + "-id",
		Name:        name,
		Description: ":rocket: " + name,
		StarCount:   stars,
		RepoURL:     "https://github.com/" + owner + "/" + name,
	}
}
