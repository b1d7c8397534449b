package sqlite

import (
	"context"
	"path/filepath"
	"testing"
)

func TestMigrateFile_DownThenUp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "migrate.db")

	version, err := MigrateFile(path, -1)
	if err != nil {
		t.Fatalf("MigrateFile(up) error = %v", err)
	}
	if version != 1 {
		t.Errorf("version after up = %d, want 1", version)
	}

	version, err = MigrateFile(path, 0)
	if err != nil {
		t.Fatalf("MigrateFile(down) error = %v", err)
	}
	if version != 0 {
		t.Errorf("version after down = %d, want 0", version)
	}

	// New migrates back up and the schema is usable again.
	db, err := New(path)
	if err != nil {
		t.Fatalf("New() after down error = %v", err)
	}
	defer db.Close()

	if _, err := db.GetCurrentSite(context.Background()); err != nil {
		t.Errorf("GetCurrentSite() after re-migrate: %v", err)
	}
}

func TestMigrate_UpIsIdempotent(t *testing.T) {
	db := newTestDB(t)

	version, err := Migrate(db.conn, -1)
	if err != nil {
		t.Fatalf("Migrate() on migrated DB error = %v", err)
	}
	if version != 1 {
		t.Errorf("version = %d, want 1", version)
	}
}
