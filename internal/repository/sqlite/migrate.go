package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate brings the schema on conn to targetVersion and returns the version
// it ended at.
//   - targetVersion < 0: migrate to the latest version
//   - targetVersion == 0: roll back every migration
//   - targetVersion > 0: migrate up or down to exactly that version
//
// The migrate instance is never closed: closing the sqlite
// driver closes the *sql.DB it was handed, which the caller still owns.
func Migrate(conn *sql.DB, targetVersion int) (uint, error) {
	driver, err := migratesqlite.WithInstance(conn, &migratesqlite.Config{})
	if err != nil {
		return 0, fmt.Errorf("creating migrate driver: %w", err)
	}

	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("accessing migrations directory: %w", err)
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return 0, fmt.Errorf("creating migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "starminder", driver)
	if err != nil {
		return 0, fmt.Errorf("creating migrate instance: %w", err)
	}

	if _, dirty, err := m.Version(); err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, fmt.Errorf("reading migration version: %w", err)
	} else if dirty {
		return 0, fmt.Errorf("database is in a dirty migration state; fix manually or force a version")
	}

	switch {
	case targetVersion < 0:
		err = m.Up()
	case targetVersion == 0:
		err = m.Down()
	default:
		err = m.Migrate(uint(targetVersion))
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("migrating to version %d: %w", targetVersion, err)
	}

	version, _, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading migration version: %w", err)
	}
	return version, nil
}

// MigrateFile opens the database at dbPath without auto-migrating and moves
// it to targetVersion. Used by the CLI's migrate command.
func MigrateFile(dbPath string, targetVersion int) (uint, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return 0, fmt.Errorf("sqlite: opening database: %w", err)
	}
	defer conn.Close()

	return Migrate(conn, targetVersion)
}
