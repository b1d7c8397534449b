// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database: it lives inside the binary as a single file.
// No separate database server to install or manage, and ":memory:" or a temp
// file gives every test its own isolated database.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which means you need a C compiler installed and
// cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code, so no C compiler is needed.
//
// INTEGRITY LIVES IN THE SCHEMA:
// Every uniqueness rule (tag names, one analysis per star, one cluster
// assignment per star) is a UNIQUE index, not an "if exists" check in Go.
// Two goroutines racing to insert the same row cannot both win. SQLite
// serialises the writes and the loser gets a constraint error, which
// uniqueErr translates into apperror.ErrDuplicate.
package sqlite

import (
	"database/sql"
	"fmt"
	"net/url"
	"time"
)

// busyTimeout is how long a writer waits for the database lock before
// giving up with SQLITE_BUSY.
const busyTimeout = 5 * time.Second

// DB wraps a sql.DB connection pool and provides repository methods.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the SQLite database at dbPath and migrates it to
// the latest schema version.
//
// dbPath examples:
//   - "data/starminder.db"  → file-based database (persistent)
//   - ":memory:"            → in-memory database, pinned to one connection
//
// PRAGMAS IN THE DSN:
// A PRAGMA run with conn.Exec only reaches whichever pooled connection ran
// it. Passing them as _pragma parameters makes the driver apply them to
// every connection it opens.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if dbPath == ":memory:" {
		// Each connection to ":memory:" is a separate, empty database.
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if _, err := Migrate(conn, -1); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return &DB{conn: conn}, nil
}

// dsn builds the driver connection string for dbPath.
//
//   - foreign_keys(1): SQLite ships with FK enforcement OFF
//   - journal_mode(WAL): readers keep reading while a write is in progress
//   - busy_timeout: concurrent writers queue instead of failing immediately
//   - _txlock=immediate: transactions take the write lock at BEGIN, so two
//     read-then-write transactions cannot deadlock on lock upgrade
//   - _time_format=sqlite: timestamps are stored in a sortable text format
func dsn(dbPath string) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeout.Milliseconds()))
	q.Set("_time_format", "sqlite")
	if dbPath != ":memory:" {
		q.Add("_pragma", "journal_mode(WAL)")
		q.Set("_txlock", "immediate")
	}
	return dbPath + "?" + q.Encode()
}

// Close closes the database connection pool.
//
// ALWAYS DEFER CLOSE:
//
//	db, err := sqlite.New("data/starminder.db")
//	if err != nil { ... }
//	defer db.Close()
func (db *DB) Close() error {
	return db.conn.Close()
}

// now returns the current time in UTC, truncated to microseconds so values
// survive a round trip through the text column unchanged.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// nullString maps a nil *string to SQL NULL.
func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// nullBytes maps an empty buffer to SQL NULL rather than a zero-length BLOB.
func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

// nullTime maps a nil *time.Time to SQL NULL.
func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
