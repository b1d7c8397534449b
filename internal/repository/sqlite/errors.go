package sqlite

import (
	"errors"

	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/starminder/internal/apperror"
)

// isUniqueViolation reports whether err is SQLite rejecting a duplicate key.
//
// The driver returns *sqlite.Error carrying the extended result code, so we
// match on the code rather than parsing "UNIQUE constraint failed" text.
func isUniqueViolation(err error) bool {
	var se *moderncsqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}

// uniqueErr converts a uniqueness violation into apperror.Duplicate and
// returns any other error unchanged (nil stays nil).
func uniqueErr(err error, resource, key string) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return apperror.Duplicate(resource, key, err)
	}
	return err
}
