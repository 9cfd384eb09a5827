package store

import (
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/erazemk/arsenal/internal/model"
)

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// IsConflict reports whether err is a lost race: a uniqueness violation on a
// concurrency guard or a write lock that could not be upgraded.
func IsConflict(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	switch se.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}

// wrap annotates err with what was being done, and tags lost races with
// model.ErrConflict so callers can tell them apart from storage failures.
func wrap(err error, doing string) error {
	if IsConflict(err) {
		return fmt.Errorf("%w: %s: %v", model.ErrConflict, doing, err)
	}
	return fmt.Errorf("%s: %w", doing, err)
}

// expectOne turns a zero-row compare-and-set into model.ErrConflict.
func expectOne(n int64, what string) error {
	if n == 0 {
		return fmt.Errorf("%w: %s was modified concurrently", model.ErrConflict, what)
	}
	return nil
}
