package store

import (
	"errors"
	"strings"
)

// ErrNotFound is returned by lookups that found no matching row.
var ErrNotFound = errors.New("store: not found")

// ErrClosed is returned when an operation is attempted against a closed store.
var ErrClosed = errors.New("store: closed")

// ErrBusy wraps the SQLite "database is locked" condition once the
// configured busy-timeout has been exhausted (spec.md §7 "store busy").
var ErrBusy = errors.New("store: busy")

// isBusyError classifies a driver error by text match, mirroring the
// teacher's isUniqueConstraintError helper: the sqlite3 driver doesn't
// expose a typed busy error, so matching the message is the only option.
func isBusyError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "constraint failed")
}
