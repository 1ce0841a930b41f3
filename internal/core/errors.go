package core

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// Error kinds surfaced by the coordination core. Callers classify with
// errors.Is; the message carries the human-readable detail.
var (
	// ErrNotFound - the referenced slot, occupation, queue entry or
	// booking does not exist, or does not exist for this caller.
	ErrNotFound = errors.New("not found")
	// ErrConflict - an exclusivity or overlap invariant would be
	// violated.
	ErrConflict = errors.New("conflict")
	// ErrBadState - the operation is not meaningful in the current
	// state, e.g. queueing for a free slot.
	ErrBadState = errors.New("bad state")
	// ErrBadRequest - malformed input, rejected before any mutation.
	ErrBadRequest = errors.New("bad request")
	// ErrForbidden - the caller lacks the required privilege.
	ErrForbidden = errors.New("forbidden")
)

// isDuplicate reports whether err is a storage-level uniqueness
// violation. GORM's error translation covers PostgreSQL; the string
// check covers the SQLite driver used in tests.
func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "UNIQUE constraint failed")
}
