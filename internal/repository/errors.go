// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrConflict indicates conflicting state like a duplicate
// share, while ErrNothingMarked signals that a finalize was requested
// for a session without a single marked item.
package repository

import (
	"errors"
	"strings"
)

// ErrConflict is returned when an operation cannot proceed because of
// conflicting state, such as sharing a list with the same user twice.
// Handlers should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrNothingMarked is returned by the finalizer when the active
// session contains no marked items. It is a validation failure, not a
// storage fault, and maps to an HTTP 422 response.
var ErrNothingMarked = errors.New("no items marked")

// isDuplicateKey reports whether err is a MySQL duplicate-entry error
// (code 1062). The driver does not export a typed sentinel for this,
// so the code is matched in the message.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "1062")
}
