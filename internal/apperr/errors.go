// Package apperr defines sentinel errors shared across Othala components.
package apperr

import "errors"

var (
	// ErrNotFound signals a missing entry on retrieve or delete.
	ErrNotFound = errors.New("not found")
	// ErrUnknownCategory signals a category outside the recognized set
	// while dynamic category creation is disabled.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrInvalidEntry signals a record with no derivable identifier.
	ErrInvalidEntry = errors.New("invalid entry")
	// ErrCorruptRecord signals an on-disk record that failed to parse.
	// Listing and search recover by skipping the entry; direct reads
	// surface it to the caller.
	ErrCorruptRecord = errors.New("corrupt record")
)
