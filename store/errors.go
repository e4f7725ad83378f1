package store

import "errors"

var (
	// ErrNotFound: no record matched the lookup.
	ErrNotFound = errors.New("store: record not found")

	// ErrConflict: a conditional update found the record in a different
	// status than expected; a concurrent handler won the transition.
	ErrConflict = errors.New("store: status precondition failed")

	// ErrDuplicate: insert hit a uniqueness constraint (event already logged).
	ErrDuplicate = errors.New("store: duplicate record")
)
