package repo

import "errors"

var (
	// ErrNotFound reports a referenced record that does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict reports a lost compare-and-swap on an artifact's head
	// pointer, or a uniqueness violation on append.
	ErrConflict = errors.New("record conflict")
)
