package journal

import "errors"

// Common errors returned by the journal.
var (
	// ErrInvalidRecord is returned for a nil record or one without an action.
	ErrInvalidRecord = errors.New("invalid journal record")

	// ErrClosed is returned when using a closed store.
	ErrClosed = errors.New("journal is closed")

	// ErrLocked is returned by Open when another process holds the journal.
	ErrLocked = errors.New("journal is in use by another process")
)
