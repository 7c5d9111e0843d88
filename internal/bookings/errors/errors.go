package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	// ErrStateConflict means a conditional transition matched no document:
	// the booking exists but its status or deadline no longer allows the change.
	ErrStateConflict = errors.New("booking state changed concurrently")

	ErrStoreUnavailable = errors.New("booking store unavailable")
)
