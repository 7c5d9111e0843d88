package errors

import "errors"

var (
	ErrNotFound = errors.New("setting not found")

	ErrStoreUnavailable = errors.New("settings store unavailable")
)
