package repository

import "errors"

var (
	// ErrUnavailable indicates the backing store could not be read or written.
	// Callers apply the configured failure policy when they see it.
	ErrUnavailable = errors.New("repository: store unavailable")
)
