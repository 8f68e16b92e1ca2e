package domain

import "errors"

var (
	// ErrStoreUnavailable wraps any failure reported by the notification store
	// other than a missing record. Callers may retry.
	ErrStoreUnavailable = errors.New("notification store unavailable")
	ErrRecordNotFound   = errors.New("notification not found")
	ErrMissingUser      = errors.New("user id required")
)
