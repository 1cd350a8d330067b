package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a referenced record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrBackendUnavailable indicates the remote record backend is
	// unreachable or misconfigured.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrBackendRequestFailed indicates the remote record backend rejected
	// a request.
	ErrBackendRequestFailed = errors.New("backend request failed")

	// ErrExternalFetchFailed indicates a market data fetch failed. It is
	// non-fatal: callers degrade to a stale or default value.
	ErrExternalFetchFailed = errors.New("external fetch failed")

	// ErrColumnInUse indicates a column still has tasks referencing it and
	// cannot be deleted.
	ErrColumnInUse = errors.New("column has tasks assigned to it")
)

// ValidationError reports a rejected input, such as a blank task title or a
// column whose derived ID collides with an existing one.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Invalid builds a ValidationError for the given field.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
