package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrStorageUninitialized is returned when an operation runs before the
	// database schema has been opened.
	ErrStorageUninitialized = errors.New("storage not initialized")
	// ErrNotFound is returned by get, update and delete of a missing id.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateContent is returned when a type or tag write would reuse
	// content held by another row.
	ErrDuplicateContent = errors.New("duplicate content")
	// ErrValidationFailed is returned for malformed input.
	ErrValidationFailed = errors.New("validation failed")
	// ErrEngineFailure wraps I/O and transaction failures of the storage engine.
	ErrEngineFailure = errors.New("engine failure")
)

// NotFound builds an ErrNotFound for the given entity kind and id.
func NotFound(kind string, id int64) error {
	return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
}

// Duplicate builds an ErrDuplicateContent for the given entity kind.
func Duplicate(kind, content string) error {
	return fmt.Errorf("%s %q: %w", kind, content, ErrDuplicateContent)
}

// Invalid builds an ErrValidationFailed with a formatted reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidationFailed, fmt.Sprintf(format, args...))
}
