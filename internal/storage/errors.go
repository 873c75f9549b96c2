package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidKey is returned when an encryption key is not 32 bytes.
	ErrInvalidKey = errors.New("encryption key must be 32 bytes")

	// ErrDecryption is returned when decryption fails due to wrong key or corrupted data.
	ErrDecryption = errors.New("decryption failed: wrong key or corrupted data")

	// ErrNotFound is returned when a row is not found. The REST layer
	// collapses this with permission denial so callers cannot probe which
	// rows exist.
	ErrNotFound = errors.New("resource not found")

	// ErrChanged is returned when an update carries a stale originalHash:
	// the entity changed since the caller last read it. Recoverable by
	// reloading and resubmitting.
	ErrChanged = errors.New("entity changed concurrently")

	// ErrDuplicate is returned when a unique constraint is violated.
	ErrDuplicate = errors.New("resource already exists")

	// ErrSentinelPreset is returned on attempts to modify or delete the
	// hard-coded local preset.
	ErrSentinelPreset = errors.New("local preset cannot be modified or deleted")
)

// ValidationError reports a per-field validation failure so the form layer
// can highlight the offending input.
type ValidationError struct {
	Field string
	Msg   string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Msg)
	}
	return fmt.Sprintf("validation failed: %s", e.Msg)
}
