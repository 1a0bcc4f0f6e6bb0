// ABOUTME: Error taxonomy for the diary record store and its callers.
// ABOUTME: Validation failures carry a readable reason; not-found is a count, never an error.
package diary

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation matches every *ValidationError via errors.Is.
	ErrValidation = errors.New("validation failed")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("diary store is closed")

	// ErrInvalidFilter wraps filter validation failures.
	ErrInvalidFilter = errors.New("invalid filter")
)

// ValidationError reports why a record was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrValidation) true for validation errors.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
