package tracker

import (
	"errors"

	"github.com/ayush/exercise-tracker/internal/store"
)

var (
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned when the referenced user does not exist.
	ErrNotFound = store.ErrNotFound
	// ErrStore wraps failures of the underlying database.
	ErrStore = errors.New("store failure")
)

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
