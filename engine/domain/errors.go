package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for validation failures.
var (
	ErrEmptyText   = errors.New("text is required")
	ErrTextTooLong = errors.New("text too long")
	ErrInvalidBody = errors.New("invalid request body")
)

// ValidationError wraps a sentinel with context.
type ValidationError struct {
	Field   string
	Detail  string
	Wrapped error
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Field, e.Wrapped, e.Detail)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, detail string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Detail: detail, Wrapped: wrapped}
}
