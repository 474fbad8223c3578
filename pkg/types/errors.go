package types

import (
	"errors"
	"fmt"
)

// Error taxonomy. Handlers map these to HTTP statuses with errors.Is.
var (
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("not permitted")
	ErrNotFound        = errors.New("not found")
	ErrRateLimited     = errors.New("rate limit exceeded")
	ErrStore           = errors.New("store unavailable")
	ErrInternal        = errors.New("internal error")
)

var (
	ErrProfileNotFound      = fmt.Errorf("profile %w", ErrNotFound)
	ErrNotificationNotFound = fmt.Errorf("notification %w", ErrNotFound)
	ErrPreferenceNotFound   = fmt.Errorf("notification preference %w", ErrNotFound)
)

// ValidationError carries per-field messages.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 1 {
		for field, msg := range e.Fields {
			return fmt.Sprintf("%s: %s", field, msg)
		}
	}
	return fmt.Sprintf("%d invalid fields", len(e.Fields))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func ErrUsernameTaken() *ValidationError {
	return NewValidationError("username", "That username is already taken.")
}
