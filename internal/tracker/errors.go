package tracker

import (
	"errors"
	"fmt"
)

// Sentinel values so callers can use errors.Is without knowing the concrete type.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("app not found")
	ErrInvariant  = errors.New("invariant violated")
)

// ValidationError is returned for bad input to AddApp.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError is returned when an app id is unknown to the registry.
type NotFoundError struct {
	AppID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("app %q not found", e.AppID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InvariantError reports a record that should have been rejected earlier.
type InvariantError struct {
	AppID   string
	Message string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("app %q: %s", e.AppID, e.Message)
}

func (e *InvariantError) Unwrap() error { return ErrInvariant }

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
