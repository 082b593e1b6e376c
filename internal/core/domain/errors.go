package domain

import (
	"errors"
	"fmt"
)

// Error categories. Concrete errors wrap one of these so callers can map
// them with errors.Is regardless of the specific cause.
var (
	ErrAuthentication    = errors.New("authentication failed")
	ErrValidation        = errors.New("validation failed")
	ErrInvalidTransition = fmt.Errorf("invalid status transition: %w", ErrValidation)
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("access forbidden")
	ErrPersistence       = errors.New("persistence failure")
	ErrDelivery          = errors.New("delivery failure")
)

var (
	ErrOrderNotFound        = fmt.Errorf("order %w", ErrNotFound)
	ErrMenuItemNotFound     = fmt.Errorf("menu item %w", ErrNotFound)
	ErrCategoryNotFound     = fmt.Errorf("category %w", ErrNotFound)
	ErrUserNotFound         = fmt.Errorf("user %w", ErrNotFound)
	ErrDuplicateOrderNumber = errors.New("order number already exists")
	ErrConnectionClosed     = fmt.Errorf("connection closed: %w", ErrDelivery)
	ErrSlowConsumer         = fmt.Errorf("send buffer full: %w", ErrDelivery)
)

// ValidationError describes a single rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid builds a ValidationError for field.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Code is the stable, client-facing identifier of an error category.
type Code string

const (
	CodeAuthentication    Code = "AUTHENTICATION_FAILED"
	CodeValidation        Code = "VALIDATION_FAILED"
	CodeInvalidTransition Code = "INVALID_TRANSITION"
	CodeNotFound          Code = "NOT_FOUND"
	CodeForbidden         Code = "FORBIDDEN"
	CodePersistence       Code = "PERSISTENCE_FAILED"
	CodeInternal          Code = "INTERNAL"
)

// CodeOf resolves the stable code for err. Order matters: a transition
// failure is also a validation failure.
func CodeOf(err error) Code {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAuthentication):
		return CodeAuthentication
	case errors.Is(err, ErrInvalidTransition):
		return CodeInvalidTransition
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	case errors.Is(err, ErrPersistence):
		return CodePersistence
	default:
		return CodeInternal
	}
}
