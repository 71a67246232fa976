package inspector

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when a registro or usuario does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write would break a uniqueness rule.
var ErrConflict = errors.New("conflict")

// ErrValidation is wrapped by every ValidationError.
var ErrValidation = errors.New("validation failed")

// ErrUnauthorized is returned for missing or bad credentials or tokens.
var ErrUnauthorized = errors.New("unauthorized")

// ErrForbidden is returned when the caller's role does not allow the operation.
var ErrForbidden = errors.New("forbidden")

// ErrInactiveUser is returned when a deactivated usuario tries to authenticate.
var ErrInactiveUser = errors.New("inactive user")

// FieldError describes one rejected field.
type FieldError struct {
	Field   string `json:"campo"`
	Message string `json:"error"`
}

// ValidationError collects every field that failed validation.
type ValidationError struct {
	Errors []FieldError `json:"errores"`
}

// NewValidationError returns a ValidationError with a single field error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Errors: []FieldError{{Field: field, Message: message}}}
}

// Add appends a field error.
func (e *ValidationError) Add(field, message string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: message})
}

// OrNil returns e when it holds errors, else nil.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Errors) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		msgs[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
