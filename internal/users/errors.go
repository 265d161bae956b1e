package users

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when a referenced user does not exist.
	ErrNotFound = errors.New("usuario nao encontrado")

	// ErrDuplicateEmail is returned by strict inserts when the email is already stored.
	ErrDuplicateEmail = errors.New("email ja cadastrado")
)

// ValidationError carries the ordered field messages that made an input unacceptable.
// It maps to HTTP 400.
type ValidationError struct {
	Message string
	Errors  []string
}

// NewValidationError builds a ValidationError with the given headline and field messages.
func NewValidationError(message string, errs ...string) *ValidationError {
	return &ValidationError{Message: message, Errors: errs}
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return e.Message
	}

	return e.Message + ": " + strings.Join(e.Errors, "; ")
}

// Joined returns the field messages separated by "; ".
func (e *ValidationError) Joined() string {
	return strings.Join(e.Errors, "; ")
}
