package entities

import (
	"errors"
	"fmt"
)

// Sentinel errors mapped to response codes by the HTTP error handler.
var (
	ErrTaskNotFound   = errors.New("task not found")
	ErrDuplicateField = errors.New("duplicate field value")
)

// ValidationError carries a client-facing message for a rejected write. It
// always maps to a 400 response.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError builds a validation error with a formatted message.
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
