package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure taxonomy. Store and service code wraps
// these with fmt.Errorf("...: %w", ...); the web layer maps them to HTTP
// status codes with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrValidation   = errors.New("validation failed")
)

// Validationf builds a validation error with a client-visible message.
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrValidation}, args...)...)
}

// Forbiddenf builds a forbidden error with a client-visible message.
func Forbiddenf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrForbidden}, args...)...)
}

// InvalidStatef builds an invalid-state error with a client-visible message.
func InvalidStatef(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrInvalidState}, args...)...)
}
