package service

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidCredentials covers both unknown login and wrong password, so a
	// caller cannot tell which check failed.
	ErrInvalidCredentials = errors.New("invalid login or password")

	// ErrUnauthorized covers every refresh token failure: malformed, expired,
	// revoked, or superseded by rotation. Callers see one uniform rejection.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrDeviceNotFound means the target device has no live session owned by
	// the caller. Sessions of other accounts are never inspected or touched.
	ErrDeviceNotFound = errors.New("device session not found")
)

// FieldError names the request field a validation message applies to.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError aggregates per-field validation failures for one request.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		msgs[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Errors: []FieldError{{Field: field, Message: message}}}
}
