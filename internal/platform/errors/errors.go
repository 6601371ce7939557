// Package errors provides coded application errors shared by all layers.
// Codes map onto HTTP statuses at the handler boundary; everything below
// the handler works in terms of codes, never statuses.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an application error.
type Code string

const (
	ErrCodeInternal     Code = "INTERNAL"
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeConflict     Code = "CONFLICT"
	ErrCodeInvalidInput Code = "INVALID_INPUT"
	ErrCodeUnauthorized Code = "UNAUTHORIZED"
	ErrCodePrecondition Code = "PRECONDITION_FAILED"
)

// Error is a coded application error with an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// NotFound reports a missing resource.
func NotFound(resource, id string) *Error {
	return Newf(ErrCodeNotFound, "%s '%s' not found", resource, id)
}

// InvalidInput reports a bad request field.
func InvalidInput(field, message string) *Error {
	return Newf(ErrCodeInvalidInput, "invalid %s: %s", field, message)
}

// Unauthorized reports a permission violation.
func Unauthorized(message string) *Error {
	return New(ErrCodeUnauthorized, message)
}

// Precondition reports a domain precondition violation. The message is
// surfaced verbatim to the caller.
func Precondition(message string) *Error {
	return New(ErrCodePrecondition, message)
}

// CodeOf extracts the code from err, or ErrCodeInternal for uncoded errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// HTTPStatus maps an error to the HTTP status the handler should return.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeConflict, ErrCodePrecondition:
		return http.StatusConflict
	case ErrCodeInvalidInput:
		return http.StatusBadRequest
	case ErrCodeUnauthorized:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
