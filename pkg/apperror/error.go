// Package apperror defines the application error type and the sentinel
// errors services return. Handlers never build HTTP responses from raw
// errors; they return these and the central handler renders them.
package apperror

import (
	"fmt"
	"net/http"
)

// Error carries an HTTP status, a stable machine-readable code and a
// human-readable message. Internal holds the underlying cause and is
// never serialized to clients.
type Error struct {
	HTTPStatus int
	Code       string
	Message    string
	Internal   error
	Details    map[string]any
}

func (e *Error) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the internal cause to errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Internal
}

// WithMessage returns a copy with the message replaced. The sentinel
// itself is never mutated, so errors.Is against a sentinel only matches
// the sentinel value, not its derived copies.
func (e *Error) WithMessage(message string) *Error {
	return &Error{
		HTTPStatus: e.HTTPStatus,
		Code:       e.Code,
		Message:    message,
		Internal:   e.Internal,
		Details:    e.Details,
	}
}

// WithInternal returns a copy with the underlying cause attached.
func (e *Error) WithInternal(err error) *Error {
	return &Error{
		HTTPStatus: e.HTTPStatus,
		Code:       e.Code,
		Message:    e.Message,
		Internal:   err,
		Details:    e.Details,
	}
}

// WithDetails returns a copy with structured details attached. Details
// are serialized to clients under the error object.
func (e *Error) WithDetails(details map[string]any) *Error {
	return &Error{
		HTTPStatus: e.HTTPStatus,
		Code:       e.Code,
		Message:    e.Message,
		Internal:   e.Internal,
		Details:    details,
	}
}

// New builds an application error.
func New(status int, code, message string) *Error {
	return &Error{
		HTTPStatus: status,
		Code:       code,
		Message:    message,
	}
}

var (
	ErrMissingToken = New(http.StatusUnauthorized, "missing_token", "Missing authorization token")
	ErrInvalidToken = New(http.StatusUnauthorized, "invalid_token", "Invalid or expired token")
	ErrUnauthorized = New(http.StatusUnauthorized, "unauthorized", "Authentication required")

	ErrNotFound = New(http.StatusNotFound, "not_found", "Resource not found")
	ErrConflict = New(http.StatusConflict, "conflict", "Resource already exists")

	ErrBadRequest = New(http.StatusBadRequest, "bad_request", "Invalid request")
	ErrValidation = New(http.StatusUnprocessableEntity, "validation_error", "Validation failed")

	ErrInternal = New(http.StatusInternalServerError, "internal_error", "An internal error occurred")
	ErrDatabase = New(http.StatusInternalServerError, "database_error", "Database operation failed")
)
