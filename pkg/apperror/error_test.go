package apperror

import (
	"errors"
	"net/http"
	"testing"
)

func TestErrorString(t *testing.T) {
	e := New(http.StatusNotFound, "not_found", "Resource not found")
	if got := e.Error(); got != "not_found: Resource not found" {
		t.Errorf("Error() = %q", got)
	}

	withCause := e.WithInternal(errors.New("row missing"))
	if got := withCause.Error(); got != "not_found: Resource not found (row missing)" {
		t.Errorf("Error() with internal = %q", got)
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	e := ErrDatabase.WithInternal(cause)

	if !errors.Is(e, cause) {
		t.Error("errors.Is should reach the wrapped cause")
	}
	if ErrDatabase.Unwrap() != nil {
		t.Error("sentinel must not carry an internal error")
	}
}

func TestWithMessageCopies(t *testing.T) {
	derived := ErrBadRequest.WithMessage("invalid shard id")

	if derived == ErrBadRequest {
		t.Fatal("WithMessage must return a copy")
	}
	if ErrBadRequest.Message != "Invalid request" {
		t.Errorf("sentinel mutated: %q", ErrBadRequest.Message)
	}
	if derived.Code != "bad_request" || derived.HTTPStatus != http.StatusBadRequest {
		t.Errorf("copy lost identity: %s %d", derived.Code, derived.HTTPStatus)
	}
	if derived.Message != "invalid shard id" {
		t.Errorf("Message = %q", derived.Message)
	}
}

// Derived copies are distinct values: errors.Is only matches the raw
// sentinel, while errors.As recovers the *Error from any of them.
func TestSentinelMatching(t *testing.T) {
	derived := ErrNotFound.WithMessage("shard not found")

	if errors.Is(derived, ErrNotFound) {
		t.Error("derived copy should not satisfy errors.Is against the sentinel")
	}

	var appErr *Error
	if !errors.As(derived, &appErr) {
		t.Fatal("errors.As should extract *Error")
	}
	if appErr.HTTPStatus != http.StatusNotFound {
		t.Errorf("HTTPStatus = %d", appErr.HTTPStatus)
	}
}

func TestWithDetails(t *testing.T) {
	details := map[string]any{"field": "weight"}
	derived := ErrValidation.WithDetails(details)

	if len(ErrValidation.Details) != 0 {
		t.Error("sentinel mutated")
	}
	if derived.Details["field"] != "weight" {
		t.Errorf("Details = %v", derived.Details)
	}
}

func TestSentinelTable(t *testing.T) {
	tests := []struct {
		err    *Error
		status int
		code   string
	}{
		{ErrMissingToken, http.StatusUnauthorized, "missing_token"},
		{ErrInvalidToken, http.StatusUnauthorized, "invalid_token"},
		{ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{ErrNotFound, http.StatusNotFound, "not_found"},
		{ErrConflict, http.StatusConflict, "conflict"},
		{ErrBadRequest, http.StatusBadRequest, "bad_request"},
		{ErrValidation, http.StatusUnprocessableEntity, "validation_error"},
		{ErrInternal, http.StatusInternalServerError, "internal_error"},
		{ErrDatabase, http.StatusInternalServerError, "database_error"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if tt.err.HTTPStatus != tt.status {
				t.Errorf("HTTPStatus = %d, want %d", tt.err.HTTPStatus, tt.status)
			}
			if tt.err.Code != tt.code {
				t.Errorf("Code = %q, want %q", tt.err.Code, tt.code)
			}
		})
	}
}
