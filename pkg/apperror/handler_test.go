package apperror

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func render(t *testing.T, err error, method string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(method, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	HTTPErrorHandler(slog.New(slog.DiscardHandler))(err, c)

	if method == http.MethodHead {
		return rec, nil
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	errObj, ok := resp["error"].(map[string]any)
	if !ok {
		t.Fatalf("missing error envelope: %v", resp)
	}
	return rec, errObj
}

func TestHandlerAppError(t *testing.T) {
	rec, errObj := render(t, ErrValidation.WithMessage("maxDepth must be between 1 and 5"), http.MethodGet)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d", rec.Code)
	}
	if errObj["code"] != "validation_error" {
		t.Errorf("code = %v", errObj["code"])
	}
	if errObj["message"] != "maxDepth must be between 1 and 5" {
		t.Errorf("message = %v", errObj["message"])
	}
}

func TestHandlerAppErrorDetails(t *testing.T) {
	err := ErrValidation.WithDetails(map[string]any{"field": "weight"})
	_, errObj := render(t, err, http.MethodGet)

	details, ok := errObj["details"].(map[string]any)
	if !ok || details["field"] != "weight" {
		t.Errorf("details = %v", errObj["details"])
	}
}

func TestHandlerHidesInternalCause(t *testing.T) {
	err := ErrDatabase.WithInternal(errors.New("pq: connection refused"))
	rec, errObj := render(t, err, http.MethodGet)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
	if errObj["message"] != "Database operation failed" {
		t.Errorf("message = %v", errObj["message"])
	}
	if body := rec.Body.String(); len(body) > 0 && json.Valid([]byte(body)) {
		for k := range errObj {
			if k != "code" && k != "message" {
				t.Errorf("unexpected field %q in error body", k)
			}
		}
	}
}

func TestHandlerEchoError(t *testing.T) {
	rec, errObj := render(t, echo.NewHTTPError(http.StatusNotFound, "no such route"), http.MethodGet)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
	if errObj["code"] != "not_found" {
		t.Errorf("code = %v", errObj["code"])
	}
	if errObj["message"] != "no such route" {
		t.Errorf("message = %v", errObj["message"])
	}
}

func TestHandlerUnknownError(t *testing.T) {
	rec, errObj := render(t, errors.New("boom"), http.MethodGet)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
	if errObj["code"] != "internal_error" {
		t.Errorf("code = %v", errObj["code"])
	}
	if errObj["message"] == "boom" {
		t.Error("raw error text must not leak to clients")
	}
}

func TestHandlerHeadRequest(t *testing.T) {
	rec, _ := render(t, ErrNotFound, http.MethodHead)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("HEAD response must have no body, got %q", rec.Body.String())
	}
}
