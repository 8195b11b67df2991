package apperror

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// codeForStatus maps plain echo.HTTPError statuses onto the codes the
// sentinels use, so clients see one error vocabulary.
func codeForStatus(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_error"
	default:
		return "internal_error"
	}
}

// HTTPErrorHandler renders every error as {"error": {code, message}}.
// Internal causes are logged, never serialized.
func HTTPErrorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		body := map[string]any{
			"code":    ErrInternal.Code,
			"message": ErrInternal.Message,
		}

		var appErr *Error
		var echoErr *echo.HTTPError
		switch {
		case errors.As(err, &appErr):
			status = appErr.HTTPStatus
			body["code"] = appErr.Code
			body["message"] = appErr.Message
			if len(appErr.Details) > 0 {
				body["details"] = appErr.Details
			}
		case errors.As(err, &echoErr):
			status = echoErr.Code
			body["code"] = codeForStatus(status)
			if msg, ok := echoErr.Message.(string); ok {
				body["message"] = msg
			}
		}

		if status >= 500 {
			log.Error("request error",
				slog.Int("status", status),
				slog.String("error", err.Error()),
			)
		}

		if c.Request().Method == http.MethodHead {
			c.NoContent(status)
			return
		}
		c.JSON(status, map[string]any{"error": body})
	}
}
