// Package logger provides the shared slog setup and attribute helpers.
package logger

import (
	"log/slog"
	"os"
	"strings"

	"go.uber.org/fx"
)

var Module = fx.Module("logger",
	fx.Provide(NewLogger),
)

// NewLogger creates the application logger.
//
// Level is controlled by LOG_LEVEL (debug, info, warn, error; default info).
// When GO_ENV=production a JSON handler is used, otherwise text.
func NewLogger() *slog.Logger {
	level := parseLevel(os.Getenv("LOG_LEVEL"))

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if os.Getenv("GO_ENV") == "production" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Scope returns a slog attribute identifying the component emitting the log line.
func Scope(scope string) slog.Attr {
	return slog.String("scope", scope)
}

// Error returns a slog attribute for an error value.
func Error(err error) slog.Attr {
	return slog.Any("error", err)
}
