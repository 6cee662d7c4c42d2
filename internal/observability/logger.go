// Package observability provides structured logging helpers shared by
// the request layer and background runners.
package observability

import (
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
)

const (
	// LogFieldRequestID is the field name for request ID.
	LogFieldRequestID = "request_id"
	// LogFieldSource is the field name for the data source.
	LogFieldSource = "source"
	// LogFieldDuration is the field name for duration in milliseconds.
	LogFieldDuration = "duration_ms"
	// LogFieldErrorCode is the field name for error code.
	LogFieldErrorCode = "error_code"
)

// SetupLogger configures the process-wide slog default. Dev mode uses a
// human-readable text handler at debug level; production emits JSON.
func SetupLogger(dev bool) *slog.Logger {
	var handler slog.Handler
	if dev {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// RequestLogger returns a logger carrying a generated request ID for
// correlating the fan-out of a single aggregate call.
func RequestLogger(logger *slog.Logger) (*slog.Logger, string) {
	requestID := uuid.New().String()
	return logger.With(slog.String(LogFieldRequestID, requestID)), requestID
}

// DurationAttr renders an elapsed duration as the standard field.
func DurationAttr(start time.Time) slog.Attr {
	return slog.Int64(LogFieldDuration, time.Since(start).Milliseconds())
}
