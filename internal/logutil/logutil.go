package logutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// NewTimingLogger returns a closure that logs a debug message with duration when called.
// Pass in the context, logger, a start time, a message, and any initial fields.
//
//	defer logutil.NewTimingLogger(ctx, s.log, time.Now(), "called CreateAccount", "email", email)()
func NewTimingLogger(ctx context.Context, logger *slog.Logger, start time.Time, msg string, initialFields ...any) func() {
	return func() {
		elapsed := time.Since(start)
		finalFields := append(initialFields, "duration", elapsed.String())
		logger.DebugContext(ctx, msg, finalFields...)
	}
}

// LogAndWrapErr logs an error with context fields and wraps it with a message.
// It returns a wrapped error (with %w) so errors.Is / errors.As still work.
// ctx carries the span the record is correlated with.
func LogAndWrapErr(ctx context.Context, logger *slog.Logger, msg string, err error, fields ...any) error {
	if err == nil {
		return nil
	}
	// We conventionally put the error field at the end
	allFields := append(fields, "err", err)
	logger.ErrorContext(ctx, msg, allFields...)
	return fmt.Errorf("%s: %w", msg, err)
}

// DebugAndWrapErr is LogAndWrapErr at debug level, for expected failures
// such as a taken email or an unknown session.
func DebugAndWrapErr(ctx context.Context, logger *slog.Logger, msg string, err error, fields ...any) error {
	if err == nil {
		return nil
	}
	allFields := append(fields, "err", err)
	logger.DebugContext(ctx, msg, allFields...)
	return fmt.Errorf("%s: %w", msg, err)
}

// NoopLogger discards everything. Used by tests and as a nil-logger default.
func NoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
