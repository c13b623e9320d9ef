package logutil

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Helper function to create a logger that writes to a buffer for testing
func createTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func TestNewTimingLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := createTestLogger(&buf)

	start := time.Now().Add(-10 * time.Millisecond)
	timingLogger := NewTimingLogger(context.Background(), logger, start, "called GetAccountByEmail", "email", "a@b.c")
	timingLogger()

	output := buf.String()
	if !strings.Contains(output, "called GetAccountByEmail") {
		t.Errorf("Expected log to contain message, got: %s", output)
	}
	if !strings.Contains(output, "duration") {
		t.Errorf("Expected log to contain 'duration', got: %s", output)
	}
	if !strings.Contains(output, "email=a@b.c") {
		t.Errorf("Expected log to contain 'email=a@b.c', got: %s", output)
	}
	if !strings.Contains(output, "level=DEBUG") {
		t.Errorf("Expected log to be DEBUG level, got: %s", output)
	}
}

func TestLogAndWrapErr(t *testing.T) {
	var buf bytes.Buffer
	logger := createTestLogger(&buf)

	originalErr := errors.New("disk I/O error")
	wrappedErr := LogAndWrapErr(context.Background(), logger, "failed to create account", originalErr, "email", "a@b.c")

	if !errors.Is(wrappedErr, originalErr) {
		t.Error("Expected wrapped error to be identifiable with errors.Is")
	}
	if !strings.HasPrefix(wrappedErr.Error(), "failed to create account: ") {
		t.Errorf("Expected wrapped error to carry message, got: %s", wrappedErr.Error())
	}

	output := buf.String()
	if !strings.Contains(output, "level=ERROR") {
		t.Errorf("Expected log to be ERROR level, got: %s", output)
	}
	if !strings.Contains(output, `err="disk I/O error"`) {
		t.Errorf("Expected log to contain error, got: %s", output)
	}
}

func TestDebugAndWrapErr(t *testing.T) {
	var buf bytes.Buffer
	logger := createTestLogger(&buf)

	originalErr := errors.New("UNIQUE constraint failed")
	wrappedErr := DebugAndWrapErr(context.Background(), logger, "email taken", originalErr)

	if !errors.Is(wrappedErr, originalErr) {
		t.Error("Expected wrapped error to be identifiable with errors.Is")
	}
	if !strings.Contains(buf.String(), "level=DEBUG") {
		t.Errorf("Expected log to be DEBUG level, got: %s", buf.String())
	}
}

func TestWrapNilError(t *testing.T) {
	var buf bytes.Buffer
	logger := createTestLogger(&buf)

	if err := LogAndWrapErr(context.Background(), logger, "nothing", nil); err != nil {
		t.Errorf("Expected nil, got: %v", err)
	}
	if err := DebugAndWrapErr(context.Background(), logger, "nothing", nil); err != nil {
		t.Errorf("Expected nil, got: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("Expected no log output for nil error, got: %s", buf.String())
	}
}

func TestNewLevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := New(Config{Format: "json", Level: "warn", Stdout: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer closer.Close()

	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	output := buf.String()
	if strings.Contains(output, "hidden") {
		t.Errorf("Expected info to be filtered, got: %s", output)
	}
	if !strings.Contains(output, `"msg":"shown"`) || !strings.Contains(output, `"key":"value"`) {
		t.Errorf("Expected JSON record, got: %s", output)
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, _, err := New(Config{Level: "loud"}); err == nil {
		t.Error("Expected an error for an unknown level")
	}
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "truckbook.log")
	logger, closer, err := New(Config{File: path, MaxSizeMB: 1, MaxBackups: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("to the file")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "to the file") {
		t.Errorf("Expected file to contain record, got: %s", data)
	}
}

func sampledContext() context.Context {
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	return trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))
}

func TestTraceIDsAreStamped(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New(Config{Stdout: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := sampledContext()

	logger.With("component", "credential").InfoContext(ctx, "traced")
	logger.Info("untraced")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got: %q", lines)
	}
	if !strings.Contains(lines[0], "trace_id=4bf92f3577b34da6a3ce929d0e0e4736") ||
		!strings.Contains(lines[0], "span_id=00f067aa0ba902b7") ||
		!strings.Contains(lines[0], "component=credential") {
		t.Errorf("Expected span ids on traced record, got: %s", lines[0])
	}
	if strings.Contains(lines[1], "trace_id") {
		t.Errorf("Expected no trace id without a span, got: %s", lines[1])
	}
}

func TestHelpersCarryTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New(Config{Level: "debug", Stdout: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := sampledContext()

	_ = LogAndWrapErr(ctx, logger, "failed to look up account", errors.New("disk I/O error"))
	_ = DebugAndWrapErr(ctx, logger, "email taken", errors.New("UNIQUE constraint failed"))
	NewTimingLogger(ctx, logger, time.Now(), "called GetAccountByEmail")()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected 3 lines, got: %q", lines)
	}
	for _, line := range lines {
		if !strings.Contains(line, "trace_id=4bf92f3577b34da6a3ce929d0e0e4736") {
			t.Errorf("Expected trace id on record, got: %s", line)
		}
	}
}
