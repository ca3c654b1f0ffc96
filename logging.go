// logging.go: Pluggable logging for the hook engine
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package buildhooks

import (
	"context"
	"sync"
)

// loggerContextKey is a custom type for context keys to avoid collisions
type loggerContextKey string

const (
	loggerKey loggerContextKey = "logger"
)

// Logger defines the pluggable logging interface used by the registry, the
// hooks and the exit coordinator.
//
// Any logging framework can be plugged in by implementing these five methods.
// ZerologLogger adapts a zerolog.Logger; NoOpLogger discards everything and is
// the default when no logger is configured.
//
// Example usage:
//
//	registry := buildhooks.NewRegistry(buildhooks.RegistryConfig{
//	    Logger: buildhooks.NewZerologLogger(zerolog.New(os.Stderr)),
//	})
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg string, args ...any)

	// Info logs an info message with optional key-value pairs
	Info(msg string, args ...any)

	// Warn logs a warning message with optional key-value pairs
	Warn(msg string, args ...any)

	// Error logs an error message with optional key-value pairs
	Error(msg string, args ...any)

	// With returns a new logger with persistent context key-value pairs
	With(args ...any) Logger
}

// NewLogger creates a Logger from supported logger types.
//
// Supported types:
//   - Logger interface: Used directly
//   - nil: Returns NoOpLogger for silent operation
//   - Unsupported types: Panic with descriptive message
func NewLogger(logger any) Logger {
	switch l := logger.(type) {
	case Logger:
		return l
	case nil:
		return NewNoOpLogger()
	default:
		panic("unsupported logger type: expected Logger interface or nil")
	}
}

// NoOpLogger discards all log messages.
type NoOpLogger struct{}

// NewNoOpLogger creates a new no-operation logger.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (n *NoOpLogger) Debug(msg string, args ...any) {}
func (n *NoOpLogger) Info(msg string, args ...any)  {}
func (n *NoOpLogger) Warn(msg string, args ...any)  {}
func (n *NoOpLogger) Error(msg string, args ...any) {}

// With implements Logger interface (no-op)
func (n *NoOpLogger) With(args ...any) Logger {
	return n
}

// TestLogger captures log messages for assertions in tests.
//
// Loggers derived through With share the parent's message sink, so messages
// written by a plugin-scoped logger are visible on the root TestLogger.
type TestLogger struct {
	sink   *testLogSink
	fields []any
}

type testLogSink struct {
	mu       sync.RWMutex
	messages []TestLogMessage
}

// TestLogMessage represents a captured log message for testing.
type TestLogMessage struct {
	Level   string
	Message string
	Args    []any
}

// NewTestLogger creates a new test logger.
func NewTestLogger() *TestLogger {
	return &TestLogger{sink: &testLogSink{}}
}

func (t *TestLogger) record(level, msg string, args []any) {
	all := make([]any, 0, len(t.fields)+len(args))
	all = append(all, t.fields...)
	all = append(all, args...)

	t.sink.mu.Lock()
	defer t.sink.mu.Unlock()
	t.sink.messages = append(t.sink.messages, TestLogMessage{
		Level:   level,
		Message: msg,
		Args:    all,
	})
}

func (t *TestLogger) Debug(msg string, args ...any) { t.record("DEBUG", msg, args) }
func (t *TestLogger) Info(msg string, args ...any)  { t.record("INFO", msg, args) }
func (t *TestLogger) Warn(msg string, args ...any)  { t.record("WARN", msg, args) }
func (t *TestLogger) Error(msg string, args ...any) { t.record("ERROR", msg, args) }

// With returns a logger that shares this logger's sink and prepends fields.
func (t *TestLogger) With(args ...any) Logger {
	fields := make([]any, 0, len(t.fields)+len(args))
	fields = append(fields, t.fields...)
	fields = append(fields, args...)
	return &TestLogger{sink: t.sink, fields: fields}
}

// Messages returns a copy of the captured messages.
func (t *TestLogger) Messages() []TestLogMessage {
	t.sink.mu.RLock()
	defer t.sink.mu.RUnlock()
	out := make([]TestLogMessage, len(t.sink.messages))
	copy(out, t.sink.messages)
	return out
}

// HasMessage reports whether a message with the given level and text was captured.
func (t *TestLogger) HasMessage(level, message string) bool {
	t.sink.mu.RLock()
	defer t.sink.mu.RUnlock()
	for _, msg := range t.sink.messages {
		if msg.Level == level && msg.Message == message {
			return true
		}
	}
	return false
}

// Clear removes all captured messages.
func (t *TestLogger) Clear() {
	t.sink.mu.Lock()
	defer t.sink.mu.Unlock()
	t.sink.messages = t.sink.messages[:0]
}

// DefaultLogger returns the logger used when none is configured.
func DefaultLogger() Logger {
	return NewNoOpLogger()
}

// LoggerFromContext extracts a logger from context if available.
//
// Hook calls attach the registry logger, scoped with the hook name, to the
// context handed to every tap.
func LoggerFromContext(ctx context.Context) Logger {
	if logger, ok := ctx.Value(loggerKey).(Logger); ok {
		return logger
	}

	return DefaultLogger()
}

// ContextWithLogger adds a logger to the context.
func ContextWithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}
