// logging_zerolog.go: zerolog adapter for the Logger interface
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package buildhooks

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ZerologLogger adapts a zerolog.Logger to the Logger interface.
//
// Key-value pairs are written as structured fields. A trailing key without a
// value is logged under "!BADKEY", matching log/slog conventions.
type ZerologLogger struct {
	zl zerolog.Logger
}

// NewZerologLogger wraps an existing zerolog logger.
func NewZerologLogger(zl zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{zl: zl}
}

// NewConsoleLogger builds a human-readable zerolog logger on out at the given
// level ("debug", "info", "warn", "error"). format "json" skips the console
// writer.
func NewConsoleLogger(out io.Writer, level, format string) (*ZerologLogger, error) {
	if out == nil {
		out = os.Stderr
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, NewConfigValidationError(fmt.Sprintf("invalid log level %q", level), err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var w io.Writer = out
	if format != "json" {
		w = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}

	zl := zerolog.New(w).
		Level(lvl).
		With().
		Timestamp().
		Logger()
	return NewZerologLogger(zl), nil
}

func (z *ZerologLogger) Debug(msg string, args ...any) { z.emit(z.zl.Debug(), msg, args) }
func (z *ZerologLogger) Info(msg string, args ...any)  { z.emit(z.zl.Info(), msg, args) }
func (z *ZerologLogger) Warn(msg string, args ...any)  { z.emit(z.zl.Warn(), msg, args) }
func (z *ZerologLogger) Error(msg string, args ...any) { z.emit(z.zl.Error(), msg, args) }

// With returns a logger carrying the given key-value pairs on every entry.
func (z *ZerologLogger) With(args ...any) Logger {
	ctx := z.zl.With()
	for i := 0; i < len(args); i += 2 {
		key, value := pairAt(args, i)
		ctx = ctx.Interface(key, value)
	}
	return &ZerologLogger{zl: ctx.Logger()}
}

func (z *ZerologLogger) emit(ev *zerolog.Event, msg string, args []any) {
	if ev == nil {
		return
	}
	for i := 0; i < len(args); i += 2 {
		key, value := pairAt(args, i)
		if err, ok := value.(error); ok {
			ev = ev.AnErr(key, err)
			continue
		}
		ev = ev.Interface(key, value)
	}
	ev.Msg(msg)
}

func pairAt(args []any, i int) (string, any) {
	if i+1 >= len(args) {
		return "!BADKEY", args[i]
	}
	key, ok := args[i].(string)
	if !ok {
		key = fmt.Sprint(args[i])
	}
	return key, args[i+1]
}
