// Package log provides structured logging for the wesolowski-vdf module. It
// wraps Go's log/slog with per-module child loggers, the same shape used
// across the rest of the eth2030 stack.
package log

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with module-scoped context and a fixed
// field-redaction pass: this module's callers pass VDF witnesses (x, h, pi,
// nonce, the modulus n) as log arguments during development, and none of
// those values belong in a production log stream -- only their sizes and
// derived durations do. redactedKeys is checked on every logged key-value
// pair regardless of call site, so a stray "nonce", args... in a Debug call
// added later can't leak a value that was meant to stay out of the log.
type Logger struct {
	inner *slog.Logger
}

// redactedKeys holds the argument keys whose values are replaced with
// "[redacted]" before they reach the underlying handler. These are exactly
// the field names the VDF/beacon packages pass around: raw big-integer
// witnesses and the challenge nonce.
var redactedKeys = map[string]bool{
	"x":     true,
	"h":     true,
	"pi":    true,
	"n":     true,
	"l":     true,
	"nonce": true,
	"seed":  true,
}

// defaultLogger is the process-wide logger used by the package-level
// convenience functions.
var defaultLogger *Logger

func init() {
	defaultLogger = New(slog.LevelInfo)
}

// New creates a Logger that writes JSON to stderr at the given level.
func New(level slog.Level) *Logger {
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{inner: slog.New(h)}
}

// NewWithHandler creates a Logger backed by the supplied slog.Handler. This
// is useful for testing or for writing to a custom destination.
func NewWithHandler(h slog.Handler) *Logger {
	return &Logger{inner: slog.New(h)}
}

// SetDefault replaces the package-level default logger.
func SetDefault(l *Logger) {
	if l != nil {
		defaultLogger = l
	}
}

// Default returns the current package-level default logger.
func Default() *Logger {
	return defaultLogger
}

// Module returns a child logger with an additional "module" attribute. This
// is the primary way subsystems (vdf, montgomery, vdf-beacon, ...) obtain
// their own contextual logger.
func (l *Logger) Module(name string) *Logger {
	return &Logger{inner: l.inner.With("module", name)}
}

// With returns a child logger with additional key-value context, redacted
// per redactedKeys before it's attached.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{inner: l.inner.With(redact(args)...)}
}

// Debug logs at LevelDebug.
func (l *Logger) Debug(msg string, args ...any) { l.inner.Debug(msg, redact(args)...) }

// Info logs at LevelInfo.
func (l *Logger) Info(msg string, args ...any) { l.inner.Info(msg, redact(args)...) }

// Warn logs at LevelWarn.
func (l *Logger) Warn(msg string, args ...any) { l.inner.Warn(msg, redact(args)...) }

// Error logs at LevelError.
func (l *Logger) Error(msg string, args ...any) { l.inner.Error(msg, redact(args)...) }

// redact returns a copy of args with the value of any key in redactedKeys
// replaced by "[redacted]". args follows the same convention slog itself
// uses: a string key takes the next element as its value, while a slog.Attr
// (or any other non-string element) stands alone. A trailing unpaired key is
// left as-is since there's no value to redact.
func redact(args []any) []any {
	out := make([]any, len(args))
	copy(out, args)
	for i := 0; i < len(out); {
		switch a := out[i].(type) {
		case string:
			if i+1 < len(out) && redactedKeys[a] {
				out[i+1] = "[redacted]"
			}
			i += 2
		case slog.Attr:
			if redactedKeys[a.Key] {
				out[i] = slog.String(a.Key, "[redacted]")
			}
			i++
		default:
			i++
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Package-level convenience functions -- delegate to defaultLogger.
// ---------------------------------------------------------------------------

// Debug logs at LevelDebug using the default logger.
func Debug(msg string, args ...any) { defaultLogger.Debug(msg, args...) }

// Info logs at LevelInfo using the default logger.
func Info(msg string, args ...any) { defaultLogger.Info(msg, args...) }

// Warn logs at LevelWarn using the default logger.
func Warn(msg string, args ...any) { defaultLogger.Warn(msg, args...) }

// Error logs at LevelError using the default logger.
func Error(msg string, args ...any) { defaultLogger.Error(msg, args...) }
