// Package logger is the structured logging layer of via2coco, a thin
// module-aware wrapper over log/slog.
//
// Packages take a Logger and narrow it to their own module:
//
//	log := central.Module("convert")
//	log.Info("conversion finished",
//	    logger.Int("images", 12),
//	    logger.Int("annotations", 40))
//
// The console gets plain text without timestamps. The optional log file gets
// JSON lines with RFC3339 timestamps. Tests write to a buffer through
// NewSlogLogger or drop everything with NewDiscard.
package logger

import (
	"context"
	"time"
)

// LogLevel is a level name as used in the configuration.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

const (
	errorKey  = "error"
	moduleKey = "module"
	runIDKey  = "run_id"
)

// Field is one key/value pair of a log record.
type Field struct {
	Key   string
	Value any
}

// Logger is passed to every component that logs.
type Logger interface {
	// Module returns a logger whose records carry module=name. Nested calls
	// join names with a dot.
	Module(name string) Logger

	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// With returns a logger that adds fields to every record.
	With(fields ...Field) Logger
	// WithContext returns a logger tagged with the run ID stored in ctx.
	WithContext(ctx context.Context) Logger

	Log(level LogLevel, msg string, fields ...Field)

	Flush() error
}

func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Strings logs values as a list.
func Strings(key string, values []string) Field {
	return Field{Key: key, Value: values}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

// Float64 values are rounded to three decimals on output.
func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// Error logs err under the key "error"; a nil err logs a null.
func Error(err error) Field {
	if err == nil {
		return Field{Key: errorKey, Value: nil}
	}
	return Field{Key: errorKey, Value: err.Error()}
}

// Duration is rendered rounded to milliseconds, e.g. "1.5s".
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value}
}

// RunID tags a record with the id of a conversion run.
func RunID(id string) Field {
	return Field{Key: runIDKey, Value: id}
}

func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

type runIDContextKey struct{}

// WithRunID stores a conversion run id in ctx for WithContext.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDContextKey{}, runID)
}

// RunIDFromContext returns the run id stored by WithRunID.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(runIDContextKey{}).(string)
	return id, ok && id != ""
}
