package globdex

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with globdex-specific helpers.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// WithField adds a field name to the logger.
func (l *Logger) WithField(field any) *Logger {
	return &Logger{
		Logger: l.Logger.With("field", field),
	}
}

// LogAdd logs an add operation.
func (l *Logger) LogAdd(ctx context.Context, bit uint64, valueLen int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "add failed",
			"bit", bit,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "add completed",
			"bit", bit,
			"value_len", valueLen,
		)
	}
}

// LogSearch logs a glob search.
func (l *Logger) LogSearch(ctx context.Context, pattern string, resultsFound int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "glob search failed",
			"pattern", pattern,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "glob search completed",
			"pattern", pattern,
			"results", resultsFound,
			"duration", duration,
		)
	}
}

// LogFlush logs a flush of deferred segment writes.
func (l *Logger) LogFlush(ctx context.Context, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "flush failed",
			"duration", duration,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "flush completed",
			"duration", duration,
		)
	}
}
