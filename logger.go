package match

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with match-specific context.
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
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithPath adds a path field to the logger.
func (l *Logger) WithPath(path string) *Logger {
	return &Logger{
		Logger: l.Logger.With("path", path),
	}
}

// LogAdd logs an add operation.
func (l *Logger) LogAdd(ctx context.Context, path, id string, superseded int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "add failed",
			"path", path,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "add completed",
			"path", path,
			"id", id,
			"superseded", superseded,
		)
	}
}

// LogDelete logs a delete operation.
func (l *Logger) LogDelete(ctx context.Context, path string, removed int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "delete failed",
			"path", path,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "delete completed",
			"path", path,
			"removed", removed,
		)
	}
}

// LogSearch logs a search operation.
func (l *Logger) LogSearch(ctx context.Context, allOrientations bool, resultsFound int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed",
			"all_orientations", allOrientations,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "search completed",
			"all_orientations", allOrientations,
			"results", resultsFound,
		)
	}
}

// LogCompare logs a pairwise comparison.
func (l *Logger) LogCompare(ctx context.Context, score float64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "compare failed",
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "compare completed",
			"score", score,
		)
	}
}
