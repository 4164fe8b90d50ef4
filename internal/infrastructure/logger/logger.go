package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger defines the logging interface
type Logger interface {
	LogInfo(ctx context.Context, msg string, attrs ...any)
	LogError(ctx context.Context, msg string, err error, attrs ...any)
	LogWarning(ctx context.Context, msg string, attrs ...any)
	WithRequestID(requestID string) Logger
	With(attrs ...any) Logger
}

// StructuredLogger implements the Logger interface
type StructuredLogger struct {
	*slog.Logger
}

// NewLogger creates a new structured logger writing JSON to stdout
func NewLogger() Logger {
	return NewLoggerWithWriter(os.Stdout, slog.LevelInfo)
}

// NewLoggerWithWriter creates a structured logger writing JSON to w at the given level
func NewLoggerWithWriter(w io.Writer, level slog.Level) Logger {
	opts := &slog.HandlerOptions{
		Level: level,
	}
	handler := slog.NewJSONHandler(w, opts)
	return &StructuredLogger{
		Logger: slog.New(handler),
	}
}

// NewNopLogger discards everything. Used by tests and the simulate command's quiet mode.
func NewNopLogger() Logger {
	return NewLoggerWithWriter(io.Discard, slog.LevelError)
}

// WithRequestID adds a request ID to the logger context
func (l *StructuredLogger) WithRequestID(requestID string) Logger {
	return l.With("request_id", requestID)
}

// With returns a logger that adds attrs to every record
func (l *StructuredLogger) With(attrs ...any) Logger {
	return &StructuredLogger{
		Logger: l.Logger.With(attrs...),
	}
}

// LogError logs an error with context
func (l *StructuredLogger) LogError(ctx context.Context, msg string, err error, attrs ...any) {
	if err != nil {
		attrs = append([]any{"error", err.Error()}, attrs...)
	}
	l.Logger.ErrorContext(ctx, msg, attrs...)
}

// LogInfo logs an info message with context
func (l *StructuredLogger) LogInfo(ctx context.Context, msg string, attrs ...any) {
	l.Logger.InfoContext(ctx, msg, attrs...)
}

// LogWarning logs a warning message with context
func (l *StructuredLogger) LogWarning(ctx context.Context, msg string, attrs ...any) {
	l.Logger.WarnContext(ctx, msg, attrs...)
}
