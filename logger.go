package nvmesampler

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with sampler-specific context.
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
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithSampler adds the sampler instance id to every record.
func (l *Logger) WithSampler(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("sampler_id", id),
	}
}

// LogOpen logs a successful Open.
func (l *Logger) LogOpen(ctx context.Context, cfg Config, capacity int, seed uint32, source string) {
	l.InfoContext(ctx, "sampler opened",
		"source", source,
		"num_rows", cfg.NumRows,
		"row_size", cfg.RowSize,
		"max_batch", cfg.MaxBatchElements,
		"threads", cfg.MaxNumThreads,
		"capacity", capacity,
		"seed", seed,
	)
}

// LogBatch logs the outcome of ReadBatch.
func (l *Logger) LogBatch(ctx context.Context, n int, wait time.Duration, err error) {
	if err != nil {
		var re *ReadError
		if errors.As(err, &re) {
			l.ErrorContext(ctx, "batch read failed",
				"size", n,
				"row", re.Row,
				"slot", re.Slot,
				"offset", re.Offset,
				"error", re.Err,
			)
		}
		return
	}
	l.DebugContext(ctx, "batch ready",
		"size", n,
		"wait", wait,
	)
}

// LogClose logs the end of Close. Teardown failures are logged one by one
// at warn level before this.
func (l *Logger) LogClose(ctx context.Context, stats Stats, err error) {
	if err != nil {
		l.WarnContext(ctx, "sampler closed with errors",
			"batches", stats.Batches,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "sampler closed",
		"batches", stats.Batches,
		"rows", stats.Rows,
		"bytes_read", stats.BytesRead,
	)
}
