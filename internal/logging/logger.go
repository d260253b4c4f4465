// Package logging defines the structured logger shared by the gateway, the
// HTTP API and the background jobs.
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// Logger is a context-aware, structured logger.
//
// The variadic args are key-value pairs, e.g.:
//
//	log.Info(ctx, "book borrowed", "book_id", bookID, "user_id", userID)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given pairs.
	With(args ...any) Logger
}

// New builds a slog-backed Logger writing to w. format is "json" or "text";
// unknown levels fall back to info.
func New(level, format string, w io.Writer) Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var h slog.Handler
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return NewSlogLogger(slog.New(h))
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// ParseLevel maps a config string onto a slog level.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
