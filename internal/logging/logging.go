package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format selects the slog handler.
type Format int

const (
	Text Format = iota
	JSON
)

// FormatFor picks JSON when results are written to stdout, so log lines on
// stderr stay machine-readable beside the NDJSON records, and text otherwise.
func FormatFor(resultsOnStdout bool) Format {
	if resultsOnStdout {
		return JSON
	}
	return Text
}

// New builds a logger writing to w. attrs are attached to every record.
func New(w io.Writer, format Format, level slog.Level, attrs ...any) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if format == JSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler).With(attrs...)
}

// Init creates a stderr logger and installs it as the slog default.
func Init(resultsOnStdout bool, level slog.Level, attrs ...any) *slog.Logger {
	logger := New(os.Stderr, FormatFor(resultsOnStdout), level, attrs...)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel converts a string ("debug", "info", "warn", "error") to slog.Level.
// Unknown strings default to LevelInfo.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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
