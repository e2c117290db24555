package logger

import (
	"io"
	"log/slog"
	"os"
)

// New returns a structured logger: JSON in production so log shippers can
// parse it, human-readable text everywhere else.
func New(environment string) *slog.Logger {
	return NewWithWriter(os.Stdout, environment)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, environment string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if environment == "development" {
		opts.Level = slog.LevelDebug
	}
	var handler slog.Handler
	if environment == "production" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler).With("service", "huanbo-web")
}
