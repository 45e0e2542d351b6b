package bslog

import (
	"context"
	"log/slog"
)

const LevelFatal = slog.Level(12)

func NewHandler(base slog.Handler, opts ...handlerOption) slog.Handler {
	for _, opt := range opts {
		base = opt(base)
	}

	return base
}

// SetDefault installs logger as the package level and slog default logger.
func SetDefault(logger *Logger) {
	slog.SetDefault(&logger.Logger)
}

func InfoContext(ctx context.Context, msg string, args ...any) {
	slog.InfoContext(ctx, msg, args...)
}

func Error(msg string, args ...any) {
	slog.Error(msg, args...)
}
