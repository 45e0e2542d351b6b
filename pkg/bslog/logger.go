package bslog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	ENV_DEV  = "dev"
	ENV_PROD = "prod"
)

type Logger struct {
	slog.Logger
}

// NewLogger writes text records in dev and JSON records otherwise.
func NewLogger(env string, level slog.Level, w io.Writer) *Logger {
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: BaseReplaceAttr,
	}

	var handler slog.Handler
	if env == ENV_DEV {
		handler = NewHandler(slog.NewTextHandler(w, opts), InDevMode())
	} else {
		handler = NewHandler(slog.NewJSONHandler(w, opts))
	}

	return &Logger{Logger: *slog.New(handler)}
}

// ParseLevel accepts the slog level names plus "fatal".
func ParseLevel(s string) (slog.Level, error) {
	if strings.EqualFold(s, "fatal") {
		return LevelFatal, nil
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", s)
	}
	return level, nil
}

func (l *Logger) Slog() *slog.Logger {
	return &l.Logger
}

func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: *l.Logger.With(args...)}
}

func (l *Logger) Fatal(msg string, args ...any) {
	l.Log(context.Background(), LevelFatal, msg, args...)
	os.Exit(1)
}

func (l *Logger) FatalContext(ctx context.Context, msg string, args ...any) {
	l.Log(ctx, LevelFatal, msg, args...)
	os.Exit(1)
}
