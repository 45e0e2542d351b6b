package handlers

import (
	"context"
	"log/slog"
	"path/filepath"
	"runtime"
)

// Devmode tags every record with env=dev and the call site that logged it.
type Devmode struct {
	base slog.Handler
}

func NewDevModeHandler(base slog.Handler) slog.Handler {
	return &Devmode{base: base}
}

func (dm *Devmode) Enabled(ctx context.Context, level slog.Level) bool {
	return dm.base.Enabled(ctx, level)
}

func (dm *Devmode) Handle(ctx context.Context, record slog.Record) error {
	record.AddAttrs(slog.String("env", "dev"))

	if record.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{record.PC}).Next()
		record.AddAttrs(
			slog.Group(
				"caller",
				slog.String("func", filepath.Base(frame.Function)),
				slog.String("file", filepath.Base(frame.File)),
				slog.Int("line", frame.Line),
			),
		)
	}

	return dm.base.Handle(ctx, record)
}

func (dm *Devmode) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Devmode{base: dm.base.WithAttrs(attrs)}
}

func (dm *Devmode) WithGroup(name string) slog.Handler {
	return &Devmode{base: dm.base.WithGroup(name)}
}
