package bslog

import (
	"log/slog"

	"github.com/opinionlab/studyctl/pkg/bslog/handlers"
)

var CustomLevelNames = map[slog.Level]string{
	LevelFatal: "FATAL",
}

type ReplaceAttrFunc func(groups []string, a slog.Attr) slog.Attr

// BaseReplaceAttr names custom levels, drops empty string attributes and
// masks anything that looks like a credential.
func BaseReplaceAttr(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		level := a.Value.Any().(slog.Level)
		levelLabel, exists := CustomLevelNames[level]

		if !exists {
			levelLabel = level.String()
		}
		a.Value = slog.StringValue(levelLabel)
	}

	if a.Value.Kind() == slog.KindString && a.Value.String() == "" { // if empty value in KEY:VALUE pair
		return slog.Attr{}
	}

	if _, secret := redactedKeys[a.Key]; secret {
		a.Value = slog.StringValue("[REDACTED]")
	}

	return a
}

var redactedKeys = map[string]struct{}{
	"access":        {},
	"refresh":       {},
	"password":      {},
	"authorization": {},
}

type handlerOption func(base slog.Handler) slog.Handler

func InDevMode() handlerOption {
	return func(base slog.Handler) slog.Handler {
		return handlers.NewDevModeHandler(base)
	}
}
