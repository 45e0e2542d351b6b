package session

import (
	"context"
	"log/slog"
	"sync/atomic"
)

const LOGIN_PATH = "/login"

type Navigator interface {
	Navigate(ctx context.Context, path string)
}

type NavigatorFunc func(ctx context.Context, path string)

func (f NavigatorFunc) Navigate(ctx context.Context, path string) {
	f(ctx, path)
}

// Clearer removes all credential material it holds.
type Clearer interface {
	Clear() error
}

type terminatorOption func(t *Terminator)

func WithLoginPath(path string) terminatorOption {
	return func(t *Terminator) {
		t.loginPath = path
	}
}

func WithLogger(logger *slog.Logger) terminatorOption {
	return func(t *Terminator) {
		t.log = logger
	}
}

// Terminator ends the local session: every credential location is cleared and
// the user is sent to the login entry point. Safe to call repeatedly.
type Terminator struct {
	clearers     []Clearer
	navigator    Navigator
	loginPath    string
	log          *slog.Logger
	terminations atomic.Int64
}

func NewTerminator(navigator Navigator, clearers []Clearer, opts ...terminatorOption) *Terminator {
	t := &Terminator{
		clearers:  clearers,
		navigator: navigator,
		loginPath: LOGIN_PATH,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Terminator) Terminate(ctx context.Context, reason error) {
	t.terminations.Add(1)

	attrs := []any{slog.String("login_path", t.loginPath)}
	if reason != nil {
		attrs = append(attrs, slog.String("reason", reason.Error()))
	}
	t.log.InfoContext(ctx, "terminating session", attrs...)

	for _, c := range t.clearers {
		if err := c.Clear(); err != nil {
			// keep going, the remaining locations must still be wiped
			t.log.ErrorContext(ctx, "unable to clear credentials", slog.String("reason", err.Error()))
		}
	}

	if t.navigator != nil {
		t.navigator.Navigate(ctx, t.loginPath)
	}
}

// Terminations reports how many times Terminate ran.
func (t *Terminator) Terminations() int64 {
	return t.terminations.Load()
}

func (t *Terminator) LoginPath() string {
	return t.loginPath
}
