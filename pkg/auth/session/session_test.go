package session

import (
	"context"
	"errors"
	"testing"

	"github.com/opinionlab/studyctl/pkg/auth/credentials"
	"github.com/opinionlab/studyctl/pkg/persistence/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingClearer struct{ calls int }

func (f *failingClearer) Clear() error {
	f.calls++
	return errors.New("disk on fire")
}

func TestTerminateClearsAndNavigates(t *testing.T) {
	creds := credentials.NewStore(memory.NewStore[string]())
	require.NoError(t, creds.Set("access", "refresh"))

	var navigated []string
	term := NewTerminator(NavigatorFunc(func(_ context.Context, path string) {
		navigated = append(navigated, path)
	}), []Clearer{creds})

	term.Terminate(context.Background(), errors.New("refresh rejected"))

	assert.True(t, creds.Pair().Empty())
	assert.Equal(t, []string{LOGIN_PATH}, navigated)
	assert.EqualValues(t, 1, term.Terminations())
}

func TestTerminateIsIdempotent(t *testing.T) {
	creds := credentials.NewStore(memory.NewStore[string]())
	require.NoError(t, creds.Set("access", "refresh"))

	count := 0
	term := NewTerminator(NavigatorFunc(func(context.Context, string) { count++ }), []Clearer{creds}, WithLoginPath("/signin"))

	term.Terminate(context.Background(), nil)
	term.Terminate(context.Background(), nil)

	assert.True(t, creds.Pair().Empty())
	assert.Equal(t, 2, count)
	assert.Equal(t, "/signin", term.LoginPath())
}

func TestTerminateContinuesAfterClearFailure(t *testing.T) {
	broken := &failingClearer{}
	creds := credentials.NewStore(memory.NewStore[string]())
	require.NoError(t, creds.Set("access", "refresh"))

	navigated := false
	term := NewTerminator(NavigatorFunc(func(context.Context, string) { navigated = true }), []Clearer{broken, creds})

	term.Terminate(context.Background(), nil)

	assert.Equal(t, 1, broken.calls)
	assert.True(t, creds.Pair().Empty())
	assert.True(t, navigated)
}
