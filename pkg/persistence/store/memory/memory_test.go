package memory

import (
	"testing"

	"github.com/opinionlab/studyctl/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	s := NewStore[string]()

	require.NoError(t, s.Save("refreshToken", "r1"))
	require.NoError(t, s.Save("token", "a1"))

	val, err := s.Load("token")
	require.NoError(t, err)
	assert.Equal(t, "a1", val)

	all, err := s.LoadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "a1"}, all, "ordered by key")

	require.NoError(t, s.Delete("token"))
	_, err = s.Load("token")
	assert.ErrorIs(t, err, persistence.ErrNotFound)
	assert.Equal(t, 1, s.Len())
}
