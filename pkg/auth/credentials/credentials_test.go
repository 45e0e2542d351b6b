package credentials

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/opinionlab/studyctl/pkg/persistence/store/memory"
	"github.com/opinionlab/studyctl/pkg/persistence/store/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessOnEmptyStore(t *testing.T) {
	store := NewStore(memory.NewStore[string]())

	access, ok := store.Access()
	assert.False(t, ok)
	assert.Empty(t, access)

	refresh, ok := store.Refresh()
	assert.False(t, ok)
	assert.Empty(t, refresh)
}

func TestSetSkipsEmptyValues(t *testing.T) {
	store := NewStore(memory.NewStore[string]())

	require.NoError(t, store.Set("access-1", "refresh-1"))
	require.NoError(t, store.Set("access-2", ""))

	assert.Equal(t, Pair{Access: "access-2", Refresh: "refresh-1"}, store.Pair())
}

func TestClear(t *testing.T) {
	store := NewStore(memory.NewStore[string]())
	require.NoError(t, store.Set("access", "refresh"))

	require.NoError(t, store.Clear())
	assert.True(t, store.Pair().Empty())
	require.NoError(t, store.Clear(), "clearing an empty store is fine")
}

func TestMirrorWriteThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	mirror := redis.NewStore[string](client, "session:", redis.WithTTL(DefaultMirrorTTL))
	store := NewStore(memory.NewStore[string](), WithMirror(mirror))

	require.NoError(t, store.Set("access", "refresh"))

	got, err := mirror.Load(AccessKey)
	require.NoError(t, err)
	assert.Equal(t, "access", got)
	assert.Equal(t, DefaultMirrorTTL, mr.TTL("session:"+RefreshKey))

	// reads never consult the mirror
	require.NoError(t, mirror.Save(AccessKey, "mirror-only"))
	access, _ := store.Access()
	assert.Equal(t, "access", access)

	require.NoError(t, store.Clear())
	assert.False(t, mr.Exists("session:"+AccessKey))
	assert.False(t, mr.Exists("session:"+RefreshKey))
}

func TestMirrorFailureDoesNotFailSet(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	mirror := redis.NewStore[string](client, "session:")

	store := NewStore(memory.NewStore[string](), WithMirror(mirror))
	mr.Close()

	require.NoError(t, store.Set("access", "refresh"))
	assert.Equal(t, Pair{Access: "access", Refresh: "refresh"}, store.Pair())
}
