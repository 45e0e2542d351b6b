package jwt

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opinionlab/studyctl/pkg/persistence/store/redis"
)

var alice = Subject{ID: 1, Email: "alice@example.com"}

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time {
	return c.now
}

func newManager(t *testing.T, opts ...TokenManagerOption) (*TokenManager, *clock) {
	t.Helper()
	c := &clock{now: time.Now()}
	opts = append([]TokenManagerOption{WithClock(c.Now)}, opts...)
	return NewTokenManager(NewTokenIssuer([]byte("test-secret")), "studyctl-test", opts...), c
}

func TestIssueAndValidate(t *testing.T) {
	tm, _ := newManager(t)

	pair, err := tm.Issue(alice)
	require.NoError(t, err)
	require.NotEqual(t, pair.Access, pair.Refresh)

	claims, err := tm.Validate(pair.Access, ACCESS)
	require.NoError(t, err)
	assert.Equal(t, alice, claims.User())

	_, err = tm.Validate(pair.Refresh, ACCESS)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	_, err = tm.Validate(pair.Access, REFRESH)
	assert.ErrorIs(t, err, ErrWrongTokenType)
}

func TestAccessTokenExpires(t *testing.T) {
	tm, c := newManager(t, WithAccessLifetime(time.Minute))

	pair, err := tm.Issue(alice)
	require.NoError(t, err)

	c.now = c.now.Add(2 * time.Minute)
	_, err = tm.Validate(pair.Access, ACCESS)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = tm.Validate(pair.Refresh, REFRESH)
	assert.NoError(t, err, "refresh token outlives the access token")
}

func TestForeignSecretIsRejected(t *testing.T) {
	tm, _ := newManager(t)
	other := NewTokenManager(NewTokenIssuer([]byte("other-secret")), "studyctl-test")

	pair, err := other.Issue(alice)
	require.NoError(t, err)

	_, err = tm.Validate(pair.Access, ACCESS)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRotateBlacklistsOldRefreshToken(t *testing.T) {
	tm, _ := newManager(t)

	first, err := tm.Issue(alice)
	require.NoError(t, err)

	second, err := tm.Rotate(first.Refresh)
	require.NoError(t, err)
	assert.NotEqual(t, first.Refresh, second.Refresh)

	claims, err := tm.Validate(second.Access, ACCESS)
	require.NoError(t, err)
	assert.Equal(t, alice, claims.User())

	_, err = tm.Rotate(first.Refresh)
	assert.ErrorIs(t, err, ErrBlacklisted)

	_, err = tm.Rotate(second.Refresh)
	assert.NoError(t, err)
}

func TestRevoke(t *testing.T) {
	tm, _ := newManager(t)

	pair, err := tm.Issue(alice)
	require.NoError(t, err)
	require.NoError(t, tm.Revoke(pair.Refresh))

	_, err = tm.Rotate(pair.Refresh)
	assert.ErrorIs(t, err, ErrBlacklisted)
}

func TestBlacklistSharedThroughRedis(t *testing.T) {
	srv := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { rdb.Close() })

	blacklist := redis.NewStore[time.Time](rdb, "blacklist:", redis.WithTTL(DEFAULT_REFRESH_LIFETIME))
	tm, _ := newManager(t, WithBlacklist(blacklist))
	replica, _ := newManager(t, WithBlacklist(blacklist))

	pair, err := tm.Issue(alice)
	require.NoError(t, err)
	_, err = tm.Rotate(pair.Refresh)
	require.NoError(t, err)

	_, err = replica.Rotate(pair.Refresh)
	assert.ErrorIs(t, err, ErrBlacklisted)
}

func TestExpiresAt(t *testing.T) {
	tm, c := newManager(t)

	pair, err := tm.Issue(alice)
	require.NoError(t, err)

	exp, err := ExpiresAt(pair.Access)
	require.NoError(t, err)
	assert.WithinDuration(t, c.now.Add(DEFAULT_ACCESS_LIFETIME), exp, time.Second)

	_, err = ExpiresAt("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
