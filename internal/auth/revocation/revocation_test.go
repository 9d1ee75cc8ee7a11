package revocation_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aussiebroadwan/lectern/internal/auth/domain"
	"github.com/aussiebroadwan/lectern/internal/auth/revocation"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*revocation.Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := revocation.NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}), "")
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func backends(t *testing.T) map[string]revocation.Cache {
	r, _ := newRedis(t)
	return map[string]revocation.Cache{
		"redis":  r,
		"memory": revocation.NewMemory(),
	}
}

func TestSessionRevocation(t *testing.T) {
	for name, c := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, ok, err := c.SessionRevocation(ctx, "sid-1")
			require.NoError(t, err)
			require.False(t, ok)

			rev := domain.SessionRevocation{
				PrincipalID: "p-1",
				Reason:      domain.RevokeSuperseded,
				RevokedAt:   time.Now().UTC().Truncate(time.Millisecond),
			}
			require.NoError(t, c.RevokeSession(ctx, "sid-1", rev, time.Hour))

			got, ok, err := c.SessionRevocation(ctx, "sid-1")
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, rev.PrincipalID, got.PrincipalID)
			require.Equal(t, rev.Reason, got.Reason)
			require.True(t, rev.RevokedAt.Equal(got.RevokedAt))

			_, ok, err = c.SessionRevocation(ctx, "sid-2")
			require.NoError(t, err)
			require.False(t, ok)
		})
	}
}

func TestTokenBlacklist(t *testing.T) {
	for name, c := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			revoked, err := c.IsTokenRevoked(ctx, "raw.token.value")
			require.NoError(t, err)
			require.False(t, revoked)

			require.NoError(t, c.RevokeToken(ctx, "raw.token.value", time.Hour))

			revoked, err = c.IsTokenRevoked(ctx, "raw.token.value")
			require.NoError(t, err)
			require.True(t, revoked)

			revoked, err = c.IsTokenRevoked(ctx, "other.token.value")
			require.NoError(t, err)
			require.False(t, revoked)
		})
	}
}

func TestRedisKeysAreFingerprinted(t *testing.T) {
	c, mr := newRedis(t)
	ctx := context.Background()

	require.NoError(t, c.RevokeToken(ctx, "secret-token", time.Hour))
	require.NoError(t, c.RevokeSession(ctx, "sid-9", domain.SessionRevocation{PrincipalID: "p"}, time.Hour))

	keys := mr.Keys()
	require.Len(t, keys, 2)
	for _, k := range keys {
		require.NotContains(t, k, "secret-token")
		require.Regexp(t, `^lectern:(session:sid-9|revoked:token:[A-Za-z0-9_-]{43})$`, k)
	}
}

func TestRedisEntriesExpire(t *testing.T) {
	c, mr := newRedis(t)
	ctx := context.Background()

	require.NoError(t, c.RevokeToken(ctx, "tok", time.Minute))
	require.NoError(t, c.RevokeSession(ctx, "sid", domain.SessionRevocation{}, time.Minute))
	mr.FastForward(2 * time.Minute)

	revoked, err := c.IsTokenRevoked(ctx, "tok")
	require.NoError(t, err)
	require.False(t, revoked)

	_, ok, err := c.SessionRevocation(ctx, "sid")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisFailsClosed(t *testing.T) {
	c, mr := newRedis(t)
	ctx := context.Background()
	mr.Close()

	_, err := c.IsTokenRevoked(ctx, "tok")
	require.ErrorIs(t, err, revocation.ErrUnavailable)

	_, _, err = c.SessionRevocation(ctx, "sid")
	require.ErrorIs(t, err, revocation.ErrUnavailable)

	require.ErrorIs(t, c.RevokeToken(ctx, "tok", time.Minute), revocation.ErrUnavailable)
	require.ErrorIs(t, c.Ping(ctx), revocation.ErrUnavailable)
}

func TestMemoryClosedFailsClosed(t *testing.T) {
	m := revocation.NewMemory()
	ctx := context.Background()
	require.NoError(t, m.RevokeToken(ctx, "tok", time.Minute))
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	_, err := m.IsTokenRevoked(ctx, "tok")
	require.ErrorIs(t, err, revocation.ErrUnavailable)
	require.ErrorIs(t, m.Ping(ctx), revocation.ErrUnavailable)
}

func TestMemoryEntriesExpire(t *testing.T) {
	m := revocation.NewMemory()
	t.Cleanup(func() { _ = m.Close() })
	ctx := context.Background()

	require.NoError(t, m.RevokeToken(ctx, "tok", 50*time.Millisecond))
	require.NoError(t, m.RevokeSession(ctx, "sid", domain.SessionRevocation{PrincipalID: "p"}, 50*time.Millisecond))
	require.NoError(t, m.RevokeToken(ctx, "long", time.Hour))

	// Reads do not extend a revocation's lifetime.
	require.Eventually(t, func() bool {
		revoked, err := m.IsTokenRevoked(ctx, "tok")
		require.NoError(t, err)
		_, hit, err := m.SessionRevocation(ctx, "sid")
		require.NoError(t, err)
		return !revoked && !hit
	}, time.Second, 10*time.Millisecond)

	revoked, err := m.IsTokenRevoked(ctx, "long")
	require.NoError(t, err)
	require.True(t, revoked)
}

func TestNewRedisFromURL(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := revocation.NewRedisFromURL(context.Background(), "redis://"+mr.Addr()+"/0", revocation.RedisOptions{KeyPrefix: "test:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, c.RevokeToken(context.Background(), "tok", time.Minute))
	require.Len(t, mr.Keys(), 1)
	require.Contains(t, mr.Keys()[0], "test:revoked:token:")

	_, err = revocation.NewRedisFromURL(context.Background(), "not a url", revocation.RedisOptions{})
	require.Error(t, err)
}
