package identity_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/benxgao/certifai-gateway/internal/gateway/identity"
)

func cacheClaims(sub string, exp time.Time) identity.Claims {
	return identity.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
}

func TestCachePutGet(t *testing.T) {
	c := identity.NewCache(5*time.Minute, 0)

	c.Put("fp-1", cacheClaims("user-1", time.Now().Add(time.Hour)))

	got, ok := c.Get("fp-1")
	require.True(t, ok)
	require.Equal(t, "user-1", got.Subject)

	_, ok = c.Get("fp-unknown")
	require.False(t, ok)
}

func TestCacheEntryNeverOutlivesToken(t *testing.T) {
	c := identity.NewCache(5*time.Minute, 0)

	// Token expires before the cache TTL would
	c.Put("fp-1", cacheClaims("user-1", time.Now().Add(-time.Second)))

	_, ok := c.Get("fp-1")
	require.False(t, ok, "expired token must not be served from cache")
	require.Equal(t, 0, c.Len())
}

func TestCacheInvalidateAll(t *testing.T) {
	c := identity.NewCache(5*time.Minute, 0)

	c.Put("fp-1", cacheClaims("user-1", time.Now().Add(time.Hour)))
	c.Put("fp-2", cacheClaims("user-2", time.Now().Add(time.Hour)))

	before, after := c.InvalidateAll()
	require.Equal(t, 2, before)
	require.Equal(t, 0, after)

	// Idempotent: the second call's before equals the first call's after
	before2, after2 := c.InvalidateAll()
	require.Equal(t, after, before2)
	require.Equal(t, 0, after2)

	_, ok := c.Get("fp-1")
	require.False(t, ok)
}

func TestCacheBounded(t *testing.T) {
	c := identity.NewCache(5*time.Minute, 2)

	c.Put("fp-1", cacheClaims("user-1", time.Now().Add(time.Hour)))
	c.Put("fp-2", cacheClaims("user-2", time.Now().Add(time.Hour)))
	c.Put("fp-3", cacheClaims("user-3", time.Now().Add(time.Hour)))

	require.Equal(t, 2, c.Len(), "cache must not grow past its bound")
}
