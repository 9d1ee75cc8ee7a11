package sealx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSharedKeyCacheWipesEvicted(t *testing.T) {
	t.Parallel()

	c := newSharedKeyCache(1, time.Hour)
	first := &[KeySize]byte{1, 2, 3}
	c.put("a", first)
	stored, ok := c.lru.Peek("a")
	require.True(t, ok)

	c.put("b", &[KeySize]byte{4})
	require.Equal(t, [KeySize]byte{}, *stored)
	require.Equal(t, byte(1), first[0], "the caller's key is not the cached one")
	_, ok = c.get("a")
	require.False(t, ok)

	// Callers get copies they may scribble on.
	got, ok := c.get("b")
	require.True(t, ok)
	got[0] = 9
	again, _ := c.get("b")
	require.Equal(t, byte(4), again[0])

	storedB, _ := c.lru.Peek("b")
	c.clear()
	require.Equal(t, [KeySize]byte{}, *storedB)
	require.Zero(t, c.len())
}

func TestSharedKeyCacheExpiry(t *testing.T) {
	t.Parallel()

	c := newSharedKeyCache(10, 20*time.Millisecond)
	c.put("a", &[KeySize]byte{1})
	_, ok := c.get("a")
	require.True(t, ok)

	require.Eventually(t, func() bool {
		_, ok := c.get("a")
		return !ok
	}, time.Second, 5*time.Millisecond)
}
