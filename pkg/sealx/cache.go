package sealx

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// sharedKeyCache maps client public keys to precomputed box shared keys. It
// is bounded by both size and age, and zeroes every key it lets go, whether
// on expiry, eviction or purge.
type sharedKeyCache struct {
	lru *expirable.LRU[string, *[KeySize]byte]
}

func newSharedKeyCache(max int, ttl time.Duration) *sharedKeyCache {
	return &sharedKeyCache{
		lru: expirable.NewLRU(max, func(_ string, key *[KeySize]byte) {
			wipe(key[:])
		}, ttl),
	}
}

// get returns a copy of the cached key, so an entry evicted while a caller
// is still using the key cannot be zeroed under it.
func (c *sharedKeyCache) get(peer string) (*[KeySize]byte, bool) {
	k, ok := c.lru.Get(peer)
	if !ok {
		return nil, false
	}
	cp := *k
	return &cp, true
}

// put stores a copy of key. Re-registering a peer refreshes its lifetime.
func (c *sharedKeyCache) put(peer string, key *[KeySize]byte) {
	cp := *key
	c.lru.Add(peer, &cp)
}

func (c *sharedKeyCache) len() int {
	return c.lru.Len()
}

func (c *sharedKeyCache) clear() {
	c.lru.Purge()
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
