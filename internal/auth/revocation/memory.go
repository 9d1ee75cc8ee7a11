package revocation

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/aussiebroadwan/lectern/internal/auth/domain"
)

// Memory is an in-process cache for development and tests. Entries vanish
// on restart, so it is refused in production.
type Memory struct {
	closed   atomic.Bool
	sessions *ttlcache.Cache[string, domain.SessionRevocation]
	tokens   *ttlcache.Cache[string, struct{}]
}

var _ Cache = (*Memory)(nil)

var errClosed = errors.New("memory cache closed")

// NewMemory starts the background expiry loops. Close stops them.
func NewMemory() *Memory {
	m := &Memory{
		// A revocation must lapse when it was set to, not when it was last read.
		sessions: ttlcache.New(ttlcache.WithDisableTouchOnHit[string, domain.SessionRevocation]()),
		tokens:   ttlcache.New(ttlcache.WithDisableTouchOnHit[string, struct{}]()),
	}
	go m.sessions.Start()
	go m.tokens.Start()
	return m
}

func (m *Memory) RevokeSession(_ context.Context, sessionID string, rev domain.SessionRevocation, ttl time.Duration) error {
	if m.closed.Load() {
		return unavailable("revoke session", errClosed)
	}
	m.sessions.Set(sessionKey("", sessionID), rev, ttl)
	return nil
}

func (m *Memory) SessionRevocation(_ context.Context, sessionID string) (domain.SessionRevocation, bool, error) {
	if m.closed.Load() {
		return domain.SessionRevocation{}, false, unavailable("session revocation", errClosed)
	}
	item := m.sessions.Get(sessionKey("", sessionID))
	if item == nil {
		return domain.SessionRevocation{}, false, nil
	}
	return item.Value(), true, nil
}

func (m *Memory) RevokeToken(_ context.Context, raw string, ttl time.Duration) error {
	if m.closed.Load() {
		return unavailable("revoke token", errClosed)
	}
	m.tokens.Set(tokenKey("", raw), struct{}{}, ttl)
	return nil
}

func (m *Memory) IsTokenRevoked(_ context.Context, raw string) (bool, error) {
	if m.closed.Load() {
		return false, unavailable("token revoked", errClosed)
	}
	return m.tokens.Get(tokenKey("", raw)) != nil, nil
}

func (m *Memory) Ping(context.Context) error {
	if m.closed.Load() {
		return unavailable("ping", errClosed)
	}
	return nil
}

// Close drops every entry. Later calls fail with ErrUnavailable.
func (m *Memory) Close() error {
	if m.closed.Swap(true) {
		return nil
	}
	m.sessions.Stop()
	m.tokens.Stop()
	m.sessions.DeleteAll()
	m.tokens.DeleteAll()
	return nil
}
