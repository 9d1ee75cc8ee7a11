// Package revocation remembers retired session ids and blacklisted token
// values until they would have expired anyway.
//
// Backends fail closed: any error reaching the backend comes back wrapped in
// ErrUnavailable and callers reject the request rather than assume "not
// revoked".
package revocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/lectern/internal/auth/domain"
	"github.com/aussiebroadwan/lectern/pkg/cryptox"
)

var ErrUnavailable = errors.New("revocation cache unavailable")

// DefaultKeyPrefix namespaces every key the cache writes.
const DefaultKeyPrefix = "lectern:"

type Cache interface {
	// RevokeSession records sessionID as retired for ttl.
	RevokeSession(ctx context.Context, sessionID string, rev domain.SessionRevocation, ttl time.Duration) error

	// SessionRevocation returns the record for sessionID, if one is live.
	SessionRevocation(ctx context.Context, sessionID string) (domain.SessionRevocation, bool, error)

	// RevokeToken blacklists a raw token value for ttl. Only its
	// fingerprint is stored.
	RevokeToken(ctx context.Context, raw string, ttl time.Duration) error

	IsTokenRevoked(ctx context.Context, raw string) (bool, error)

	Ping(ctx context.Context) error
	Close() error
}

func sessionKey(prefix, sessionID string) string {
	return prefix + "session:" + sessionID
}

func tokenKey(prefix, raw string) string {
	return prefix + "revoked:token:" + cryptox.FingerprintToken(raw)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}
