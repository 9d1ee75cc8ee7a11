package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/lectern/internal/auth/domain"
	"github.com/aussiebroadwan/lectern/internal/auth/revocation"
	"github.com/aussiebroadwan/lectern/internal/auth/store"
	"github.com/aussiebroadwan/lectern/pkg/errx"
	"github.com/aussiebroadwan/lectern/pkg/httpx"
	"github.com/aussiebroadwan/lectern/pkg/jwtx"
	"github.com/aussiebroadwan/lectern/pkg/slogx"
	"github.com/google/uuid"
)

// maxSessionSwapAttempts bounds the optimistic retry loop in Create.
const maxSessionSwapAttempts = 5

// ErrSessionContention is returned by Create when concurrent sign-ins for
// the same principal won every swap. It is a 503 so clients retry.
var ErrSessionContention = errx.ErrServiceUnavailable.WithMessage("too many concurrent sign-ins, please retry")

// SessionManager keeps at most one active session per principal. The
// principal row is authoritative; the revocation cache only lets middleware
// reject retired session ids without a database read.
type SessionManager struct {
	Store store.Store
	Cache revocation.Cache

	// RevocationTTL should cover the longest lived token bound to a
	// session, i.e. the refresh TTL.
	RevocationTTL time.Duration
}

var _ httpx.SessionChecker = (*SessionManager)(nil)

func (m *SessionManager) revocationTTL() time.Duration {
	if m.RevocationTTL > 0 {
		return m.RevocationTTL
	}
	return jwtx.DefaultRefreshTokenTTL
}

// Create makes a new session the principal's only active one. It reports
// whether an earlier session was displaced.
func (m *SessionManager) Create(ctx context.Context, principalID, deviceInfo string) (string, bool, error) {
	log := slogx.FromContext(ctx)

	for range maxSessionSwapAttempts {
		p, err := m.Store.Principals().GetByID(ctx, principalID)
		if errors.Is(err, store.ErrNotFound) {
			return "", false, errx.ErrPrincipalNotFound
		}
		if err != nil {
			return "", false, errx.Internal(err)
		}

		id, err := uuid.NewRandom()
		if err != nil {
			return "", false, errx.Internal(fmt.Errorf("session id: %w", err))
		}
		sid := id.String()

		err = m.Store.Principals().SwapSession(ctx, p.ID, p.SessionVersion, sid, deviceInfo, time.Now())
		if errors.Is(err, store.ErrConflict) {
			log.Debug("session swap lost race, retrying", "principal_id", p.ID)
			continue
		}
		if err != nil {
			return "", false, errx.Internal(err)
		}

		previous := p.ActiveSessionID
		if previous != "" {
			// The swap already invalidated the old session; the cache entry
			// only speeds up rejection, so a failure here is not fatal.
			if err := m.Revoke(ctx, previous, p.ID, domain.RevokeSuperseded); err != nil {
				log.Error("failed to cache superseded session", "principal_id", p.ID, "error", err)
			}
		}

		log.Info("session created",
			"principal_id", p.ID,
			"previous_session_terminated", previous != "",
		)
		return sid, previous != "", nil
	}

	// Every attempt lost to a concurrent sign-in, one of which now holds the
	// session. Report it as retryable rather than an internal fault.
	log.Warn("session swap retries exhausted", "principal_id", principalID, "attempts", maxSessionSwapAttempts)
	return "", false, ErrSessionContention.Wrap(fmt.Errorf("session swap for %s: %w", principalID, store.ErrConflict))
}

// IsValid reports whether sessionID is the principal's active session and
// the principal may still use it.
func (m *SessionManager) IsValid(ctx context.Context, principalID, sessionID string) (bool, error) {
	_, ok, err := m.activePrincipal(ctx, principalID, sessionID)
	return ok, err
}

func (m *SessionManager) activePrincipal(ctx context.Context, principalID, sessionID string) (domain.Principal, bool, error) {
	if sessionID == "" {
		return domain.Principal{}, false, nil
	}
	p, err := m.Store.Principals().GetByID(ctx, principalID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Principal{}, false, nil
	}
	if err != nil {
		return domain.Principal{}, false, err
	}
	return p, p.IsActive() && p.HasSession(sessionID), nil
}

// Revoke records sessionID as retired in the revocation cache.
func (m *SessionManager) Revoke(ctx context.Context, sessionID, principalID, reason string) error {
	return m.Cache.RevokeSession(ctx, sessionID, domain.SessionRevocation{
		PrincipalID: principalID,
		Reason:      reason,
		RevokedAt:   time.Now().UTC(),
	}, m.revocationTTL())
}

// Terminate ends sessionID. The principal's session fields are only cleared
// while sessionID is still the active one, so a superseded device logging
// out cannot end the session that replaced it.
func (m *SessionManager) Terminate(ctx context.Context, principalID, sessionID, reason string) error {
	if sessionID == "" {
		return nil
	}
	err := m.Store.Principals().ClearSession(ctx, principalID, sessionID)
	if err != nil && !errors.Is(err, store.ErrConflict) && !errors.Is(err, store.ErrNotFound) {
		return errx.Internal(err)
	}
	if err := m.Revoke(ctx, sessionID, principalID, reason); err != nil {
		return infra(err)
	}
	return nil
}

// TerminateAll clears whatever session the principal holds.
func (m *SessionManager) TerminateAll(ctx context.Context, principalID, reason string) error {
	p, err := m.Store.Principals().GetByID(ctx, principalID)
	if errors.Is(err, store.ErrNotFound) {
		return errx.ErrPrincipalNotFound
	}
	if err != nil {
		return errx.Internal(err)
	}

	if err := m.Store.Principals().ClearAllSessions(ctx, p.ID); err != nil {
		return errx.Internal(err)
	}
	if p.ActiveSessionID != "" {
		if err := m.Revoke(ctx, p.ActiveSessionID, p.ID, reason); err != nil {
			return infra(err)
		}
	}

	slogx.FromContext(ctx).Info("all sessions terminated", "principal_id", p.ID, "reason", reason)
	return nil
}

// CheckSession implements httpx.SessionChecker. A cache hit short-circuits
// the database read; a cache outage rejects the request.
func (m *SessionManager) CheckSession(ctx context.Context, principalID, sessionID string) error {
	if sessionID == "" {
		return errx.ErrSessionTerminated
	}

	_, revoked, err := m.Cache.SessionRevocation(ctx, sessionID)
	if err != nil {
		return errx.ErrServiceUnavailable.Wrap(err)
	}
	if revoked {
		return errx.ErrSessionTerminated
	}

	ok, err := m.IsValid(ctx, principalID, sessionID)
	if err != nil {
		return errx.Internal(err)
	}
	if !ok {
		return errx.ErrSessionTerminated
	}
	return nil
}
