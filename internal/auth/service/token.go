package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/lectern/internal/auth/domain"
	"github.com/aussiebroadwan/lectern/internal/auth/revocation"
	"github.com/aussiebroadwan/lectern/internal/auth/store"
	"github.com/aussiebroadwan/lectern/pkg/cryptox"
	"github.com/aussiebroadwan/lectern/pkg/errx"
	"github.com/aussiebroadwan/lectern/pkg/httpx"
	"github.com/aussiebroadwan/lectern/pkg/jwtx"
	"github.com/aussiebroadwan/lectern/pkg/slogx"
)

// TokenService mints and checks access/refresh pairs. Each principal has at
// most one live refresh token, stored as a fingerprint on the principal row
// and swapped on every refresh.
type TokenService struct {
	KeyManager *jwtx.KeyManager
	Store      store.Store
	Cache      revocation.Cache
	Sessions   *SessionManager
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

var _ httpx.AccessVerifier = (*TokenService)(nil)

func (s *TokenService) accessTTL() time.Duration {
	if s.AccessTTL > 0 {
		return s.AccessTTL
	}
	return jwtx.DefaultAccessTokenTTL
}

func (s *TokenService) refreshTTL() time.Duration {
	if s.RefreshTTL > 0 {
		return s.RefreshTTL
	}
	return jwtx.DefaultRefreshTokenTTL
}

// Issue signs a new pair bound to sessionID. Nothing is persisted.
func (s *TokenService) Issue(ctx context.Context, principalID, role, sessionID string) (domain.TokenPair, error) {
	now := time.Now()

	access, err := s.KeyManager.Signer.Sign(
		jwtx.NewClaims(jwtx.TypeAccess, principalID, role, sessionID, s.Issuer, s.accessTTL(), now))
	if err != nil {
		return domain.TokenPair{}, errx.Internal(fmt.Errorf("sign access token: %w", err))
	}
	refresh, err := s.KeyManager.Signer.Sign(
		jwtx.NewClaims(jwtx.TypeRefresh, principalID, role, sessionID, s.Issuer, s.refreshTTL(), now))
	if err != nil {
		return domain.TokenPair{}, errx.Internal(fmt.Errorf("sign refresh token: %w", err))
	}

	return domain.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		TokenType:        domain.TokenTypeBearer,
		ExpiresIn:        int64(s.accessTTL().Seconds()),
		RefreshExpiresIn: int64(s.refreshTTL().Seconds()),
	}, nil
}

// IssueBound issues a pair and records its refresh fingerprint against the
// session. It fails if sessionID was superseded in the meantime.
func (s *TokenService) IssueBound(ctx context.Context, principalID, role, sessionID string) (domain.TokenPair, error) {
	pair, err := s.Issue(ctx, principalID, role, sessionID)
	if err != nil {
		return domain.TokenPair{}, err
	}

	err = s.Store.Principals().SetRefreshToken(ctx, principalID, sessionID, cryptox.FingerprintToken(pair.RefreshToken))
	switch {
	case errors.Is(err, store.ErrConflict), errors.Is(err, store.ErrNotFound):
		return domain.TokenPair{}, errx.ErrSessionTerminated
	case err != nil:
		return domain.TokenPair{}, errx.Internal(err)
	}
	return pair, nil
}

// VerifyAccess implements httpx.AccessVerifier.
func (s *TokenService) VerifyAccess(ctx context.Context, raw string) (jwtx.Claims, error) {
	claims, err := s.KeyManager.Verifier.Verify(raw)
	if err != nil {
		if errors.Is(err, jwtx.ErrExpired) {
			return jwtx.Claims{}, errx.ErrTokenExpired
		}
		return jwtx.Claims{}, errx.ErrInvalidToken.Wrap(err)
	}
	if claims.Type != jwtx.TypeAccess {
		return jwtx.Claims{}, errx.ErrInvalidToken.Wrap(jwtx.ErrWrongType)
	}

	revoked, err := s.Cache.IsTokenRevoked(ctx, raw)
	if err != nil {
		return jwtx.Claims{}, errx.ErrServiceUnavailable.Wrap(err)
	}
	if revoked {
		return jwtx.Claims{}, errx.ErrTokenRevoked
	}
	return claims, nil
}

// Refresh exchanges a refresh token for a new pair on the same session.
// Concurrent calls with one token have a single winner; the rest fail with
// INVALID_REFRESH_TOKEN.
func (s *TokenService) Refresh(ctx context.Context, raw string) (domain.TokenPair, error) {
	log := slogx.FromContext(ctx)

	claims, err := s.KeyManager.Verifier.Verify(raw)
	if err != nil {
		if errors.Is(err, jwtx.ErrExpired) {
			return domain.TokenPair{}, errx.ErrRefreshTokenExpired
		}
		return domain.TokenPair{}, errx.ErrInvalidRefreshToken.Wrap(err)
	}
	if claims.Type != jwtx.TypeRefresh {
		return domain.TokenPair{}, errx.ErrInvalidRefreshToken.Wrap(jwtx.ErrWrongType)
	}

	revoked, err := s.Cache.IsTokenRevoked(ctx, raw)
	if err != nil {
		return domain.TokenPair{}, errx.ErrServiceUnavailable.Wrap(err)
	}
	if revoked {
		return domain.TokenPair{}, errx.ErrInvalidRefreshToken
	}

	p, ok, err := s.Sessions.activePrincipal(ctx, claims.Subject, claims.SID)
	if err != nil {
		return domain.TokenPair{}, errx.Internal(err)
	}
	if !ok {
		return domain.TokenPair{}, errx.ErrSessionTerminated
	}

	oldFP := cryptox.FingerprintToken(raw)
	if !cryptox.FingerprintEqual(oldFP, p.CurrentRefreshToken) {
		log.Warn("refresh token does not match stored fingerprint", "principal_id", p.ID)
		return domain.TokenPair{}, errx.ErrInvalidRefreshToken
	}

	pair, err := s.Issue(ctx, p.ID, p.Role, claims.SID)
	if err != nil {
		return domain.TokenPair{}, err
	}

	err = s.Store.Principals().RotateRefreshToken(ctx, p.ID, oldFP, cryptox.FingerprintToken(pair.RefreshToken))
	switch {
	case errors.Is(err, store.ErrConflict), errors.Is(err, store.ErrNotFound):
		log.Warn("refresh rotation lost race", "principal_id", p.ID)
		return domain.TokenPair{}, errx.ErrInvalidRefreshToken
	case err != nil:
		return domain.TokenPair{}, errx.Internal(err)
	}

	// The stored fingerprint already moved on, so the old value is dead
	// even if blacklisting it fails.
	if err := s.Cache.RevokeToken(ctx, raw, s.refreshTTL()); err != nil {
		log.Error("failed to blacklist rotated refresh token", "principal_id", p.ID, "error", err)
	}
	return pair, nil
}

// RevokeAll blacklists the presented tokens and ends their session.
func (s *TokenService) RevokeAll(ctx context.Context, claims jwtx.Claims, accessRaw, refreshRaw string) error {
	for _, raw := range []string{accessRaw, refreshRaw} {
		if raw == "" {
			continue
		}
		if err := s.Cache.RevokeToken(ctx, raw, s.refreshTTL()); err != nil {
			return infra(err)
		}
	}
	return s.Sessions.Terminate(ctx, claims.Subject, claims.SID, domain.RevokeLogout)
}
