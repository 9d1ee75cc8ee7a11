package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token lifetimes. Access tokens stay short since they are only
// revocable by value; refresh tokens are rotated on use.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Token types carried in the "typ" claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Claims are the claims carried by both halves of a token pair. Subject is
// the principal id.
type Claims struct {
	jwt.RegisteredClaims

	// Role of the principal at issue time, e.g. "student", "admin"
	Role string `json:"role,omitempty"`

	// Session ID the token is bound to
	SID string `json:"sid,omitempty"`

	// Type distinguishes access from refresh tokens so one can never be
	// replayed as the other.
	Type string `json:"typ"`
}

// NewClaims builds claims for a token of the given type.
func NewClaims(typ, subject, role, sid, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Role: role,
		SID:  sid,
		Type: typ,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim. It also
// keeps two pairs minted in the same second for the same session distinct.
func NewJTI() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ExpiresIn is the remaining lifetime at now, never negative.
func (c *Claims) ExpiresIn(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return max(c.ExpiresAt.Sub(now), 0)
}
