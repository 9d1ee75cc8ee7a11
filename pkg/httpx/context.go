package httpx

import (
	"context"

	"github.com/aussiebroadwan/lectern/pkg/jwtx"
)

type ctxKey string

const (
	ctxKeyClaims      ctxKey = "claims"
	ctxKeyAccessToken ctxKey = "access_token"
)

// WithClaims stores verified access token claims and the raw token.
func WithClaims(ctx context.Context, c jwtx.Claims, raw string) context.Context {
	ctx = context.WithValue(ctx, ctxKeyClaims, c)
	return context.WithValue(ctx, ctxKeyAccessToken, raw)
}

// ClaimsFrom returns the claims set by Authn.
func ClaimsFrom(ctx context.Context) (jwtx.Claims, bool) {
	c, ok := ctx.Value(ctxKeyClaims).(jwtx.Claims)
	return c, ok
}

// AccessTokenFrom returns the raw bearer token set by Authn.
func AccessTokenFrom(ctx context.Context) string {
	s, _ := ctx.Value(ctxKeyAccessToken).(string)
	return s
}

// PrincipalIDFrom returns the authenticated principal id, or "".
func PrincipalIDFrom(ctx context.Context) string {
	if c, ok := ClaimsFrom(ctx); ok {
		return c.Subject
	}
	return ""
}
