package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/lectern/pkg/errx"
	"github.com/aussiebroadwan/lectern/pkg/jwtx"
	"github.com/aussiebroadwan/lectern/pkg/slogx"
)

// AccessVerifier checks a raw access token, including signature, expiry and
// the revocation blacklist.
type AccessVerifier interface {
	VerifyAccess(ctx context.Context, raw string) (jwtx.Claims, error)
}

// SessionChecker confirms that a session is still the principal's active
// one and has not been revoked.
type SessionChecker interface {
	CheckSession(ctx context.Context, principalID, sessionID string) error
}

// Authn requires a valid bearer access token and stores its claims in the
// request context. The request logger gains an auth group with the
// principal and session ids.
func Authn(v AccessVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := BearerToken(r)
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="lectern"`)
				WriteError(w, r, errx.ErrNoToken)
				return
			}

			claims, err := v.VerifyAccess(r.Context(), raw)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
				WriteError(w, r, err)
				return
			}

			ctx := WithClaims(r.Context(), claims, raw)
			ctx = slogx.With(ctx, slog.Group("auth", "sub", claims.Subject, "sid", claims.SID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSession rejects tokens whose session has been superseded or
// revoked. Must run after Authn.
func RequireSession(c SessionChecker) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFrom(r.Context())
			if !ok {
				WriteError(w, r, errx.ErrNoToken)
				return
			}
			if claims.SID == "" {
				WriteError(w, r, errx.ErrSessionTerminated)
				return
			}
			if err := c.CheckSession(r.Context(), claims.Subject, claims.SID); err != nil {
				WriteError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
