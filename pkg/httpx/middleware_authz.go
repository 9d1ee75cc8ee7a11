package httpx

import (
	"net/http"
	"slices"

	"github.com/aussiebroadwan/lectern/pkg/errx"
)

// RequireRole only lets through principals whose token role is one of roles.
func RequireRole(roles ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFrom(r.Context())
			if !ok {
				WriteError(w, r, errx.ErrNoToken)
				return
			}
			if !slices.Contains(roles, claims.Role) {
				WriteError(w, r, errx.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
