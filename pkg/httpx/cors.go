package httpx

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/aussiebroadwan/lectern/pkg/sealx"
	"github.com/aussiebroadwan/lectern/pkg/slogx"
)

// CORS allows browser clients from origins. Credentials are allowed so the
// refresh cookie can travel; an empty origin list disables CORS entirely.
func CORS(origins []string) Middleware {
	if len(origins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{
			"Accept", "Authorization", "Content-Type",
			sealx.HeaderClientPublicKey, slogx.HeaderRequestID,
		},
		ExposedHeaders:   []string{HeaderEncrypted, HeaderClientDetected, slogx.HeaderRequestID, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
