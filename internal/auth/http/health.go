package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/lectern/internal/auth/revocation"
	"github.com/aussiebroadwan/lectern/internal/auth/store"
	"github.com/aussiebroadwan/lectern/pkg/authsdk"
	"github.com/aussiebroadwan/lectern/pkg/httpx"
	"github.com/aussiebroadwan/lectern/pkg/jwtx"
	"github.com/aussiebroadwan/lectern/pkg/sealx"
	"github.com/aussiebroadwan/lectern/pkg/slogx"
)

// LivezHandler godoc
//
//	@Summary		Liveness Check Endpoint
//	@Description	Returns 200 while the process is serving, with uptime and version
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version"
//	@Router			/livez [get].
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, authsdk.HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Version: version,
		})
	}
}

// ReadyzHandler godoc
//
//	@Summary		Readiness Check Endpoint
//	@Description	Readiness endpoint returning service health status and checks for critical dependencies
//	@Description	Includes uptime, version, and status of the database, signer, revocation cache and encryption gateway
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	authsdk.HealthResponse	"status, uptime, version, checks - service not ready"
//	@Router			/readyz [get].
func ReadyzHandler(
	startTime time.Time,
	version string,
	st store.Store,
	keys *jwtx.KeySet,
	cache revocation.Cache,
	gateway *sealx.Gateway,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := slogx.FromContext(r.Context())
		checks := &authsdk.HealthChecks{
			Database:   "ok",
			Signer:     "ok",
			Cache:      "ok",
			Encryption: "disabled",
		}
		overallStatus := "ok"
		statusCode := http.StatusOK
		fail := func() {
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		if err := st.Ping(r.Context()); err != nil {
			log.Error("readiness: database ping failed", "err", err)
			checks.Database = "error"
			fail()
		}

		if !keys.IsReady() {
			checks.Signer = "error: no keys loaded"
			fail()
		}

		// Token checks fail closed without the cache, so it gates readiness.
		if err := cache.Ping(r.Context()); err != nil {
			log.Error("readiness: revocation cache ping failed", "err", err)
			checks.Cache = "error"
			fail()
		}

		if gateway != nil {
			checks.Encryption = "ok"
			if !gateway.Ready() {
				checks.Encryption = "error: keypair not initialised"
				fail()
			}
		}

		response := authsdk.HealthResponse{
			Status:  overallStatus,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		}
		httpx.WriteJSON(w, statusCode, response)
	}
}
