package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/lectern/internal/auth/domain"
	"github.com/aussiebroadwan/lectern/internal/auth/revocation"
	"github.com/aussiebroadwan/lectern/internal/auth/service"
	"github.com/aussiebroadwan/lectern/internal/auth/store"
	"github.com/aussiebroadwan/lectern/pkg/httpx"
	"github.com/aussiebroadwan/lectern/pkg/jwtx"
	"github.com/aussiebroadwan/lectern/pkg/sealx"
	"github.com/aussiebroadwan/lectern/pkg/slogx"

	_ "github.com/aussiebroadwan/lectern/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// ExemptPaths never pass through payload encryption: clients need them to
// discover the server key, and health checks and docs must stay readable.
var ExemptPaths = []string{
	"/auth/handshake",
	"/auth/public-key",
	"/livez",
	"/readyz",
	"/swagger/",
	"/.well-known/jwks.json",
}

// Options are the transport settings of the router.
type Options struct {
	// SecureCookies marks the refresh cookie Secure. Off only in dev.
	SecureCookies bool

	// HSTS sends Strict-Transport-Security.
	HSTS bool

	// EncryptionRequired rejects plaintext requests to non-exempt paths.
	EncryptionRequired bool

	// ReturnOTPToClient echoes issued codes in send-otp responses. Never in
	// production.
	ReturnOTPToClient bool

	CORSOrigins []string

	// TrustProxyHeaders keys address rate limits on X-Forwarded-For. Only
	// set it behind a proxy that overwrites the header.
	TrustProxyHeaders bool
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeySet
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	opts         Options

	store   store.Store
	cache   revocation.Cache
	gateway *sealx.Gateway // nil when encryption is disabled

	AuthService    *service.AuthService
	TokenService   *service.TokenService
	SessionManager *service.SessionManager
}

func NewRouter(
	keys *jwtx.KeySet,
	buildVersion string,
	st store.Store,
	cache revocation.Cache,
	gateway *sealx.Gateway,
	logger *slog.Logger,
	opts Options,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		opts:         opts,
		store:        st,
		cache:        cache,
		gateway:      gateway,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.SecurityHeaders(opts.HSTS),
		httpx.CORS(opts.CORSOrigins),
	}
	if gateway != nil {
		r.middlewares = append(r.middlewares, httpx.E2EE(gateway, httpx.E2EEOptions{
			Required: opts.EncryptionRequired,
			Exempt:   ExemptPaths,
		}))
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerEncryption()
	r.registerOTP()
	r.registerAuth()
	r.registerAccount()
	r.registerAdmin()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Lectern Authentication Service API
//	@version		0.1.0
//	@description	One-time code authentication with a single active session per principal.
//	@description
//	@description				Tokens are EdDSA signed and can be verified with the JWKS endpoint. Request and response bodies may be wrapped in NaCl box envelopes after a handshake.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/lectern
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) authenticated() []httpx.Middleware {
	return []httpx.Middleware{
		httpx.Authn(r.TokenService),
		httpx.RequireSession(r.SessionManager),
	}
}

// byIP limits per client address.
func (r *Router) byIP(cfg httpx.RateLimitConfig) httpx.Middleware {
	if r.opts.TrustProxyHeaders {
		return httpx.RateLimitMiddleware(cfg, httpx.ForwardedIPKeyExtractor)
	}
	return httpx.RateLimitByIP(cfg)
}

// byIdentifier limits attempts per identifier whatever address they come
// from. Spellings of one phone number share a bucket.
func byIdentifier(cfg httpx.RateLimitConfig) httpx.Middleware {
	return httpx.RateLimitByField(cfg, "identifier", func(raw string) string {
		id, _, err := domain.NormalizeIdentifier(raw)
		if err != nil {
			return ""
		}
		return id
	})
}

func (r *Router) registerEncryption() {
	h := &EncryptionHandler{Gateway: r.gateway}

	r.Mux.Handle("POST /auth/handshake",
		httpx.Chain(httpx.HandlerFunc(h.HandleHandshake),
			r.byIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("GET /auth/public-key",
		httpx.Chain(httpx.HandlerFunc(h.HandlePublicKey),
			r.byIP(httpx.PublicLimit),
		),
	)
}

func (r *Router) registerOTP() {
	h := &OTPHandler{AuthService: r.AuthService, ReturnCode: r.opts.ReturnOTPToClient}

	// Two buckets: one caller cannot spray codes at many numbers, and many
	// callers cannot gang up on one number.
	r.Mux.Handle("POST /auth/send-otp",
		httpx.Chain(httpx.HandlerFunc(h.HandleSend),
			r.byIP(httpx.ModerateLimit),
			byIdentifier(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /auth/verify-otp",
		httpx.Chain(httpx.HandlerFunc(h.HandleVerify),
			r.byIP(httpx.ModerateLimit),
			byIdentifier(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{AuthService: r.AuthService, SecureCookies: r.opts.SecureCookies}

	r.Mux.Handle("POST /auth/register",
		httpx.Chain(httpx.HandlerFunc(h.HandleRegister),
			r.byIP(httpx.ModerateLimit),
			byIdentifier(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /auth/login",
		httpx.Chain(httpx.HandlerFunc(h.HandleLogin),
			r.byIP(httpx.ModerateLimit),
			byIdentifier(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /auth/reset-password",
		httpx.Chain(httpx.HandlerFunc(h.HandleResetPassword),
			r.byIP(httpx.ModerateLimit),
			byIdentifier(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /auth/refresh-token",
		httpx.Chain(httpx.HandlerFunc(h.HandleRefresh),
			r.byIP(httpx.ModerateLimit),
		),
	)

	// Logout and session validation must work for superseded sessions too,
	// so they skip RequireSession.
	r.Mux.Handle("POST /auth/logout",
		httpx.Chain(httpx.HandlerFunc(h.HandleLogout),
			r.byIP(httpx.ModerateLimit),
			httpx.Authn(r.TokenService),
		),
	)
	r.Mux.Handle("POST /auth/validate-session",
		httpx.Chain(httpx.HandlerFunc(h.HandleValidateSession),
			r.byIP(httpx.ModerateLimit),
			httpx.Authn(r.TokenService),
		),
	)
}

func (r *Router) registerAccount() {
	h := &AccountHandler{AuthService: r.AuthService}

	mws := append([]httpx.Middleware{r.byIP(httpx.LenientLimit)}, r.authenticated()...)
	mws = append(mws, httpx.RateLimitByPrincipal(httpx.LenientLimit))
	r.Mux.Handle("GET /auth/me", httpx.Chain(httpx.HandlerFunc(h.HandleMe), mws...))
}

func (r *Router) registerAdmin() {
	h := &AccountHandler{AuthService: r.AuthService}

	mws := append([]httpx.Middleware{r.byIP(httpx.ModerateLimit)}, r.authenticated()...)
	mws = append(mws, httpx.RequireRole(domain.RoleAdmin))
	r.Mux.Handle("POST /auth/admin/principals/{id}/logout", httpx.Chain(httpx.HandlerFunc(h.HandleForceLogout), mws...))
	r.Mux.Handle("POST /auth/admin/principals/{id}/status", httpx.Chain(httpx.HandlerFunc(h.HandleSetStatus), mws...))
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			r.byIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys, r.cache, r.gateway),
			r.byIP(httpx.LenientLimit),
		),
	)

	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.keys),
			r.byIP(httpx.PublicLimit),
		),
	)
}
