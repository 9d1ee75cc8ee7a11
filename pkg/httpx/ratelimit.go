package httpx

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/aussiebroadwan/lectern/pkg/errx"
	"github.com/aussiebroadwan/lectern/pkg/slogx"
)

// RateLimitConfig is a token bucket: RequestsPerWindow refill over Window,
// with up to Burst available at once.
type RateLimitConfig struct {
	RequestsPerWindow int
	Window            time.Duration
	Burst             int
}

// Profiles, overridable through RATELIMIT_{STRICT,MODERATE,LENIENT,PUBLIC}_
// {REQUESTS,WINDOW_SEC,BURST}.
var (
	// StrictLimit guards OTP issue/verify, login and registration.
	StrictLimit = RateLimitConfig{RequestsPerWindow: 5, Window: time.Minute, Burst: 5}

	// ModerateLimit covers token refresh, logout and session checks.
	ModerateLimit = RateLimitConfig{RequestsPerWindow: 20, Window: time.Minute, Burst: 20}

	// LenientLimit covers authenticated reads and health checks.
	LenientLimit = RateLimitConfig{RequestsPerWindow: 100, Window: time.Minute, Burst: 100}

	// PublicLimit covers key discovery: handshake, public key, JWKS.
	PublicLimit = RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000}
)

func init() {
	StrictLimit = ParseRateLimitFromEnv("STRICT", StrictLimit)
	ModerateLimit = ParseRateLimitFromEnv("MODERATE", ModerateLimit)
	LenientLimit = ParseRateLimitFromEnv("LENIENT", LenientLimit)
	PublicLimit = ParseRateLimitFromEnv("PUBLIC", PublicLimit)
}

// ParseRateLimitFromEnv overlays RATELIMIT_{prefix}_REQUESTS, _WINDOW_SEC
// and _BURST onto def. Non positive or unparsable values are ignored.
func ParseRateLimitFromEnv(prefix string, def RateLimitConfig) RateLimitConfig {
	positive := func(key string) (int, bool) {
		n, err := strconv.Atoi(os.Getenv("RATELIMIT_" + prefix + "_" + key))
		return n, err == nil && n > 0
	}

	cfg := def
	if n, ok := positive("REQUESTS"); ok {
		cfg.RequestsPerWindow = n
	}
	if n, ok := positive("WINDOW_SEC"); ok {
		cfg.Window = time.Duration(n) * time.Second
	}
	if n, ok := positive("BURST"); ok {
		cfg.Burst = n
	}
	return cfg
}

// KeyExtractor picks the bucket a request counts against. An empty key
// skips limiting.
type KeyExtractor func(*http.Request) string

// IPKeyExtractor keys on the connection address. Forwarding headers are
// ignored because any client can set them.
func IPKeyExtractor(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// ForwardedIPKeyExtractor uses the first X-Forwarded-For hop, then
// X-Real-IP, then the connection address. Only use it behind a proxy that
// overwrites those headers.
func ForwardedIPKeyExtractor(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return IPKeyExtractor(r)
}

// PrincipalKeyExtractor keys on the authenticated principal, if any.
func PrincipalKeyExtractor(r *http.Request) string {
	return PrincipalIDFrom(r.Context())
}

// JSONFieldKeyExtractor keys on a top level string field of a JSON body,
// e.g. the identifier on send-otp. normalize maps the value to a canonical
// form so "+61 400 000 001" and "+61400000001" share a bucket; values it
// rejects (or a nil normalize) fall back to the lower-cased raw value. Keys
// are prefixed with the field name to keep them apart from address buckets.
//
// The body is restored for the handler. It must run after E2EE so it sees
// the decrypted body.
func JSONFieldKeyExtractor(field string, normalize func(string) string) KeyExtractor {
	return func(r *http.Request) string {
		v, ok := jsonField(r, field)
		if !ok {
			return ""
		}
		var key string
		if normalize != nil {
			key = normalize(v)
		}
		if key == "" {
			key = strings.ToLower(strings.TrimSpace(v))
		}
		if key == "" {
			return ""
		}
		return field + ":" + key
	}
}

func jsonField(r *http.Request, field string) (string, bool) {
	if r.Body == nil {
		return "", false
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes))
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return "", false
	}

	var fields map[string]json.RawMessage
	if json.Unmarshal(body, &fields) != nil {
		return "", false
	}
	var v string
	if json.Unmarshal(fields[field], &v) != nil {
		return "", false
	}
	return v, true
}

// idleSweepInterval is how often buckets that have fully refilled are
// dropped so ephemeral keys do not accumulate.
const idleSweepInterval = 5 * time.Minute

type rateLimiter struct {
	limiters sync.Map // string -> *rate.Limiter
	rate     rate.Limit
	burst    int

	mu        sync.Mutex
	lastSweep time.Time
}

func newRateLimiter(cfg RateLimitConfig) *rateLimiter {
	return &rateLimiter{
		rate:      rate.Limit(float64(cfg.RequestsPerWindow) / cfg.Window.Seconds()),
		burst:     cfg.Burst,
		lastSweep: time.Now(),
	}
}

func (rl *rateLimiter) get(key string) *rate.Limiter {
	if l, ok := rl.limiters.Load(key); ok {
		return l.(*rate.Limiter)
	}
	l, _ := rl.limiters.LoadOrStore(key, rate.NewLimiter(rl.rate, rl.burst))
	rl.sweep()
	return l.(*rate.Limiter)
}

func (rl *rateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if time.Since(rl.lastSweep) < idleSweepInterval {
		return
	}
	rl.lastSweep = time.Now()

	rl.limiters.Range(func(key, value any) bool {
		if value.(*rate.Limiter).Tokens() >= float64(rl.burst) {
			rl.limiters.Delete(key)
		}
		return true
	})
}

// allow consumes a token for key, returning the wait until the next token
// when the bucket is empty.
func (rl *rateLimiter) allow(key string) (bool, time.Duration) {
	l := rl.get(key)
	if l.Allow() {
		return true, 0
	}
	res := l.Reserve()
	delay := res.Delay()
	res.Cancel()
	return false, delay
}

// RateLimitMiddleware rejects requests over cfg with 429 RATE_LIMITED and a
// Retry-After hint. extract decides which bucket a request draws from.
func RateLimitMiddleware(cfg RateLimitConfig, extract KeyExtractor) Middleware {
	rl := newRateLimiter(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := slogx.FromContext(r.Context())

			key := extract(r)
			if key == "" {
				log.Warn("rate limit: no key for request, allowing")
				next.ServeHTTP(w, r)
				return
			}

			ok, delay := rl.allow(key)
			if !ok {
				retryAfter := max(int(delay.Seconds()), 1)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.RequestsPerWindow))
				w.Header().Set("X-RateLimit-Window", cfg.Window.String())

				log.Warn("rate limit exceeded", "endpoint", r.URL.Path, "retry_after", retryAfter)
				errx.Write(w, errx.ErrRateLimited)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitByIP limits by client address only.
func RateLimitByIP(cfg RateLimitConfig) Middleware {
	return RateLimitMiddleware(cfg, IPKeyExtractor)
}

// RateLimitByPrincipal limits by authenticated principal, falling back to
// the IP address for anonymous callers.
func RateLimitByPrincipal(cfg RateLimitConfig) Middleware {
	return RateLimitMiddleware(cfg, func(r *http.Request) string {
		if id := PrincipalKeyExtractor(r); id != "" {
			return "principal:" + id
		}
		return IPKeyExtractor(r)
	})
}

// RateLimitByField limits by a normalised JSON body field regardless of
// the caller's address. Chain it after an address limiter so the OTP and
// login endpoints bound both how often one caller tries and how often one
// identifier is tried.
func RateLimitByField(cfg RateLimitConfig, field string, normalize func(string) string) Middleware {
	return RateLimitMiddleware(cfg, JSONFieldKeyExtractor(field, normalize))
}
