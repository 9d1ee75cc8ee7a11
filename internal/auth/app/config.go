package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/aussiebroadwan/lectern/pkg/httpx"
	"github.com/aussiebroadwan/lectern/pkg/jwtx"
	"github.com/aussiebroadwan/lectern/pkg/sealx"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)

	Issuer         string        // Issuer claim for tokens (default: lectern-auth)
	SigningKeyFile string        // Optional: PEM Ed25519 key, generated on first start. Empty is ephemeral.
	AccessTTL      time.Duration // Access token lifetime (default: 15m)
	RefreshTTL     time.Duration // Refresh token lifetime (default: 7d)
	PepperFile     string        // Password pepper file (default: ./pepper)

	DatabaseDriver string // sqlite or postgres (default: sqlite)
	DatabaseFile   string // SQLite file (default: ./auth.db)
	DatabaseURL    string // Postgres DSN, required for the postgres driver

	RedisURL       string // Optional outside prod: empty uses the in-process cache
	RedisKeyPrefix string

	OTPTTL            time.Duration // Code lifetime (default: 10m)
	OTPReturnToClient bool          // Echo codes as devCode. Rejected in prod.

	SMSAPIURL string // Empty logs codes instead of sending them
	SMSAPIKey string
	SMSSender string

	E2EEEnabled        bool   // default: true
	E2EERequired       bool   // Reject plaintext on non-exempt paths (default: false)
	E2EESecretKey      string // Base64 server secret. Empty generates one per process.
	E2EEClientKeyTTL   time.Duration
	E2EEClientKeyCache int

	CORSAllowedOrigins []string
	TrustProxyHeaders  bool // Key rate limits on X-Forwarded-For (default: false)

	HousekeepingInterval  time.Duration // default: 1h
	HousekeepingRetention time.Duration // How long dead OTP rows are kept (default: 24h)
}

// LoadConfig reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func LoadConfig() Config {
	_ = godotenv.Load()

	cfg := Config{
		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),

		Issuer:         getEnvOrDefault("AUTH_ISSUER", "lectern-auth"),
		SigningKeyFile: os.Getenv("AUTH_SIGNING_KEY_FILE"),
		AccessTTL:      getEnvDurationOrDefault("AUTH_ACCESS_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTTL:     getEnvDurationOrDefault("AUTH_REFRESH_TTL", jwtx.DefaultRefreshTokenTTL),
		PepperFile:     getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),

		DatabaseDriver: strings.ToLower(getEnvOrDefault("AUTH_DATABASE_DRIVER", DriverSQLite)),
		DatabaseFile:   getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		DatabaseURL:    os.Getenv("AUTH_DATABASE_URL"),

		RedisURL:       os.Getenv("REDIS_URL"),
		RedisKeyPrefix: os.Getenv("REDIS_KEY_PREFIX"),

		OTPTTL:            getEnvDurationOrDefault("OTP_TTL", 10*time.Minute),
		OTPReturnToClient: getEnvBoolOrDefault("OTP_RETURN_TO_CLIENT", false),

		SMSAPIURL: os.Getenv("SMS_API_URL"),
		SMSAPIKey: os.Getenv("SMS_API_KEY"),
		SMSSender: getEnvOrDefault("SMS_SENDER", "Lectern"),

		E2EEEnabled:        getEnvBoolOrDefault("E2EE_ENABLED", true),
		E2EERequired:       getEnvBoolOrDefault("E2EE_REQUIRED", false),
		E2EESecretKey:      os.Getenv("E2EE_SECRET_KEY"),
		E2EEClientKeyTTL:   getEnvDurationOrDefault("E2EE_CLIENT_KEY_TTL", sealx.DefaultClientKeyTTL),
		E2EEClientKeyCache: getEnvIntOrDefault("E2EE_CLIENT_KEY_CACHE", sealx.DefaultMaxClientKeys),

		CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		TrustProxyHeaders:  getEnvBoolOrDefault("TRUST_PROXY_HEADERS", false),

		HousekeepingInterval:  getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", time.Hour),
		HousekeepingRetention: getEnvDurationOrDefault("HOUSEKEEPING_RETENTION", 24*time.Hour),
	}

	// The rate limit profiles are read at package init, before the .env
	// file is loaded, so overlay them again.
	httpx.StrictLimit = httpx.ParseRateLimitFromEnv("STRICT", httpx.StrictLimit)
	httpx.ModerateLimit = httpx.ParseRateLimitFromEnv("MODERATE", httpx.ModerateLimit)
	httpx.LenientLimit = httpx.ParseRateLimitFromEnv("LENIENT", httpx.LenientLimit)
	httpx.PublicLimit = httpx.ParseRateLimitFromEnv("PUBLIC", httpx.PublicLimit)

	return cfg
}

// IsProd reports whether the service runs in production.
func (c Config) IsProd() bool {
	return c.Env == "prod" || c.Env == "production"
}

// Validate rejects settings that are unsafe or incomplete.
func (c Config) Validate() error {
	var errs []error

	switch c.DatabaseDriver {
	case DriverSQLite:
		if c.DatabaseFile == "" {
			errs = append(errs, errors.New("AUTH_DATABASE_FILE is required for the sqlite driver"))
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("AUTH_DATABASE_URL is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("AUTH_DATABASE_DRIVER %q is not supported", c.DatabaseDriver))
	}

	if c.Issuer == "" {
		errs = append(errs, errors.New("AUTH_ISSUER must not be empty"))
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		errs = append(errs, errors.New("token lifetimes must be positive"))
	}
	if c.RefreshTTL < c.AccessTTL {
		errs = append(errs, errors.New("AUTH_REFRESH_TTL must not be shorter than AUTH_ACCESS_TTL"))
	}
	if c.OTPTTL <= 0 {
		errs = append(errs, errors.New("OTP_TTL must be positive"))
	}
	if c.E2EERequired && !c.E2EEEnabled {
		errs = append(errs, errors.New("E2EE_REQUIRED needs E2EE_ENABLED"))
	}

	if c.IsProd() {
		if c.OTPReturnToClient {
			errs = append(errs, errors.New("OTP_RETURN_TO_CLIENT must be off in prod"))
		}
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required in prod"))
		}
	}

	return errors.Join(errs...)
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
