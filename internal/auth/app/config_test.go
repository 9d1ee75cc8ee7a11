package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/lectern/pkg/httpx"
	"github.com/aussiebroadwan/lectern/pkg/slogx"
)

func validConfig() Config {
	return Config{
		Env:            "dev",
		Issuer:         "lectern-auth",
		AccessTTL:      15 * time.Minute,
		RefreshTTL:     7 * 24 * time.Hour,
		DatabaseDriver: DriverSQLite,
		DatabaseFile:   "auth.db",
		OTPTTL:         10 * time.Minute,
		E2EEEnabled:    true,
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	// Run from an empty directory so no .env file is picked up.
	t.Chdir(t.TempDir())
	for _, key := range []string{"ENV", "PORT", "AUTH_ISSUER", "AUTH_DATABASE_DRIVER", "OTP_TTL", "E2EE_ENABLED", "CORS_ALLOWED_ORIGINS", "TRUST_PROXY_HEADERS"} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()
	require.Equal(t, "dev", cfg.Env)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, "lectern-auth", cfg.Issuer)
	require.Equal(t, DriverSQLite, cfg.DatabaseDriver)
	require.Equal(t, 10*time.Minute, cfg.OTPTTL)
	require.True(t, cfg.E2EEEnabled)
	require.False(t, cfg.E2EERequired)
	require.Empty(t, cfg.CORSAllowedOrigins)
	require.False(t, cfg.TrustProxyHeaders)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ENV", "staging")
	t.Setenv("PORT", "9090")
	t.Setenv("AUTH_DATABASE_DRIVER", "Postgres")
	t.Setenv("AUTH_DATABASE_URL", "postgres://lectern@localhost/lectern")
	t.Setenv("OTP_TTL", "5")
	t.Setenv("AUTH_ACCESS_TTL", "30m")
	t.Setenv("OTP_RETURN_TO_CLIENT", "true")
	t.Setenv("E2EE_REQUIRED", "1")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,,")
	t.Setenv("TRUST_PROXY_HEADERS", "true")

	cfg := LoadConfig()
	require.Equal(t, "staging", cfg.Env)
	require.Equal(t, 9090, cfg.Port)
	require.Equal(t, DriverPostgres, cfg.DatabaseDriver)
	require.Equal(t, 5*time.Minute, cfg.OTPTTL)
	require.Equal(t, 30*time.Minute, cfg.AccessTTL)
	require.True(t, cfg.OTPReturnToClient)
	require.True(t, cfg.E2EERequired)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	require.True(t, cfg.TrustProxyHeaders)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("AUTH_ISSUER=from-dotenv\nPORT=7000\nRATELIMIT_STRICT_REQUESTS=42\n"), 0o600))
	t.Chdir(dir)

	// godotenv never overrides the process environment.
	t.Setenv("PORT", "7001")
	t.Setenv("AUTH_ISSUER", "")
	_ = os.Unsetenv("AUTH_ISSUER")
	_ = os.Unsetenv("RATELIMIT_STRICT_REQUESTS")

	prev := httpx.StrictLimit
	t.Cleanup(func() {
		httpx.StrictLimit = prev
		_ = os.Unsetenv("AUTH_ISSUER")
		_ = os.Unsetenv("RATELIMIT_STRICT_REQUESTS")
	})

	cfg := LoadConfig()
	require.Equal(t, "from-dotenv", cfg.Issuer)
	require.Equal(t, 7001, cfg.Port)
	require.Equal(t, 42, httpx.StrictLimit.RequestsPerWindow)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(*Config) {},
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.DatabaseDriver = "mysql" },
			wantErr: "AUTH_DATABASE_DRIVER",
		},
		{
			name:    "postgres without url",
			mutate:  func(c *Config) { c.DatabaseDriver = DriverPostgres },
			wantErr: "AUTH_DATABASE_URL",
		},
		{
			name: "dev codes in prod",
			mutate: func(c *Config) {
				c.Env = "prod"
				c.RedisURL = "redis://localhost:6379/0"
				c.OTPReturnToClient = true
			},
			wantErr: "OTP_RETURN_TO_CLIENT",
		},
		{
			name:    "prod without redis",
			mutate:  func(c *Config) { c.Env = "prod" },
			wantErr: "REDIS_URL",
		},
		{
			name: "prod with redis",
			mutate: func(c *Config) {
				c.Env = "prod"
				c.RedisURL = "redis://localhost:6379/0"
			},
		},
		{
			name:    "refresh shorter than access",
			mutate:  func(c *Config) { c.RefreshTTL = time.Minute },
			wantErr: "AUTH_REFRESH_TTL",
		},
		{
			name: "required without enabled",
			mutate: func(c *Config) {
				c.E2EEEnabled = false
				c.E2EERequired = true
			},
			wantErr: "E2EE_REQUIRED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestInitAuthKeysPersistent(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.SigningKeyFile = filepath.Join(t.TempDir(), "keys", "signing.pem")

	first, err := InitAuthKeys(cfg, slogx.Discard())
	require.NoError(t, err)
	require.FileExists(t, cfg.SigningKeyFile)

	second, err := InitAuthKeys(cfg, slogx.Discard())
	require.NoError(t, err)
	require.Equal(t, first.Signer.KID(), second.Signer.KID())
}

func TestInitAuthKeysEphemeral(t *testing.T) {
	t.Parallel()

	first, err := InitAuthKeys(validConfig(), slogx.Discard())
	require.NoError(t, err)
	second, err := InitAuthKeys(validConfig(), slogx.Discard())
	require.NoError(t, err)
	require.NotEqual(t, first.Signer.KID(), second.Signer.KID())
	require.True(t, first.IsReady())
}
