package service

import (
	"context"
	"sync"
	"testing"

	"github.com/aussiebroadwan/lectern/internal/auth/domain"
	"github.com/aussiebroadwan/lectern/internal/auth/revocation"
	"github.com/aussiebroadwan/lectern/internal/auth/store"
	"github.com/aussiebroadwan/lectern/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/lectern/pkg/cryptox"
	"github.com/aussiebroadwan/lectern/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const testIssuer = "lectern-test"

// captureSender remembers the last code sent to each identifier.
type captureSender struct {
	mu    sync.Mutex
	codes map[string]string
	fail  error
}

func (c *captureSender) Send(_ context.Context, identifier string, _ domain.OTPPurpose, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	c.codes[identifier] = code
	return nil
}

func (c *captureSender) last(identifier string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.codes[identifier]
}

type testEnv struct {
	store    store.Store
	cache    *revocation.Memory
	sender   *captureSender
	otps     *OTPLedger
	sessions *SessionManager
	tokens   *TokenService
	auth     *AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	km, err := jwtx.NewEphemeralKeyManager(testIssuer)
	require.NoError(t, err)

	cache := revocation.NewMemory()
	sender := &captureSender{codes: map[string]string{}}

	otps := &OTPLedger{Store: st, Sender: sender, Key: []byte("pepper")}
	sessions := &SessionManager{Store: st, Cache: cache}
	tokens := &TokenService{
		KeyManager: km,
		Store:      st,
		Cache:      cache,
		Sessions:   sessions,
		Issuer:     testIssuer,
	}

	return &testEnv{
		store:    st,
		cache:    cache,
		sender:   sender,
		otps:     otps,
		sessions: sessions,
		tokens:   tokens,
		auth: &AuthService{
			Store:     st,
			OTPs:      otps,
			Sessions:  sessions,
			Tokens:    tokens,
			Passwords: cryptox.NewPasswordHasher("pepper"),
		},
	}
}

func (e *testEnv) register(t *testing.T, identifier, password string) AuthResult {
	t.Helper()
	ctx := context.Background()

	code, _, err := e.auth.SendOTP(ctx, identifier, domain.PurposeRegistration)
	require.NoError(t, err)

	res, err := e.auth.Register(ctx, RegisterInput{
		Identifier: identifier,
		Code:       code,
		Name:       "Test Student",
		Password:   password,
		DeviceInfo: "test-device",
	})
	require.NoError(t, err)
	return res
}

func (e *testEnv) loginOTP(t *testing.T, identifier, device string) AuthResult {
	t.Helper()
	ctx := context.Background()

	code, _, err := e.auth.SendOTP(ctx, identifier, domain.PurposeLogin)
	require.NoError(t, err)

	res, err := e.auth.Login(ctx, LoginInput{Identifier: identifier, Code: code, DeviceInfo: device})
	require.NoError(t, err)
	return res
}

func claimsOf(t *testing.T, e *testEnv, access string) jwtx.Claims {
	t.Helper()
	c, err := e.tokens.VerifyAccess(context.Background(), access)
	require.NoError(t, err)
	return c
}
