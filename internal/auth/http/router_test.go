package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	authhttp "github.com/aussiebroadwan/lectern/internal/auth/http"

	"github.com/aussiebroadwan/lectern/internal/auth/domain"
	"github.com/aussiebroadwan/lectern/internal/auth/revocation"
	"github.com/aussiebroadwan/lectern/internal/auth/service"
	"github.com/aussiebroadwan/lectern/internal/auth/store"
	"github.com/aussiebroadwan/lectern/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/lectern/pkg/authsdk"
	"github.com/aussiebroadwan/lectern/pkg/cryptox"
	"github.com/aussiebroadwan/lectern/pkg/errx"
	"github.com/aussiebroadwan/lectern/pkg/httpx"
	"github.com/aussiebroadwan/lectern/pkg/idx"
	"github.com/aussiebroadwan/lectern/pkg/jwtx"
	"github.com/aussiebroadwan/lectern/pkg/sealx"
	"github.com/aussiebroadwan/lectern/pkg/slogx"
	"github.com/stretchr/testify/require"
)

const testIssuer = "lectern-test"

type server struct {
	url     string
	store   store.Store
	gateway *sealx.Gateway
}

func newServer(t *testing.T, opts authhttp.Options) *server {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	km, err := jwtx.NewEphemeralKeyManager(testIssuer)
	require.NoError(t, err)

	gw := sealx.NewGateway(sealx.Options{Logger: slogx.Discard()})
	require.NoError(t, gw.Init())
	t.Cleanup(func() { _ = gw.Close() })

	cache := revocation.NewMemory()
	otps := &service.OTPLedger{Store: st, Sender: service.LogSender{}, Key: []byte("pepper")}
	sessions := &service.SessionManager{Store: st, Cache: cache}
	tokens := &service.TokenService{
		KeyManager: km,
		Store:      st,
		Cache:      cache,
		Sessions:   sessions,
		Issuer:     testIssuer,
	}

	opts.ReturnOTPToClient = true
	r := authhttp.NewRouter(km.KeySet, "test", st, cache, gw, slogx.Discard(), opts)
	r.TokenService = tokens
	r.SessionManager = sessions
	r.AuthService = &service.AuthService{
		Store:     st,
		OTPs:      otps,
		Sessions:  sessions,
		Tokens:    tokens,
		Passwords: cryptox.NewPasswordHasher("pepper"),
	}
	r.ApplyRoutes()

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &server{url: srv.URL, store: st, gateway: gw}
}

func (s *server) client(t *testing.T, encrypted bool) *authsdk.SDKClient {
	t.Helper()
	c := authsdk.NewSDKClient(s.url)
	if encrypted {
		require.NoError(t, c.EnableEncryption(context.Background()))
		require.True(t, c.Encrypted())
	}
	return c
}

func register(t *testing.T, c *authsdk.SDKClient, identifier string) (*authsdk.Session, *authsdk.AuthResponse) {
	t.Helper()
	ctx := context.Background()

	sent, err := c.SendOTP(ctx, identifier, "registration")
	require.NoError(t, err)
	require.Len(t, sent.DevCode, 6)

	sess, res, err := c.Register(ctx, authsdk.RegisterRequest{
		Identifier: identifier,
		Code:       sent.DevCode,
		Name:       "Test Student",
		Password:   "correct horse battery",
		DeviceInfo: "device-1",
	})
	require.NoError(t, err)
	return sess, res
}

func loginOTP(t *testing.T, c *authsdk.SDKClient, identifier, device string) (*authsdk.Session, *authsdk.AuthResponse) {
	t.Helper()
	ctx := context.Background()

	sent, err := c.SendOTP(ctx, identifier, "login")
	require.NoError(t, err)

	sess, res, err := c.Login(ctx, authsdk.LoginRequest{Identifier: identifier, Code: sent.DevCode, DeviceInfo: device})
	require.NoError(t, err)
	return sess, res
}

func TestEncryptedRegisterAndMe(t *testing.T) {
	t.Parallel()
	srv := newServer(t, authhttp.Options{})
	c := srv.client(t, true)
	ctx := context.Background()

	sess, res := register(t, c, "+61400000001")
	require.Equal(t, "+61400000001", res.User.Phone)
	require.Equal(t, domain.RoleStudent, res.User.Role)
	require.True(t, res.User.PhoneVerified)
	require.True(t, res.User.HasPassword)
	require.False(t, res.PreviousSessionTerminated)
	require.Equal(t, domain.TokenTypeBearer, res.Tokens.TokenType)
	require.NotEmpty(t, res.SessionID)

	me, err := sess.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, res.User.ID, me.ID)

	v, err := sess.ValidateSession(ctx)
	require.NoError(t, err)
	require.True(t, v.Valid)

	// The handshake cached the client key.
	require.Equal(t, 1, srv.gateway.ClientKeys())
}

func TestSupersededDevice(t *testing.T) {
	t.Parallel()
	srv := newServer(t, authhttp.Options{})
	c := srv.client(t, true)
	ctx := context.Background()

	first, _ := register(t, c, "student@example.com")
	second, res := loginOTP(t, c, "student@example.com", "device-2")
	require.True(t, res.PreviousSessionTerminated)

	_, err := first.Me(ctx)
	require.ErrorIs(t, err, errx.ErrSessionTerminated)

	v, err := first.ValidateSession(ctx)
	require.NoError(t, err)
	require.False(t, v.Valid)
	require.Equal(t, domain.ReasonSessionTerminatedOnOtherDevice, v.Reason)

	// Refreshing the superseded pair fails too.
	require.ErrorIs(t, first.Refresh(ctx), errx.ErrSessionTerminated)

	// Logging out the old device leaves the new session alone.
	stale := c.NewSessionFromTokens("", first.AccessToken(), "", 900)
	require.NoError(t, stale.Logout(ctx))

	_, err = second.Me(ctx)
	require.NoError(t, err)
}

func TestLogoutRevokesTokens(t *testing.T) {
	t.Parallel()
	srv := newServer(t, authhttp.Options{})
	c := srv.client(t, true)
	ctx := context.Background()

	sess, _ := register(t, c, "+61400000002")
	access, refresh := sess.AccessToken(), sess.RefreshToken()
	require.NoError(t, sess.Logout(ctx))

	_, err := c.NewSessionFromTokens("", access, "", 900).Me(ctx)
	require.ErrorIs(t, err, errx.ErrTokenRevoked)

	_, err = c.RefreshTokens(ctx, refresh)
	require.ErrorIs(t, err, errx.ErrInvalidRefreshToken)
}

func TestCookieRefresh(t *testing.T) {
	t.Parallel()
	srv := newServer(t, authhttp.Options{})
	c := srv.client(t, false)
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	c.HTTPClient.Jar = jar
	ctx := context.Background()

	_, res := register(t, c, "+61400000003")

	rotated, err := c.RefreshTokens(ctx, "")
	require.NoError(t, err)
	require.NotEqual(t, res.Tokens.RefreshToken, rotated.RefreshToken)

	// The jar now holds the rotated token, so the cookie path keeps working.
	again, err := c.RefreshTokens(ctx, "")
	require.NoError(t, err)
	require.NotEqual(t, rotated.RefreshToken, again.RefreshToken)

	_, err = c.RefreshTokens(ctx, res.Tokens.RefreshToken)
	require.ErrorIs(t, err, errx.ErrInvalidRefreshToken)
}

func TestRefreshCookieAttributes(t *testing.T) {
	t.Parallel()
	srv := newServer(t, authhttp.Options{SecureCookies: true})
	c := srv.client(t, false)
	ctx := context.Background()

	sent, err := c.SendOTP(ctx, "+61400000004", "registration")
	require.NoError(t, err)

	body, _ := json.Marshal(authsdk.RegisterRequest{Identifier: "+61400000004", Code: sent.DevCode, Name: "Cookie"})
	resp, err := http.Post(srv.url+"/auth/register", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var cookie *http.Cookie
	for _, ck := range resp.Cookies() {
		if ck.Name == authhttp.RefreshCookieName {
			cookie = ck
		}
	}
	require.NotNil(t, cookie)
	require.True(t, cookie.HttpOnly)
	require.True(t, cookie.Secure)
	require.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	require.Equal(t, "/auth", cookie.Path)
	require.Positive(t, cookie.MaxAge)
}

func TestEncryptionRequired(t *testing.T) {
	t.Parallel()
	srv := newServer(t, authhttp.Options{EncryptionRequired: true})
	ctx := context.Background()

	plain := srv.client(t, false)
	_, err := plain.SendOTP(ctx, "+61400000005", "registration")
	require.ErrorIs(t, err, errx.ErrMissingPublicKey)

	// Exempt paths stay reachable in plaintext.
	_, err = plain.GetLiveness(ctx)
	require.NoError(t, err)
	pk, err := plain.GetPublicKey(ctx)
	require.NoError(t, err)
	require.True(t, pk.EncryptionEnabled)
	require.Equal(t, srv.gateway.PublicKey(), pk.PublicKey)

	enc := srv.client(t, true)
	register(t, enc, "+61400000005")
}

func TestHeaderOnlyKeySealsResponse(t *testing.T) {
	t.Parallel()
	srv := newServer(t, authhttp.Options{})
	c := srv.client(t, false)
	sess, _ := register(t, c, "+61400000006")

	sealer, err := sealx.NewClient(srv.gateway.PublicKey())
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, srv.url+"/auth/me", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+sess.AccessToken())
	req.Header.Set(sealx.HeaderClientPublicKey, sealer.PublicKey())

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "true", resp.Header.Get(httpx.HeaderEncrypted))
	require.Equal(t, "encrypted", resp.Header.Get(httpx.HeaderClientDetected))

	var env sealx.Envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	plain, err := sealer.Open(env)
	require.NoError(t, err)

	var me authsdk.MeResponse
	require.NoError(t, json.Unmarshal(plain, &me))
	require.Equal(t, "+61400000006", me.User.Phone)
}

func TestTamperedEnvelopeRejected(t *testing.T) {
	t.Parallel()
	srv := newServer(t, authhttp.Options{})

	sealer, err := sealx.NewClient(srv.gateway.PublicKey())
	require.NoError(t, err)
	env, err := sealer.Seal([]byte(`{"identifier":"+61400000007","purpose":"registration"}`))
	require.NoError(t, err)

	ct := []byte(env.Payload.Ciphertext)
	if ct[0] == 'A' {
		ct[0] = 'B'
	} else {
		ct[0] = 'A'
	}
	env.Payload.Ciphertext = string(ct)

	body, _ := json.Marshal(env)
	resp, err := http.Post(srv.url+"/auth/send-otp", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Empty(t, resp.Header.Get(httpx.HeaderEncrypted))
	var e errx.Body
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
	require.Equal(t, errx.CodeDecryptionError, e.Code)
	require.False(t, e.Success)
}

func TestAdminForceLogout(t *testing.T) {
	t.Parallel()
	srv := newServer(t, authhttp.Options{})
	c := srv.client(t, true)
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, srv.store.Principals().Create(ctx, domain.Principal{
		ID:              idx.NewAt(now).String(),
		Phone:           "+61400000099",
		Name:            "Admin",
		Role:            domain.RoleAdmin,
		Status:          domain.StatusActive,
		PhoneVerifiedAt: &now,
		CreatedAt:       now,
	}))
	admin, _ := loginOTP(t, c, "+61400000099", "admin-console")

	student, res := register(t, c, "+61400000008")

	// Students cannot force anyone out.
	require.ErrorIs(t, student.ForceLogout(ctx, res.User.ID), errx.ErrForbidden)

	require.NoError(t, admin.ForceLogout(ctx, res.User.ID))
	_, err := student.Me(ctx)
	require.ErrorIs(t, err, errx.ErrSessionTerminated)

	require.ErrorIs(t, admin.ForceLogout(ctx, idx.New().String()), errx.ErrPrincipalNotFound)
	require.ErrorIs(t, admin.ForceLogout(ctx, "not-an-id"), errx.ErrValidation)
}

func TestAdminSetStatus(t *testing.T) {
	t.Parallel()
	srv := newServer(t, authhttp.Options{})
	c := srv.client(t, true)
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, srv.store.Principals().Create(ctx, domain.Principal{
		ID:              idx.NewAt(now).String(),
		Phone:           "+61400000098",
		Name:            "Admin",
		Role:            domain.RoleAdmin,
		Status:          domain.StatusActive,
		PhoneVerifiedAt: &now,
		CreatedAt:       now,
	}))
	admin, _ := loginOTP(t, c, "+61400000098", "admin-console")
	student, res := register(t, c, "+61400000009")

	require.ErrorIs(t, student.SetStatus(ctx, res.User.ID, domain.StatusSuspended), errx.ErrForbidden)
	require.ErrorIs(t, admin.SetStatus(ctx, res.User.ID, "banished"), errx.ErrValidation)

	require.NoError(t, admin.SetStatus(ctx, res.User.ID, domain.StatusSuspended))
	_, err := student.Me(ctx)
	require.ErrorIs(t, err, errx.ErrSessionTerminated)

	sent, err := c.SendOTP(ctx, "+61400000009", "login")
	require.NoError(t, err)
	_, _, err = c.Login(ctx, authsdk.LoginRequest{Identifier: "+61400000009", Code: sent.DevCode})
	require.ErrorIs(t, err, errx.ErrAccountDisabled)

	require.NoError(t, admin.SetStatus(ctx, res.User.ID, domain.StatusActive))
	loginOTP(t, c, "+61400000009", "device-2")
}

func TestPasswordLoginAndReset(t *testing.T) {
	t.Parallel()
	srv := newServer(t, authhttp.Options{})
	c := srv.client(t, true)
	ctx := context.Background()

	first, _ := register(t, c, "+61400000009")

	_, _, err := c.Login(ctx, authsdk.LoginRequest{Identifier: "+61400000009", Password: "wrong password"})
	require.ErrorIs(t, err, errx.ErrInvalidCredentials)

	sent, err := c.SendOTP(ctx, "+61400000009", "password-reset")
	require.NoError(t, err)
	require.NoError(t, c.ResetPassword(ctx, authsdk.ResetPasswordRequest{
		Identifier:  "+61400000009",
		Code:        sent.DevCode,
		NewPassword: "a brand new secret",
	}))

	_, err = first.Me(ctx)
	require.ErrorIs(t, err, errx.ErrSessionTerminated)

	_, res, err := c.Login(ctx, authsdk.LoginRequest{Identifier: "+61400000009", Password: "a brand new secret"})
	require.NoError(t, err)
	require.False(t, res.PreviousSessionTerminated)
}

func TestOTPErrorsOverHTTP(t *testing.T) {
	t.Parallel()
	srv := newServer(t, authhttp.Options{})
	c := srv.client(t, true)
	ctx := context.Background()

	_, err := c.SendOTP(ctx, "+61400000010", "login")
	require.ErrorIs(t, err, errx.ErrPrincipalNotFound)

	_, err = c.SendOTP(ctx, "+61400000010", "bogus")
	require.ErrorIs(t, err, errx.ErrValidation)

	sent, err := c.SendOTP(ctx, "+61400000010", "registration")
	require.NoError(t, err)

	wrong := "000000"
	if sent.DevCode == wrong {
		wrong = "111111"
	}
	for range domain.MaxOTPAttempts {
		_, err = c.VerifyOTP(ctx, authsdk.VerifyOTPRequest{Identifier: "+61400000010", Code: wrong})
		require.ErrorIs(t, err, errx.ErrInvalidOTP)
	}
	_, err = c.VerifyOTP(ctx, authsdk.VerifyOTPRequest{Identifier: "+61400000010", Code: sent.DevCode})
	require.ErrorIs(t, err, errx.ErrTooManyAttempts)
}

func TestAuthnErrors(t *testing.T) {
	t.Parallel()
	srv := newServer(t, authhttp.Options{})

	resp, err := http.Get(srv.url + "/auth/me")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	var e errx.Body
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
	require.Equal(t, errx.CodeNoToken, e.Code)

	c := srv.client(t, true)
	_, err = c.NewSessionFromTokens("", "not.a.token", "", 900).Me(context.Background())
	require.ErrorIs(t, err, errx.ErrInvalidToken)
}

func TestHealthAndJWKS(t *testing.T) {
	t.Parallel()
	srv := newServer(t, authhttp.Options{HSTS: true})
	c := srv.client(t, true)
	ctx := context.Background()

	live, err := c.GetLiveness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)
	require.Equal(t, "test", live.Version)

	ready, err := c.GetReadiness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Status)
	require.Equal(t, "ok", ready.Checks.Cache)
	require.Equal(t, "ok", ready.Checks.Encryption)

	sess, _ := register(t, c, "+61400000011")
	v, err := c.NewTokenVerifier(ctx, testIssuer)
	require.NoError(t, err)
	claims, err := v.Verify(sess.AccessToken())
	require.NoError(t, err)
	require.Equal(t, sess.SessionID(), claims.SID)

	resp, err := http.Get(srv.url + "/livez")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	require.True(t, strings.HasPrefix(resp.Header.Get("Strict-Transport-Security"), "max-age="))
}

func TestSendOTPLimitedPerIdentifier(t *testing.T) {
	t.Parallel()
	srv := newServer(t, authhttp.Options{})

	spellings := []string{"+61400000020", "+61 400 000 020", "+61-400-000-020", "+61 (400) 000020"}
	send := func(i int) *http.Response {
		body := `{"identifier":"` + spellings[i%len(spellings)] + `","purpose":"registration"}`
		req, err := http.NewRequest(http.MethodPost, srv.url+"/auth/send-otp", strings.NewReader(body))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", "198.51.100."+strconv.Itoa(i+1))
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		return resp
	}

	for i := range httpx.StrictLimit.Burst {
		require.NotEqual(t, http.StatusTooManyRequests, send(i).StatusCode, "request %d", i+1)
	}

	resp := send(httpx.StrictLimit.Burst)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	var e errx.Body
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
	require.Equal(t, errx.CodeRateLimited, e.Code)
}
