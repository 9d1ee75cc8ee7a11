package httpx_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aussiebroadwan/lectern/pkg/errx"
	"github.com/aussiebroadwan/lectern/pkg/httpx"
	"github.com/aussiebroadwan/lectern/pkg/jwtx"
	"github.com/aussiebroadwan/lectern/pkg/sealx"
	"github.com/aussiebroadwan/lectern/pkg/slogx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errx.Body {
	t.Helper()
	var body errx.Body
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestChainOrder(t *testing.T) {
	t.Parallel()

	var order []string
	mark := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(okHandler, mark("a"), mark("b"), mark("c"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"a", "b", "c"}, order)
}

func TestHandlerFuncWritesErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err    error
		status int
		code   string
	}{
		{errx.ErrInvalidOTP, http.StatusBadRequest, errx.CodeInvalidOTP},
		{errx.Validation("identifier is required"), http.StatusBadRequest, errx.CodeValidation},
		{errors.New("boom"), http.StatusInternalServerError, errx.CodeInternal},
	}
	for _, tc := range tests {
		h := httpx.HandlerFunc(func(http.ResponseWriter, *http.Request) error { return tc.err })
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		require.Equal(t, tc.status, rec.Code)
		body := decodeError(t, rec)
		require.Equal(t, tc.code, body.Code)
		require.NotContains(t, body.Message, "boom")
	}
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	type in struct {
		Identifier string `json:"identifier"`
	}
	decode := func(ct, body string) error {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		if ct != "" {
			req.Header.Set("Content-Type", ct)
		}
		var v in
		return httpx.DecodeJSON(httptest.NewRecorder(), req, &v)
	}

	require.NoError(t, decode("application/json; charset=utf-8", `{"identifier":"a"}`))
	require.NoError(t, decode("", `{"identifier":"a"}`))
	require.ErrorIs(t, decode("text/plain", `{}`), errx.ErrUnsupportedMediaType)
	require.ErrorIs(t, decode("application/json", ``), errx.ErrValidation)
	require.ErrorIs(t, decode("application/json", `{"nope":1}`), errx.ErrValidation)
	require.ErrorIs(t, decode("application/json", `{"identifier":"`+strings.Repeat("a", httpx.MaxBodyBytes)+`"}`), errx.ErrRequestTooLarge)
}

type fakeVerifier struct {
	claims jwtx.Claims
	err    error
}

func (f fakeVerifier) VerifyAccess(context.Context, string) (jwtx.Claims, error) {
	return f.claims, f.err
}

type fakeSessions struct{ err error }

func (f fakeSessions) CheckSession(context.Context, string, string) error { return f.err }

func claimsFor(role, sid string) jwtx.Claims {
	return jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "p-1"},
		Role:             role,
		SID:              sid,
		Type:             jwtx.TypeAccess,
	}
}

func TestAuthn(t *testing.T) {
	t.Parallel()

	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, ok := httpx.ClaimsFrom(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(c.Subject + "|" + httpx.AccessTokenFrom(r.Context())))
	})

	t.Run("missing header", func(t *testing.T) {
		for _, h := range []string{"", "Basic abc", "Bearer", "Bearer   "} {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if h != "" {
				req.Header.Set("Authorization", h)
			}
			rec := httptest.NewRecorder()
			httpx.Authn(fakeVerifier{})(echo).ServeHTTP(rec, req)
			require.Equal(t, http.StatusUnauthorized, rec.Code, h)
			require.Equal(t, errx.CodeNoToken, decodeError(t, rec).Code)
		}
	})

	t.Run("verifier error is surfaced", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer tok")
		rec := httptest.NewRecorder()
		httpx.Authn(fakeVerifier{err: errx.ErrTokenRevoked})(echo).ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, errx.CodeTokenRevoked, decodeError(t, rec).Code)
	})

	t.Run("claims in context", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "bearer tok")
		rec := httptest.NewRecorder()
		httpx.Authn(fakeVerifier{claims: claimsFor("student", "s-1")})(echo).ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "p-1|tok", rec.Body.String())
	})

	t.Run("request logger carries the principal", func(t *testing.T) {
		var buf bytes.Buffer
		logged := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			slogx.FromContext(r.Context()).Info("handled")
		})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer tok")
		req = req.WithContext(slogx.WithContext(req.Context(), slog.New(slog.NewJSONHandler(&buf, nil))))
		httpx.Authn(fakeVerifier{claims: claimsFor("student", "s-1")})(logged).ServeHTTP(httptest.NewRecorder(), req)

		var line struct {
			Auth struct {
				Sub string `json:"sub"`
				SID string `json:"sid"`
			} `json:"auth"`
		}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		require.Equal(t, "p-1", line.Auth.Sub)
		require.Equal(t, "s-1", line.Auth.SID)
	})
}

func TestRequireSessionAndRole(t *testing.T) {
	t.Parallel()

	run := func(claims jwtx.Claims, sessions fakeSessions, roles ...string) *httptest.ResponseRecorder {
		h := httpx.Chain(okHandler,
			httpx.Authn(fakeVerifier{claims: claims}),
			httpx.RequireSession(sessions),
			httpx.RequireRole(roles...),
		)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer tok")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := run(claimsFor("admin", "s-1"), fakeSessions{}, "admin")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = run(claimsFor("admin", ""), fakeSessions{}, "admin")
	require.Equal(t, errx.CodeSessionTerminated, decodeError(t, rec).Code)

	rec = run(claimsFor("admin", "s-1"), fakeSessions{err: errx.ErrSessionTerminated}, "admin")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, errx.CodeSessionTerminated, decodeError(t, rec).Code)

	rec = run(claimsFor("admin", "s-1"), fakeSessions{err: errx.ErrServiceUnavailable}, "admin")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = run(claimsFor("student", "s-1"), fakeSessions{}, "admin", "instructor")
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, errx.CodeForbidden, decodeError(t, rec).Code)
}

func TestSecurityHeaders(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	httpx.SecurityHeaders(false)(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	require.Equal(t, "no-referrer", rec.Header().Get("Referrer-Policy"))
	require.Empty(t, rec.Header().Get("Strict-Transport-Security"))

	rec = httptest.NewRecorder()
	httpx.SecurityHeaders(true)(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestCORS(t *testing.T) {
	t.Parallel()

	h := httpx.CORS([]string{"https://app.example.com"})(okHandler)
	req := httptest.NewRequest(http.MethodOptions, "/auth/login", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

// e2eeFixture wires a gateway and a client around an echo handler that
// reports what it received.
type e2eeFixture struct {
	gw     *sealx.Gateway
	client *sealx.Client
}

func newE2EEFixture(t *testing.T) e2eeFixture {
	t.Helper()
	gw := sealx.NewGateway(sealx.Options{Logger: slogx.Discard()})
	require.NoError(t, gw.Init())
	t.Cleanup(func() { _ = gw.Close() })

	client, err := sealx.NewClient(gw.PublicKey())
	require.NoError(t, err)
	return e2eeFixture{gw: gw, client: client}
}

var echoBody = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	if len(b) == 0 {
		b = []byte("null")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write([]byte(`{"got":` + string(b) + `}`))
})

func TestE2EEEnvelopeRoundTrip(t *testing.T) {
	t.Parallel()
	f := newE2EEFixture(t)
	h := httpx.E2EE(f.gw, httpx.E2EEOptions{})(echoBody)

	env, err := f.client.Seal([]byte(`{"identifier":"alice"}`))
	require.NoError(t, err)
	raw, err := json.Marshal(env)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/send-otp", bytes.NewReader(raw)))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "true", rec.Header().Get(httpx.HeaderEncrypted))
	require.Equal(t, "encrypted", rec.Header().Get(httpx.HeaderClientDetected))

	var out sealx.Envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	require.True(t, out.Encrypted)
	require.Equal(t, f.gw.PublicKey(), out.Payload.PublicKey)

	plain, err := f.client.Open(out)
	require.NoError(t, err)
	require.JSONEq(t, `{"got":{"identifier":"alice"}}`, string(plain))
}

func TestE2EEHeaderOnlyKey(t *testing.T) {
	t.Parallel()
	f := newE2EEFixture(t)
	h := httpx.E2EE(f.gw, httpx.E2EEOptions{Required: true})(echoBody)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set(sealx.HeaderClientPublicKey, f.client.PublicKey())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var out sealx.Envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	plain, err := f.client.Open(out)
	require.NoError(t, err)
	require.JSONEq(t, `{"got":null}`, string(plain))
}

func TestE2EEPlainPassThrough(t *testing.T) {
	t.Parallel()
	f := newE2EEFixture(t)
	h := httpx.E2EE(f.gw, httpx.E2EEOptions{})(echoBody)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/send-otp", strings.NewReader(`{"a":1}`)))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "plain", rec.Header().Get(httpx.HeaderClientDetected))
	require.Empty(t, rec.Header().Get(httpx.HeaderEncrypted))
	require.JSONEq(t, `{"got":{"a":1}}`, rec.Body.String())
}

func TestE2EERequiredMode(t *testing.T) {
	t.Parallel()
	f := newE2EEFixture(t)
	h := httpx.E2EE(f.gw, httpx.E2EEOptions{
		Required: true,
		Exempt:   []string{"/auth/handshake", "/swagger/"},
	})(echoBody)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"a":1}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, errx.CodeMissingPublicKey, decodeError(t, rec).Code)

	// A header key does not license a plaintext body.
	var reached bool
	strict := httpx.E2EE(f.gw, httpx.E2EEOptions{Required: true})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"identifier":"x","password":"p"}`))
	req.Header.Set(sealx.HeaderClientPublicKey, f.client.PublicKey())
	rec = httptest.NewRecorder()
	strict.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, errx.CodeDecryptionError, decodeError(t, rec).Code)
	require.False(t, reached)

	req = httptest.NewRequest(http.MethodPost, "/auth/logout", strings.NewReader("  \n"))
	req.Header.Set(sealx.HeaderClientPublicKey, f.client.PublicKey())
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	for _, path := range []string{"/auth/handshake", "/swagger/index.html"} {
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"a":1}`)))
		require.Equal(t, http.StatusCreated, rec.Code, path)
		require.Equal(t, "plain", rec.Header().Get(httpx.HeaderClientDetected))
	}
}

func TestE2EERejectsBadEnvelopes(t *testing.T) {
	t.Parallel()
	f := newE2EEFixture(t)
	h := httpx.E2EE(f.gw, httpx.E2EEOptions{})(echoBody)

	env, err := f.client.Seal([]byte(`{"identifier":"alice"}`))
	require.NoError(t, err)

	tampered := *env.Payload
	tampered.Ciphertext = "A" + tampered.Ciphertext[1:]
	if tampered.Ciphertext == env.Payload.Ciphertext {
		tampered.Ciphertext = "B" + tampered.Ciphertext[1:]
	}

	other, err := sealx.NewClient(f.gw.PublicKey())
	require.NoError(t, err)
	wrongKey := *env.Payload
	wrongKey.PublicKey = other.PublicKey()

	for name, p := range map[string]sealx.Payload{
		"tampered ciphertext": tampered,
		"wrong sender key":    wrongKey,
	} {
		raw, err := json.Marshal(sealx.Envelope{Encrypted: true, Payload: &p})
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(raw)))
		require.Equal(t, http.StatusBadRequest, rec.Code, name)
		require.Equal(t, errx.CodeDecryptionError, decodeError(t, rec).Code, name)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set(sealx.HeaderClientPublicKey, "not-a-key")
	h.ServeHTTP(rec, req)
	require.Equal(t, errx.CodeMissingPublicKey, decodeError(t, rec).Code)
}

func TestE2EEEmptyResponse(t *testing.T) {
	t.Parallel()
	f := newE2EEFixture(t)
	h := httpx.E2EE(f.gw, httpx.E2EEOptions{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set(sealx.HeaderClientPublicKey, f.client.PublicKey())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Zero(t, rec.Body.Len())
}
