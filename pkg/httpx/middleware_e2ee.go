package httpx

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/aussiebroadwan/lectern/pkg/errx"
	"github.com/aussiebroadwan/lectern/pkg/sealx"
	"github.com/aussiebroadwan/lectern/pkg/slogx"
)

const (
	HeaderClientDetected = "X-Client-Detected"
	HeaderEncrypted      = "X-Encrypted"
)

// E2EEOptions configures the envelope middleware.
type E2EEOptions struct {
	// Required rejects non-exempt requests that carry no client key.
	Required bool

	// Exempt lists path prefixes that always pass through in plaintext:
	// the handshake itself, health checks and docs.
	Exempt []string
}

// E2EE decrypts enveloped request bodies and seals responses for any
// request that resolved a client key, either from the envelope or from the
// X-Client-Public-Key header.
func E2EE(g *sealx.Gateway, opts E2EEOptions) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isExempt(r.URL.Path, opts.Exempt) {
				w.Header().Set(HeaderClientDetected, "plain")
				next.ServeHTTP(w, r)
				return
			}

			body, err := readBody(r)
			if err != nil {
				WriteError(w, r, err)
				return
			}

			env, enveloped := sealx.ParseEnvelope(body)
			var envp *sealx.Envelope
			if enveloped {
				envp = &env
			}
			clientKey, hasKey := sealx.ResolveClientKey(r.Header.Get(sealx.HeaderClientPublicKey), envp)

			if !hasKey {
				if opts.Required {
					WriteError(w, r, errx.ErrMissingPublicKey)
					return
				}
				w.Header().Set(HeaderClientDetected, "plain")
				restoreBody(r, body)
				next.ServeHTTP(w, r)
				return
			}
			if !sealx.ValidKey(clientKey) {
				WriteError(w, r, errx.ErrMissingPublicKey.WithMessage("client public key is invalid"))
				return
			}
			// The header key only stands in for bodyless requests.
			if opts.Required && !enveloped && len(bytes.TrimSpace(body)) > 0 {
				WriteError(w, r, errx.ErrDecryption.WithMessage("request body must be encrypted"))
				return
			}

			if enveloped {
				if env.Payload == nil {
					WriteError(w, r, errx.ErrDecryption)
					return
				}
				plain, err := g.Decrypt(env.Payload.Ciphertext, env.Payload.Nonce, clientKey)
				if err != nil {
					slogx.FromContext(r.Context()).Warn("envelope decryption failed", "err", err)
					WriteError(w, r, errx.ErrDecryption)
					return
				}
				body = plain
				r.Header.Set("Content-Type", "application/json")
			}
			restoreBody(r, body)

			w.Header().Set(HeaderClientDetected, "encrypted")
			ctx := slogx.With(r.Context(), "e2ee", true)

			buf := &bufferedWriter{header: w.Header(), status: http.StatusOK}
			next.ServeHTTP(buf, r.WithContext(ctx))
			sealResponse(w, r, g, clientKey, buf)
		})
	}
}

func sealResponse(w http.ResponseWriter, r *http.Request, g *sealx.Gateway, clientKey string, buf *bufferedWriter) {
	w.Header().Del("Content-Length")

	if !bodyAllowed(buf.status) {
		w.WriteHeader(buf.status)
		return
	}

	env, err := g.Seal(buf.body.Bytes(), clientKey)
	if err != nil {
		WriteError(w, r, errx.ErrEncryption.Wrap(err))
		return
	}

	out, err := json.Marshal(env)
	if err != nil {
		WriteError(w, r, errx.ErrEncryption.Wrap(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(HeaderEncrypted, "true")
	w.Header().Set("Content-Length", strconv.Itoa(len(out)))
	w.WriteHeader(buf.status)
	_, _ = w.Write(out)
}

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	defer r.Body.Close()

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
	if err != nil {
		return nil, errx.Validation("unable to read request body")
	}
	if len(body) > MaxBodyBytes {
		return nil, errx.ErrRequestTooLarge
	}
	return body, nil
}

func restoreBody(r *http.Request, body []byte) {
	r.Body = io.NopCloser(bytes.NewReader(body))
	r.ContentLength = int64(len(body))
	if len(body) > 0 {
		r.Header.Set("Content-Length", strconv.Itoa(len(body)))
	}
}

func isExempt(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if path == p || strings.HasPrefix(path, strings.TrimSuffix(p, "/")+"/") {
			return true
		}
	}
	return false
}

func bodyAllowed(status int) bool {
	return status != http.StatusNoContent && status != http.StatusNotModified && status >= 200
}

// bufferedWriter holds the handler's response so it can be sealed as a
// whole. Headers are shared with the real writer.
type bufferedWriter struct {
	header      http.Header
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func (b *bufferedWriter) Header() http.Header { return b.header }

func (b *bufferedWriter) WriteHeader(code int) {
	if b.wroteHeader {
		return
	}
	b.status = code
	b.wroteHeader = true
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	b.wroteHeader = true
	return b.body.Write(p)
}
