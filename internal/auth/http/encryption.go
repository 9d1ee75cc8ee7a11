package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/aussiebroadwan/lectern/pkg/authsdk"
	"github.com/aussiebroadwan/lectern/pkg/errx"
	"github.com/aussiebroadwan/lectern/pkg/httpx"
	"github.com/aussiebroadwan/lectern/pkg/sealx"
	"github.com/aussiebroadwan/lectern/pkg/slogx"
)

// EncryptionHandler serves key discovery. Gateway is nil when payload
// encryption is disabled, in which case both endpoints report it off.
type EncryptionHandler struct {
	Gateway *sealx.Gateway
}

func (h *EncryptionHandler) enabled() bool {
	return h.Gateway != nil && h.Gateway.Ready()
}

// HandleHandshake registers a client public key.
//
//	@Summary		Encryption handshake
//	@Description	Registers the client's X25519 public key and returns the server public key. Subsequent requests may carry bodies sealed with NaCl box.
//	@Tags			Encryption
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.HandshakeRequest	true	"Client public key (base64)"
//	@Success		200		{object}	authsdk.HandshakeResponse
//	@Failure		400		{object}	errx.Body	"MISSING_PUBLIC_KEY"
//	@Router			/auth/handshake [post].
func (h *EncryptionHandler) HandleHandshake(w http.ResponseWriter, r *http.Request) error {
	var req authsdk.HandshakeRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		return err
	}
	if req.ClientPublicKey == "" {
		return errx.ErrMissingPublicKey
	}

	if !h.enabled() {
		httpx.WriteJSON(w, http.StatusOK, authsdk.HandshakeResponse{
			EncryptionEnabled: false,
			Timestamp:         time.Now().UTC(),
		})
		return nil
	}

	if err := h.Gateway.Handshake(req.ClientPublicKey); err != nil {
		if errors.Is(err, sealx.ErrInvalidKey) {
			return errx.ErrMissingPublicKey.WithMessage("client public key is invalid")
		}
		return errx.ErrServiceUnavailable.Wrap(err)
	}

	slogx.FromContext(r.Context()).Debug("encryption handshake", "client_keys", h.Gateway.ClientKeys())
	httpx.WriteJSON(w, http.StatusOK, authsdk.HandshakeResponse{
		ServerPublicKey:   h.Gateway.PublicKey(),
		EncryptionEnabled: true,
		Timestamp:         time.Now().UTC(),
	})
	return nil
}

// HandlePublicKey returns the server encryption key.
//
//	@Summary		Get server public key
//	@Tags			Encryption
//	@Produce		json
//	@Success		200	{object}	authsdk.PublicKeyResponse
//	@Router			/auth/public-key [get].
func (h *EncryptionHandler) HandlePublicKey(w http.ResponseWriter, r *http.Request) error {
	resp := authsdk.PublicKeyResponse{EncryptionEnabled: h.enabled()}
	if resp.EncryptionEnabled {
		resp.PublicKey = h.Gateway.PublicKey()
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
	return nil
}
