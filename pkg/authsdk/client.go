package authsdk

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/lectern/pkg/sealx"
)

// SDKClient is a client for the lectern authentication service.
// It provides access to unauthenticated operations and creates authenticated
// Sessions from register and login.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client

	sealer *sealx.Client
}

// NewSDKClient creates a new auth service client. Payload encryption is off
// until EnableEncryption is called.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// EnableEncryption fetches the server public key, performs the handshake
// and seals every subsequent request body. Responses to sealed requests are
// opened transparently.
func (c *SDKClient) EnableEncryption(ctx context.Context) error {
	pk, err := c.GetPublicKey(ctx)
	if err != nil {
		return err
	}
	if !pk.EncryptionEnabled || pk.PublicKey == "" {
		return fmt.Errorf("server does not offer payload encryption")
	}

	sealer, err := sealx.NewClient(pk.PublicKey)
	if err != nil {
		return fmt.Errorf("invalid server public key: %w", err)
	}

	hs, err := c.handshake(ctx, sealer.PublicKey())
	if err != nil {
		return err
	}
	if hs.ServerPublicKey != pk.PublicKey {
		return fmt.Errorf("server public key changed during handshake")
	}

	c.sealer = sealer
	return nil
}

// Encrypted reports whether requests are being sealed.
func (c *SDKClient) Encrypted() bool { return c.sealer != nil }

// ClientPublicKey returns the key the client seals with, or "" when
// encryption is off.
func (c *SDKClient) ClientPublicKey() string {
	if c.sealer == nil {
		return ""
	}
	return c.sealer.PublicKey()
}
