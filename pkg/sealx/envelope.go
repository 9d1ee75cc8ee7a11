package sealx

import (
	"bytes"
	"encoding/json"
	"strings"
)

// HeaderClientPublicKey carries the client key out of band for requests
// without a body.
const HeaderClientPublicKey = "X-Client-Public-Key"

// Envelope is the wire shape of an encrypted request or response body.
type Envelope struct {
	Encrypted bool     `json:"encrypted"`
	Payload   *Payload `json:"payload,omitempty"`
}

// ParseEnvelope reports whether body is an encrypted envelope. Plain JSON
// bodies, including ones with "encrypted": false, are not envelopes.
func ParseEnvelope(body []byte) (Envelope, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Envelope{}, false
	}

	var env Envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return Envelope{}, false
	}
	if !env.Encrypted {
		return Envelope{}, false
	}
	return env, true
}

// ResolveClientKey picks the client public key from the envelope or, failing
// that, the out-of-band header value. Either source alone is enough.
func ResolveClientKey(header string, env *Envelope) (string, bool) {
	if env != nil && env.Payload != nil {
		if k := strings.TrimSpace(env.Payload.PublicKey); k != "" {
			return k, true
		}
	}
	if k := strings.TrimSpace(header); k != "" {
		return k, true
	}
	return "", false
}

// Open decrypts an envelope addressed to the server.
func (g *Gateway) Open(env Envelope) ([]byte, error) {
	if !env.Encrypted || env.Payload == nil {
		return nil, ErrDecryption
	}
	return g.Decrypt(env.Payload.Ciphertext, env.Payload.Nonce, env.Payload.PublicKey)
}

// Seal encrypts plaintext into an envelope for clientPublicKey.
func (g *Gateway) Seal(plaintext []byte, clientPublicKey string) (Envelope, error) {
	p, err := g.Encrypt(plaintext, clientPublicKey)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Encrypted: true, Payload: &p}, nil
}

// Client is the peer side of the gateway, used by SDKs and tests to talk to
// an encrypting server.
type Client struct {
	keys      KeyPair
	serverKey *[KeySize]byte
	shared    *[KeySize]byte
}

// NewClient builds a client with a fresh keypair bound to serverPublicKey.
func NewClient(serverPublicKey string) (*Client, error) {
	server, err := DecodeKey(serverPublicKey)
	if err != nil {
		return nil, err
	}
	kp, err := GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	return newClient(kp, server), nil
}

func newClient(kp KeyPair, server *[KeySize]byte) *Client {
	shared := new([KeySize]byte)
	boxPrecompute(shared, server, kp.Secret)
	return &Client{keys: kp, serverKey: server, shared: shared}
}

// PublicKey returns the client's base64 public key.
func (c *Client) PublicKey() string { return c.keys.PublicBase64() }

// Seal encrypts a request body for the server.
func (c *Client) Seal(plaintext []byte) (Envelope, error) {
	nonce, err := newNonce()
	if err != nil {
		return Envelope{}, err
	}
	sealed := boxSeal(plaintext, nonce, c.shared)
	return Envelope{
		Encrypted: true,
		Payload: &Payload{
			Ciphertext: encodeB64(sealed),
			Nonce:      encodeB64(nonce[:]),
			PublicKey:  c.PublicKey(),
		},
	}, nil
}

// Open decrypts a response envelope from the server.
func (c *Client) Open(env Envelope) ([]byte, error) {
	if !env.Encrypted || env.Payload == nil {
		return nil, ErrDecryption
	}
	return boxOpen(env.Payload.Ciphertext, env.Payload.Nonce, c.shared)
}
