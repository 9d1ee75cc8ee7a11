package sealx

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var (
	// ErrDecryption covers every open failure. Callers never learn which
	// input was at fault.
	ErrDecryption = errors.New("sealx: decryption failed")

	// ErrNotInitialised is returned when the gateway is used before Init or
	// after Close.
	ErrNotInitialised = errors.New("sealx: gateway not initialised")
)

const (
	DefaultClientKeyTTL  = 24 * time.Hour
	DefaultMaxClientKeys = 10000
)

// Options configures a Gateway.
type Options struct {
	// SecretKey is the base64 server secret key. Empty generates a new
	// keypair on Init.
	SecretKey string

	// RevealGeneratedKey logs a generated secret key so an operator can pin
	// it in configuration. Keep this off in production.
	RevealGeneratedKey bool

	// ClientKeyTTL bounds how long a handshaken client key keeps its
	// precomputed shared key.
	ClientKeyTTL time.Duration

	// MaxClientKeys caps the precomputed shared key cache.
	MaxClientKeys int

	Logger *slog.Logger
}

// Payload is the encrypted body carried inside an envelope.
type Payload struct {
	Ciphertext string `json:"ciphertext"`
	Nonce      string `json:"nonce"`
	PublicKey  string `json:"publicKey"`
}

// Gateway holds the server keypair and performs box encryption with client
// keys. The keypair is immutable between Init and Close so concurrent use is
// safe.
type Gateway struct {
	opts Options

	mu    sync.RWMutex
	keys  *KeyPair
	cache *sharedKeyCache
}

// NewGateway returns an uninitialised gateway.
func NewGateway(opts Options) *Gateway {
	if opts.ClientKeyTTL <= 0 {
		opts.ClientKeyTTL = DefaultClientKeyTTL
	}
	if opts.MaxClientKeys <= 0 {
		opts.MaxClientKeys = DefaultMaxClientKeys
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Gateway{opts: opts}
}

// Init loads the configured keypair or generates one.
func (g *Gateway) Init() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.keys != nil {
		return nil
	}

	var (
		kp  KeyPair
		err error
	)
	if g.opts.SecretKey != "" {
		kp, err = KeyPairFromSecret(g.opts.SecretKey)
		if err != nil {
			return fmt.Errorf("sealx: load configured secret key: %w", err)
		}
		g.opts.Logger.Info("encryption keypair loaded", "public_key", kp.PublicBase64())
	} else {
		kp, err = GenerateKeyPair()
		if err != nil {
			return err
		}
		if g.opts.RevealGeneratedKey {
			g.opts.Logger.Warn("generated encryption keypair, pin it with E2EE_SECRET_KEY",
				"public_key", kp.PublicBase64(),
				"secret_key", kp.SecretBase64(),
			)
		} else {
			g.opts.Logger.Warn("generated encryption keypair, clients must re-handshake after restart",
				"public_key", kp.PublicBase64(),
			)
		}
	}

	g.keys = &kp
	g.cache = newSharedKeyCache(g.opts.MaxClientKeys, g.opts.ClientKeyTTL)
	return nil
}

// Close wipes the keypair and the shared key cache.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.keys != nil {
		g.keys.Wipe()
		g.keys = nil
	}
	if g.cache != nil {
		g.cache.clear()
		g.cache = nil
	}
	return nil
}

// Ready reports whether Init has completed.
func (g *Gateway) Ready() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.keys != nil
}

// PublicKey returns the server public key in base64, or "" before Init.
func (g *Gateway) PublicKey() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.keys == nil {
		return ""
	}
	return g.keys.PublicBase64()
}

// Handshake registers a client public key, precomputing its shared key.
func (g *Gateway) Handshake(clientPublicKey string) error {
	if !ValidKey(clientPublicKey) {
		return ErrInvalidKey
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.keys == nil {
		return ErrNotInitialised
	}

	_, err := g.sharedKey(clientPublicKey, true)
	return err
}

// Decrypt opens a box sent by senderPublicKey. Every failure, including
// malformed base64, is reported as ErrDecryption.
func (g *Gateway) Decrypt(ciphertextB64, nonceB64, senderPublicKey string) ([]byte, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.keys == nil {
		return nil, ErrNotInitialised
	}

	shared, err := g.sharedKey(senderPublicKey, false)
	if err != nil {
		return nil, ErrDecryption
	}
	return boxOpen(ciphertextB64, nonceB64, shared)
}

// Encrypt seals plaintext for recipientPublicKey under a fresh random nonce.
func (g *Gateway) Encrypt(plaintext []byte, recipientPublicKey string) (Payload, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.keys == nil {
		return Payload{}, ErrNotInitialised
	}

	shared, err := g.sharedKey(recipientPublicKey, false)
	if err != nil {
		return Payload{}, err
	}

	nonce, err := newNonce()
	if err != nil {
		return Payload{}, err
	}

	return Payload{
		Ciphertext: encodeB64(boxSeal(plaintext, nonce, shared)),
		Nonce:      encodeB64(nonce[:]),
		PublicKey:  g.keys.PublicBase64(),
	}, nil
}

// sharedKey returns the precomputed key for peer, computing it when absent.
// Only handshakes populate the cache. Caller holds g.mu.
func (g *Gateway) sharedKey(peer string, remember bool) (*[KeySize]byte, error) {
	if k, ok := g.cache.get(peer); ok {
		return k, nil
	}

	if !ValidKey(peer) {
		return nil, ErrInvalidKey
	}
	pub, err := DecodeKey(peer)
	if err != nil {
		return nil, err
	}

	shared := new([KeySize]byte)
	boxPrecompute(shared, pub, g.keys.Secret)

	if remember {
		g.cache.put(peer, shared)
	}
	return shared, nil
}

// ClientKeys returns the number of cached client keys.
func (g *Gateway) ClientKeys() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.cache == nil {
		return 0
	}
	return g.cache.len()
}
