// Package sealx implements the payload encryption gateway: authenticated
// public-key encryption (X25519 + XSalsa20-Poly1305, NaCl box) of request and
// response bodies between API clients and the server.
package sealx

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"
)

const (
	// KeySize is the length of X25519 public and secret keys.
	KeySize = 32
	// NonceSize is the length of the box nonce.
	NonceSize = 24
)

var ErrInvalidKey = errors.New("sealx: invalid key")

// KeyPair is an X25519 keypair.
type KeyPair struct {
	Public *[KeySize]byte
	Secret *[KeySize]byte
}

// GenerateKeyPair returns a fresh keypair from crypto/rand.
func GenerateKeyPair() (KeyPair, error) {
	pub, sec, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, fmt.Errorf("sealx: generate keypair: %w", err)
	}
	return KeyPair{Public: pub, Secret: sec}, nil
}

// KeyPairFromSecret rebuilds a keypair from a base64 secret key, deriving the
// public half.
func KeyPairFromSecret(secretB64 string) (KeyPair, error) {
	sec, err := DecodeKey(secretB64)
	if err != nil {
		return KeyPair{}, err
	}

	pubBytes, err := curve25519.X25519(sec[:], curve25519.Basepoint)
	if err != nil {
		return KeyPair{}, fmt.Errorf("sealx: derive public key: %w", err)
	}

	pub := new([KeySize]byte)
	copy(pub[:], pubBytes)
	return KeyPair{Public: pub, Secret: sec}, nil
}

// PublicBase64 returns the public key in standard base64.
func (k KeyPair) PublicBase64() string { return EncodeKey(k.Public) }

// SecretBase64 returns the secret key in standard base64. Only ever log this
// for operator capture in non-production environments.
func (k KeyPair) SecretBase64() string { return EncodeKey(k.Secret) }

// Wipe zeroes the secret key in place.
func (k KeyPair) Wipe() {
	if k.Secret != nil {
		for i := range k.Secret {
			k.Secret[i] = 0
		}
	}
}

// EncodeKey renders a key as standard base64.
func EncodeKey(k *[KeySize]byte) string {
	if k == nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(k[:])
}

// DecodeKey parses a standard base64 key and checks its length.
func DecodeKey(s string) (*[KeySize]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(raw) != KeySize {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidKey, KeySize, len(raw))
	}

	k := new([KeySize]byte)
	copy(k[:], raw)
	return k, nil
}

// ValidKey reports whether s decodes to a usable public key. The all-zero key
// is rejected since it yields a predictable shared secret.
func ValidKey(s string) bool {
	k, err := DecodeKey(s)
	if err != nil {
		return false
	}
	var zero [KeySize]byte
	return subtle.ConstantTimeCompare(k[:], zero[:]) == 0
}

func newNonce() (*[NonceSize]byte, error) {
	n := new([NonceSize]byte)
	if _, err := rand.Read(n[:]); err != nil {
		return nil, fmt.Errorf("sealx: generate nonce: %w", err)
	}
	return n, nil
}
