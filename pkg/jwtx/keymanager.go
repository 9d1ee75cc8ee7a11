package jwtx

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/lectern/pkg/cryptox"
)

// KeyManager wires one Ed25519 signing key to its KeySet and Verifier.
// Only one key is active at a time and rollover is not supported.
type KeyManager struct {
	Signer   Signer
	Verifier *EdDSAVerifier
	KeySet   *KeySet
}

// KeyManagerOptions configures the KeyManager.
type KeyManagerOptions struct {
	// Issuer is the issuer claim (iss) that will be validated in tokens.
	Issuer string

	// PEM is a PKCS8 Ed25519 private key. Empty generates an ephemeral key.
	PEM []byte
}

// NewKeyManager builds a KeyManager from opts. The kid is derived from the
// public key so restarts with the same key keep the same kid.
func NewKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	if opts.Issuer == "" {
		return nil, errors.New("jwtx: Issuer is required")
	}

	pemKey := opts.PEM
	if len(pemKey) == 0 {
		var err error
		pemKey, err = cryptox.GenerateEd25519Key()
		if err != nil {
			return nil, fmt.Errorf("jwtx: generate ephemeral key: %w", err)
		}
	}

	signer, err := NewSignerEdDSA("", pemKey)
	if err != nil {
		return nil, err
	}
	signer.kid = deriveKID(signer.pub)

	keyset := NewKeySet()
	if err := keyset.AddSigner(signer); err != nil {
		return nil, fmt.Errorf("jwtx: add signer to keyset: %w", err)
	}

	return &KeyManager{
		Signer:   signer,
		Verifier: NewVerifierEdDSA(keyset, opts.Issuer),
		KeySet:   keyset,
	}, nil
}

// NewEphemeralKeyManager creates a KeyManager with an in-memory key. Every
// token becomes invalid when the process restarts.
func NewEphemeralKeyManager(issuer string) (*KeyManager, error) {
	return NewKeyManager(KeyManagerOptions{Issuer: issuer})
}

// IsReady returns true if the KeyManager has valid keys loaded.
func (km *KeyManager) IsReady() bool {
	return km.Signer != nil && km.KeySet.IsReady()
}

func deriveKID(pub []byte) string {
	sum := sha256.Sum256(pub)
	return "lectern-" + base64.RawURLEncoding.EncodeToString(sum[:9])
}
