package sealx

import (
	"encoding/base64"

	"golang.org/x/crypto/nacl/box"
)

func boxPrecompute(shared, peer, secret *[KeySize]byte) {
	box.Precompute(shared, peer, secret)
}

func boxSeal(plaintext []byte, nonce *[NonceSize]byte, shared *[KeySize]byte) []byte {
	return box.SealAfterPrecomputation(nil, plaintext, nonce, shared)
}

// boxOpen decodes and authenticates a sealed message. Corrupt input of any
// kind is ErrDecryption.
func boxOpen(ciphertextB64, nonceB64 string, shared *[KeySize]byte) ([]byte, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil || len(ciphertext) < box.Overhead {
		return nil, ErrDecryption
	}
	nonceRaw, err := base64.StdEncoding.DecodeString(nonceB64)
	if err != nil || len(nonceRaw) != NonceSize {
		return nil, ErrDecryption
	}
	var nonce [NonceSize]byte
	copy(nonce[:], nonceRaw)

	plaintext, ok := box.OpenAfterPrecomputation(nil, ciphertext, &nonce, shared)
	if !ok {
		return nil, ErrDecryption
	}
	return plaintext, nil
}

func encodeB64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}
