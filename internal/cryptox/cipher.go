package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

const (
	// NonceSize is the AES-GCM nonce length in bytes.
	NonceSize = 12

	// TagSize is the GCM authentication tag length in bytes.
	TagSize = 16
)

// EncryptedPayload is the at-rest and in-transit form of one encrypted
// record: ciphertext, nonce and authentication tag as separate fields, so
// storage schemas can address each independently. JSON marshalling encodes
// every field as base64.
type EncryptedPayload struct {
	Ciphertext []byte `json:"ciphertext"`
	Nonce      []byte `json:"nonce"`
	AuthTag    []byte `json:"auth_tag"`
}

// Encrypt seals plaintext under the given key using AES-256-GCM.
//
// A fresh 12-byte nonce is drawn from the system random source on every
// call. This is a hard invariant: reusing a (key, nonce) pair breaks both
// confidentiality and authenticity of GCM, so two encryptions of the same
// plaintext under the same key always produce distinct EncryptedPayloads.
// The 16-byte tag the primitive appends to the sealed buffer is split off
// into its own field.
//
// Returns ErrInvalidInput for a malformed key and ErrEncryptionFailed for
// primitive-level failures.
func Encrypt(plaintext []byte, key DerivedKey) (*EncryptedPayload, error) {
	kb, err := key.Bytes()
	if err != nil {
		return nil, err
	}
	defer WipeBytes(kb)

	aead, err := newGCM(kb)
	if err != nil {
		return nil, ErrEncryptionFailed
	}

	nonce, err := RandBytes(NonceSize)
	if err != nil {
		return nil, fmt.Errorf("nonce generation: %w", err)
	}

	sealed := aead.Seal(nil, nonce, plaintext, nil)
	split := len(sealed) - TagSize

	return &EncryptedPayload{
		Ciphertext: sealed[:split:split],
		Nonce:      nonce,
		AuthTag:    sealed[split:],
	}, nil
}

// Decrypt opens an EncryptedPayload under the given key and returns the
// plaintext bytes.
//
// Every failure mode (wrong key, flipped ciphertext or tag bits, wrong
// nonce length, malformed payload) is reported as the single opaque
// ErrDecryptionFailed. The cipher mode cannot distinguish them and callers
// must not be tempted to either; the only recovery path is re-entering the
// master password.
func Decrypt(p *EncryptedPayload, key DerivedKey) ([]byte, error) {
	if p == nil || len(p.Nonce) != NonceSize || len(p.AuthTag) != TagSize {
		return nil, ErrDecryptionFailed
	}

	kb, err := key.Bytes()
	if err != nil {
		return nil, err
	}
	defer WipeBytes(kb)

	aead, err := newGCM(kb)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	sealed := make([]byte, 0, len(p.Ciphertext)+TagSize)
	sealed = append(sealed, p.Ciphertext...)
	sealed = append(sealed, p.AuthTag...)

	plaintext, err := aead.Open(nil, p.Nonce, sealed, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
