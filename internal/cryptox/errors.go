// Package cryptox implements the cryptographic core of the vault client:
// key derivation from the master password, authenticated encryption of
// record payloads, and the JSON record codec. All failures are reported as
// one of the sentinel errors below; messages never include key material,
// master secrets, or plaintext.
package cryptox

import "errors"

var (
	// ErrInvalidInput indicates a caller-supplied argument violated a
	// precondition: master password too short, empty account id, or a
	// malformed key/payload shape. Surfaced immediately, never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDerivationFailed indicates the derivation primitive itself could
	// not produce a key. This is an environment defect, not a wrong
	// password: PBKDF2 has no verification step, so a wrong password only
	// surfaces later as ErrDecryptionFailed.
	ErrDerivationFailed = errors.New("key derivation failed")

	// ErrEncryptionFailed indicates a primitive-level failure while sealing.
	ErrEncryptionFailed = errors.New("encryption failed")

	// ErrDecryptionFailed covers wrong key, tampered ciphertext and
	// malformed record structure. AES-GCM gives no information about which
	// of these occurred, so neither does this error.
	ErrDecryptionFailed = errors.New("decryption failed")
)
