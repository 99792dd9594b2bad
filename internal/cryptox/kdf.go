package cryptox

import (
	"crypto/sha256"
	"encoding/base64"
	"unicode/utf8"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// MinMasterPasswordLen is the minimum master password length in
	// characters. Callers reject shorter input before deriving.
	MinMasterPasswordLen = 8

	// KeySize is the derived key length in bytes (AES-256).
	KeySize = 32

	kdfIterations = 100_000
)

// DerivedKey is the symmetric vault key in its transportable form: the
// standard base64 encoding of the raw 32-byte key. It lives only in process
// memory, held by the session manager between unlock and lock; it is never
// written to persistent storage and never logged.
type DerivedKey string

// Bytes decodes the raw key material. Returns ErrInvalidInput if the value
// is not well-formed base64 of exactly KeySize bytes. The caller owns the
// returned slice and should wipe it when done.
func (k DerivedKey) Bytes() ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(string(k))
	if err != nil || len(b) != KeySize {
		return nil, ErrInvalidInput
	}
	return b, nil
}

// KeyFromBytes wraps raw key material as a DerivedKey. Returns
// ErrInvalidInput unless the slice is exactly KeySize bytes. Used for keys
// that are generated randomly rather than derived from a password.
func KeyFromBytes(b []byte) (DerivedKey, error) {
	if len(b) != KeySize {
		return "", ErrInvalidInput
	}
	return DerivedKey(base64.StdEncoding.EncodeToString(b)), nil
}

// DeriveKey turns the master password and account id into the vault key
// using PBKDF2 with SHA-256, 100000 iterations and a 256-bit output.
//
// The account id bytes are used as the salt. The salt is therefore stable
// and not random: the same password always yields the same key for one
// account, which is what lets an unlock reproduce the exact key used at
// registration without fetching or storing a salt first. The cost of that
// trade-off is that the key cannot be rotated without changing the account
// id.
//
// Determinism is load-bearing: DeriveKey(pw, acct) returns byte-identical
// output on every call with the same inputs.
//
// Fails with ErrInvalidInput when the password is shorter than
// MinMasterPasswordLen characters or the account id is empty. DeriveKey has
// no way to detect a wrong password; wrongness only surfaces later as
// ErrDecryptionFailed on a record.
func DeriveKey(masterPassword, accountID string) (DerivedKey, error) {
	if utf8.RuneCountInString(masterPassword) < MinMasterPasswordLen {
		return "", ErrInvalidInput
	}
	if accountID == "" {
		return "", ErrInvalidInput
	}

	raw := pbkdf2.Key([]byte(masterPassword), []byte(accountID), kdfIterations, KeySize, sha256.New)
	if len(raw) != KeySize {
		return "", ErrDerivationFailed
	}

	key := DerivedKey(base64.StdEncoding.EncodeToString(raw))
	WipeBytes(raw)
	return key, nil
}
