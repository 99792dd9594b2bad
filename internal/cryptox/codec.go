package cryptox

import (
	"encoding/json"
	"fmt"
)

// EncryptRecord serializes v to JSON and seals it with Encrypt.
//
// Example:
//
//	type Login struct {
//	    Username string `json:"username"`
//	    Password string `json:"password"`
//	}
//
//	key, err := DeriveKey("correct horse battery", "user-42")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	payload, err := EncryptRecord(Login{Username: "a@b.com", Password: "p1"}, key)
//	if err != nil {
//	    log.Fatal(err)
//	}
func EncryptRecord(v any, key DerivedKey) (*EncryptedPayload, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("record serialization: %w", ErrInvalidInput)
	}
	return Encrypt(plaintext, key)
}

// DecryptRecord opens p with Decrypt and unmarshals the plaintext JSON into
// v. Bytes that decrypt but fail to parse are reported as
// ErrDecryptionFailed, same as a tag mismatch: distinguishing the two would
// leak information about key correctness that the cipher does not provide.
func DecryptRecord(p *EncryptedPayload, key DerivedKey, v any) error {
	plaintext, err := Decrypt(p, key)
	if err != nil {
		return err
	}
	defer WipeBytes(plaintext)

	if err := json.Unmarshal(plaintext, v); err != nil {
		return ErrDecryptionFailed
	}
	return nil
}
