package cryptox

import (
	"encoding/hex"
	"errors"
	"testing"
)

func TestDeriveKey_Deterministic(t *testing.T) {
	key1, err := DeriveKey("Sup3rSecret!", "user-42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	key2, err := DeriveKey("Sup3rSecret!", "user-42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if key1 != key2 {
		t.Errorf("expected same result for same inputs, got different")
	}

	// snapshot: PBKDF2-SHA256, 100000 iterations, salt "user-42"
	raw, err := key1.Bytes()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectedHex := "4473c56b0f7adf9a2e50d07d534ba30ec489e96faf25e42ad628ff7c600389f9"
	if hex.EncodeToString(raw) != expectedHex {
		t.Errorf("expected %s, got %s", expectedHex, hex.EncodeToString(raw))
	}
}

func TestDeriveKey_DifferentInputs(t *testing.T) {
	key1, err := DeriveKey("Sup3rSecret!", "user-42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	key2, err := DeriveKey("Sup3rSecret?", "user-42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key1 == key2 {
		t.Errorf("expected different keys for different passwords, got same")
	}

	key3, err := DeriveKey("Sup3rSecret!", "user-43")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key1 == key3 {
		t.Errorf("expected different keys for different accounts, got same")
	}
}

func TestDeriveKey_InvalidInput(t *testing.T) {
	tests := []struct {
		name      string
		password  string
		accountID string
	}{
		{"short password", "short", "user-1"},
		{"seven characters", "1234567", "user-1"},
		{"empty password", "", "user-1"},
		{"empty account id", "Sup3rSecret!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DeriveKey(tt.password, tt.accountID)
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestDeriveKey_MultibytePasswordLength(t *testing.T) {
	// 8 characters, more than 8 bytes
	if _, err := DeriveKey("пароль42", "user-1"); err != nil {
		t.Errorf("expected 8-rune password to be accepted, got %v", err)
	}
}

func TestDerivedKey_Bytes(t *testing.T) {
	key, err := DeriveKey("Sup3rSecret!", "user-42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raw, err := key.Bytes()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(raw) != KeySize {
		t.Errorf("expected %d key bytes, got %d", KeySize, len(raw))
	}

	if _, err := DerivedKey("not base64!!").Bytes(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for malformed key, got %v", err)
	}
	if _, err := DerivedKey("c2hvcnQ=").Bytes(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for wrong-length key, got %v", err)
	}
}
