// Package keystore persists the small set of non-key secrets the client is
// allowed to keep between runs: the bearer credential, the account context
// and a device identifier, all in the OS-backed secure store.
//
// The derived vault key and the master password are never written here.
// The one narrow exception is the opt-in quick-unlock device key: a random
// key that encrypts a copy of the master password held elsewhere; even
// then, the vault key itself stays memory-only.
package keystore

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/99designs/keyring"
	"github.com/cryptkeep/cryptkeep/internal/client/client"
	"github.com/cryptkeep/cryptkeep/internal/filex"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested item is not in the store.
var ErrNotFound = errors.New("keystore item not found")

const (
	keyCredentials    = "credentials"
	keyAccount        = "account"
	keyDeviceID       = "device_id"
	keyQuickUnlockKey = "quick_unlock_key"
)

// Store wraps an OS keyring (Keychain, wincred, Secret Service, or an
// encrypted file fallback).
type Store struct {
	ring keyring.Keyring
}

// Open returns a Store backed by the platform keyring for serviceName. On
// platforms without a native secret store the keyring falls back to an
// encrypted file under the user's config directory.
func Open(serviceName string) (*Store, error) {
	fileDir, err := filex.EnsureUserConfigDir(serviceName)
	if err != nil {
		return nil, err
	}

	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		FileDir:     fileDir,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return &Store{ring: ring}, nil
}

// NewWithKeyring wraps an existing keyring. Tests pass
// keyring.NewArrayKeyring to avoid touching the OS store.
func NewWithKeyring(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

func (s *Store) get(key string) ([]byte, error) {
	item, err := s.ring.Get(key)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("keyring get: %w", err)
	}
	return item.Data, nil
}

func (s *Store) set(key string, data []byte) error {
	if err := s.ring.Set(keyring.Item{Key: key, Data: data}); err != nil {
		return fmt.Errorf("keyring set: %w", err)
	}
	return nil
}

func (s *Store) remove(key string) error {
	err := s.ring.Remove(key)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("keyring remove: %w", err)
	}
	return nil
}

// SetCredentials persists the bearer credential pair.
func (s *Store) SetCredentials(creds client.Credentials) error {
	b, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	return s.set(keyCredentials, b)
}

// Credentials returns the persisted bearer credential pair.
func (s *Store) Credentials() (client.Credentials, error) {
	b, err := s.get(keyCredentials)
	if err != nil {
		return client.Credentials{}, err
	}
	var creds client.Credentials
	if err := json.Unmarshal(b, &creds); err != nil {
		return client.Credentials{}, err
	}
	return creds, nil
}

type accountRecord struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// SetAccount persists the non-secret account context.
func (s *Store) SetAccount(id, username string) error {
	b, err := json.Marshal(accountRecord{ID: id, Username: username})
	if err != nil {
		return err
	}
	return s.set(keyAccount, b)
}

// Account returns the persisted account context.
func (s *Store) Account() (id, username string, err error) {
	b, err := s.get(keyAccount)
	if err != nil {
		return "", "", err
	}
	var a accountRecord
	if err := json.Unmarshal(b, &a); err != nil {
		return "", "", err
	}
	return a.ID, a.Username, nil
}

// DeviceID returns the stable device identifier, generating and persisting
// one on first use.
func (s *Store) DeviceID() (string, error) {
	b, err := s.get(keyDeviceID)
	if err == nil {
		return string(b), nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", err
	}

	id := uuid.NewString()
	if err := s.set(keyDeviceID, []byte(id)); err != nil {
		return "", err
	}
	return id, nil
}

// SetQuickUnlockKey persists the random quick-unlock device key.
func (s *Store) SetQuickUnlockKey(key []byte) error {
	return s.set(keyQuickUnlockKey, []byte(base64.StdEncoding.EncodeToString(key)))
}

// QuickUnlockKey returns the quick-unlock device key, or ErrNotFound when
// quick unlock has not been enabled on this device.
func (s *Store) QuickUnlockKey() ([]byte, error) {
	b, err := s.get(keyQuickUnlockKey)
	if err != nil {
		return nil, err
	}
	return base64.StdEncoding.DecodeString(string(b))
}

// DeleteQuickUnlockKey removes the quick-unlock device key.
func (s *Store) DeleteQuickUnlockKey() error {
	return s.remove(keyQuickUnlockKey)
}

// Clear wipes everything except the device identifier. Called on logout.
func (s *Store) Clear() error {
	for _, key := range []string{keyCredentials, keyAccount, keyQuickUnlockKey} {
		if err := s.remove(key); err != nil {
			return err
		}
	}
	return nil
}
