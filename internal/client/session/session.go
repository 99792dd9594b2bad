// Package session implements the key lifecycle manager: it holds the
// derived vault key in volatile memory between unlock and lock and encodes
// the locked/unlocked state machine that every screen and command goes
// through before touching a record.
//
// The manager is an injected object, not a package global: tests and
// callers create independent instances with NewManager. The key is never
// written to persistent storage and never logged; once Lock or Logout
// returns, no read can retrieve it again.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/cryptkeep/cryptkeep/internal/cryptox"
	"github.com/cryptkeep/cryptkeep/internal/logging"
)

var (
	// ErrLocked is returned by Key when no derived key is resident. It is
	// deliberately distinct from cryptox.ErrDecryptionFailed: "no key" is a
	// state error, not a crypto failure.
	ErrLocked = errors.New("vault is locked")

	// ErrNoAccount is returned by Unlock when there is no account context
	// to derive a key for (fresh start or after logout).
	ErrNoAccount = errors.New("no account context")
)

// Status names the two reachable states of the manager.
type Status string

const (
	StatusLocked   Status = "locked"
	StatusUnlocked Status = "unlocked"
)

// Account is the non-secret account context the key is derived for.
type Account struct {
	// ID is the stable account identifier; it doubles as the KDF salt.
	ID string
	// Username is kept for display only.
	Username string
}

// KeyProber verifies a candidate key against known ciphertext, typically by
// decrypting one stored record. Implementations return
// cryptox.ErrDecryptionFailed for a wrong key and nil when the key checks
// out or there is nothing to check against.
type KeyProber interface {
	ProbeKey(ctx context.Context, key cryptox.DerivedKey) error
}

// state is the tagged union behind the manager. Exactly two variants exist;
// "unlocked without an account" is unrepresentable.
type state interface {
	status() Status
}

type lockedState struct {
	// account is nil until a session has been established at least once.
	account *Account
}

type unlockedState struct {
	account Account
	key     cryptox.DerivedKey
}

func (lockedState) status() Status   { return StatusLocked }
func (unlockedState) status() Status { return StatusUnlocked }

// Manager owns the single derived-key slot. All transitions and reads go
// through one mutex, so a transition is atomic with respect to Key calls:
// once Lock or Logout returns, Key reports ErrLocked.
type Manager struct {
	mu     sync.Mutex
	state  state
	prober KeyProber
	log    logging.Logger
}

// NewManager returns a Manager in the Locked state with no account context.
// The prober is consulted on Unlock only; it may be nil, which disables
// sentinel verification and defers wrong-password detection to the first
// record decryption.
func NewManager(prober KeyProber, log logging.Logger) *Manager {
	return &Manager{state: lockedState{}, prober: prober, log: log}
}

// SetProber installs the prober after construction. The record service that
// implements probing is itself constructed with the manager, so one of the
// two has to be bound late.
func (m *Manager) SetProber(prober KeyProber) {
	m.mu.Lock()
	m.prober = prober
	m.mu.Unlock()
}

// Register derives the vault key for a newly created account and moves
// straight to Unlocked. The caller has already completed remote account
// creation; the account id it was assigned becomes the KDF salt.
func (m *Manager) Register(ctx context.Context, masterPassword string, account Account) error {
	return m.activate(ctx, masterPassword, account, "registered")
}

// Login derives the vault key after successful remote authentication and
// moves to Unlocked. No verification step confirms the key here: the remote
// service already validated the password, and the derivation must use the
// exact password string that authentication used so both agree on what
// "the password" is.
func (m *Manager) Login(ctx context.Context, masterPassword string, account Account) error {
	return m.activate(ctx, masterPassword, account, "logged in")
}

func (m *Manager) activate(ctx context.Context, masterPassword string, account Account, event string) error {
	key, err := cryptox.DeriveKey(masterPassword, account.ID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.state = unlockedState{account: account, key: key}
	m.mu.Unlock()

	m.log.Info(ctx, "vault unlocked", "event", event, "account_id", account.ID)
	return nil
}

// RestoreSession installs a previously persisted account context on process
// start. The key was never persisted, so the state becomes Locked: an
// Unlock is required before any record can be decrypted.
func (m *Manager) RestoreSession(account Account) {
	m.mu.Lock()
	m.state = lockedState{account: &account}
	m.mu.Unlock()
}

// Unlock re-derives the key from the master password for the retained
// account context. When a prober is configured, the candidate key must
// decrypt a known record before the state changes: a wrong password fails
// here with cryptox.ErrDecryptionFailed and the manager stays Locked.
//
// Calling Unlock while already unlocked is a no-op.
func (m *Manager) Unlock(ctx context.Context, masterPassword string) error {
	m.mu.Lock()
	st, ok := m.state.(lockedState)
	if !ok {
		m.mu.Unlock()
		return nil
	}
	if st.account == nil {
		m.mu.Unlock()
		return ErrNoAccount
	}
	account := *st.account
	prober := m.prober
	m.mu.Unlock()

	key, err := cryptox.DeriveKey(masterPassword, account.ID)
	if err != nil {
		return err
	}

	if prober != nil {
		if err := prober.ProbeKey(ctx, key); err != nil {
			return err
		}
	}

	m.mu.Lock()
	// a Logout may have raced the probe; do not resurrect its account
	if st, ok := m.state.(lockedState); !ok || st.account == nil || st.account.ID != account.ID {
		m.mu.Unlock()
		return ErrNoAccount
	}
	m.state = unlockedState{account: account, key: key}
	m.mu.Unlock()

	m.log.Info(ctx, "vault unlocked", "event", "unlock", "account_id", account.ID)
	return nil
}

// Lock discards the resident key immediately and irreversibly; the account
// context is retained so a later Unlock can re-derive. Explicit user action
// and the background-transition signal both land here.
func (m *Manager) Lock() {
	m.mu.Lock()
	if st, ok := m.state.(unlockedState); ok {
		account := st.account
		m.state = lockedState{account: &account}
	}
	m.mu.Unlock()

	m.log.Info(context.Background(), "vault locked")
}

// Logout discards the key and the account context entirely.
func (m *Manager) Logout() {
	m.mu.Lock()
	m.state = lockedState{}
	m.mu.Unlock()

	m.log.Info(context.Background(), "session cleared")
}

// Status reports the current state synchronously.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.status()
}

// Account returns the current account context, if any.
func (m *Manager) Account() (Account, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch st := m.state.(type) {
	case unlockedState:
		return st.account, true
	case lockedState:
		if st.account != nil {
			return *st.account, true
		}
	}
	return Account{}, false
}

// Key returns the resident derived key, or ErrLocked when there is none.
// Callers must not hold on to the key across transitions: reading the key,
// locking, and then using the stale copy is a caller bug by contract.
func (m *Manager) Key() (cryptox.DerivedKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if st, ok := m.state.(unlockedState); ok {
		return st.key, nil
	}
	return "", ErrLocked
}
