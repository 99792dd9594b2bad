package services

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cryptkeep/cryptkeep/internal/client/client"
	"github.com/cryptkeep/cryptkeep/internal/client/keystore"
	"github.com/cryptkeep/cryptkeep/internal/client/repositories/metadata"
	"github.com/cryptkeep/cryptkeep/internal/client/session"
	"github.com/cryptkeep/cryptkeep/internal/cryptox"
	"github.com/cryptkeep/cryptkeep/internal/logging"
)

const quickUnlockBlobKey = "quick_unlock_blob"

// ErrQuickUnlockDisabled is returned by QuickUnlock when the opt-in has not
// been made on this device.
var ErrQuickUnlockDisabled = errors.New("quick unlock not enabled")

// AuthService drives the key lifecycle and the two remote collaborators.
//
// Contract:
//   - Register/Login: remote call first, then key derivation; ends Unlocked.
//   - RestoreSession: bearer credential from the keystore; ends Locked.
//   - Unlock/Lock/Logout: state transitions on the session manager, plus
//     credential housekeeping on Logout.
//   - EnableQuickUnlock/QuickUnlock: the opt-in convenience path; it stores
//     an encrypted copy of the master password, never the derived key.
//
// All methods must honor context cancellation/timeouts.
type AuthService interface {
	Register(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) error
	RestoreSession(ctx context.Context) error
	Unlock(ctx context.Context, password string) error
	Lock()
	Logout(ctx context.Context) error

	EnableQuickUnlock(ctx context.Context, password string) error
	QuickUnlock(ctx context.Context) error
	DisableQuickUnlock(ctx context.Context) error

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

type authService struct {
	client       client.Client
	keystore     *keystore.Store
	metadataRepo metadata.Repository
	session      *session.Manager
	log          logging.Logger
}

// NewAuthService constructs an AuthService bound to the given collaborators.
func NewAuthService(c client.Client, ks *keystore.Store, metadataRepo metadata.Repository, sess *session.Manager, log logging.Logger) AuthService {
	return &authService{client: c, keystore: ks, metadataRepo: metadataRepo, session: sess, log: log}
}

// Register creates the account remotely, derives the vault key from the
// password and the newly assigned account id, and persists the bearer
// credential. The vault ends Unlocked.
func (a *authService) Register(ctx context.Context, username, password string) error {
	res, err := a.client.Register(ctx, username, password)
	if err != nil {
		return fmt.Errorf("register error: %w", err)
	}

	account := session.Account{ID: res.AccountID, Username: username}
	if err := a.session.Register(ctx, password, account); err != nil {
		return err
	}
	return a.persistSession(account, res.Credentials)
}

// Login authenticates remotely and derives the vault key from the exact
// password string the server just validated. The vault ends Unlocked.
func (a *authService) Login(ctx context.Context, username, password string) error {
	res, err := a.client.Login(ctx, username, password)
	if err != nil {
		return fmt.Errorf("login error: %w", err)
	}

	account := session.Account{ID: res.AccountID, Username: username}
	if err := a.session.Login(ctx, password, account); err != nil {
		return err
	}
	return a.persistSession(account, res.Credentials)
}

func (a *authService) persistSession(account session.Account, creds client.Credentials) error {
	if err := a.keystore.SetCredentials(creds); err != nil {
		return fmt.Errorf("persisting credentials: %w", err)
	}
	if err := a.keystore.SetAccount(account.ID, account.Username); err != nil {
		return fmt.Errorf("persisting account: %w", err)
	}
	return nil
}

// RestoreSession rebuilds the account context from the keystore on process
// start. The key was never persisted, so the vault ends Locked; records
// stay unreadable until Unlock. Returns client.ErrLocalDataNotAvailable
// when nothing was persisted.
func (a *authService) RestoreSession(ctx context.Context) error {
	creds, err := a.keystore.Credentials()
	if err != nil {
		if errors.Is(err, keystore.ErrNotFound) {
			return client.ErrLocalDataNotAvailable
		}
		return err
	}
	id, username, err := a.keystore.Account()
	if err != nil {
		if errors.Is(err, keystore.ErrNotFound) {
			return client.ErrLocalDataNotAvailable
		}
		return err
	}

	a.client.SetCredentials(creds)
	a.session.RestoreSession(session.Account{ID: id, Username: username})

	a.log.Info(ctx, "session restored", "account_id", id)
	return nil
}

// Unlock re-derives the key from the master password. Sentinel verification
// happens inside the session manager; a wrong password surfaces as
// cryptox.ErrDecryptionFailed and the vault stays Locked.
func (a *authService) Unlock(ctx context.Context, password string) error {
	return a.session.Unlock(ctx, password)
}

// Lock discards the resident key. Also invoked by the idle watcher.
func (a *authService) Lock() {
	a.session.Lock()
}

// Logout discards the key, the account context, the persisted bearer
// credential and all local metadata, quick-unlock blob and sync high-water
// mark included. The next login starts its first sync from zero.
func (a *authService) Logout(ctx context.Context) error {
	a.session.Logout()
	a.client.SetCredentials(client.Credentials{})

	if err := a.metadataRepo.Clear(ctx); err != nil {
		return err
	}
	if err := a.keystore.Clear(); err != nil {
		return err
	}

	a.log.Info(ctx, "logged out")
	return nil
}

// EnableQuickUnlock is the explicit opt-in: a random device key goes into
// the OS keyring and the master password, encrypted under that device key,
// into local metadata. The derived vault key is still never persisted.
//
// The supplied password must reproduce the resident vault key; a typo here
// would otherwise sit undetected until the next quick unlock fails its
// sentinel probe.
func (a *authService) EnableQuickUnlock(ctx context.Context, password string) error {
	key, err := a.session.Key()
	if err != nil {
		return err
	}
	account, ok := a.session.Account()
	if !ok {
		return session.ErrNoAccount
	}
	candidate, err := cryptox.DeriveKey(password, account.ID)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(candidate), []byte(key)) != 1 {
		return cryptox.ErrDecryptionFailed
	}

	raw, err := cryptox.RandBytes(cryptox.KeySize)
	if err != nil {
		return err
	}
	deviceKey, err := cryptox.KeyFromBytes(raw)
	cryptox.WipeBytes(raw)
	if err != nil {
		return err
	}

	payload, err := cryptox.Encrypt([]byte(password), deviceKey)
	if err != nil {
		return fmt.Errorf("encryption error: %w", err)
	}

	blob, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if err := a.metadataRepo.Set(ctx, quickUnlockBlobKey, blob); err != nil {
		return fmt.Errorf("persisting quick unlock blob: %w", err)
	}

	kb, err := deviceKey.Bytes()
	if err != nil {
		return err
	}
	defer cryptox.WipeBytes(kb)
	if err := a.keystore.SetQuickUnlockKey(kb); err != nil {
		return fmt.Errorf("persisting quick unlock key: %w", err)
	}

	a.log.Info(ctx, "quick unlock enabled")
	return nil
}

// QuickUnlock decrypts the stored master password with the device key and
// runs a normal Unlock with it, sentinel verification included.
func (a *authService) QuickUnlock(ctx context.Context) error {
	kb, err := a.keystore.QuickUnlockKey()
	if err != nil {
		if errors.Is(err, keystore.ErrNotFound) {
			return ErrQuickUnlockDisabled
		}
		return err
	}
	deviceKey, err := cryptox.KeyFromBytes(kb)
	cryptox.WipeBytes(kb)
	if err != nil {
		return err
	}

	blob, err := a.metadataRepo.Get(ctx, quickUnlockBlobKey)
	if err != nil {
		return err
	}
	if blob == nil {
		return ErrQuickUnlockDisabled
	}

	var payload cryptox.EncryptedPayload
	if err := json.Unmarshal(blob, &payload); err != nil {
		return err
	}

	password, err := cryptox.Decrypt(&payload, deviceKey)
	if err != nil {
		return err
	}
	defer cryptox.WipeBytes(password)

	return a.session.Unlock(ctx, string(password))
}

// DisableQuickUnlock removes the device key and the encrypted blob.
func (a *authService) DisableQuickUnlock(ctx context.Context) error {
	if err := a.keystore.DeleteQuickUnlockKey(); err != nil {
		return err
	}
	return a.metadataRepo.Delete(ctx, quickUnlockBlobKey)
}

// Ping proxies a liveness check to the underlying client.
func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

// Close persists the bearer credential the client currently holds, so
// tokens rotated by a mid-session refresh survive a restart, and then
// releases the client. Nothing is written after a logout.
func (a *authService) Close(ctx context.Context) error {
	if _, ok := a.session.Account(); ok {
		if creds := a.client.Credentials(); creds.AccessToken != "" {
			if err := a.keystore.SetCredentials(creds); err != nil {
				a.log.Error(ctx, "persisting rotated credentials", "error", err)
			}
		}
	}
	return a.client.Close()
}
