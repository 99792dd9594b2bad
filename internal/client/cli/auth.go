package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/cryptkeep/cryptkeep/internal/client/client"
	"github.com/cryptkeep/cryptkeep/internal/client/services"
	"github.com/cryptkeep/cryptkeep/internal/client/session"
	"github.com/cryptkeep/cryptkeep/internal/cryptox"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts the user for a username and master password and creates
// a new account via the AuthService. On success the vault is unlocked.
//
// The password byte slice is wiped before returning. Any I/O or service
// error is returned unchanged.
func (a *App) Register(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword("Enter master password", os.Stdout)
	if err != nil {
		return err
	}
	defer cryptox.WipeBytes(password)

	confirm, err := getPassword("Confirm master password", os.Stdout)
	if err != nil {
		return err
	}
	defer cryptox.WipeBytes(confirm)

	if string(password) != string(confirm) {
		fmt.Println("Passwords do not match.")
		return nil
	}

	if err := a.authService.Register(ctx, userName, string(password)); err != nil {
		if errors.Is(err, client.ErrAlreadyExists) {
			fmt.Println("An account with that username already exists.")
			return nil
		}
		if errors.Is(err, cryptox.ErrInvalidInput) {
			fmt.Printf("Master password must be at least %d characters.\n", cryptox.MinMasterPasswordLen)
			return nil
		}
		a.log.Error(ctx, "registration failed", "error", err)
		return err
	}

	fmt.Println("Account created, vault unlocked.")
	a.setMode(ModeOnline)
	return nil
}

// Login prompts for credentials and authenticates against the server. On
// success the vault key is derived from the same password and the vault is
// unlocked. The password is wiped before returning.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword("Enter master password", os.Stdout)
	if err != nil {
		return err
	}
	defer cryptox.WipeBytes(password)

	if err := a.authService.Login(ctx, userName, string(password)); err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			fmt.Println("Invalid username or password.")
			return nil
		}
		if errors.Is(err, client.ErrUnavailable) {
			fmt.Println("Server unavailable. If you have logged in before, use 'unlock' to work offline.")
			a.setMode(ModeOffline)
			return nil
		}
		a.log.Error(ctx, "login failed", "error", err)
		return err
	}

	fmt.Println("Logged in, vault unlocked.")
	a.setMode(ModeOnline)
	return nil
}

// Unlock re-derives the vault key from the master password for the account
// restored from the previous session.
func (a *App) Unlock(ctx context.Context) error {
	password, err := getPassword("Enter master password", os.Stdout)
	if err != nil {
		return err
	}
	defer cryptox.WipeBytes(password)

	if err := a.authService.Unlock(ctx, string(password)); err != nil {
		switch {
		case errors.Is(err, cryptox.ErrDecryptionFailed), errors.Is(err, cryptox.ErrInvalidInput):
			fmt.Println("Wrong master password.")
		case errors.Is(err, session.ErrNoAccount):
			fmt.Println("No account on this device. Use 'login' or 'register' first.")
		default:
			a.log.Error(ctx, "unlock failed", "error", err)
			return err
		}
		return nil
	}

	fmt.Println("Vault unlocked.")
	return nil
}

// QuickUnlock unlocks using the device key stored in the OS keyring, if the
// user opted in with 'quickunlock on'.
func (a *App) QuickUnlock(ctx context.Context) error {
	err := a.authService.QuickUnlock(ctx)
	if err == nil {
		fmt.Println("Vault unlocked.")
		return nil
	}
	if errors.Is(err, services.ErrQuickUnlockDisabled) {
		fmt.Println("Quick unlock is not enabled. Use 'quickunlock on' while unlocked.")
		return nil
	}
	a.log.Error(ctx, "quick unlock failed", "error", err)
	return err
}

// ConfigureQuickUnlock enables or disables quick unlock ("on"/"off").
func (a *App) ConfigureQuickUnlock(ctx context.Context, arg string) error {
	switch arg {
	case "on":
		password, err := getPassword("Re-enter master password to enable quick unlock", os.Stdout)
		if err != nil {
			return err
		}
		defer cryptox.WipeBytes(password)

		if err := a.authService.EnableQuickUnlock(ctx, string(password)); err != nil {
			switch {
			case errors.Is(err, session.ErrLocked), errors.Is(err, session.ErrNoAccount):
				fmt.Println("Unlock the vault first.")
			case errors.Is(err, cryptox.ErrDecryptionFailed), errors.Is(err, cryptox.ErrInvalidInput):
				fmt.Println("Wrong master password.")
			default:
				a.log.Error(ctx, "enabling quick unlock failed", "error", err)
				return err
			}
			return nil
		}
		fmt.Println("Quick unlock enabled.")

	case "off":
		if err := a.authService.DisableQuickUnlock(ctx); err != nil {
			a.log.Error(ctx, "disabling quick unlock failed", "error", err)
			return err
		}
		fmt.Println("Quick unlock disabled.")

	default:
		fmt.Println("Usage: quickunlock [on|off]")
	}
	return nil
}

// Lock discards the in-memory vault key. Records stay listed; their
// contents become unreadable until the next unlock.
func (a *App) Lock(ctx context.Context) error {
	a.authService.Lock()
	fmt.Println("Vault locked.")
	return nil
}

// Logout locks the vault and removes the account context and stored
// credentials from this device.
func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.Logout(ctx); err != nil {
		a.log.Error(ctx, "logout failed", "error", err)
		return err
	}
	fmt.Println("Logged out.")
	return nil
}
