package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isUnlocked() bool
	hasAccount() bool
	touch()
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Unlock(ctx context.Context) error
	QuickUnlock(ctx context.Context) error
	ConfigureQuickUnlock(ctx context.Context, arg string) error
	Lock(ctx context.Context) error
	Logout(ctx context.Context) error
	AddNote(ctx context.Context) error
	AddLogin(ctx context.Context) error
	AddCard(ctx context.Context) error
	List(ctx context.Context) error
	Show(ctx context.Context) error
	Delete(ctx context.Context) error
	Favorite(ctx context.Context) error
	Sync(ctx context.Context) error
}

// runREPL starts a simple read-eval-print loop for the vault CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current status (from statusFn) and accepts commands:
//
//	Locked:
//	  - help           — show available commands
//	  - register       — create an account
//	  - login          — authenticate and unlock
//	  - unlock         — re-derive the key from the master password
//	  - quickunlock    — unlock via the OS keyring (if enabled)
//	  - list           — list records (names and types are cleartext)
//	  - sync           — synchronize ciphertext with the server
//	  - logout         — forget the account on this device
//	  - exit | quit    — leave the program
//
//	Unlocked, additionally:
//	  - addlogin / addnote / addcard — add a record
//	  - show           — decrypt and display one record
//	  - delete         — tombstone a record
//	  - favorite       — toggle the favorite flag
//	  - quickunlock on|off — manage the quick-unlock opt-in
//	  - lock           — discard the in-memory key
//
// Any errors returned by command handlers are ignored here; handlers should
// log their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("ck> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		args := parts[1:]
		a.touch()

		switch cmd {
		case "help":
			if a.isUnlocked() {
				printlnFn("Available commands: (l)ist, addlogin, addnote, addcard, show, delete, favorite, sync, quickunlock [on|off], lock, logout, exit")
			} else if a.hasAccount() {
				printlnFn("Available commands: unlock, quickunlock, (l)ist, sync, logout, exit")
			} else {
				printlnFn("Available commands: register, login, exit")
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "unlock":
			_ = a.Unlock(ctx)

		case "quickunlock":
			if len(args) > 0 {
				_ = a.ConfigureQuickUnlock(ctx, args[0])
			} else {
				_ = a.QuickUnlock(ctx)
			}

		case "lock":
			_ = a.Lock(ctx)

		case "addnote":
			_ = a.AddNote(ctx)

		case "addlogin":
			_ = a.AddLogin(ctx)

		case "addcard":
			_ = a.AddCard(ctx)

		case "show":
			_ = a.Show(ctx)

		case "l", "list":
			_ = a.List(ctx)

		case "delete":
			_ = a.Delete(ctx)

		case "favorite":
			_ = a.Favorite(ctx)

		case "sync":
			_ = a.Sync(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
