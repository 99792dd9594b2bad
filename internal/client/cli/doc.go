// Package cli provides the interactive command-line client of the vault.
//
// It wires configuration, the local encrypted cache, the HTTP API client and
// an interactive REPL whose command surface depends on the lock state:
// a locked vault accepts only session commands (login, unlock, sync), an
// unlocked one exposes the full record surface.
//
// Key features:
//   - Register / Login / Logout, Unlock / Lock, optional quick unlock
//   - Add records: logins, notes, cards
//   - List / Show / Delete / Favorite records
//   - Two-way sync with the server, online or queued while offline
//
// The REPL is started via App.Root(ctx), which blocks until the user exits.
// Background watchers lock the vault after idle time and track server
// reachability. See App, StartOnlineStatusWatcher, StartAutoLockWatcher and
// runREPL for details.
package cli
