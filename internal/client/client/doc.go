// Package client contains client-side building blocks for talking to the
// vault's remote collaborators.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic API contract (see the Client interface) covering
//     both remote collaborators: the session/token service
//     (Register/Login/Refresh) and the persistence/sync service
//     (PushRecords/PullRecords), plus a Ping liveness probe.
//  2. A concrete JSON-over-HTTP implementation (see HTTPClient) that
//     injects the bearer credential on every call, refreshes it
//     transparently when it expires, and maps response status codes to
//     sentinel errors.
//  3. Local persistence bootstrap utilities (InitDatabase, RunMigrations)
//     for the CLI, wiring an SQLite database and applying embedded goose
//     migrations.
//
// Record payloads cross this boundary only in encrypted form; the remote
// service never sees plaintext or key material.
//
// # Error Handling
//
// Common conditions are exposed as sentinel errors that callers can match
// with errors.Is: ErrUnavailable, ErrUnauthorized, ErrLocalDataNotAvailable.
//
// Concurrency & Contexts
//
// Implementations should be safe for concurrent use unless stated otherwise.
// All operations accept context.Context and must honor cancellation/timeouts.
package client
