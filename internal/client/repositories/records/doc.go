// Package records provides the client-side persistence layer for encrypted
// vault records.
//
// # Overview
//
// The package defines a Repository interface for CRUD and query operations
// on Record models (see internal/client/models). A SQLite-backed
// implementation (SQLiteRepository) persists data through the package's own
// DBTX seam, satisfied by both *sql.DB and *sql.Tx.
//
// # Data Model
//
// Each row stores the encrypted payload (ciphertext, nonce, auth tag) next
// to the cleartext columns used for listing: type, name, favorite and
// timestamps. Deleting is a soft delete (tombstone) so the change can still
// be pushed to the sync service; rows changed locally are marked pending
// until a sync confirms them.
//
// # Concurrency
//
// Implementations are safe for concurrent use when backed by a properly
// configured *sql.DB. When using *sql.Tx (DBTX), follow normal transaction
// scoping rules.
package records
