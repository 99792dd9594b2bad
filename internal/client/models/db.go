package models

import (
	"time"

	"github.com/cryptkeep/cryptkeep/internal/cryptox"
)

// Record is the at-rest and in-transit representation of one vault item:
// the shape persisted in the local cache and exchanged with the sync
// service. Type and Name deliberately live outside the encrypted payload so
// listing and search work without a resident key; everything else secret is
// inside Payload.
type Record struct {
	// ID is a globally unique identifier for the record.
	ID string `json:"record_id"`

	// Type mirrors the envelope discriminant (cleartext by design).
	Type RecordType `json:"type"`

	// Name is the human-readable title (cleartext by design).
	Name string `json:"name"`

	// Payload is the AEAD-sealed envelope: ciphertext, nonce, auth tag.
	Payload cryptox.EncryptedPayload `json:"encrypted_payload"`

	// Favorite marks the record pinned in listings.
	Favorite bool `json:"favorite"`

	// Version is the monotonic, server-assigned version used for sync.
	Version int64 `json:"version"`

	// Deleted marks the record as a tombstone (kept for conflict-free sync).
	Deleted bool `json:"deleted"`

	// Pending marks local changes not yet pushed to the server.
	Pending bool `json:"-"`

	// CreatedAt/UpdatedAt are modification times in UTC.
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
