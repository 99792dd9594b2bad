package records

import (
	"context"
	"errors"

	"github.com/cryptkeep/cryptkeep/internal/client/models"
)

// ErrNotFound is returned when no live record matches the requested id.
var ErrNotFound = errors.New("record not found")

// Repository describes CRUD and query operations for Record objects.
// Implementations are typically backed by a local SQLite database.
type Repository interface {
	// Upsert inserts a new record or updates an existing one by ID.
	Upsert(ctx context.Context, record *models.Record) error

	// List returns all live records with cleartext columns only; the
	// encrypted payload is not loaded for listings.
	List(ctx context.Context) ([]models.Record, error)

	// GetByID returns a full record, including its encrypted payload.
	// Returns ErrNotFound when the id does not exist or is a tombstone.
	GetByID(ctx context.Context, id string) (*models.Record, error)

	// GetAny returns an arbitrary live record with its payload, or
	// ErrNotFound when the vault is empty. Used as the unlock sentinel.
	GetAny(ctx context.Context) (*models.Record, error)

	// DeleteByID tombstones a record and marks it pending for sync.
	DeleteByID(ctx context.Context, id string) error

	// SetFavorite flips the favorite flag on a live record.
	SetFavorite(ctx context.Context, id string, favorite bool) error

	// GetAllPending returns records with local changes not yet synchronized.
	GetAllPending(ctx context.Context) ([]*models.Record, error)

	// MarkClean clears the pending flag and installs the server-assigned
	// version after a successful push.
	MarkClean(ctx context.Context, id string, version int64) error

	// ApplyRemote upserts a record received from the sync service. Rows
	// with unpushed local changes are left untouched; the local change
	// wins until the next push.
	ApplyRemote(ctx context.Context, record *models.Record) error
}
