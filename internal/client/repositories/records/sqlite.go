package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cryptkeep/cryptkeep/internal/client/models"
)

// DBTX is the slice of database/sql the record queries need. Both *sql.DB
// and *sql.Tx satisfy it, so a caller can hand the repository a transaction
// when a sync batch must apply atomically.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteRepository implements Repository on the local sqlite record cache.
type SQLiteRepository struct {
	db DBTX
}

// NewSQLiteRepository returns a repository bound to the given handle.
func NewSQLiteRepository(db DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Upsert inserts a record by id or, on conflict, updates the mutable
// columns. The row is always marked pending; only a sync clears that.
func (r *SQLiteRepository) Upsert(ctx context.Context, rec *models.Record) error {
	query := `INSERT INTO records
			(id, type, name, ciphertext, nonce, auth_tag, favorite, version, deleted, pending, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				type = excluded.type,
				name = excluded.name,
				ciphertext = excluded.ciphertext,
				nonce = excluded.nonce,
				auth_tag = excluded.auth_tag,
				favorite = excluded.favorite,
				version = excluded.version,
				deleted = excluded.deleted,
				pending = 1,
				updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, string(rec.Type), rec.Name,
		rec.Payload.Ciphertext, rec.Payload.Nonce, rec.Payload.AuthTag,
		rec.Favorite, rec.Version, rec.Deleted,
		rec.CreatedAt.UTC().Unix(), rec.UpdatedAt.UTC().Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert record: %w", err)
	}
	return nil
}

// List returns cleartext columns for all live records, favorites first.
func (r *SQLiteRepository) List(ctx context.Context) ([]models.Record, error) {
	query := `SELECT id, type, name, favorite, updated_at FROM records
			WHERE deleted = 0 ORDER BY favorite DESC, name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select records: %w", err)
	}
	defer rows.Close()

	var result []models.Record
	for rows.Next() {
		var item models.Record
		var typ string
		var updated int64
		if err := rows.Scan(&item.ID, &typ, &item.Name, &item.Favorite, &updated); err != nil {
			return nil, err
		}
		item.Type = models.RecordType(typ)
		item.UpdatedAt = time.Unix(updated, 0).UTC()
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetByID returns a full live record with its encrypted payload.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Record, error) {
	query := `SELECT id, type, name, ciphertext, nonce, auth_tag, favorite, version, created_at, updated_at
			FROM records WHERE deleted = 0 AND id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// GetAny returns an arbitrary live record, used to probe a candidate key.
func (r *SQLiteRepository) GetAny(ctx context.Context) (*models.Record, error) {
	query := `SELECT id, type, name, ciphertext, nonce, auth_tag, favorite, version, created_at, updated_at
			FROM records WHERE deleted = 0 ORDER BY updated_at LIMIT 1`
	return r.scanOne(r.db.QueryRowContext(ctx, query))
}

func (r *SQLiteRepository) scanOne(row *sql.Row) (*models.Record, error) {
	rec := &models.Record{}
	var typ string
	var created, updated int64
	err := row.Scan(&rec.ID, &typ, &rec.Name,
		&rec.Payload.Ciphertext, &rec.Payload.Nonce, &rec.Payload.AuthTag,
		&rec.Favorite, &rec.Version, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	rec.Type = models.RecordType(typ)
	rec.CreatedAt = time.Unix(created, 0).UTC()
	rec.UpdatedAt = time.Unix(updated, 0).UTC()
	return rec, nil
}

// DeleteByID tombstones a record (soft delete) and marks it pending so the
// deletion reaches the server on the next sync.
func (r *SQLiteRepository) DeleteByID(ctx context.Context, id string) error {
	query := `UPDATE records SET deleted = 1, pending = 1 WHERE id = ? AND deleted = 0`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return ErrNotFound
	}
	return nil
}

// SetFavorite flips the favorite flag; the flag is cleartext metadata, but
// the change still syncs like any other.
func (r *SQLiteRepository) SetFavorite(ctx context.Context, id string, favorite bool) error {
	query := `UPDATE records SET favorite = ?, pending = 1 WHERE id = ? AND deleted = 0`
	res, err := r.db.ExecContext(ctx, query, favorite, id)
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return ErrNotFound
	}
	return nil
}

// GetAllPending returns records awaiting sync, tombstones included.
func (r *SQLiteRepository) GetAllPending(ctx context.Context) ([]*models.Record, error) {
	query := `SELECT id, type, name, ciphertext, nonce, auth_tag, favorite, version, deleted, created_at, updated_at
			FROM records WHERE pending = 1`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pending []*models.Record
	for rows.Next() {
		rec := &models.Record{Pending: true}
		var typ string
		var created, updated int64
		if err := rows.Scan(&rec.ID, &typ, &rec.Name,
			&rec.Payload.Ciphertext, &rec.Payload.Nonce, &rec.Payload.AuthTag,
			&rec.Favorite, &rec.Version, &rec.Deleted, &created, &updated); err != nil {
			return nil, err
		}
		rec.Type = models.RecordType(typ)
		rec.CreatedAt = time.Unix(created, 0).UTC()
		rec.UpdatedAt = time.Unix(updated, 0).UTC()
		pending = append(pending, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return pending, nil
}

// ApplyRemote installs a server-side record locally. The conflict clause
// refuses to touch rows that still carry unpushed local changes.
func (r *SQLiteRepository) ApplyRemote(ctx context.Context, rec *models.Record) error {
	query := `INSERT INTO records
			(id, type, name, ciphertext, nonce, auth_tag, favorite, version, deleted, pending, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				type = excluded.type,
				name = excluded.name,
				ciphertext = excluded.ciphertext,
				nonce = excluded.nonce,
				auth_tag = excluded.auth_tag,
				favorite = excluded.favorite,
				version = excluded.version,
				deleted = excluded.deleted,
				updated_at = excluded.updated_at
			WHERE records.pending = 0
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, string(rec.Type), rec.Name,
		rec.Payload.Ciphertext, rec.Payload.Nonce, rec.Payload.AuthTag,
		rec.Favorite, rec.Version, rec.Deleted,
		rec.CreatedAt.UTC().Unix(), rec.UpdatedAt.UTC().Unix())
	if err != nil {
		return fmt.Errorf("failed to apply remote record: %w", err)
	}
	return nil
}

// MarkClean clears the pending flag after the server confirmed the change
// and records the version it assigned.
func (r *SQLiteRepository) MarkClean(ctx context.Context, id string, version int64) error {
	query := `UPDATE records SET pending = 0, version = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, version, id)
	if err != nil {
		return fmt.Errorf("failed to mark record clean: %w", err)
	}
	return nil
}
