// Package services contains the application services of the vault client:
// authentication and key lifecycle on one side, record handling and sync on
// the other. Services sit between the CLI and the repositories/remote
// client and are the only place where plaintext and the derived key meet.
package services

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/cryptkeep/cryptkeep/internal/client/client"
	"github.com/cryptkeep/cryptkeep/internal/client/models"
	"github.com/cryptkeep/cryptkeep/internal/client/repositories/metadata"
	"github.com/cryptkeep/cryptkeep/internal/client/repositories/records"
	"github.com/cryptkeep/cryptkeep/internal/client/session"
	"github.com/cryptkeep/cryptkeep/internal/cryptox"
	"github.com/cryptkeep/cryptkeep/internal/logging"
	"github.com/google/uuid"
)

const syncVersionKey = "sync_version"

// RecordService defines record operations for the CLI.
//
// Every operation that needs plaintext reads the key from the session
// manager at call time; once the vault locks, these operations fail with
// session.ErrLocked. Listing works without a key because name and type are
// cleartext columns by design.
type RecordService interface {
	Add(ctx context.Context, envelope models.Envelope) (string, error)
	Update(ctx context.Context, id string, envelope models.Envelope) error
	List(ctx context.Context) ([]models.Record, error)
	Get(ctx context.Context, id string) (*models.Envelope, error)
	DeleteByID(ctx context.Context, id string) error
	SetFavorite(ctx context.Context, id string, favorite bool) error
	Sync(ctx context.Context) error

	// ProbeKey implements session.KeyProber: it decrypts one stored record
	// with the candidate key. An empty vault probes clean.
	ProbeKey(ctx context.Context, key cryptox.DerivedKey) error
}

type recordService struct {
	client       client.Client
	recordRepo   records.Repository
	metadataRepo metadata.Repository
	session      *session.Manager
	log          logging.Logger
}

// NewRecordService constructs a RecordService bound to the given
// collaborators.
func NewRecordService(c client.Client, recordRepo records.Repository, metadataRepo metadata.Repository, sess *session.Manager, log logging.Logger) RecordService {
	return &recordService{client: c, recordRepo: recordRepo, metadataRepo: metadataRepo, session: sess, log: log}
}

// Add encrypts the envelope under the resident key and stores it locally as
// a pending record. Only Type and Name leave the envelope in cleartext.
func (s *recordService) Add(ctx context.Context, envelope models.Envelope) (string, error) {
	key, err := s.session.Key()
	if err != nil {
		return "", err
	}

	payload, err := cryptox.EncryptRecord(envelope, key)
	if err != nil {
		return "", fmt.Errorf("encryption error: %w", err)
	}

	now := time.Now().UTC()
	rec := &models.Record{
		ID:        uuid.NewString(),
		Type:      envelope.Type,
		Name:      envelope.Name,
		Payload:   *payload,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.recordRepo.Upsert(ctx, rec); err != nil {
		return "", fmt.Errorf("saving error: %w", err)
	}
	return rec.ID, nil
}

// Update re-encrypts the envelope and overwrites an existing record. The
// fresh-nonce rule means the stored ciphertext changes even when the
// content does not.
func (s *recordService) Update(ctx context.Context, id string, envelope models.Envelope) error {
	key, err := s.session.Key()
	if err != nil {
		return err
	}

	existing, err := s.recordRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("error retrieving record: %w", err)
	}

	payload, err := cryptox.EncryptRecord(envelope, key)
	if err != nil {
		return fmt.Errorf("encryption error: %w", err)
	}

	existing.Type = envelope.Type
	existing.Name = envelope.Name
	existing.Payload = *payload
	existing.UpdatedAt = time.Now().UTC()

	if err := s.recordRepo.Upsert(ctx, existing); err != nil {
		return fmt.Errorf("saving error: %w", err)
	}
	return nil
}

// List returns the cleartext overview of all live records. No key needed.
func (s *recordService) List(ctx context.Context) ([]models.Record, error) {
	list, err := s.recordRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing records: %w", err)
	}
	return list, nil
}

// Get decrypts one record back into its envelope.
func (s *recordService) Get(ctx context.Context, id string) (*models.Envelope, error) {
	key, err := s.session.Key()
	if err != nil {
		return nil, err
	}

	rec, err := s.recordRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error retrieving record: %w", err)
	}

	var envelope models.Envelope
	if err := cryptox.DecryptRecord(&rec.Payload, key, &envelope); err != nil {
		return nil, err
	}
	return &envelope, nil
}

func (s *recordService) DeleteByID(ctx context.Context, id string) error {
	if err := s.recordRepo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("error deleting record: %w", err)
	}
	return nil
}

func (s *recordService) SetFavorite(ctx context.Context, id string, favorite bool) error {
	if err := s.recordRepo.SetFavorite(ctx, id, favorite); err != nil {
		return fmt.Errorf("error updating record: %w", err)
	}
	return nil
}

// ProbeKey decrypts an arbitrary stored record with the candidate key. It
// returns cryptox.ErrDecryptionFailed for a wrong key and nil when the key
// checks out or there is no record to check against.
func (s *recordService) ProbeKey(ctx context.Context, key cryptox.DerivedKey) error {
	rec, err := s.recordRepo.GetAny(ctx)
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			return nil
		}
		return err
	}

	var envelope models.Envelope
	return cryptox.DecryptRecord(&rec.Payload, key, &envelope)
}

// Sync pushes pending local changes and pulls remote ones. It moves only
// ciphertext: no key is required and a locked vault can still sync.
func (s *recordService) Sync(ctx context.Context) error {
	pending, err := s.recordRepo.GetAllPending(ctx)
	if err != nil {
		return fmt.Errorf("error retrieving records: %w", err)
	}

	if len(pending) > 0 {
		acks, err := s.client.PushRecords(ctx, pending)
		if err != nil {
			return fmt.Errorf("push error: %w", err)
		}
		for _, ack := range acks {
			if err := s.recordRepo.MarkClean(ctx, ack.RecordID, ack.Version); err != nil {
				return fmt.Errorf("error marking record clean: %w", err)
			}
		}
	}

	since, err := s.syncVersion(ctx)
	if err != nil {
		return err
	}

	remote, maxVersion, err := s.client.PullRecords(ctx, since)
	if err != nil {
		return fmt.Errorf("pull error: %w", err)
	}
	for _, rec := range remote {
		if err := s.recordRepo.ApplyRemote(ctx, rec); err != nil {
			return err
		}
	}

	if maxVersion > since {
		if err := s.setSyncVersion(ctx, maxVersion); err != nil {
			return err
		}
	}

	s.log.Info(ctx, "sync finished", "pushed", len(pending), "pulled", len(remote))
	return nil
}

func (s *recordService) syncVersion(ctx context.Context) (int64, error) {
	b, err := s.metadataRepo.Get(ctx, syncVersionKey)
	if err != nil {
		return 0, fmt.Errorf("error reading sync version: %w", err)
	}
	if len(b) != 8 {
		return 0, nil
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

func (s *recordService) setSyncVersion(ctx context.Context, v int64) error {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	if err := s.metadataRepo.Set(ctx, syncVersionKey, b); err != nil {
		return fmt.Errorf("error saving sync version: %w", err)
	}
	return nil
}
