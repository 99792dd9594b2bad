package client

import (
	"context"

	"github.com/cryptkeep/cryptkeep/internal/client/models"
)

// Credentials is the opaque bearer credential pair issued by the
// session/token service. It is orthogonal to the encryption key: persisting
// it restores the account context, never the key.
type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthResult is what the session/token service returns on successful
// registration or login.
type AuthResult struct {
	// AccountID is the stable account identifier; the crypto core consumes
	// it as the KDF salt.
	AccountID   string      `json:"account_id"`
	Credentials Credentials `json:"credentials"`
}

// RecordAck confirms one pushed record and carries the version the server
// assigned to it.
type RecordAck struct {
	RecordID string `json:"record_id"`
	Version  int64  `json:"version"`
}

// Client is the contract with the remote collaborators.
type Client interface {
	Close() error

	// Register creates an account on the server and returns the assigned
	// account id plus a bearer credential.
	Register(ctx context.Context, username, password string) (*AuthResult, error)

	// Login authenticates and returns the account id plus a bearer
	// credential. This channel is not zero-knowledge; only record payloads
	// are.
	Login(ctx context.Context, username, password string) (*AuthResult, error)

	// Ping checks server liveness.
	Ping(ctx context.Context) error

	// PushRecords uploads locally changed records (encrypted payloads and
	// tombstones) and returns per-record acknowledgements.
	PushRecords(ctx context.Context, recs []*models.Record) ([]RecordAck, error)

	// PullRecords downloads records changed after the given version and the
	// new high-water mark.
	PullRecords(ctx context.Context, sinceVersion int64) ([]*models.Record, int64, error)

	// Credentials returns the current bearer credential so callers can
	// persist it across restarts.
	Credentials() Credentials

	// SetCredentials installs a previously persisted bearer credential.
	SetCredentials(creds Credentials)
}
