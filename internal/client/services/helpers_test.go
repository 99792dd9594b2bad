package services

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"

	"github.com/99designs/keyring"
	"github.com/cryptkeep/cryptkeep/internal/client/client"
	"github.com/cryptkeep/cryptkeep/internal/client/keystore"
	"github.com/cryptkeep/cryptkeep/internal/client/models"
	"github.com/cryptkeep/cryptkeep/internal/client/repositories/metadata"
	"github.com/cryptkeep/cryptkeep/internal/client/repositories/records"
	"github.com/cryptkeep/cryptkeep/internal/client/session"
	"github.com/cryptkeep/cryptkeep/internal/logging"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

// fakeClient implements client.Client in memory. Individual tests override
// the funcs they care about.
type fakeClient struct {
	registerFunc func(ctx context.Context, username, password string) (*client.AuthResult, error)
	loginFunc    func(ctx context.Context, username, password string) (*client.AuthResult, error)
	pushFunc     func(ctx context.Context, recs []*models.Record) ([]client.RecordAck, error)
	pullFunc     func(ctx context.Context, since int64) ([]*models.Record, int64, error)
	pingErr      error
	creds        client.Credentials
}

func (f *fakeClient) Close() error { return nil }

func (f *fakeClient) Register(ctx context.Context, username, password string) (*client.AuthResult, error) {
	if f.registerFunc != nil {
		return f.registerFunc(ctx, username, password)
	}
	return &client.AuthResult{AccountID: "acct-1"}, nil
}

func (f *fakeClient) Login(ctx context.Context, username, password string) (*client.AuthResult, error) {
	if f.loginFunc != nil {
		return f.loginFunc(ctx, username, password)
	}
	return &client.AuthResult{AccountID: "acct-1"}, nil
}

func (f *fakeClient) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeClient) PushRecords(ctx context.Context, recs []*models.Record) ([]client.RecordAck, error) {
	if f.pushFunc != nil {
		return f.pushFunc(ctx, recs)
	}
	acks := make([]client.RecordAck, 0, len(recs))
	for i, rec := range recs {
		acks = append(acks, client.RecordAck{RecordID: rec.ID, Version: int64(i + 1)})
	}
	return acks, nil
}

func (f *fakeClient) PullRecords(ctx context.Context, since int64) ([]*models.Record, int64, error) {
	if f.pullFunc != nil {
		return f.pullFunc(ctx, since)
	}
	return nil, since, nil
}

func (f *fakeClient) Credentials() client.Credentials         { return f.creds }
func (f *fakeClient) SetCredentials(creds client.Credentials) { f.creds = creds }

type testEnv struct {
	client       *fakeClient
	keystore     *keystore.Store
	recordRepo   records.Repository
	metadataRepo metadata.Repository
	session      *session.Manager
	auth         AuthService
	records      RecordService
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE records (
  id TEXT PRIMARY KEY,
  type TEXT NOT NULL,
  name TEXT NOT NULL,
  ciphertext BLOB NOT NULL,
  nonce BLOB NOT NULL,
  auth_tag BLOB NOT NULL,
  favorite INTEGER NOT NULL DEFAULT 0,
  version INTEGER NOT NULL DEFAULT 0,
  deleted INTEGER NOT NULL DEFAULT 0,
  pending INTEGER NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);
CREATE TABLE metadata (
  key TEXT PRIMARY KEY,
  value BLOB
);`)
	require.NoError(t, err)

	log := testLogger()
	env := &testEnv{
		client:       &fakeClient{},
		keystore:     keystore.NewWithKeyring(keyring.NewArrayKeyring(nil)),
		recordRepo:   records.NewSQLiteRepository(db),
		metadataRepo: metadata.NewSQLiteRepository(db),
	}

	env.session = session.NewManager(nil, log)
	env.records = NewRecordService(env.client, env.recordRepo, env.metadataRepo, env.session, log)
	env.session.SetProber(env.records)
	env.auth = NewAuthService(env.client, env.keystore, env.metadataRepo, env.session, log)

	return env
}
