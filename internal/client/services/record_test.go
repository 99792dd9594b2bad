package services

import (
	"context"
	"testing"
	"time"

	"github.com/cryptkeep/cryptkeep/internal/client/client"
	"github.com/cryptkeep/cryptkeep/internal/client/models"
	"github.com/cryptkeep/cryptkeep/internal/client/repositories/records"
	"github.com/cryptkeep/cryptkeep/internal/client/session"
	"github.com/cryptkeep/cryptkeep/internal/cryptox"
	"github.com/stretchr/testify/require"
)

func loginEnv(t *testing.T, env *testEnv) {
	t.Helper()
	require.NoError(t, env.auth.Login(context.Background(), "alice", "Sup3rSecret!"))
}

func sampleLogin(name string) models.Envelope {
	env, _ := models.Wrap(name, nil, models.Login{
		Username: "alice",
		Password: "p@ss",
		URL:      "https://example.com",
	})
	return env
}

func TestRecordService_AddAndGetRoundTrip(t *testing.T) {
	env := setupEnv(t)
	loginEnv(t, env)
	ctx := context.Background()

	id, err := env.records.Add(ctx, sampleLogin("example.com"))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := env.records.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "example.com", got.Name)

	details, err := got.Unwrap()
	require.NoError(t, err)
	login, ok := details.(models.Login)
	require.True(t, ok)
	require.Equal(t, "p@ss", login.Password)
}

func TestRecordService_RequiresUnlockedVault(t *testing.T) {
	env := setupEnv(t)
	loginEnv(t, env)
	ctx := context.Background()

	id, err := env.records.Add(ctx, sampleLogin("example.com"))
	require.NoError(t, err)

	env.auth.Lock()

	_, err = env.records.Add(ctx, sampleLogin("other"))
	require.ErrorIs(t, err, session.ErrLocked)

	_, err = env.records.Get(ctx, id)
	require.ErrorIs(t, err, session.ErrLocked)

	// listing stays available: name and type are cleartext
	list, err := env.records.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestRecordService_UpdateReencrypts(t *testing.T) {
	env := setupEnv(t)
	loginEnv(t, env)
	ctx := context.Background()

	id, err := env.records.Add(ctx, sampleLogin("example.com"))
	require.NoError(t, err)

	before, err := env.recordRepo.GetByID(ctx, id)
	require.NoError(t, err)

	require.NoError(t, env.records.Update(ctx, id, sampleLogin("example.com")))

	after, err := env.recordRepo.GetByID(ctx, id)
	require.NoError(t, err)
	// same plaintext, fresh nonce: stored bytes must differ
	require.NotEqual(t, before.Payload.Nonce, after.Payload.Nonce)
	require.NotEqual(t, before.Payload.Ciphertext, after.Payload.Ciphertext)
}

func TestRecordService_GetAfterRelogin(t *testing.T) {
	env := setupEnv(t)
	loginEnv(t, env)
	ctx := context.Background()

	id, err := env.records.Add(ctx, sampleLogin("example.com"))
	require.NoError(t, err)

	env.auth.Lock()
	require.NoError(t, env.auth.Unlock(ctx, "Sup3rSecret!"))

	got, err := env.records.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "example.com", got.Name)
}

func TestRecordService_ProbeKey(t *testing.T) {
	env := setupEnv(t)
	loginEnv(t, env)
	ctx := context.Background()

	rightKey, err := env.session.Key()
	require.NoError(t, err)

	// empty vault probes clean with any key
	wrongKey, err := cryptox.DeriveKey("WrongPassword1", "acct-1")
	require.NoError(t, err)
	require.NoError(t, env.records.ProbeKey(ctx, wrongKey))

	_, err = env.records.Add(ctx, sampleLogin("example.com"))
	require.NoError(t, err)

	require.NoError(t, env.records.ProbeKey(ctx, rightKey))
	require.ErrorIs(t, env.records.ProbeKey(ctx, wrongKey), cryptox.ErrDecryptionFailed)
}

func TestRecordService_SyncPushesPendingAndPulls(t *testing.T) {
	env := setupEnv(t)
	loginEnv(t, env)
	ctx := context.Background()

	id, err := env.records.Add(ctx, sampleLogin("example.com"))
	require.NoError(t, err)

	var pushed []*models.Record
	env.client.pushFunc = func(ctx context.Context, recs []*models.Record) ([]client.RecordAck, error) {
		pushed = recs
		return []client.RecordAck{{RecordID: id, Version: 3}}, nil
	}

	key, err := env.session.Key()
	require.NoError(t, err)
	remotePayload, err := cryptox.EncryptRecord(sampleLogin("from server"), key)
	require.NoError(t, err)
	now := time.Now().UTC().Truncate(time.Second)
	env.client.pullFunc = func(ctx context.Context, since int64) ([]*models.Record, int64, error) {
		require.Equal(t, int64(0), since)
		return []*models.Record{{
			ID:        "remote-1",
			Type:      models.RecordTypeLogin,
			Name:      "from server",
			Payload:   *remotePayload,
			Version:   7,
			CreatedAt: now,
			UpdatedAt: now,
		}}, 7, nil
	}

	require.NoError(t, env.records.Sync(ctx))

	require.Len(t, pushed, 1)
	require.Equal(t, id, pushed[0].ID)

	// pushed record is clean now
	pending, err := env.recordRepo.GetAllPending(ctx)
	require.NoError(t, err)
	require.Empty(t, pending)

	local, err := env.recordRepo.GetByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, int64(3), local.Version)

	got, err := env.records.Get(ctx, "remote-1")
	require.NoError(t, err)
	require.Equal(t, "from server", got.Name)

	// next sync resumes from the stored high-water mark
	env.client.pushFunc = nil
	env.client.pullFunc = func(ctx context.Context, since int64) ([]*models.Record, int64, error) {
		require.Equal(t, int64(7), since)
		return nil, 7, nil
	}
	require.NoError(t, env.records.Sync(ctx))
}

func TestRecordService_SyncWorksWhileLocked(t *testing.T) {
	env := setupEnv(t)
	loginEnv(t, env)
	ctx := context.Background()

	_, err := env.records.Add(ctx, sampleLogin("example.com"))
	require.NoError(t, err)

	env.auth.Lock()
	require.NoError(t, env.records.Sync(ctx))

	pending, err := env.recordRepo.GetAllPending(ctx)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestRecordService_SyncPushFailureKeepsPending(t *testing.T) {
	env := setupEnv(t)
	loginEnv(t, env)
	ctx := context.Background()

	_, err := env.records.Add(ctx, sampleLogin("example.com"))
	require.NoError(t, err)

	env.client.pushFunc = func(ctx context.Context, recs []*models.Record) ([]client.RecordAck, error) {
		return nil, client.ErrUnavailable
	}

	err = env.records.Sync(ctx)
	require.ErrorIs(t, err, client.ErrUnavailable)

	pending, err := env.recordRepo.GetAllPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
}

func TestRecordService_DeleteAndFavorite(t *testing.T) {
	env := setupEnv(t)
	loginEnv(t, env)
	ctx := context.Background()

	id, err := env.records.Add(ctx, sampleLogin("example.com"))
	require.NoError(t, err)

	require.NoError(t, env.records.SetFavorite(ctx, id, true))
	list, err := env.records.List(ctx)
	require.NoError(t, err)
	require.True(t, list[0].Favorite)

	require.NoError(t, env.records.DeleteByID(ctx, id))
	_, err = env.records.Get(ctx, id)
	require.ErrorIs(t, err, records.ErrNotFound)
}
