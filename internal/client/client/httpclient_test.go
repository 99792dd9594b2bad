package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cryptkeep/cryptkeep/internal/client/models"
	"github.com/cryptkeep/cryptkeep/internal/cryptox"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, ttl time.Duration) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-42",
		"exp": time.Now().Add(ttl).Unix(),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestHTTPClient_LoginStoresCredentials(t *testing.T) {
	access := signedToken(t, time.Hour)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/login", r.URL.Path)

		var req authRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "alice", req.Username)
		require.Equal(t, "Sup3rSecret!", req.Password)

		json.NewEncoder(w).Encode(authResponse{
			AccountID:    "user-42",
			AccessToken:  access,
			RefreshToken: "refresh-1",
		})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	res, err := c.Login(context.Background(), "alice", "Sup3rSecret!")
	require.NoError(t, err)
	require.Equal(t, "user-42", res.AccountID)
	require.Equal(t, access, c.Credentials().AccessToken)
	require.Equal(t, "refresh-1", c.Credentials().RefreshToken)
}

func TestHTTPClient_DeviceIDHeaderOnEveryRequest(t *testing.T) {
	access := signedToken(t, time.Hour)

	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		require.Equal(t, "device-7", r.Header.Get("X-Device-Id"))
		switch r.URL.Path {
		case "/api/login":
			json.NewEncoder(w).Encode(authResponse{AccountID: "user-42", AccessToken: access, RefreshToken: "r"})
		case "/api/records/pull":
			json.NewEncoder(w).Encode(pullResponse{})
		}
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	c.SetDeviceID("device-7")

	_, err := c.Login(context.Background(), "alice", "Sup3rSecret!")
	require.NoError(t, err)

	_, _, err = c.PullRecords(context.Background(), 0)
	require.NoError(t, err)

	require.Equal(t, []string{"/api/login", "/api/records/pull"}, paths)
}

func TestHTTPClient_LoginUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	_, err := c.Login(context.Background(), "alice", "WrongSecret!")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestHTTPClient_RegisterConflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	_, err := c.Register(context.Background(), "alice", "Sup3rSecret!")
	require.ErrorIs(t, err, ErrAlreadyExists)
}

func TestHTTPClient_PushRetriesAfterRefresh(t *testing.T) {
	expired := signedToken(t, -time.Minute)
	fresh := signedToken(t, time.Hour)

	var refreshes, pushes int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/refresh":
			refreshes++
			var req refreshRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.Equal(t, "refresh-1", req.RefreshToken)
			json.NewEncoder(w).Encode(authResponse{AccessToken: fresh, RefreshToken: "refresh-2"})
		case "/api/records/push":
			pushes++
			require.Equal(t, "Bearer "+fresh, r.Header.Get("Authorization"))
			json.NewEncoder(w).Encode(pushResponse{Acks: []RecordAck{{RecordID: "id-1", Version: 3}}})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	c.SetCredentials(Credentials{AccessToken: expired, RefreshToken: "refresh-1"})

	acks, err := c.PushRecords(context.Background(), []*models.Record{{ID: "id-1"}})
	require.NoError(t, err)
	require.Equal(t, []RecordAck{{RecordID: "id-1", Version: 3}}, acks)

	// the expired token was refreshed before the push went out
	require.Equal(t, 1, refreshes)
	require.Equal(t, 1, pushes)
	require.Equal(t, "refresh-2", c.Credentials().RefreshToken)
}

func TestHTTPClient_PullRecords(t *testing.T) {
	access := signedToken(t, time.Hour)

	want := []*models.Record{{
		ID:   "id-1",
		Type: models.RecordTypeNote,
		Name: "note",
		Payload: cryptox.EncryptedPayload{
			Ciphertext: []byte{1, 2, 3},
			Nonce:      []byte{4},
			AuthTag:    []byte{5},
		},
		Version: 9,
	}}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/records/pull", r.URL.Path)
		require.Equal(t, "7", r.URL.Query().Get("since"))
		json.NewEncoder(w).Encode(pullResponse{Records: want, MaxVersion: 9})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	c.SetCredentials(Credentials{AccessToken: access, RefreshToken: "r"})

	recs, maxVersion, err := c.PullRecords(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, int64(9), maxVersion)
	require.Len(t, recs, 1)
	require.Equal(t, want[0].ID, recs[0].ID)
	require.Equal(t, want[0].Payload, recs[0].Payload)
}

func TestHTTPClient_PingUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	require.ErrorIs(t, c.Ping(context.Background()), ErrUnavailable)
}

func TestHTTPClient_PingConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewHTTPClient(srv.URL)
	require.ErrorIs(t, c.Ping(context.Background()), ErrUnavailable)
}

func TestTokenNearExpiry(t *testing.T) {
	require.True(t, tokenNearExpiry("", time.Minute))
	require.True(t, tokenNearExpiry("garbage", time.Minute))
	require.True(t, tokenNearExpiry(signedToken(t, 10*time.Second), time.Minute))
	require.False(t, tokenNearExpiry(signedToken(t, time.Hour), time.Minute))
}
