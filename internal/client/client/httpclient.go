package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cryptkeep/cryptkeep/internal/client/models"
)

// HTTPClient implements Client over a JSON/HTTP API. It owns the bearer
// credential: every authenticated call carries the access token, and a 401
// triggers one transparent refresh-and-retry before the error is surfaced
// (same flow the token interceptor pattern gives gRPC clients).
type HTTPClient struct {
	baseURL  string
	deviceID string
	hc       *http.Client

	mu    sync.Mutex
	creds Credentials
}

// NewHTTPClient returns an HTTPClient for the API at baseURL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		hc:      &http.Client{Timeout: 15 * time.Second},
	}
}

// SetDeviceID tags every request with the stable device identifier so the
// server can tell this client's sessions apart from the account's other
// devices. Called once at startup, before any request goes out.
func (c *HTTPClient) SetDeviceID(id string) {
	c.deviceID = id
}

func (c *HTTPClient) Close() error {
	c.hc.CloseIdleConnections()
	return nil
}

func (c *HTTPClient) Credentials() Credentials {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creds
}

func (c *HTTPClient) SetCredentials(creds Credentials) {
	c.mu.Lock()
	c.creds = creds
	c.mu.Unlock()
}

type authRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	AccountID    string `json:"account_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (c *HTTPClient) Register(ctx context.Context, username, password string) (*AuthResult, error) {
	return c.authenticate(ctx, "/api/register", username, password)
}

func (c *HTTPClient) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	return c.authenticate(ctx, "/api/login", username, password)
}

func (c *HTTPClient) authenticate(ctx context.Context, path, username, password string) (*AuthResult, error) {
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, path, authRequest{Username: username, Password: password}, &resp, false); err != nil {
		return nil, err
	}

	creds := Credentials{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}
	c.SetCredentials(creds)

	return &AuthResult{AccountID: resp.AccountID, Credentials: creds}, nil
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// refresh exchanges the refresh token for a new credential pair.
func (c *HTTPClient) refresh(ctx context.Context) error {
	c.mu.Lock()
	rt := c.creds.RefreshToken
	c.mu.Unlock()

	if rt == "" {
		return ErrUnauthorized
	}

	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "/api/refresh", refreshRequest{RefreshToken: rt}, &resp, false); err != nil {
		return err
	}

	c.SetCredentials(Credentials{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken})
	return nil
}

type pingResponse struct {
	Status string `json:"status"`
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var resp pingResponse
	if err := c.do(ctx, http.MethodGet, "/api/ping", nil, &resp, false); err != nil {
		return err
	}
	if resp.Status != "OK" {
		return ErrUnavailable
	}
	return nil
}

type pushRequest struct {
	Records []*models.Record `json:"records"`
}

type pushResponse struct {
	Acks []RecordAck `json:"acks"`
}

func (c *HTTPClient) PushRecords(ctx context.Context, recs []*models.Record) ([]RecordAck, error) {
	var resp pushResponse
	if err := c.do(ctx, http.MethodPost, "/api/records/push", pushRequest{Records: recs}, &resp, true); err != nil {
		return nil, err
	}
	return resp.Acks, nil
}

type pullResponse struct {
	Records    []*models.Record `json:"records"`
	MaxVersion int64            `json:"max_version"`
}

func (c *HTTPClient) PullRecords(ctx context.Context, sinceVersion int64) ([]*models.Record, int64, error) {
	var resp pullResponse
	path := fmt.Sprintf("/api/records/pull?since=%d", sinceVersion)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp, true); err != nil {
		return nil, 0, err
	}
	return resp.Records, resp.MaxVersion, nil
}

// do performs one JSON request. Authenticated calls refresh the access
// token proactively when it is close to expiry, and retry once after a
// refresh when the server answers 401.
func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any, authed bool) error {
	if authed {
		c.mu.Lock()
		near := tokenNearExpiry(c.creds.AccessToken, 30*time.Second)
		c.mu.Unlock()
		if near {
			if err := c.refresh(ctx); err != nil {
				return err
			}
		}
	}

	status, err := c.roundTrip(ctx, method, path, in, out, authed)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized && authed {
		if err := c.refresh(ctx); err != nil {
			return err
		}
		status, err = c.roundTrip(ctx, method, path, in, out, authed)
		if err != nil {
			return err
		}
	}

	return mapStatus(status)
}

func (c *HTTPClient) roundTrip(ctx context.Context, method, path string, in, out any, authed bool) (int, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return 0, err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.deviceID != "" {
		req.Header.Set("X-Device-Id", c.deviceID)
	}
	if authed {
		c.mu.Lock()
		token := c.creds.AccessToken
		c.mu.Unlock()
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK && out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return 0, fmt.Errorf("decoding response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func mapStatus(status int) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusUnauthorized:
		return ErrUnauthorized
	case status == http.StatusConflict:
		return ErrAlreadyExists
	case status >= 500:
		return ErrUnavailable
	default:
		return fmt.Errorf("unexpected status %d", status)
	}
}
