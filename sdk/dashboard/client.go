// Package dashboard is the typed client for the car catalog admin API.
// It carries the dashboard's client-side behavior: GET deduplication with a
// short TTL cache, local form validation, infinite page loading, search
// retry and job polling.
package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is the dashboard API client. All requests attach the session's
// bearer token; a 401 invalidates the session and fires the configured
// unauthorized handler.
type Client struct {
	baseURL        string
	auth           *AuthState
	httpClient     *http.Client
	cache          *responseCache
	onUnauthorized func()
}

// ClientOption is a function that configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(client *Client) {
		client.httpClient.Timeout = d
	}
}

// WithCacheTTL overrides how long GET responses are served from cache.
func WithCacheTTL(d time.Duration) ClientOption {
	return func(client *Client) {
		client.cache.ttl = d
	}
}

// WithUnauthorizedHandler sets the hook fired when the server answers 401.
// The session is already invalidated when it runs.
func WithUnauthorizedHandler(fn func()) ClientOption {
	return func(client *Client) {
		client.onUnauthorized = fn
	}
}

// NewClient creates a dashboard API client bound to an explicit session.
//
// Parameters:
//   - baseURL: the API base URL (e.g. "http://localhost:8080")
//   - auth: the session state; may start unauthenticated
func NewClient(baseURL string, auth *AuthState, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		auth:    auth,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		cache: newResponseCache(3 * time.Minute),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a server-reported business error. Detail carries the server's
// message verbatim, ready to show to the user.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d detail=%s", e.StatusCode, e.Detail)
}

// InvalidateCache drops every cached GET response. Useful after external
// events (e.g. a websocket notification).
func (c *Client) InvalidateCache() {
	c.cache.Clear()
}

// envelope matches the server's response wrapper.
type envelope struct {
	Status     string          `json:"status"`
	StatusCode int             `json:"status_code"`
	Data       json.RawMessage `json:"data"`
	Detail     string          `json:"detail"`
}

// get fetches through the cache: concurrent requests for the same path share
// one round trip, and fresh responses are reused for the cache TTL.
func (c *Client) get(ctx context.Context, path string, result any) error {
	raw, err := c.cache.getOrFetch(path, func() ([]byte, error) {
		return c.roundTrip(ctx, http.MethodGet, path, nil)
	})
	if err != nil {
		return err
	}
	return decodeData(raw, result)
}

// do performs a mutating request. Any successful mutation clears the GET
// cache: the post-action refetch must observe the new server state.
func (c *Client) do(ctx context.Context, method, path string, body any, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	raw, err := c.send(ctx, method, path, reqBody, "application/json")
	if err != nil {
		return err
	}

	c.cache.Clear()
	return decodeData(raw, result)
}

// roundTrip sends a bodyless request and returns the envelope's data bytes.
func (c *Client) roundTrip(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	return c.send(ctx, method, path, body, "application/json")
}

func (c *Client) send(ctx context.Context, method, path string, body io.Reader, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token := c.auth.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.auth.Invalidate()
		c.cache.Clear()
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Detail: "session expired"}
	}

	var env envelope
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &env); err != nil && resp.StatusCode < 400 {
			return nil, fmt.Errorf("unmarshal response: %w", err)
		}
	}

	if resp.StatusCode >= 400 {
		detail := env.Detail
		if detail == "" {
			detail = string(respBody)
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Detail: detail}
	}

	return env.Data, nil
}

func decodeData(raw []byte, result any) error {
	if result == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	return nil
}
