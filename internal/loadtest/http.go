package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/skanlab/internal/domain/session"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 1 << 20

// HTTPClient wraps http.Client with the demo's endpoints.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// newHTTPClient creates a new HTTP client with timeout.
func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, cookie *http.Cookie) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return c.client.Do(req)
}

// Health checks that the metrics endpoint answers 200.
func (c *HTTPClient) Health(ctx context.Context) error {
	resp, err := c.get(ctx, "/healthz", nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	defer drain(resp)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}

// Simulate posts one case and decodes the answer.
func (c *HTTPClient) Simulate(ctx context.Context, in Case) (Result, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return Result{}, fmt.Errorf("marshal case: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/simulate-conversion", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer drain(resp)
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("simulate: status %d", resp.StatusCode)
	}

	var out Result
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return Result{}, fmt.Errorf("decode simulate response: %w", err)
	}
	return out, nil
}

// SessionCookie loads the demo page and returns the session cookie it sets.
func (c *HTTPClient) SessionCookie(ctx context.Context) (*http.Cookie, error) {
	resp, err := c.get(ctx, "/", nil)
	if err != nil {
		return nil, err
	}
	defer drain(resp)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: page status %d", ErrProtected, resp.StatusCode)
	}
	for _, ck := range resp.Cookies() {
		if ck.Name == session.CookieName {
			return ck, nil
		}
	}
	return nil, fmt.Errorf("%w: page set no %s cookie", ErrProtected, session.CookieName)
}

// ProtectedScript fetches the obfuscated script with cookie and returns
// the raw payload. A nil cookie sends no credentials.
func (c *HTTPClient) ProtectedScript(ctx context.Context, cookie *http.Cookie) (string, int, error) {
	resp, err := c.get(ctx, "/api/protected-js", cookie)
	if err != nil {
		return "", 0, err
	}
	defer drain(resp)
	if resp.StatusCode != http.StatusOK {
		return "", resp.StatusCode, nil
	}
	var out struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return "", resp.StatusCode, fmt.Errorf("decode protected response: %w", err)
	}
	return out.Code, resp.StatusCode, nil
}

// drain reads the rest of the body so the connection can be reused.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	_ = resp.Body.Close()
}
