// Package client provides a Go SDK for talking to a causalkv node.
//
// Big idea:
//
// Instead of writing raw HTTP requests everywhere,
// we wrap them inside a clean Go API.
//
// So instead of:
//
//	http.NewRequest(...)
//	json.Marshal(...)
//
// Users can simply call:
//
//	client.Put(ctx, "key", "value", md)
//	client.Get(ctx, "key", md)
//
// This is called a "client library" or "SDK".
//
// It hides:
//   - HTTP details
//   - JSON encoding/decoding
//   - Error handling
//
// And exposes a clean Go interface.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"causalkv/internal/causal"
)

// Client represents a connection to ONE causalkv node.
//
// Important: this client talks to a single node. That node decides
// whether to serve a request locally or forward it to the shard that
// actually owns the key. The client never talks to more than one node
// per call, and never retries — exactly one round trip per method call.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new Client. baseURL example: "http://localhost:8080".
// timeout protects us from hanging forever — never call a network
// without a timeout.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// PutResult is returned after a successful write: the client's causal
// metadata, advanced to include the version this write just created.
type PutResult struct {
	CausalMetadata causal.Deps `json:"causal-metadata"`
}

// GetResult is returned after a successful read.
type GetResult struct {
	Value          string      `json:"value"`
	CausalMetadata causal.Deps `json:"causal-metadata"`
}

// ListResult is returned by ListAll.
type ListResult struct {
	Items          map[string]string `json:"items"`
	CausalMetadata causal.Deps       `json:"causal-metadata"`
}

// Put stores key=value, depending on the causal metadata the caller has
// observed so far. md may be nil for a first write with no known
// dependencies. The returned result's CausalMetadata must be threaded
// into the caller's next request.
func (c *Client) Put(ctx context.Context, key, value string, md causal.Deps) (*PutResult, error) {
	if md == nil {
		md = causal.Deps{}
	}
	body, _ := json.Marshal(map[string]any{"value": value, "causal-metadata": md})

	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		fmt.Sprintf("%s/data/%s", c.baseURL, key), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("PUT request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var result PutResult
	return &result, json.NewDecoder(resp.Body).Decode(&result)
}

// Get retrieves the value for key. md is the caller's current causal
// metadata; the server blocks until it can satisfy it (spec.md's causal
// wait), then returns. If the server returns 404 (the key has never
// existed anywhere, as far as the caller's metadata can tell), Get
// returns ErrNotFound.
func (c *Client) Get(ctx context.Context, key string, md causal.Deps) (*GetResult, error) {
	if md == nil {
		md = causal.Deps{}
	}
	mdBytes, _ := json.Marshal(md)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/data/%s", c.baseURL, key), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Causal-Metadata", string(mdBytes))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var result GetResult
	return &result, json.NewDecoder(resp.Body).Decode(&result)
}

// ListAll retrieves every key stored on the contacted node, plus every key
// named in md, subject to the same causal wait as Get. Keys held only by
// other shards are not gathered.
func (c *Client) ListAll(ctx context.Context, md causal.Deps) (*ListResult, error) {
	if md == nil {
		md = causal.Deps{}
	}
	body, _ := json.Marshal(map[string]any{"causal-metadata": md})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/data", c.baseURL), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var result ListResult
	return &result, json.NewDecoder(resp.Body).Decode(&result)
}

// InstallView installs a new view on the target node — the sole way a
// node learns its shard membership, or is evicted from one.
func (c *Client) InstallView(ctx context.Context, view causal.View) error {
	body, _ := json.Marshal(map[string]any{"view": view})
	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		fmt.Sprintf("%s/view", c.baseURL), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("PUT /view request failed: %w", err)
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

// Ping checks that a node is alive and responding, regardless of its
// online/offline state.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/ping", c.baseURL), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

// ─── Errors ───────────────────────────────────────────────────────────────────

// ErrNotFound is returned when a key does not exist anywhere the caller's
// causal metadata can reach.
var ErrNotFound = fmt.Errorf("key not found")

// APIError carries the HTTP status and the error message from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
}

// checkStatus converts HTTP error responses into Go errors. 2xx is
// success; anything else is read, parsed as {"error": "..."} on a
// best-effort basis, and returned as an APIError.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(resp.Body)
	var apiErr struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(body, &apiErr)
	msg := apiErr.Error
	if msg == "" {
		msg = string(body)
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}
