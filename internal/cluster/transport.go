package cluster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Transport is the one place an HTTP call is made from this node to
// another — within this package (gossip push, key transfer) and from
// internal/api (shard forwarding). Every cross-node call goes through
// PostJSON/PutJSON/GetJSON so the "no application-level retries" policy
// only has to be honored in one place.
type Transport struct {
	client *http.Client
}

// NewTransport builds a Transport with the given client. Callers choose
// the timeout: forwards use a short, bounded one; gossip pushes are given
// a generous one since their failure is logged and ignored rather than
// surfaced.
func NewTransport(client *http.Client) *Transport {
	return &Transport{client: client}
}

// PostJSON marshals body, POSTs it to url, and decodes the response into
// out (if out is non-nil). No retries: a failed call is reported once to
// the caller, who decides whether to log-and-ignore (gossip, transfer) or
// surface a 503 (shard forward).
func (t *Transport) PostJSON(ctx context.Context, url string, body, out any) (*http.Response, error) {
	return t.doJSON(ctx, http.MethodPost, url, body, out)
}

// PutJSON is PostJSON's PUT sibling, used for shard-forwarded writes.
func (t *Transport) PutJSON(ctx context.Context, url string, body, out any) (*http.Response, error) {
	return t.doJSON(ctx, http.MethodPut, url, body, out)
}

// GetJSON issues a GET, optionally with extra headers, decoding the
// response into out. Used for shard-forwarded reads, which pass the
// client's causal metadata via a header rather than a body.
func (t *Transport) GetJSON(ctx context.Context, url string, headers map[string]string, out any) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp, nil
}

func (t *Transport) doJSON(ctx context.Context, method, url string, body, out any) (*http.Response, error) {
	var reqBody []byte
	if body != nil {
		var err error
		reqBody, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp, nil
}
