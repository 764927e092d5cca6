package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxResponseBody = 1 << 20

// httpClient is the small JSON-over-HTTP helper shared by gateways.
type httpClient struct {
	provider string
	baseURL  string
	client   *http.Client
}

func newHTTPClient(provider, baseURL string, client *http.Client) *httpClient {
	return &httpClient{
		provider: provider,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   client,
	}
}

// do sends body (JSON, or form-encoded when it is url.Values) and decodes a
// 2xx response into out. Anything else is a *ProviderError.
func (c *httpClient) do(ctx context.Context, op, method, target string, headers map[string]string, body, out interface{}) error {
	var (
		reader      io.Reader
		contentType string
	)
	switch b := body.(type) {
	case nil:
	case url.Values:
		reader = strings.NewReader(b.Encode())
		contentType = "application/x-www-form-urlencoded"
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("failed to encode %s payload: %w", op, err)
		}
		reader = bytes.NewReader(data)
		contentType = "application/json"
	}

	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = c.baseURL + target
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return &ProviderError{Provider: c.provider, Operation: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	started := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return &ProviderError{Provider: c.provider, Operation: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return &ProviderError{Provider: c.provider, Operation: op, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &ProviderError{
			Provider:   c.provider,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
		}
	}
	logRequest(c.provider, op, resp.StatusCode, time.Since(started))

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &ProviderError{Provider: c.provider, Operation: op, StatusCode: resp.StatusCode, Body: string(raw), Err: err}
	}
	return nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (t tokenResponse) lifetime() time.Duration {
	return time.Duration(t.ExpiresIn) * time.Second
}
