// Package remote talks to the download service that does the actual work.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/me/ytdl-agent/pkg/model"
)

// Client communicates with the download service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a download service client with connection pooling.
// timeout bounds each request; zero uses 30s.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	transport := &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// BaseURL returns the service address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Download asks the service to start fetching key. Any non-2xx response is
// a submission failure, and so is a 2xx body that is not a JSON ack.
func (c *Client) Download(ctx context.Context, key string) (model.Ack, error) {
	resp, err := c.get(ctx, "/download", key)
	if err != nil {
		return model.Ack{}, fmt.Errorf("download %s: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return model.Ack{}, fmt.Errorf("download %s: HTTP %d: %s", key, resp.StatusCode, body)
	}

	var ack model.Ack
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return model.Ack{}, fmt.Errorf("download %s: decode ack: %w", key, err)
	}
	return ack, nil
}

// Status fetches the job status record for key. A non-2xx response yields
// the unknown record and no error; transport and decode failures are errors.
func (c *Client) Status(ctx context.Context, key string) (model.StatusRecord, error) {
	resp, err := c.get(ctx, "/status", key)
	if err != nil {
		return model.StatusRecord{}, fmt.Errorf("status %s: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return model.UnknownStatus(), nil
	}

	var rec model.StatusRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return model.StatusRecord{}, fmt.Errorf("status %s: decode: %w", key, err)
	}
	return rec, nil
}

func (c *Client) get(ctx context.Context, path, key string) (*http.Response, error) {
	u := c.baseURL + path + "?" + url.Values{"id": {key}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return c.httpClient.Do(req)
}
