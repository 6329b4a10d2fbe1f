package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/me/ytdl-agent/pkg/model"
)

// Client is an HTTP client for the agent API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// NewClient creates an agent API client.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{},
		Logger:     logger,
	}
}

// apiResponse is the parsed envelope.
type apiResponse struct {
	Status    string          `json:"status"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
	Error     *model.APIError `json:"error"`
}

// do performs an HTTP request and returns the parsed envelope.
func (c *Client) do(method, path string, body any) (*apiResponse, error) {
	url := c.BaseURL + path

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
		c.Logger.Debug("HTTP request body", "body", string(data))
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.Logger.Debug("HTTP request", "method", method, "url", url)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.Logger.Debug("HTTP response", "status", resp.StatusCode, "body", string(respBody))

	var apiResp apiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("parse response (status %d): %w\nbody: %s", resp.StatusCode, err, string(respBody))
	}

	if apiResp.Status == "error" && apiResp.Error != nil {
		return &apiResp, apiResp.Error
	}

	return &apiResp, nil
}

// Get performs a GET request.
func (c *Client) Get(path string) (*apiResponse, error) {
	return c.do("GET", path, nil)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(path string, body any) (*apiResponse, error) {
	return c.do("POST", path, body)
}

// Event is one Server-Sent Event from the agent.
type Event struct {
	Name string
	Data json.RawMessage
}

// Window is an open /events stream.
type Window struct {
	ID     string
	Events <-chan Event

	body      io.Closer
	done      chan struct{}
	closeOnce sync.Once
}

// Close ends the stream. The reader stops even if nobody drains Events.
func (w *Window) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.body.Close()
	})
	return err
}

// OpenWindow opens an SSE window and waits for the agent to assign its ID.
// The window stays open until ctx is done or Close is called.
func (c *Client) OpenWindow(ctx context.Context) (*Window, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/v1/events", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open window: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("open window: HTTP %d", resp.StatusCode)
	}

	events := make(chan Event, 8)
	w := &Window{Events: events, body: resp.Body, done: make(chan struct{})}
	go readSSE(resp.Body, events, w.done)

	first, ok := <-events
	if !ok || first.Name != "window" {
		w.Close()
		return nil, fmt.Errorf("open window: stream ended before window id")
	}
	var win struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(first.Data, &win); err != nil {
		w.Close()
		return nil, fmt.Errorf("open window: %w", err)
	}
	w.ID = win.ID
	c.Logger.Debug("window opened", "window", win.ID)
	return w, nil
}

// readSSE parses event/data pairs until r fails or done closes. Comment
// lines are skipped.
func readSSE(r io.Reader, out chan<- Event, done <-chan struct{}) {
	defer close(out)
	sc := bufio.NewScanner(r)
	var ev Event
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			ev.Name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			ev.Data = json.RawMessage(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		case line == "":
			if ev.Name != "" {
				select {
				case out <- ev:
				case <-done:
					return
				}
			}
			ev = Event{}
		}
	}
}
