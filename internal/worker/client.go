// Package worker talks to the external log worker. It is the only
// component that crosses the network on the dashboard read path, so the
// error taxonomy lives here: a missing URL is a configuration problem, a
// failed request is a transport problem, and the two surface as different
// messages.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"tracehub/internal/models"
)

// ErrNotConfigured means the worker base URL is unset. Reported
// immediately, never retried, and kept distinct from connectivity failures
// so the dashboard can tell the user which problem they actually have.
var ErrNotConfigured = errors.New("log worker URL is not configured")

// TransportError wraps a network-level failure (refused, timed out,
// non-2xx) reaching the worker.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("failed to connect to log worker (%s): %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Health is the worker's health snapshot. RedisAssumed marks the
// partial-data fallback: the worker answered but omitted redis_connected,
// and we chose to assume healthy rather than fail hard.
type Health struct {
	Status         string `json:"status"`
	RedisConnected bool   `json:"redis_connected"`
	RedisAssumed   bool   `json:"redis_assumed,omitempty"`
}

// Client is an HTTP client for the worker API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client. An empty baseURL yields a client whose calls
// all return ErrNotConfigured.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Configured reports whether a worker URL is set.
func (c *Client) Configured() bool {
	return c != nil && c.baseURL != ""
}

// FetchHealth calls GET {workerUrl}/health.
func (c *Client) FetchHealth(ctx context.Context) (*Health, error) {
	body, err := c.get(ctx, "/health")
	if err != nil {
		return nil, err
	}

	// redis_connected is a pointer so "absent" and "false" stay
	// distinguishable: an omitted field triggers the assume-healthy
	// fallback, an explicit false does not.
	var raw struct {
		Status         string `json:"status"`
		RedisConnected *bool  `json:"redis_connected"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &TransportError{Op: "health", Err: fmt.Errorf("invalid response body: %w", err)}
	}

	health := &Health{Status: raw.Status}
	if raw.RedisConnected != nil {
		health.RedisConnected = *raw.RedisConnected
	} else {
		health.RedisConnected = true
		health.RedisAssumed = true
	}
	if health.Status == "" {
		health.Status = "healthy"
		health.RedisAssumed = true
	}
	return health, nil
}

// traceSummaryWire is the worker's JSON shape for a trace summary. The
// worker API uses camelCase keys, unlike our own snake_case responses.
type traceSummaryWire struct {
	TraceID   string    `json:"traceId"`
	LogCount  int       `json:"logCount"`
	Systems   []string  `json:"systems"`
	Timestamp time.Time `json:"timestamp"`
}

// RecentTraces calls GET {workerUrl}/traces/recent?limit=N.
func (c *Client) RecentTraces(ctx context.Context, limit int) ([]models.TraceSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	body, err := c.get(ctx, fmt.Sprintf("/traces/recent?limit=%d", limit))
	if err != nil {
		return nil, err
	}

	var payload struct {
		Traces []traceSummaryWire `json:"traces"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		// Some worker builds return a bare array.
		if arrayErr := json.Unmarshal(body, &payload.Traces); arrayErr != nil {
			return nil, &TransportError{Op: "traces/recent", Err: fmt.Errorf("invalid response body: %w", err)}
		}
	}

	summaries := make([]models.TraceSummary, 0, len(payload.Traces))
	for _, t := range payload.Traces {
		summaries = append(summaries, models.TraceSummary{
			TraceID:   t.TraceID,
			LogCount:  t.LogCount,
			Systems:   t.Systems,
			Timestamp: t.Timestamp,
		})
	}
	return summaries, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, &TransportError{Op: path, Err: err}
	}
	// This data changes every second; never serve it stale.
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: path, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{Op: path, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	return body, nil
}
