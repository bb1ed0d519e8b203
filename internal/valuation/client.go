// Package valuation reads pre-computed valuation run results from an
// external reporting service. The client is strictly read-only: it never
// triggers computation, and an unreachable service is reported as an
// error so callers can abstain instead of guessing.
package valuation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// RunStatus is the reported state of one valuation run.
type RunStatus struct {
	RunID       string    `json:"run_id"`
	Status      string    `json:"status"`
	Instrument  string    `json:"instrument"`
	CompletedAt time.Time `json:"completed_at"`
	Value       float64   `json:"value"`
	Currency    string    `json:"currency"`
}

// Sensitivity is one pre-computed sensitivity measure of a run.
type Sensitivity struct {
	Name  string  `json:"name"`
	Shift string  `json:"shift"`
	Value float64 `json:"value"`
}

// Client queries the reporting service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the service at baseURL. A zero timeout
// defaults to 10 seconds.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Status fetches the current state of a run.
func (c *Client) Status(ctx context.Context, runID string) (*RunStatus, error) {
	var out RunStatus
	if err := c.get(ctx, "/api/runs/"+url.PathEscape(runID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Sensitivities fetches the pre-computed sensitivities of a run.
func (c *Client) Sensitivities(ctx context.Context, runID string) ([]Sensitivity, error) {
	var out []Sensitivity
	if err := c.get(ctx, "/api/runs/"+url.PathEscape(runID)+"/sensitivities", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, target any) error {
	if c.baseURL == "" {
		return fmt.Errorf("valuation: no reporting service configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("valuation: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("valuation: reporting service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("valuation: reporting service returned %d for %s", resp.StatusCode, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("valuation: decode response: %w", err)
	}
	return nil
}
