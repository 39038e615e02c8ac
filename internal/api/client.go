package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lectern/internal/config"
	"lectern/internal/services"
)

// Client talks to a running daemon over its HTTP API. The CLI uses it for
// status queries and unit mutations.
type Client struct {
	baseURL string
	token   string
	client  services.HTTPDoer
}

// NewClient constructs a client against the configured API bind address.
func NewClient(cfg *config.Config) *Client {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	return &Client{
		baseURL: "http://" + bind,
		token:   strings.TrimSpace(cfg.Paths.APIToken),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// NewClientForURL constructs a client against an explicit base URL. Used by
// tests.
func NewClientForURL(baseURL, token string, doer services.HTTPDoer) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   strings.TrimSpace(token),
		client:  doer,
	}
}

// Status fetches the daemon's runtime status.
func (c *Client) Status(ctx context.Context) (*DaemonStatus, error) {
	var status DaemonStatus
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// ListUnits fetches all units with processing summaries.
func (c *Client) ListUnits(ctx context.Context) ([]Unit, error) {
	var resp UnitListResponse
	if err := c.do(ctx, http.MethodGet, "/api/units", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Units, nil
}

// DescribeUnit fetches a single unit.
func (c *Client) DescribeUnit(ctx context.Context, id int64) (*Unit, error) {
	var resp UnitResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/units/%d", id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Unit, nil
}

// SaveUnit creates or updates a unit and triggers processing.
func (c *Client) SaveUnit(ctx context.Context, req UnitRequest) (*Unit, error) {
	var resp UnitResponse
	if err := c.do(ctx, http.MethodPost, "/api/units", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Unit, nil
}

// DeleteUnit runs the unit deletion flow.
func (c *Client) DeleteUnit(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/units/%d", id), nil, nil)
}

// TriggerUnit re-runs the trigger for a unit.
func (c *Client) TriggerUnit(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/units/%d/trigger", id), nil, nil)
}

// RetryUnit retries a failed unit.
func (c *Client) RetryUnit(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/units/%d/retry", id), nil, nil)
}

// CancelUnit cancels a unit's processing.
func (c *Client) CancelUnit(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/units/%d/cancel", id), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrExternalService, "api", "request", "daemon unreachable", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return services.Wrap(services.ErrNotFound, "api", "request", path, nil)
	case resp.StatusCode >= 400:
		detail := readErrorDetail(resp.Body)
		return services.Wrap(services.ErrExternalService, "api", "request",
			fmt.Sprintf("daemon returned %d: %s", resp.StatusCode, detail), nil)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func readErrorDetail(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 2048))
	if err != nil {
		return ""
	}
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(raw))
}
