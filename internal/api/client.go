package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client talks to a running daemon over its HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client for the configured bind address. Bare host:port
// values are promoted to http URLs.
func NewClient(bind string) *Client {
	base := strings.TrimSpace(bind)
	if base != "" && !strings.Contains(base, "://") {
		base = "http://" + base
	}
	base = strings.TrimRight(base, "/")
	return &Client{
		baseURL: base,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Available reports whether the client has an address to talk to.
func (c *Client) Available() bool {
	return c != nil && c.baseURL != ""
}

// Status fetches daemon runtime status.
func (c *Client) Status(ctx context.Context) (DaemonStatus, error) {
	var payload DaemonStatus
	err := c.do(ctx, http.MethodGet, "/api/status", &payload)
	return payload, err
}

// Runs lists runs, optionally filtered by status strings.
func (c *Client) Runs(ctx context.Context, statuses ...string) ([]Run, error) {
	path := "/api/runs"
	if len(statuses) > 0 {
		values := url.Values{}
		for _, status := range statuses {
			values.Add("status", status)
		}
		path += "?" + values.Encode()
	}
	var payload RunListResponse
	if err := c.do(ctx, http.MethodGet, path, &payload); err != nil {
		return nil, err
	}
	return payload.Runs, nil
}

// Describe fetches one run by ID.
func (c *Client) Describe(ctx context.Context, id int64) (*Run, error) {
	var payload RunResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/runs/%d", id), &payload); err != nil {
		return nil, err
	}
	return &payload.Run, nil
}

// Scan asks the daemon to enqueue a scan run.
func (c *Client) Scan(ctx context.Context) (ScanResponse, error) {
	var payload ScanResponse
	err := c.do(ctx, http.MethodPost, "/api/scan", &payload)
	return payload, err
}

// Clear removes runs. Scope may be "completed", "failed", or empty for all
// non-processing runs.
func (c *Client) Clear(ctx context.Context, scope string) (int64, error) {
	path := "/api/runs/clear"
	if scope = strings.TrimSpace(scope); scope != "" {
		path += "?scope=" + url.QueryEscape(scope)
	}
	var payload ActionResponse
	if err := c.do(ctx, http.MethodPost, path, &payload); err != nil {
		return 0, err
	}
	return payload.Updated, nil
}

// Retry resets failed runs back to pending, optionally limited to ids.
func (c *Client) Retry(ctx context.Context, ids ...int64) (int64, error) {
	path := "/api/runs/retry"
	if len(ids) > 0 {
		values := url.Values{}
		for _, id := range ids {
			values.Add("id", strconv.FormatInt(id, 10))
		}
		path += "?" + values.Encode()
	}
	var payload ActionResponse
	if err := c.do(ctx, http.MethodPost, path, &payload); err != nil {
		return 0, err
	}
	return payload.Updated, nil
}

// ResetStuck rolls in-flight runs back to the start of their stage.
func (c *Client) ResetStuck(ctx context.Context) (int64, error) {
	var payload ActionResponse
	if err := c.do(ctx, http.MethodPost, "/api/runs/reset", &payload); err != nil {
		return 0, err
	}
	return payload.Updated, nil
}

// TestNotify asks the daemon to send a test notification.
func (c *Client) TestNotify(ctx context.Context) (NotifyTestResponse, error) {
	var payload NotifyTestResponse
	err := c.do(ctx, http.MethodPost, "/api/notify-test", &payload)
	return payload, err
}

// LogTail fetches daemon log lines. A negative offset requests the last
// lines of the file; wait asks the daemon to hold an empty read briefly so
// follow loops avoid busy polling.
func (c *Client) LogTail(ctx context.Context, offset int64, lines int, wait time.Duration) (LogTailResponse, error) {
	values := url.Values{}
	values.Set("offset", strconv.FormatInt(offset, 10))
	if lines > 0 {
		values.Set("lines", strconv.Itoa(lines))
	}
	if wait > 0 {
		values.Set("wait", strconv.Itoa(int(wait.Seconds())))
	}
	var payload LogTailResponse
	if err := c.do(ctx, http.MethodGet, "/api/logs?"+values.Encode(), &payload); err != nil {
		return LogTailResponse{}, err
	}
	return payload, nil
}

func (c *Client) do(ctx context.Context, method, path string, dst any) error {
	if !c.Available() {
		return fmt.Errorf("daemon API address not configured")
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("daemon API %s: %s", path, decodeError(resp))
	}
	if dst == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

func decodeError(resp *http.Response) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return resp.Status
}
