// Package agent implements the edge-side worker: it registers with the
// hub, polls for jobs, executes them against a local capability table,
// and posts results back.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/edgehub/edgehub/internal/hub"
)

// Client speaks the hub's device plane over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a device-plane client for the hub at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// registerRequest mirrors the hub's /device/register payload.
type registerRequest struct {
	DeviceID     string                 `json:"device_id"`
	Capabilities []hub.Capability       `json:"capabilities,omitempty"`
	Meta         map[string]interface{} `json:"meta,omitempty"`
}

// AssignedJob is the job payload the hub hands out on /device/next.
type AssignedJob struct {
	JobID    string      `json:"job_id"`
	DeviceID string      `json:"device_id"`
	Command  hub.Command `json:"command"`
}

// resultRequest mirrors the hub's /device/result payload.
type resultRequest struct {
	DeviceID    string      `json:"device_id"`
	JobID       string      `json:"job_id"`
	OK          bool        `json:"ok"`
	ReturnValue interface{} `json:"return_value,omitempty"`
	Stdout      string      `json:"stdout,omitempty"`
	Stderr      string      `json:"stderr,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// Register announces the device and its capabilities to the hub.
func (c *Client) Register(ctx context.Context, deviceID string, caps []hub.Capability, meta map[string]interface{}) error {
	return c.post(ctx, "/device/register", registerRequest{
		DeviceID:     deviceID,
		Capabilities: caps,
		Meta:         meta,
	})
}

// Next polls for the next job. Returns (nil, nil) when the queue is
// empty.
func (c *Client) Next(ctx context.Context, deviceID string) (*AssignedJob, error) {
	url := fmt.Sprintf("%s/device/next?device_id=%s", c.baseURL, deviceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent:
		return nil, nil
	case http.StatusOK:
		var job AssignedJob
		if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
			return nil, fmt.Errorf("decode job: %w", err)
		}
		return &job, nil
	default:
		return nil, c.statusError(resp)
	}
}

// Report posts a job outcome to the hub.
func (c *Client) Report(ctx context.Context, deviceID, jobID string, outcome Outcome) error {
	return c.post(ctx, "/device/result", resultRequest{
		DeviceID:    deviceID,
		JobID:       jobID,
		OK:          outcome.OK,
		ReturnValue: outcome.ReturnValue,
		Stdout:      outcome.Stdout,
		Stderr:      outcome.Stderr,
		Error:       outcome.Error,
	})
}

func (c *Client) post(ctx context.Context, path string, body interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// 201 on first-time registration, 200 everywhere else.
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.statusError(resp)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	var apiErr struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
		return fmt.Errorf("hub returned %d: %s", resp.StatusCode, apiErr.Error)
	}
	return fmt.Errorf("hub returned %d", resp.StatusCode)
}
