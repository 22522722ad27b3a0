package httpapi

import (
	"time"

	"github.com/edgehub/edgehub/internal/hub"
)

// DeviceResponse is the JSON shape of a device.
type DeviceResponse struct {
	DeviceID     string               `json:"device_id"`
	DisplayName  string               `json:"display_name,omitempty"`
	Capabilities []hub.Capability     `json:"capabilities"`
	Meta         map[string]hub.Value `json:"meta,omitempty"`
	RegisteredAt time.Time            `json:"registered_at"`
	LastSeen     time.Time            `json:"last_seen"`
	Approved     bool                 `json:"approved"`
	QueueDepth   int                  `json:"queue_depth"`
	LastResult   *ResultResponse      `json:"last_result,omitempty"`
}

// JobResponse is the JSON shape of a job.
type JobResponse struct {
	JobID        string          `json:"job_id"`
	DeviceID     string          `json:"device_id"`
	Command      hub.Command     `json:"command"`
	State        string          `json:"state"`
	CreatedAt    time.Time       `json:"created_at"`
	DispatchedAt *time.Time      `json:"dispatched_at,omitempty"`
	Result       *ResultResponse `json:"result,omitempty"`
}

// ResultResponse is the JSON shape of a job result.
type ResultResponse struct {
	JobID       string    `json:"job_id"`
	OK          bool      `json:"ok"`
	ReturnValue hub.Value `json:"return_value"`
	Stdout      string    `json:"stdout,omitempty"`
	Stderr      string    `json:"stderr,omitempty"`
	Error       string    `json:"error,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

func deviceResponse(v hub.DeviceView) DeviceResponse {
	caps := v.Capabilities
	if caps == nil {
		caps = []hub.Capability{}
	}
	return DeviceResponse{
		DeviceID:     v.ID,
		DisplayName:  v.DisplayName,
		Capabilities: caps,
		Meta:         v.Meta,
		RegisteredAt: v.RegisteredAt,
		LastSeen:     v.LastSeen,
		Approved:     v.Approved,
		QueueDepth:   v.QueueDepth,
		LastResult:   resultResponse(v.LastResult),
	}
}

func jobResponse(j hub.Job) JobResponse {
	resp := JobResponse{
		JobID:     j.ID,
		DeviceID:  j.DeviceID,
		Command:   j.Command,
		State:     string(j.State),
		CreatedAt: j.CreatedAt,
		Result:    resultResponse(j.Result),
	}
	if !j.DispatchedAt.IsZero() {
		t := j.DispatchedAt
		resp.DispatchedAt = &t
	}
	return resp
}

func resultResponse(r *hub.JobResult) *ResultResponse {
	if r == nil {
		return nil
	}
	return &ResultResponse{
		JobID:       r.JobID,
		OK:          r.OK,
		ReturnValue: r.ReturnValue,
		Stdout:      r.Stdout,
		Stderr:      r.Stderr,
		Error:       r.Error,
		CompletedAt: r.CompletedAt,
	}
}
