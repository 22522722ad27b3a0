package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/edgehub/edgehub/internal/hub"
)

// RegisterRequest is the JSON request for /device/register.
type RegisterRequest struct {
	DeviceID     string                 `json:"device_id"`
	Capabilities []hub.Capability       `json:"capabilities,omitempty"`
	Meta         map[string]interface{} `json:"meta,omitempty"`
}

// RegisterResponse is the JSON response for /device/register.
type RegisterResponse struct {
	OK      bool           `json:"ok"`
	Created bool           `json:"created"`
	Device  DeviceResponse `json:"device"`
}

// handleDeviceRegister creates or refreshes a device record.
func (s *Server) handleDeviceRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	meta, err := hub.ArgsFromInterface(req.Meta)
	if err != nil {
		s.writeHubError(w, err)
		return
	}

	view, created, err := s.hub.Register(req.DeviceID, req.Capabilities, meta)
	if err != nil {
		s.writeHubError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	s.writeJSON(w, status, RegisterResponse{
		OK:      true,
		Created: created,
		Device:  deviceResponse(view),
	})
}

// handleDeviceNext hands the device its next queued job, or 204 when the
// queue is empty.
func (s *Server) handleDeviceNext(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("device_id")
	if deviceID == "" {
		s.writeError(w, http.StatusBadRequest, "device_id parameter is required")
		return
	}

	job, ok, err := s.hub.PollNext(deviceID)
	if err != nil {
		s.writeHubError(w, err)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	s.writeJSON(w, http.StatusOK, jobResponse(job))
}

// ResultRequest is the JSON request for /device/result.
type ResultRequest struct {
	DeviceID    string      `json:"device_id"`
	JobID       string      `json:"job_id"`
	OK          bool        `json:"ok"`
	ReturnValue interface{} `json:"return_value,omitempty"`
	Stdout      string      `json:"stdout,omitempty"`
	Stderr      string      `json:"stderr,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// handleDeviceResult records the outcome a device posts for a job.
func (s *Server) handleDeviceResult(w http.ResponseWriter, r *http.Request) {
	var req ResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	ret, err := hub.FromInterface(req.ReturnValue)
	if err != nil {
		s.writeHubError(w, err)
		return
	}

	err = s.hub.ReportResult(req.DeviceID, req.JobID, hub.ResultUpload{
		OK:          req.OK,
		ReturnValue: ret,
		Stdout:      req.Stdout,
		Stderr:      req.Stderr,
		Error:       req.Error,
	})
	if err != nil {
		s.writeHubError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
