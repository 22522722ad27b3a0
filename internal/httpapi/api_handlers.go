package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/edgehub/edgehub/internal/hub"
)

// handleListDevices returns all registered devices.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	views := s.hub.Devices()
	devices := make([]DeviceResponse, len(views))
	for i, v := range views {
		devices[i] = deviceResponse(v)
	}
	s.writeJSON(w, http.StatusOK, devices)
}

// handleGetDevice returns one device.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	view, err := s.hub.Device(r.PathValue("id"))
	if err != nil {
		s.writeHubError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, deviceResponse(view))
}

// RenameRequest is the JSON request for PATCH /api/devices/{id}.
type RenameRequest struct {
	DisplayName string `json:"display_name"`
}

// handleRenameDevice sets or clears a device's display name.
func (s *Server) handleRenameDevice(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	view, err := s.hub.Rename(r.PathValue("id"), req.DisplayName)
	if err != nil {
		s.writeHubError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, deviceResponse(view))
}

// handleDeleteDevice removes a device and discards its queue.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	if err := s.hub.DeleteDevice(r.PathValue("id")); err != nil {
		s.writeHubError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleApproveDevice marks a device eligible for job submission.
func (s *Server) handleApproveDevice(w http.ResponseWriter, r *http.Request) {
	view, err := s.hub.Approve(r.PathValue("id"))
	if err != nil {
		s.writeHubError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, deviceResponse(view))
}

// SubmitJobRequest is the JSON request for POST /api/jobs.
type SubmitJobRequest struct {
	DeviceID       string                 `json:"device_id"`
	Command        string                 `json:"command"`
	Args           map[string]interface{} `json:"args,omitempty"`
	Wait           bool                   `json:"wait,omitempty"`
	TimeoutSeconds int                    `json:"timeout_seconds,omitempty"`
}

// SubmitJobResponse is the JSON response for POST /api/jobs.
type SubmitJobResponse struct {
	Job      JobResponse     `json:"job"`
	Result   *ResultResponse `json:"result,omitempty"`
	TimedOut bool            `json:"timed_out,omitempty"`
}

// handleSubmitJob enqueues a job, optionally blocking for its result.
func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	var req SubmitJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	args, err := hub.ArgsFromInterface(req.Args)
	if err != nil {
		s.writeHubError(w, err)
		return
	}
	cmd := hub.Command{Name: req.Command, Args: args}

	if !req.Wait {
		job, err := s.hub.Submit(req.DeviceID, cmd)
		if err != nil {
			s.writeHubError(w, err)
			return
		}
		s.writeJSON(w, http.StatusAccepted, SubmitJobResponse{Job: jobResponse(job)})
		return
	}

	timeout := time.Duration(req.TimeoutSeconds) * time.Second
	job, res, err := s.hub.SubmitAndWait(r.Context(), req.DeviceID, cmd, timeout)
	if err != nil {
		// A timed-out wait is not a failed submission: the job stays
		// queued and the caller gets its id back.
		if errors.Is(err, hub.ErrWaitTimeout) {
			s.writeJSON(w, http.StatusOK, SubmitJobResponse{Job: jobResponse(job), TimedOut: true})
			return
		}
		s.writeHubError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, SubmitJobResponse{Job: jobResponse(job), Result: resultResponse(res)})
}

// handleGetJob returns a job by id, pending or completed.
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.hub.GetJob(r.PathValue("id"))
	if err != nil {
		s.writeHubError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, jobResponse(job))
}

// handleCancelJob cancels a still-queued job.
func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.hub.CancelJob(id); err != nil {
		s.writeHubError(w, err)
		return
	}

	job, err := s.hub.GetJob(id)
	if err != nil {
		s.writeHubError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, jobResponse(job))
}
