package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/edgehub/edgehub/internal/chatmem"
	"github.com/edgehub/edgehub/internal/hub"
	"github.com/edgehub/edgehub/internal/llm"
	"github.com/edgehub/edgehub/internal/redact"
)

// ChatRequest is the JSON request for /api/chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatDispatch records the outcome of one assistant-issued command.
type ChatDispatch struct {
	DeviceID string          `json:"device_id"`
	Command  string          `json:"command"`
	Job      *JobResponse    `json:"job,omitempty"`
	Result   *ResultResponse `json:"result,omitempty"`
	TimedOut bool            `json:"timed_out,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// ChatResponse is the JSON response for /api/chat.
type ChatResponse struct {
	Reply      string         `json:"reply"`
	Dispatches []ChatDispatch `json:"dispatches,omitempty"`
}

// deviceCompact is the device inventory shape handed to the LLM.
type deviceCompact struct {
	DeviceID     string           `json:"device_id"`
	Name         string           `json:"name,omitempty"`
	Capabilities []hub.Capability `json:"capabilities"`
	Online       bool             `json:"online"`
}

// handleChat runs one assistant turn: the LLM sees the device inventory,
// produces a reply plus zero or more device commands, and each command
// is dispatched in order with a synchronous wait.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.llm == nil {
		s.writeError(w, http.StatusServiceUnavailable, "chat assistant is disabled")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	if req.Message == "" {
		s.writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	views := s.hub.Devices()
	devList := make([]deviceCompact, len(views))
	for i, v := range views {
		caps := v.Capabilities
		if caps == nil {
			caps = []hub.Capability{}
		}
		devList[i] = deviceCompact{
			DeviceID:     v.ID,
			Name:         v.DisplayName,
			Capabilities: caps,
			Online:       v.Approved,
		}
	}
	devJSON, _ := json.MarshalIndent(devList, "", "  ")

	s.log.Debug().Str("message", redact.Secrets(req.Message)).Msg("chat turn")
	s.transcript.Add(chatmem.RoleUser, req.Message)

	history := transcriptHistory(s.transcript)
	raw, err := s.llm.Assist(r.Context(), history, string(devJSON))
	if err != nil {
		s.log.Error().Err(err).Msg("assistant call failed")
		s.writeError(w, http.StatusBadGateway, fmt.Sprintf("assistant error: %v", err))
		return
	}

	parsed, err := llm.ParseAssistantJSON(raw)
	if err != nil {
		s.log.Warn().Err(err).Str("raw", redact.Secrets(raw)).Msg("assistant output rejected")
		s.writeError(w, http.StatusBadGateway, fmt.Sprintf("assistant produced invalid output: %v", err))
		return
	}
	s.transcript.Add(chatmem.RoleAssistant, parsed.Reply)

	resp := ChatResponse{Reply: parsed.Reply}
	for _, c := range parsed.Commands {
		resp.Dispatches = append(resp.Dispatches, s.dispatchChatCommand(r, c))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// transcriptHistory converts the rolling transcript into provider
// messages, oldest first.
func transcriptHistory(t *chatmem.Transcript) []llm.Message {
	msgs := t.Messages()
	out := make([]llm.Message, len(msgs))
	for i, m := range msgs {
		out[i] = llm.Message{Role: string(m.Role), Content: m.Content}
	}
	return out
}

// dispatchChatCommand submits one assistant command and waits for its
// result. Failures are reported per command so one bad target does not
// sink the whole turn.
func (s *Server) dispatchChatCommand(r *http.Request, c llm.DeviceCommand) ChatDispatch {
	out := ChatDispatch{DeviceID: c.DeviceID, Command: c.Command}

	args, err := hub.ArgsFromInterface(c.Args)
	if err != nil {
		out.Error = err.Error()
		return out
	}

	job, res, err := s.hub.SubmitAndWait(r.Context(), c.DeviceID, hub.Command{Name: c.Command, Args: args}, 0)
	if err != nil {
		if errors.Is(err, hub.ErrWaitTimeout) {
			// The job is real, the result just isn't in yet.
			j := jobResponse(job)
			out.Job = &j
			out.TimedOut = true
			return out
		}
		out.Error = err.Error()
		return out
	}

	j := jobResponse(job)
	out.Job = &j
	out.Result = resultResponse(res)
	return out
}
