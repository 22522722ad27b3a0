package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgehub/edgehub/internal/config"
	"github.com/edgehub/edgehub/internal/hub"
	"github.com/edgehub/edgehub/internal/llm"
)

type testEnv struct {
	hub    *hub.Hub
	server *Server
}

func newTestEnv(t *testing.T, cfg config.Server, provider llm.Provider) *testEnv {
	t.Helper()
	if cfg.SessionTTLMinutes == 0 {
		cfg.SessionTTLMinutes = 60
	}
	h := hub.New(hub.Config{}, zerolog.Nop())
	t.Cleanup(h.Close)
	return &testEnv{
		hub:    h,
		server: New(h, provider, cfg, zerolog.Nop()),
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func (e *testEnv) register(t *testing.T, deviceID string, caps ...string) {
	t.Helper()
	capList := make([]hub.Capability, len(caps))
	for i, c := range caps {
		capList[i] = hub.Capability{Name: c}
	}
	rec := e.do(t, http.MethodPost, "/device/register", RegisterRequest{
		DeviceID:     deviceID,
		Capabilities: capList,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestDeviceLifecycleOverHTTP(t *testing.T) {
	e := newTestEnv(t, config.Server{}, nil)
	e.register(t, "pico-1", "echo")

	// Re-registration is an update, not a create.
	rec0 := e.do(t, http.MethodPost, "/device/register", RegisterRequest{DeviceID: "pico-1"})
	require.Equal(t, http.StatusOK, rec0.Code)
	assert.False(t, decode[RegisterResponse](t, rec0).Created)

	// Empty queue: 204, no body.
	rec := e.do(t, http.MethodGet, "/device/next?device_id=pico-1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	// Submit without wait: 202 with the queued job.
	rec = e.do(t, http.MethodPost, "/api/jobs", SubmitJobRequest{
		DeviceID: "pico-1",
		Command:  "echo",
		Args:     map[string]interface{}{"text": "hi"},
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	submitted := decode[SubmitJobResponse](t, rec)
	assert.Equal(t, "QUEUED", submitted.Job.State)
	jobID := submitted.Job.JobID

	// The device claims the job.
	rec = e.do(t, http.MethodGet, "/device/next?device_id=pico-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	claimed := decode[JobResponse](t, rec)
	assert.Equal(t, jobID, claimed.JobID)
	assert.Equal(t, "DISPATCHED", claimed.State)
	assert.Equal(t, "echo", claimed.Command.Name)

	// And posts the outcome.
	rec = e.do(t, http.MethodPost, "/device/result", ResultRequest{
		DeviceID:    "pico-1",
		JobID:       jobID,
		OK:          true,
		ReturnValue: "hi",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodGet, "/api/jobs/"+jobID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	done := decode[JobResponse](t, rec)
	assert.Equal(t, "COMPLETED", done.State)
	require.NotNil(t, done.Result)
	assert.True(t, done.Result.OK)
}

func TestDeviceEndpointValidation(t *testing.T) {
	e := newTestEnv(t, config.Server{}, nil)

	rec := e.do(t, http.MethodGet, "/device/next", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodGet, "/device/next?device_id=ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodPost, "/device/register", RegisterRequest{DeviceID: "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Result for a job nobody submitted.
	rec = e.do(t, http.MethodPost, "/device/result", ResultRequest{
		DeviceID: "pico-1", JobID: "nope", OK: true,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestErrorStatusMapping(t *testing.T) {
	e := newTestEnv(t, config.Server{}, nil)
	e.register(t, "pico-1", "echo")

	// Delete, then submit: the tombstone maps to 410.
	rec := e.do(t, http.MethodDelete, "/api/devices/pico-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/jobs", SubmitJobRequest{DeviceID: "pico-1", Command: "echo"})
	assert.Equal(t, http.StatusGone, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/jobs", SubmitJobRequest{DeviceID: "never-seen", Command: "echo"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/jobs/never-minted", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelJobOverHTTP(t *testing.T) {
	e := newTestEnv(t, config.Server{}, nil)
	e.register(t, "pico-1", "echo")

	rec := e.do(t, http.MethodPost, "/api/jobs", SubmitJobRequest{DeviceID: "pico-1", Command: "echo"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	jobID := decode[SubmitJobResponse](t, rec).Job.JobID

	rec = e.do(t, http.MethodPost, "/api/jobs/"+jobID+"/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cancelled := decode[JobResponse](t, rec)
	assert.Equal(t, "CANCELLED", cancelled.State)

	// Cancelling a terminal job is a conflict.
	rec = e.do(t, http.MethodPost, "/api/jobs/"+jobID+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSubmitWithWait(t *testing.T) {
	e := newTestEnv(t, config.Server{}, nil)
	e.register(t, "pico-1", "echo")

	// A fake device that polls and reports.
	go func() {
		for {
			job, ok, err := e.hub.PollNext("pico-1")
			if err != nil {
				return
			}
			if !ok {
				time.Sleep(time.Millisecond)
				continue
			}
			e.hub.ReportResult("pico-1", job.ID, hub.ResultUpload{OK: true, ReturnValue: hub.String("done")})
			return
		}
	}()

	rec := e.do(t, http.MethodPost, "/api/jobs", SubmitJobRequest{
		DeviceID:       "pico-1",
		Command:        "echo",
		Wait:           true,
		TimeoutSeconds: 2,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[SubmitJobResponse](t, rec)
	require.NotNil(t, resp.Result)
	assert.True(t, resp.Result.OK)
	assert.False(t, resp.TimedOut)
}

func TestSubmitWithWaitTimeout(t *testing.T) {
	e := newTestEnv(t, config.Server{}, nil)
	e.register(t, "pico-1", "echo")

	rec := e.do(t, http.MethodPost, "/api/jobs", SubmitJobRequest{
		DeviceID:       "pico-1",
		Command:        "echo",
		Wait:           true,
		TimeoutSeconds: 1,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[SubmitJobResponse](t, rec)
	assert.True(t, resp.TimedOut)
	assert.Nil(t, resp.Result)
	assert.NotEmpty(t, resp.Job.JobID)
}

func TestRenameAndApproveOverHTTP(t *testing.T) {
	e := newTestEnv(t, config.Server{}, nil)
	e.register(t, "pico-1")

	rec := e.do(t, http.MethodPatch, "/api/devices/pico-1/name", RenameRequest{DisplayName: "Porch"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Porch", decode[DeviceResponse](t, rec).DisplayName)

	rec = e.do(t, http.MethodPost, "/api/devices/pico-1/approve", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[DeviceResponse](t, rec).Approved)

	rec = e.do(t, http.MethodGet, "/api/devices", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	devices := decode[[]DeviceResponse](t, rec)
	require.Len(t, devices, 1)
	assert.Equal(t, "pico-1", devices[0].DeviceID)
}

func TestAuthRequiredWhenPasswordSet(t *testing.T) {
	e := newTestEnv(t, config.Server{Password: "hunter2"}, nil)

	// Management API is closed without a session.
	rec := e.do(t, http.MethodGet, "/api/devices", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// The device plane stays open.
	e.register(t, "pico-1")

	rec = e.do(t, http.MethodPost, "/login", LoginRequest{Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(t, http.MethodPost, "/login", LoginRequest{Password: "hunter2"})
	require.Equal(t, http.StatusOK, rec.Code)
	login := decode[LoginResponse](t, rec)
	require.NotEmpty(t, login.Token)

	// Bearer token auth.
	req := httptest.NewRequest(http.MethodGet, "/api/devices", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	out := httptest.NewRecorder()
	e.server.ServeHTTP(out, req)
	assert.Equal(t, http.StatusOK, out.Code)

	// Cookie auth.
	req = httptest.NewRequest(http.MethodGet, "/api/devices", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: login.Token})
	out = httptest.NewRecorder()
	e.server.ServeHTTP(out, req)
	assert.Equal(t, http.StatusOK, out.Code)

	// A bogus token does not pass.
	req = httptest.NewRequest(http.MethodGet, "/api/devices", nil)
	req.Header.Set("Authorization", "Bearer nope")
	out = httptest.NewRecorder()
	e.server.ServeHTTP(out, req)
	assert.Equal(t, http.StatusUnauthorized, out.Code)
}

func TestHealthz(t *testing.T) {
	e := newTestEnv(t, config.Server{Password: "secret"}, nil)

	rec := e.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// scriptedProvider returns a fixed assistant payload and records the
// history it was handed.
type scriptedProvider struct {
	output  string
	history []llm.Message
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Assist(_ context.Context, history []llm.Message, _ string) (string, error) {
	p.history = history
	return p.output, nil
}

func TestChatDispatchesCommands(t *testing.T) {
	provider := &scriptedProvider{output: `{
		"reply": "Blinking the LED.",
		"device_commands": [{"device_id": "pico-1", "command": "set_led", "args": {"state": true}}]
	}`}
	e := newTestEnv(t, config.Server{}, provider)
	e.register(t, "pico-1", "set_led")

	go func() {
		for {
			job, ok, err := e.hub.PollNext("pico-1")
			if err != nil {
				return
			}
			if !ok {
				time.Sleep(time.Millisecond)
				continue
			}
			e.hub.ReportResult("pico-1", job.ID, hub.ResultUpload{OK: true})
			return
		}
	}()

	rec := e.do(t, http.MethodPost, "/api/chat", ChatRequest{Message: "turn on the led"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[ChatResponse](t, rec)
	assert.Equal(t, "Blinking the LED.", resp.Reply)
	require.Len(t, resp.Dispatches, 1)
	d := resp.Dispatches[0]
	assert.Equal(t, "set_led", d.Command)
	require.NotNil(t, d.Result)
	assert.True(t, d.Result.OK)
}

func TestChatWithBadAssistantOutput(t *testing.T) {
	e := newTestEnv(t, config.Server{}, &scriptedProvider{output: "sure, doing that now"})

	rec := e.do(t, http.MethodPost, "/api/chat", ChatRequest{Message: "hello"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestChatDisabled(t *testing.T) {
	e := newTestEnv(t, config.Server{}, nil)

	rec := e.do(t, http.MethodPost, "/api/chat", ChatRequest{Message: "hello"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestChatTargetingUnknownDevice(t *testing.T) {
	provider := &scriptedProvider{output: fmt.Sprintf(`{
		"reply": "On it.",
		"device_commands": [{"device_id": %q, "command": "beep"}]
	}`, "ghost")}
	e := newTestEnv(t, config.Server{}, provider)

	rec := e.do(t, http.MethodPost, "/api/chat", ChatRequest{Message: "beep the ghost"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[ChatResponse](t, rec)
	require.Len(t, resp.Dispatches, 1)
	assert.NotEmpty(t, resp.Dispatches[0].Error)
	assert.Nil(t, resp.Dispatches[0].Job)
}

func TestChatCarriesConversationHistory(t *testing.T) {
	provider := &scriptedProvider{output: `{"reply": "Noted.", "device_commands": []}`}
	e := newTestEnv(t, config.Server{}, provider)

	rec := e.do(t, http.MethodPost, "/api/chat", ChatRequest{Message: "remember the pico"})
	require.Equal(t, http.StatusOK, rec.Code)
	// First turn: just the user message.
	require.Len(t, provider.history, 1)

	rec = e.do(t, http.MethodPost, "/api/chat", ChatRequest{Message: "what did I say?"})
	require.Equal(t, http.StatusOK, rec.Code)
	// Second turn sees user, assistant, user.
	require.Len(t, provider.history, 3)
	assert.Equal(t, "user", provider.history[0].Role)
	assert.Equal(t, "remember the pico", provider.history[0].Content)
	assert.Equal(t, "assistant", provider.history[1].Role)
	assert.Equal(t, "Noted.", provider.history[1].Content)
	assert.Equal(t, "what did I say?", provider.history[2].Content)
}
