// Package httpapi exposes the hub over HTTP: the device plane the edge
// fleet polls, the management API, the chat assistant, and a small
// embedded dashboard.
package httpapi

import (
	"embed"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/edgehub/edgehub/internal/chatmem"
	"github.com/edgehub/edgehub/internal/config"
	"github.com/edgehub/edgehub/internal/hub"
	"github.com/edgehub/edgehub/internal/llm"
)

//go:embed static/index.html static/login.html
var staticFS embed.FS

// sessionCookie is the dashboard session cookie name.
const sessionCookie = "edgehub_session"

// Server handles HTTP requests against the hub.
type Server struct {
	hub        *hub.Hub
	llm        llm.Provider // nil if disabled
	cfg        config.Server
	log        zerolog.Logger
	sessions   *sessionStore
	transcript *chatmem.Transcript
	mux        *http.ServeMux
}

// New wires a Server around a hub instance.
func New(h *hub.Hub, provider llm.Provider, cfg config.Server, log zerolog.Logger) *Server {
	s := &Server{
		hub:        h,
		llm:        provider,
		cfg:        cfg,
		log:        log,
		sessions:   newSessionStore(cfg.SessionTTL()),
		transcript: chatmem.NewTranscript(chatmem.DefaultMaxMessages),
		mux:        http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	// Device plane: unauthenticated, the fleet speaks it.
	s.mux.HandleFunc("POST /device/register", s.handleDeviceRegister)
	s.mux.HandleFunc("GET /device/next", s.handleDeviceNext)
	s.mux.HandleFunc("POST /device/result", s.handleDeviceResult)

	// Management API.
	s.mux.HandleFunc("GET /api/devices", s.requireAuth(s.handleListDevices))
	s.mux.HandleFunc("GET /api/devices/{id}", s.requireAuth(s.handleGetDevice))
	s.mux.HandleFunc("PATCH /api/devices/{id}/name", s.requireAuth(s.handleRenameDevice))
	s.mux.HandleFunc("DELETE /api/devices/{id}", s.requireAuth(s.handleDeleteDevice))
	s.mux.HandleFunc("POST /api/devices/{id}/approve", s.requireAuth(s.handleApproveDevice))

	s.mux.HandleFunc("POST /api/jobs", s.requireAuth(s.handleSubmitJob))
	s.mux.HandleFunc("GET /api/jobs/{id}", s.requireAuth(s.handleGetJob))
	s.mux.HandleFunc("POST /api/jobs/{id}/cancel", s.requireAuth(s.handleCancelJob))

	s.mux.HandleFunc("POST /api/chat", s.requireAuth(s.handleChat))

	// Auth and UI.
	s.mux.HandleFunc("POST /login", s.handleLogin)
	s.mux.HandleFunc("POST /logout", s.handleLogout)
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.HandleFunc("GET /", s.handleIndex)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ErrorResponse is the JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, ErrorResponse{Error: message})
}

// writeHubError maps hub errors onto HTTP status codes.
func (s *Server) writeHubError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, hub.ErrInvalidArgument):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, hub.ErrDeviceGone):
		s.writeError(w, http.StatusGone, err.Error())
	case errors.Is(err, hub.ErrDeviceNotFound), errors.Is(err, hub.ErrJobNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, hub.ErrAlreadyDispatched), errors.Is(err, hub.ErrConflict):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, hub.ErrWaitTimeout):
		s.writeError(w, http.StatusGatewayTimeout, err.Error())
	default:
		s.log.Error().Err(err).Msg("internal error")
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// authenticated reports whether the request carries a live session. With
// no password configured, everything is open.
func (s *Server) authenticated(r *http.Request) bool {
	if s.cfg.Password == "" {
		return true
	}
	if c, err := r.Cookie(sessionCookie); err == nil && s.sessions.Valid(c.Value) {
		return true
	}
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
		return s.sessions.Valid(auth[len(prefix):])
	}
	return false
}

// requireAuth guards management handlers behind the session check.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticated(r) {
			s.writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next(w, r)
	}
}

// LoginRequest is the JSON request for /login.
type LoginRequest struct {
	Password string `json:"password"`
}

// LoginResponse is the JSON response for /login.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// handleLogin checks the password and mints a session.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Password == "" {
		s.writeError(w, http.StatusBadRequest, "authentication is disabled")
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	if req.Password != s.cfg.Password {
		s.log.Warn().Str("remote", r.RemoteAddr).Msg("failed login attempt")
		s.writeError(w, http.StatusUnauthorized, "invalid password")
		return
	}

	sess, err := s.sessions.Create()
	if err != nil {
		s.writeHubError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	s.writeJSON(w, http.StatusOK, LoginResponse{Token: sess.Token, ExpiresAt: sess.ExpiresAt})
}

// handleLogout revokes the current session, however it was presented.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		s.sessions.Revoke(c.Value)
	}
	const prefix = "Bearer "
	if auth := r.Header.Get("Authorization"); len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
		s.sessions.Revoke(auth[len(prefix):])
	}
	http.SetCookie(w, &http.Cookie{
		Name:    sessionCookie,
		Value:   "",
		Path:    "/",
		Expires: time.Unix(0, 0),
	})
	s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleHealthz reports liveness.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"devices": len(s.hub.Devices()),
	})
}

// handleIndex serves the embedded dashboard, or the login page when the
// request has no session.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	page := "static/index.html"
	if !s.authenticated(r) {
		page = "static/login.html"
	}

	content, err := staticFS.ReadFile(page)
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(content)
}
