// Package config loads server settings from the environment and manages
// CLI state persistence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Server holds hub server configuration, populated from EDGEHUB_*
// environment variables.
type Server struct {
	// Addr is the HTTP listen address.
	Addr string
	// Password guards the dashboard and the management API. Empty
	// disables authentication.
	Password string
	// MaxCompleted caps the completion history.
	MaxCompleted int
	// DefaultWaitSeconds applies to synchronous job waits without an
	// explicit timeout.
	DefaultWaitSeconds int
	// MaxWaitSeconds caps caller-supplied wait timeouts.
	MaxWaitSeconds int
	// DispatchTimeoutSeconds ages out jobs stuck in dispatch. Zero
	// disables the reaper.
	DispatchTimeoutSeconds int
	// RequireApproval gates new devices behind an explicit approve.
	RequireApproval bool
	// SessionTTLMinutes bounds dashboard session lifetime.
	SessionTTLMinutes int
	// LogLevel is the zerolog level name.
	LogLevel string
}

// ServerFromEnv reads server configuration from the environment,
// falling back to defaults.
func ServerFromEnv() (Server, error) {
	cfg := Server{
		Addr:            envOrDefault("EDGEHUB_ADDR", ":8080"),
		Password:        os.Getenv("EDGEHUB_PASSWORD"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		RequireApproval: envBool("EDGEHUB_REQUIRE_APPROVAL", false),
	}

	var err error
	if cfg.MaxCompleted, err = envInt("EDGEHUB_MAX_COMPLETED", 200); err != nil {
		return Server{}, err
	}
	if cfg.DefaultWaitSeconds, err = envInt("EDGEHUB_DEFAULT_WAIT_SECONDS", 20); err != nil {
		return Server{}, err
	}
	if cfg.MaxWaitSeconds, err = envInt("EDGEHUB_MAX_WAIT_SECONDS", 120); err != nil {
		return Server{}, err
	}
	if cfg.DispatchTimeoutSeconds, err = envInt("EDGEHUB_DISPATCH_TIMEOUT_SECONDS", 0); err != nil {
		return Server{}, err
	}
	if cfg.SessionTTLMinutes, err = envInt("EDGEHUB_SESSION_TTL_MINUTES", 720); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// DefaultWait returns the default synchronous wait duration.
func (s Server) DefaultWait() time.Duration {
	return time.Duration(s.DefaultWaitSeconds) * time.Second
}

// MaxWait returns the synchronous wait cap.
func (s Server) MaxWait() time.Duration {
	return time.Duration(s.MaxWaitSeconds) * time.Second
}

// DispatchTimeout returns the stale-dispatch age limit (zero disables).
func (s Server) DispatchTimeout() time.Duration {
	return time.Duration(s.DispatchTimeoutSeconds) * time.Second
}

// SessionTTL returns the dashboard session lifetime.
func (s Server) SessionTTL() time.Duration {
	return time.Duration(s.SessionTTLMinutes) * time.Minute
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return n, nil
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
