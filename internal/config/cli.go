package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// ConfigDirName is the name of the CLI config directory.
	ConfigDirName = ".edgehub"
	// ConfigFileName is the name of the CLI config file.
	ConfigFileName = "config.json"
)

// CLI holds the command-line client's persisted state.
type CLI struct {
	// ServerURL is the hub base URL.
	ServerURL string `json:"server_url"`
	// Verbose enables verbose logging.
	Verbose bool `json:"verbose"`
	// Session holds the dashboard session (optional).
	Session *SessionConfig `json:"session,omitempty"`
}

// SessionConfig holds authentication state for the hub API.
type SessionConfig struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsAuthenticated returns true if a non-expired session token exists.
func (c *CLI) IsAuthenticated() bool {
	if c.Session == nil || c.Session.Token == "" {
		return false
	}
	// 1 minute buffer against clock skew
	return time.Now().Add(time.Minute).Before(c.Session.ExpiresAt)
}

// CLIPath returns the config file path (~/.edgehub/config.json).
func CLIPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ConfigDirName, ConfigFileName), nil
}

// DefaultCLI returns a CLI config with default values.
func DefaultCLI() *CLI {
	return &CLI{
		ServerURL: "http://localhost:8080",
	}
}

// LoadCLI loads the CLI configuration from disk, returning defaults when
// no config file exists yet.
func LoadCLI() (*CLI, error) {
	path, err := CLIPath()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultCLI(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultCLI()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Save writes the CLI configuration to disk.
func (c *CLI) Save() error {
	path, err := CLIPath()
	if err != nil {
		return err
	}

	// The file under it holds a session token.
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SetSession stores a session token.
func (c *CLI) SetSession(token string, ttl time.Duration) error {
	c.Session = &SessionConfig{
		Token:     token,
		ExpiresAt: time.Now().Add(ttl),
	}
	return c.Save()
}

// ClearSession removes the stored session token.
func (c *CLI) ClearSession() error {
	c.Session = nil
	return c.Save()
}
