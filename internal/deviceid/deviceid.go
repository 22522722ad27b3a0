// Package deviceid assigns this machine a stable identity for hub
// registration. The id is minted once and cached next to the CLI
// config so reinstalls and restarts keep the same device record.
package deviceid

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/edgehub/edgehub/internal/config"
)

const idFileName = "device_id"

// EnvOverride names the environment variable that pins the device id
// without touching the cache. Useful for containers and fleet tooling.
const EnvOverride = "EDGEHUB_DEVICE_ID"

// Store reads and mints device ids rooted at a directory.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// DefaultStore roots the store at ~/.edgehub, shared with the CLI
// config.
func DefaultStore() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	return NewStore(filepath.Join(home, config.ConfigDirName)), nil
}

// Ensure returns this machine's device id, minting and persisting a
// fresh one on first use. EDGEHUB_DEVICE_ID takes precedence over the
// cached value when set.
func (s *Store) Ensure() (string, error) {
	if id := strings.TrimSpace(os.Getenv(EnvOverride)); id != "" {
		return id, nil
	}

	id, err := s.cached()
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}

	id = uuid.NewString()
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return "", fmt.Errorf("create id directory: %w", err)
	}
	if err := os.WriteFile(s.path(), []byte(id+"\n"), 0600); err != nil {
		return "", fmt.Errorf("persist device id: %w", err)
	}
	return id, nil
}

func (s *Store) cached() (string, error) {
	data, err := os.ReadFile(s.path())
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read device id: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *Store) path() string {
	return filepath.Join(s.dir, idFileName)
}
