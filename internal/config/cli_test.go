package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	return home
}

func TestCLISaveCreatesPrivateDir(t *testing.T) {
	home := testHome(t)

	cfg := DefaultCLI()
	require.NoError(t, cfg.SetSession("tok-123", time.Hour))

	info, err := os.Stat(filepath.Join(home, ConfigDirName))
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
	}

	fi, err := os.Stat(filepath.Join(home, ConfigDirName, ConfigFileName))
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		assert.Equal(t, os.FileMode(0600), fi.Mode().Perm())
	}
}

func TestCLISessionRoundTrip(t *testing.T) {
	testHome(t)

	cfg := DefaultCLI()
	cfg.ServerURL = "http://hub.local:8080"
	require.NoError(t, cfg.SetSession("tok-123", time.Hour))

	loaded, err := LoadCLI()
	require.NoError(t, err)
	assert.Equal(t, "http://hub.local:8080", loaded.ServerURL)
	require.NotNil(t, loaded.Session)
	assert.Equal(t, "tok-123", loaded.Session.Token)
	assert.True(t, loaded.IsAuthenticated())

	require.NoError(t, loaded.ClearSession())
	cleared, err := LoadCLI()
	require.NoError(t, err)
	assert.Nil(t, cleared.Session)
	assert.False(t, cleared.IsAuthenticated())
}

func TestLoadCLIDefaultsWhenMissing(t *testing.T) {
	testHome(t)

	cfg, err := LoadCLI()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.ServerURL)
	assert.False(t, cfg.IsAuthenticated())
}

func TestIsAuthenticatedSkewBuffer(t *testing.T) {
	cfg := &CLI{Session: &SessionConfig{
		Token:     "tok",
		ExpiresAt: time.Now().Add(30 * time.Second),
	}}
	// Expires inside the one-minute skew buffer.
	assert.False(t, cfg.IsAuthenticated())

	cfg.Session.ExpiresAt = time.Now().Add(2 * time.Minute)
	assert.True(t, cfg.IsAuthenticated())
}
