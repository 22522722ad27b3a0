package deviceid

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureMintsAndReuses(t *testing.T) {
	t.Setenv(EnvOverride, "")

	s := NewStore(filepath.Join(t.TempDir(), "ids"))

	first, err := s.Ensure()
	require.NoError(t, err)
	_, err = uuid.Parse(first)
	require.NoError(t, err)

	second, err := s.Ensure()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	if runtime.GOOS != "windows" {
		fi, err := os.Stat(s.path())
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), fi.Mode().Perm())
	}
}

func TestEnsureTrimsWhitespace(t *testing.T) {
	t.Setenv(EnvOverride, "")

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, idFileName), []byte("  dev-from-disk\n"), 0600))

	s := NewStore(dir)
	id, err := s.Ensure()
	require.NoError(t, err)
	assert.Equal(t, "dev-from-disk", id)
}

func TestEnsureEnvOverrideWinsOverCache(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, idFileName), []byte("cached-id"), 0600))
	t.Setenv(EnvOverride, "pinned-id")

	s := NewStore(dir)
	id, err := s.Ensure()
	require.NoError(t, err)
	assert.Equal(t, "pinned-id", id)

	// The override never rewrites the cache.
	data, err := os.ReadFile(filepath.Join(dir, idFileName))
	require.NoError(t, err)
	assert.Equal(t, "cached-id", string(data))
}
