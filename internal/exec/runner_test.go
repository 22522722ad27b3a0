package exec

import (
	"context"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCapturesOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}

	r := NewRunner()
	res := r.Run(context.Background(), "sh", "-c", "echo hello; echo oops >&2")
	require.True(t, res.OK())
	assert.Equal(t, "hello\n", res.Stdout)
	assert.Equal(t, "oops\n", res.Stderr)
}

func TestRunReportsExitCode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}

	r := NewRunner()
	res := r.Run(context.Background(), "sh", "-c", "exit 3")
	assert.False(t, res.OK())
	assert.Equal(t, 3, res.ExitCode)
	assert.Contains(t, res.String(), "FAILED")
}

func TestRunTimesOut(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sleep")
	}

	r := &Runner{Timeout: 50 * time.Millisecond}
	res := r.Run(context.Background(), "sleep", "5")
	assert.True(t, res.TimedOut)
	assert.Equal(t, -1, res.ExitCode)
}

func TestLimitedWriterTruncates(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}

	r := NewRunner()
	big := strings.Repeat("x", MaxOutputSize/1024)
	res := r.Run(context.Background(), "sh", "-c", "for i in $(seq 1 2048); do printf '%s' \""+big+"\"; done")
	assert.LessOrEqual(t, len(res.Stdout), MaxOutputSize)
}
