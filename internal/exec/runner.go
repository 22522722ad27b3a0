// Package exec runs allowlisted commands with timeouts and bounded
// output capture.
package exec

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const (
	// DefaultTimeout bounds a single command execution.
	DefaultTimeout = 2 * time.Minute
	// MaxOutputSize caps captured stdout/stderr at 1MB each.
	MaxOutputSize = 1024 * 1024
)

// Result holds the outcome of one command execution.
type Result struct {
	Command  string
	Args     []string
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	Error    error
	TimedOut bool
}

// OK reports whether the command exited cleanly.
func (r *Result) OK() bool {
	return r.ExitCode == 0 && r.Error == nil
}

// String returns a one-line summary for logs.
func (r *Result) String() string {
	status := "OK"
	if !r.OK() {
		status = fmt.Sprintf("FAILED (exit %d)", r.ExitCode)
	}
	if r.TimedOut {
		status = "TIMEOUT"
	}
	return fmt.Sprintf("%s %s [%s] (%s)", r.Command, strings.Join(r.Args, " "), status, r.Duration)
}

// Runner executes commands with a timeout and output limits.
type Runner struct {
	Timeout time.Duration
	Dir     string
}

// NewRunner creates a Runner with the default timeout.
func NewRunner() *Runner {
	return &Runner{Timeout: DefaultTimeout}
}

// Run executes a command and captures its output.
func (r *Runner) Run(ctx context.Context, name string, args ...string) *Result {
	start := time.Now()
	result := &Result{Command: name, Args: args}

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	if r.Dir != "" {
		cmd.Dir = r.Dir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &limitedWriter{w: &stdout, limit: MaxOutputSize}
	cmd.Stderr = &limitedWriter{w: &stderr, limit: MaxOutputSize}

	err := cmd.Run()
	result.Duration = time.Since(start)
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	if ctx.Err() == context.DeadlineExceeded {
		result.TimedOut = true
		result.Error = fmt.Errorf("command timed out after %s", r.Timeout)
		result.ExitCode = -1
	} else if err != nil {
		result.Error = err
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
		}
	}

	return result
}

// limitedWriter discards writes past the limit so a chatty command
// cannot balloon the result payload.
type limitedWriter struct {
	w       *bytes.Buffer
	limit   int
	written int
}

func (lw *limitedWriter) Write(p []byte) (n int, err error) {
	if lw.written >= lw.limit {
		return len(p), nil
	}
	remaining := lw.limit - lw.written
	if len(p) > remaining {
		p = p[:remaining]
	}
	n, err = lw.w.Write(p)
	lw.written += n
	return len(p), err
}
