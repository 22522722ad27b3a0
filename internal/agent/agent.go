package agent

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/edgehub/edgehub/internal/hub"
	"github.com/edgehub/edgehub/internal/redact"
)

const (
	// DefaultPollInterval is the idle delay between /device/next polls.
	DefaultPollInterval = 2 * time.Second
	// maxBackoff caps the retry delay after hub errors.
	maxBackoff = 30 * time.Second
	// resultMaxAttempts bounds result delivery retries.
	resultMaxAttempts = 3
)

// Outcome is what a capability handler produces for one job.
type Outcome struct {
	OK          bool
	ReturnValue interface{}
	Stdout      string
	Stderr      string
	Error       string
}

// Handler executes one command on the device.
type Handler func(ctx context.Context, args map[string]hub.Value) Outcome

// capability pairs the declared shape with its handler.
type capability struct {
	decl    hub.Capability
	handler Handler
}

// Agent is one edge device: an id, a capability table, and a poll loop.
type Agent struct {
	deviceID     string
	client       *Client
	log          zerolog.Logger
	pollInterval time.Duration
	meta         map[string]interface{}
	caps         map[string]capability
}

// Option adjusts agent construction.
type Option func(*Agent)

// WithPollInterval overrides the idle poll delay.
func WithPollInterval(d time.Duration) Option {
	return func(a *Agent) { a.pollInterval = d }
}

// WithMeta attaches registration metadata (display_name and friends).
func WithMeta(meta map[string]interface{}) Option {
	return func(a *Agent) { a.meta = meta }
}

// New creates an agent for the given device id and hub client.
func New(deviceID string, client *Client, log zerolog.Logger, opts ...Option) *Agent {
	a := &Agent{
		deviceID:     deviceID,
		client:       client,
		log:          log,
		pollInterval: DefaultPollInterval,
		caps:         make(map[string]capability),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Register adds a capability to the agent's table. Later registrations
// with the same name replace earlier ones.
func (a *Agent) Register(decl hub.Capability, h Handler) {
	a.caps[decl.Name] = capability{decl: decl, handler: h}
}

// Capabilities returns the declared capabilities, sorted by name.
func (a *Agent) Capabilities() []hub.Capability {
	out := make([]hub.Capability, 0, len(a.caps))
	for _, c := range a.caps {
		out = append(out, c.decl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Run registers with the hub and polls for work until the context is
// cancelled. Hub errors back off exponentially; an empty queue just
// waits out the poll interval.
func (a *Agent) Run(ctx context.Context) error {
	if err := a.client.Register(ctx, a.deviceID, a.Capabilities(), a.meta); err != nil {
		return fmt.Errorf("initial registration: %w", err)
	}
	a.log.Info().
		Str("device_id", a.deviceID).
		Int("capabilities", len(a.caps)).
		Msg("registered with hub")

	backoff := a.pollInterval
	for {
		job, err := a.client.Next(ctx, a.deviceID)
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			a.log.Warn().Err(err).Dur("retry_in", backoff).Msg("poll failed")
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			// The hub may have restarted and lost the registry.
			if err := a.client.Register(ctx, a.deviceID, a.Capabilities(), a.meta); err != nil {
				a.log.Warn().Err(err).Msg("re-registration failed")
			}
			continue
		case job == nil:
			backoff = a.pollInterval
			if !sleepCtx(ctx, a.pollInterval) {
				return ctx.Err()
			}
			continue
		}

		backoff = a.pollInterval
		a.runJob(ctx, job)
	}
}

// runJob executes one assigned job and reports its outcome.
func (a *Agent) runJob(ctx context.Context, job *AssignedJob) {
	a.log.Info().
		Str("job_id", job.JobID).
		Str("command", job.Command.Name).
		Msg("executing job")

	outcome := a.execute(ctx, job.Command)
	if !outcome.OK && outcome.Stderr != "" {
		a.log.Debug().
			Str("job_id", job.JobID).
			Str("stderr", redact.Secrets(outcome.Stderr)).
			Msg("command failed")
	}

	// A result the hub never hears about strands any waiter until the
	// wait times out, so delivery is retried before giving up.
	var err error
	for attempt := 1; attempt <= resultMaxAttempts; attempt++ {
		if err = a.client.Report(ctx, a.deviceID, job.JobID, outcome); err == nil {
			break
		}
		a.log.Warn().Err(err).
			Str("job_id", job.JobID).
			Int("attempt", attempt).
			Msg("result delivery failed")
		if attempt == resultMaxAttempts || !sleepCtx(ctx, time.Duration(attempt)*time.Second) {
			break
		}
	}
	if err != nil {
		a.log.Error().Err(err).Str("job_id", job.JobID).Msg("giving up on result delivery")
		return
	}
	a.log.Info().
		Str("job_id", job.JobID).
		Bool("ok", outcome.OK).
		Msg("result reported")
}

// execute looks up and runs the command's handler.
func (a *Agent) execute(ctx context.Context, cmd hub.Command) Outcome {
	c, ok := a.caps[cmd.Name]
	if !ok {
		return Outcome{Error: fmt.Sprintf("unknown command %q", cmd.Name)}
	}
	args := cmd.Args
	if args == nil {
		args = map[string]hub.Value{}
	}
	return c.handler(ctx, args)
}

// sleepCtx sleeps for d, returning false if the context ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
