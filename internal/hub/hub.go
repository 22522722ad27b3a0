// Package hub implements the in-memory job orchestration core: a device
// registry, one FIFO job queue per device, the pull-based dispatch/poll
// protocol, synchronous result waiting, and a bounded completion history.
//
// A Hub is an explicitly owned state object. Hosts construct one per
// process (or per test) and pass it to their transport handlers; there is
// no package-level singleton.
package hub

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// DefaultMaxCompleted is the completion history cap when the host
	// does not configure one.
	DefaultMaxCompleted = 200

	// DefaultWaitTimeout bounds synchronous waits when the caller does
	// not supply a timeout.
	DefaultWaitTimeout = 20 * time.Second

	// DefaultMaxWaitTimeout caps caller-supplied wait timeouts.
	DefaultMaxWaitTimeout = 2 * time.Minute
)

// Config holds the knobs the host supplies to the core.
type Config struct {
	// MaxCompleted caps the completion history entry count.
	MaxCompleted int
	// DefaultWaitTimeout applies when a synchronous wait passes zero.
	DefaultWaitTimeout time.Duration
	// MaxWaitTimeout caps caller-supplied wait timeouts.
	MaxWaitTimeout time.Duration
	// DispatchTimeout, when positive, lets the reaper complete jobs
	// stuck in DISPATCHED longer than this with a manufactured failure
	// result. Zero disables reaping.
	DispatchTimeout time.Duration
	// RequireApproval makes newly registered devices ineligible for job
	// submission until approved.
	RequireApproval bool
}

func (c Config) withDefaults() Config {
	if c.MaxCompleted <= 0 {
		c.MaxCompleted = DefaultMaxCompleted
	}
	if c.DefaultWaitTimeout <= 0 {
		c.DefaultWaitTimeout = DefaultWaitTimeout
	}
	if c.MaxWaitTimeout <= 0 {
		c.MaxWaitTimeout = DefaultMaxWaitTimeout
	}
	return c
}

// Hub owns all shared orchestration state. One mutex guards the device
// table, the per-device queues, the pending-job index, and the waiter
// table; traffic is human- and poll-rate, so a single lock is cheaper
// than fine-grained locking and rules out lost-wakeup races by
// construction. The completion history carries its own lock and is only
// ever acquired while holding the hub lock or with no lock at all.
type Hub struct {
	cfg Config
	log zerolog.Logger

	mu      sync.Mutex
	devices map[string]*device
	deleted map[string]bool // tombstones for Gone detection
	jobs    map[string]*Job // pending index: QUEUED and DISPATCHED jobs
	waiters map[string][]chan JobResult
	history *completionHistory

	reaperStop chan struct{}
	reaperDone chan struct{}
}

// New creates a Hub with the given configuration. Call Close when done
// if DispatchTimeout is set.
func New(cfg Config, log zerolog.Logger) *Hub {
	cfg = cfg.withDefaults()

	h := &Hub{
		cfg:     cfg,
		log:     log,
		devices: make(map[string]*device),
		deleted: make(map[string]bool),
		jobs:    make(map[string]*Job),
		waiters: make(map[string][]chan JobResult),
		history: newCompletionHistory(cfg.MaxCompleted),
	}

	if cfg.DispatchTimeout > 0 {
		h.reaperStop = make(chan struct{})
		h.reaperDone = make(chan struct{})
		go h.reapLoop()
	}
	return h
}

// Close stops the background reaper, if any.
func (h *Hub) Close() {
	if h.reaperStop != nil {
		close(h.reaperStop)
		<-h.reaperDone
	}
}

// Register creates a device or, when the id is already known, merges the
// supplied metadata and replaces the declared capabilities. The device's
// queue and history are untouched on re-registration. created reports
// whether a new device record was made.
func (h *Hub) Register(id string, caps []Capability, meta map[string]Value) (DeviceView, bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return DeviceView{}, false, fmt.Errorf("%w: device id is required", ErrInvalidArgument)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	d, exists := h.devices[id]
	if !exists {
		now := time.Now()
		d = &device{
			id:           id,
			capabilities: append([]Capability(nil), caps...),
			meta:         make(map[string]Value, len(meta)),
			registeredAt: now,
			lastSeen:     now,
			approved:     !h.cfg.RequireApproval,
		}
		h.devices[id] = d
		delete(h.deleted, id)
	} else {
		d.capabilities = append([]Capability(nil), caps...)
	}

	for k, v := range meta {
		d.meta[k] = v
	}
	normalizeDisplayName(d.meta)

	h.log.Info().
		Str("device_id", id).
		Bool("created", !exists).
		Int("capabilities", len(d.capabilities)).
		Msg("device registered")

	return d.view(), !exists, nil
}

// normalizeDisplayName trims the display name and drops it when blank.
func normalizeDisplayName(meta map[string]Value) {
	v, ok := meta[MetaDisplayName]
	if !ok {
		return
	}
	s, isStr := v.AsString()
	if !isStr || strings.TrimSpace(s) == "" {
		delete(meta, MetaDisplayName)
		return
	}
	meta[MetaDisplayName] = String(strings.TrimSpace(s))
}

// Device returns a snapshot of one device.
func (h *Hub) Device(id string) (DeviceView, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	d, ok := h.devices[id]
	if !ok {
		return DeviceView{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}
	return d.view(), nil
}

// Devices returns snapshots of all devices, sorted by id.
func (h *Hub) Devices() []DeviceView {
	h.mu.Lock()
	defer h.mu.Unlock()

	views := make([]DeviceView, 0, len(h.devices))
	for _, d := range h.devices {
		views = append(views, d.view())
	}
	sortDeviceViews(views)
	return views
}

// Rename sets or clears a device's display name. An empty name removes
// the metadata field. Rename is administrative and does not touch
// last_seen.
func (h *Hub) Rename(id, displayName string) (DeviceView, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	d, ok := h.devices[id]
	if !ok {
		return DeviceView{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}

	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		delete(d.meta, MetaDisplayName)
	} else {
		d.meta[MetaDisplayName] = String(displayName)
	}
	return d.view(), nil
}

// Approve marks a device eligible for job submission.
func (h *Hub) Approve(id string) (DeviceView, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	d, ok := h.devices[id]
	if !ok {
		return DeviceView{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}
	d.approved = true

	h.log.Info().Str("device_id", id).Msg("device approved")
	return d.view(), nil
}

// DeleteDevice removes a device and atomically discards its queue.
// Still-queued jobs are dropped from the pending index (GetJob will
// report NotFound) and their waiters are released with a failure result.
// Jobs already dispatched to the device remain resolvable by id.
func (h *Hub) DeleteDevice(id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	d, ok := h.devices[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}

	for _, j := range d.queue {
		delete(h.jobs, j.ID)
		h.notifyWaitersLocked(j.ID, JobResult{
			JobID:       j.ID,
			OK:          false,
			Error:       "device deleted",
			CompletedAt: time.Now(),
		})
	}

	delete(h.devices, id)
	h.deleted[id] = true

	h.log.Info().
		Str("device_id", id).
		Int("discarded_jobs", len(d.queue)).
		Msg("device deleted")
	return nil
}

// QueueDepth returns the number of queued jobs for a device.
func (h *Hub) QueueDepth(id string) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	d, ok := h.devices[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}
	return len(d.queue), nil
}

// Submit mints a job and appends it to the device's queue
// (fire-and-forget semantics).
func (h *Hub) Submit(deviceID string, cmd Command) (Job, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	j, err := h.enqueueLocked(deviceID, cmd)
	if err != nil {
		return Job{}, err
	}
	return j.snapshot(), nil
}

// SubmitAndWait mints a job, appends it to the device's queue, and
// blocks until a result is posted or the timeout elapses. The waiter is
// registered under the same critical section as the enqueue, so a result
// can never slip between submission and wait registration. On timeout
// the job is left untouched (the device may still complete it later) and
// the returned error wraps ErrWaitTimeout.
func (h *Hub) SubmitAndWait(ctx context.Context, deviceID string, cmd Command, timeout time.Duration) (Job, *JobResult, error) {
	timeout = h.clampWait(timeout)

	h.mu.Lock()
	j, err := h.enqueueLocked(deviceID, cmd)
	if err != nil {
		h.mu.Unlock()
		return Job{}, nil, err
	}
	snap := j.snapshot()
	ch := h.addWaiterLocked(j.ID)
	h.mu.Unlock()

	res, err := h.await(ctx, j.ID, ch, timeout)
	return snap, res, err
}

// WaitForResult blocks until the given job has a result or the timeout
// elapses. A job that already completed returns its stored result
// immediately; multiple concurrent waiters all receive the same result.
func (h *Hub) WaitForResult(ctx context.Context, jobID string, timeout time.Duration) (*JobResult, error) {
	timeout = h.clampWait(timeout)

	h.mu.Lock()
	if _, pending := h.jobs[jobID]; !pending {
		j, done := h.history.get(jobID)
		h.mu.Unlock()
		if !done {
			return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
		}
		return j.Result, nil
	}
	ch := h.addWaiterLocked(jobID)
	h.mu.Unlock()

	return h.await(ctx, jobID, ch, timeout)
}

// PollNext removes and returns the head of the device's queue,
// transitioning it to DISPATCHED. ok is false when the queue is empty,
// an expected outcome for polling devices rather than an error. Polling
// refreshes last_seen.
func (h *Hub) PollNext(deviceID string) (Job, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	d, exists := h.devices[deviceID]
	if !exists {
		return Job{}, false, fmt.Errorf("%w: %s", ErrDeviceNotFound, deviceID)
	}
	d.lastSeen = time.Now()

	if len(d.queue) == 0 {
		return Job{}, false, nil
	}

	j := d.queue[0]
	d.queue = d.queue[1:]
	j.State = JobDispatched
	j.DispatchedAt = time.Now()

	h.log.Debug().
		Str("device_id", deviceID).
		Str("job_id", j.ID).
		Str("command", j.Command.Name).
		Msg("job dispatched")
	return j.snapshot(), true, nil
}

// ReportResult records the outcome a device posts for a dispatched job.
// The job must be DISPATCHED and owned by the reporting device;
// anything else (unknown job, already completed, device mismatch) is
// a Conflict and leaves stored state untouched.
func (h *Hub) ReportResult(deviceID, jobID string, upload ResultUpload) error {
	if strings.TrimSpace(deviceID) == "" {
		return fmt.Errorf("%w: device id is required", ErrInvalidArgument)
	}
	if strings.TrimSpace(jobID) == "" {
		return fmt.Errorf("%w: job id is required", ErrInvalidArgument)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	j, pending := h.jobs[jobID]
	if !pending {
		if _, done := h.history.get(jobID); done {
			return fmt.Errorf("%w: job %s already completed", ErrConflict, jobID)
		}
		return fmt.Errorf("%w: unknown job %s", ErrConflict, jobID)
	}
	if j.State != JobDispatched {
		return fmt.Errorf("%w: job %s is %s, not dispatched", ErrConflict, jobID, j.State)
	}
	if j.DeviceID != deviceID {
		return fmt.Errorf("%w: job %s belongs to device %s", ErrConflict, jobID, j.DeviceID)
	}

	res := JobResult{
		JobID:       jobID,
		OK:          upload.OK,
		ReturnValue: upload.ReturnValue,
		Stdout:      upload.Stdout,
		Stderr:      upload.Stderr,
		Error:       upload.Error,
		CompletedAt: time.Now(),
	}
	h.completeLocked(j, JobCompleted, res)

	// A device that reports is alive, even if it was deleted after the
	// job was dispatched.
	if d, exists := h.devices[deviceID]; exists {
		d.lastSeen = res.CompletedAt
		d.lastResult = j.Result
	}

	h.log.Info().
		Str("device_id", deviceID).
		Str("job_id", jobID).
		Bool("ok", upload.OK).
		Msg("job result recorded")
	return nil
}

// CancelJob removes a still-queued job. A job a device has already
// claimed cannot be queue-cancelled; cancellation never reaches into a
// possibly-executing device.
func (h *Hub) CancelJob(jobID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	j, pending := h.jobs[jobID]
	if !pending {
		if _, done := h.history.get(jobID); done {
			return fmt.Errorf("%w: job %s", ErrAlreadyDispatched, jobID)
		}
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if j.State != JobQueued {
		return fmt.Errorf("%w: job %s", ErrAlreadyDispatched, jobID)
	}

	if d, exists := h.devices[j.DeviceID]; exists {
		for i, queued := range d.queue {
			if queued.ID == jobID {
				d.queue = append(d.queue[:i], d.queue[i+1:]...)
				break
			}
		}
	}

	h.completeLocked(j, JobCancelled, JobResult{
		JobID:       jobID,
		OK:          false,
		Error:       "job cancelled",
		CompletedAt: time.Now(),
	})

	h.log.Info().Str("job_id", jobID).Msg("job cancelled")
	return nil
}

// GetJob returns a job by id, consulting the pending index first and the
// completion history second.
func (h *Hub) GetJob(jobID string) (Job, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if j, pending := h.jobs[jobID]; pending {
		return j.snapshot(), nil
	}
	if j, done := h.history.get(jobID); done {
		return j.snapshot(), nil
	}
	return Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
}

// HistoryLen returns the number of retained terminal jobs.
func (h *Hub) HistoryLen() int {
	return h.history.len()
}

// enqueueLocked mints a job and appends it to the device queue. Caller
// must hold the hub mutex.
func (h *Hub) enqueueLocked(deviceID string, cmd Command) (*Job, error) {
	if strings.TrimSpace(deviceID) == "" {
		return nil, fmt.Errorf("%w: device id is required", ErrInvalidArgument)
	}
	if strings.TrimSpace(cmd.Name) == "" {
		return nil, fmt.Errorf("%w: command name is required", ErrInvalidArgument)
	}

	d, exists := h.devices[deviceID]
	if !exists {
		if h.deleted[deviceID] {
			return nil, fmt.Errorf("%w: %s", ErrDeviceGone, deviceID)
		}
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, deviceID)
	}
	if !d.approved {
		return nil, fmt.Errorf("%w (%s)", ErrNotApproved, deviceID)
	}

	j := &Job{
		ID:        uuid.New().String(),
		DeviceID:  deviceID,
		Command:   cmd,
		CreatedAt: time.Now(),
		State:     JobQueued,
	}
	d.queue = append(d.queue, j)
	h.jobs[j.ID] = j

	h.log.Debug().
		Str("device_id", deviceID).
		Str("job_id", j.ID).
		Str("command", cmd.Name).
		Int("queue_depth", len(d.queue)).
		Msg("job enqueued")
	return j, nil
}

// completeLocked transitions a pending job to a terminal state, records
// it in the history, and releases any waiters. Caller must hold the hub
// mutex.
func (h *Hub) completeLocked(j *Job, state JobState, res JobResult) {
	j.State = state
	j.Result = &res
	delete(h.jobs, j.ID)
	h.history.add(j)
	h.notifyWaitersLocked(j.ID, res)
}

// clampWait normalizes a caller-supplied wait timeout.
func (h *Hub) clampWait(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return h.cfg.DefaultWaitTimeout
	}
	if timeout > h.cfg.MaxWaitTimeout {
		return h.cfg.MaxWaitTimeout
	}
	return timeout
}

// reapLoop periodically completes jobs stuck in DISPATCHED beyond the
// configured age with a manufactured failure result.
func (h *Hub) reapLoop() {
	defer close(h.reaperDone)

	interval := h.cfg.DispatchTimeout / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.reaperStop:
			return
		case <-ticker.C:
			h.reapStale()
		}
	}
}

// reapStale manufactures timeout results for overdue dispatched jobs.
func (h *Hub) reapStale() {
	h.mu.Lock()
	defer h.mu.Unlock()

	cutoff := time.Now().Add(-h.cfg.DispatchTimeout)
	for _, j := range h.jobs {
		if j.State != JobDispatched || j.DispatchedAt.After(cutoff) {
			continue
		}
		h.completeLocked(j, JobCompleted, JobResult{
			JobID:       j.ID,
			OK:          false,
			Error:       "device result timeout",
			CompletedAt: time.Now(),
		})
		h.log.Warn().
			Str("job_id", j.ID).
			Str("device_id", j.DeviceID).
			Msg("dispatched job reaped after timeout")
	}
}
