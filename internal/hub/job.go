package hub

import "time"

// JobState represents the lifecycle state of a job.
type JobState string

const (
	JobQueued     JobState = "QUEUED"
	JobDispatched JobState = "DISPATCHED"
	JobCompleted  JobState = "COMPLETED"
	JobCancelled  JobState = "CANCELLED"
)

// Terminal reports whether the state admits no further transitions.
func (s JobState) Terminal() bool {
	return s == JobCompleted || s == JobCancelled
}

// Command is the unit of work sent to a device: a capability name plus
// named arguments.
type Command struct {
	Name string           `json:"name"`
	Args map[string]Value `json:"args,omitempty"`
}

// Job is one command addressed to one device. A job lives in its device's
// queue while QUEUED, in the pending index alone while DISPATCHED, and in
// the completion history once terminal.
type Job struct {
	ID           string
	DeviceID     string
	Command      Command
	CreatedAt    time.Time
	DispatchedAt time.Time // zero until the device claims the job
	State        JobState
	Result       *JobResult // set once the job reaches a terminal state
}

// JobResult records the outcome a device reported (or the hub
// manufactured) for a job. Results are immutable once stored.
type JobResult struct {
	JobID       string
	OK          bool
	ReturnValue Value
	Stdout      string
	Stderr      string
	Error       string
	CompletedAt time.Time
}

// ResultUpload is the payload a device posts when reporting a job outcome.
type ResultUpload struct {
	OK          bool
	ReturnValue Value
	Stdout      string
	Stderr      string
	Error       string
}

// snapshot returns a copy of the job safe to hand outside the hub lock.
// The Result pointer is shared: results are write-once.
func (j *Job) snapshot() Job {
	out := *j
	if j.Command.Args != nil {
		args := make(map[string]Value, len(j.Command.Args))
		for k, v := range j.Command.Args {
			args[k] = v
		}
		out.Command.Args = args
	}
	return out
}
