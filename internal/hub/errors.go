package hub

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument reports a malformed identifier or payload. The
	// caller's input is at fault; retrying without changes will not help.
	ErrInvalidArgument = errors.New("hub: invalid argument")

	// ErrDeviceNotFound reports an unknown device id.
	ErrDeviceNotFound = errors.New("hub: device not found")

	// ErrJobNotFound reports a job id absent from both the pending index
	// and the completion history (evicted or never issued).
	ErrJobNotFound = errors.New("hub: job not found")

	// ErrConflict reports an operation against a job in the wrong state,
	// such as a result upload for a job that is not dispatched or that
	// belongs to a different device.
	ErrConflict = errors.New("hub: conflict")

	// ErrDeviceGone reports a device that was registered once but has
	// since been deleted.
	ErrDeviceGone = errors.New("hub: device deleted")

	// ErrAlreadyDispatched reports a cancellation attempt on a job that a
	// device has already claimed. Once a device may be executing the
	// command there is no way to stop it.
	ErrAlreadyDispatched = errors.New("hub: job already dispatched")

	// ErrWaitTimeout reports that a synchronous wait gave up before a
	// result arrived. The job itself is untouched and may still complete.
	ErrWaitTimeout = errors.New("hub: wait timed out")
)

// ErrNotApproved is a Conflict: the device exists but has not been approved
// for job submission.
var ErrNotApproved = fmt.Errorf("%w: device not approved", ErrConflict)
