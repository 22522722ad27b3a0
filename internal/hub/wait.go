package hub

import (
	"context"
	"fmt"
	"time"
)

// addWaiterLocked registers a result channel for a job. The channel is
// buffered so completion never blocks on a slow or departed waiter.
// Caller must hold the hub mutex.
func (h *Hub) addWaiterLocked(jobID string) chan JobResult {
	ch := make(chan JobResult, 1)
	h.waiters[jobID] = append(h.waiters[jobID], ch)
	return ch
}

// removeWaiter drops one waiter channel for a job, used when a wait
// gives up before a result arrives.
func (h *Hub) removeWaiter(jobID string, ch chan JobResult) {
	h.mu.Lock()
	defer h.mu.Unlock()

	chans := h.waiters[jobID]
	for i, c := range chans {
		if c == ch {
			chans = append(chans[:i], chans[i+1:]...)
			break
		}
	}
	if len(chans) == 0 {
		delete(h.waiters, jobID)
	} else {
		h.waiters[jobID] = chans
	}
}

// notifyWaitersLocked delivers a result to every waiter registered for
// the job. Each channel has capacity one and receives exactly one send,
// so delivery never blocks. Caller must hold the hub mutex.
func (h *Hub) notifyWaitersLocked(jobID string, res JobResult) {
	for _, ch := range h.waiters[jobID] {
		ch <- res
	}
	delete(h.waiters, jobID)
}

// await blocks on a registered waiter channel until a result arrives,
// the timeout elapses, or the context is cancelled. On timeout or
// cancellation the waiter is deregistered; a result that raced the timer
// is still preferred over the error.
func (h *Hub) await(ctx context.Context, jobID string, ch chan JobResult, timeout time.Duration) (*JobResult, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		return &res, nil
	case <-timer.C:
		h.removeWaiter(jobID, ch)
		select {
		case res := <-ch:
			return &res, nil
		default:
		}
		return nil, fmt.Errorf("%w: no result for job %s within %s", ErrWaitTimeout, jobID, timeout)
	case <-ctx.Done():
		h.removeWaiter(jobID, ch)
		select {
		case res := <-ch:
			return &res, nil
		default:
		}
		return nil, ctx.Err()
	}
}
