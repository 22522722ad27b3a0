package hub

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func terminalJob(id string) *Job {
	return &Job{ID: id, State: JobCompleted, Result: &JobResult{JobID: id, OK: true}}
}

func TestCompletionHistoryRing(t *testing.T) {
	h := newCompletionHistory(3)

	for i := 0; i < 3; i++ {
		h.add(terminalJob(fmt.Sprintf("job-%d", i)))
	}
	assert.Equal(t, 3, h.len())
	assert.Equal(t, "job-0", h.oldest())

	// A fourth insertion evicts exactly the oldest entry.
	h.add(terminalJob("job-3"))
	assert.Equal(t, 3, h.len())
	assert.Equal(t, "job-1", h.oldest())

	_, ok := h.get("job-0")
	assert.False(t, ok)
	for _, id := range []string{"job-1", "job-2", "job-3"} {
		j, ok := h.get(id)
		assert.True(t, ok)
		assert.Equal(t, id, j.ID)
	}
}

func TestCompletionHistoryMinimumCapacity(t *testing.T) {
	h := newCompletionHistory(0)

	h.add(terminalJob("a"))
	h.add(terminalJob("b"))
	assert.Equal(t, 1, h.len())

	_, ok := h.get("a")
	assert.False(t, ok)
	_, ok = h.get("b")
	assert.True(t, ok)
}
