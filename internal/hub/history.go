package hub

import "sync"

// completionHistory is a bounded ring buffer of terminal jobs with a
// job-id index for O(1) lookup. Insertion beyond capacity evicts exactly
// the oldest entry, together with its index mapping.
type completionHistory struct {
	mu    sync.Mutex
	buf   []*Job
	head  int // index of the oldest entry
	size  int
	index map[string]*Job
}

func newCompletionHistory(max int) *completionHistory {
	if max < 1 {
		max = 1
	}
	return &completionHistory{
		buf:   make([]*Job, max),
		index: make(map[string]*Job, max),
	}
}

// add records a terminal job, evicting the oldest entry when full.
func (h *completionHistory) add(j *Job) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.size == len(h.buf) {
		oldest := h.buf[h.head]
		delete(h.index, oldest.ID)
		h.buf[h.head] = j
		h.head = (h.head + 1) % len(h.buf)
	} else {
		h.buf[(h.head+h.size)%len(h.buf)] = j
		h.size++
	}
	h.index[j.ID] = j
}

// get returns the stored job by id.
func (h *completionHistory) get(id string) (*Job, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	j, ok := h.index[id]
	return j, ok
}

// len returns the number of retained entries.
func (h *completionHistory) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.size
}

// oldest returns the id of the oldest retained entry, or "".
func (h *completionHistory) oldest() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.size == 0 {
		return ""
	}
	return h.buf[h.head].ID
}
