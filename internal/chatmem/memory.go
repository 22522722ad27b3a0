// Package chatmem keeps a bounded rolling transcript of the assistant
// conversation so follow-up messages carry context.
package chatmem

import (
	"sync"
	"time"
)

// DefaultMaxMessages is the number of messages kept verbatim. Older
// messages fall off the front of the transcript.
const DefaultMaxMessages = 20

// Role identifies who produced a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single turn in the transcript.
type Message struct {
	Role    Role
	Content string
	At      time.Time
}

// Transcript is a concurrency-safe rolling message buffer.
type Transcript struct {
	mu   sync.Mutex
	max  int
	msgs []Message
}

// NewTranscript creates a transcript holding at most max messages.
// Non-positive max uses DefaultMaxMessages.
func NewTranscript(max int) *Transcript {
	if max <= 0 {
		max = DefaultMaxMessages
	}
	return &Transcript{max: max}
}

// Add appends a message, evicting the oldest if the buffer is full.
func (t *Transcript) Add(role Role, content string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.msgs = append(t.msgs, Message{Role: role, Content: content, At: time.Now()})
	if len(t.msgs) > t.max {
		// Shift rather than reslice so the backing array does not
		// pin evicted messages.
		n := copy(t.msgs, t.msgs[len(t.msgs)-t.max:])
		t.msgs = t.msgs[:n]
	}
}

// Messages returns a copy of the current transcript, oldest first.
func (t *Transcript) Messages() []Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Message, len(t.msgs))
	copy(out, t.msgs)
	return out
}

// Len returns the number of messages currently held.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.msgs)
}

// Reset discards the whole transcript.
func (t *Transcript) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.msgs = nil
}
