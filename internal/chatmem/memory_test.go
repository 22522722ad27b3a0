package chatmem

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranscriptKeepsOrder(t *testing.T) {
	tr := NewTranscript(10)
	tr.Add(RoleUser, "turn the led on")
	tr.Add(RoleAssistant, "done")

	msgs := tr.Messages()
	assert.Len(t, msgs, 2)
	assert.Equal(t, RoleUser, msgs[0].Role)
	assert.Equal(t, "turn the led on", msgs[0].Content)
	assert.Equal(t, RoleAssistant, msgs[1].Role)
}

func TestTranscriptEvictsOldest(t *testing.T) {
	tr := NewTranscript(3)
	for i := 0; i < 5; i++ {
		tr.Add(RoleUser, fmt.Sprintf("message %d", i))
	}

	msgs := tr.Messages()
	assert.Len(t, msgs, 3)
	assert.Equal(t, "message 2", msgs[0].Content)
	assert.Equal(t, "message 4", msgs[2].Content)
}

func TestTranscriptMessagesReturnsCopy(t *testing.T) {
	tr := NewTranscript(5)
	tr.Add(RoleUser, "original")

	msgs := tr.Messages()
	msgs[0].Content = "mutated"

	assert.Equal(t, "original", tr.Messages()[0].Content)
}

func TestTranscriptReset(t *testing.T) {
	tr := NewTranscript(5)
	tr.Add(RoleUser, "a")
	tr.Add(RoleAssistant, "b")
	tr.Reset()
	assert.Zero(t, tr.Len())
}

func TestTranscriptDefaultCap(t *testing.T) {
	tr := NewTranscript(0)
	for i := 0; i < DefaultMaxMessages+5; i++ {
		tr.Add(RoleUser, "x")
	}
	assert.Equal(t, DefaultMaxMessages, tr.Len())
}
