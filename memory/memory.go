// Package memory keeps a bounded window of conversation history so
// follow-up questions retain context without unbounded growth.
package memory

import (
	"sync"
	"time"
)

// DefaultCapacity is the conversation window used when none is given.
const DefaultCapacity = 10

// Turn is one utterance in a conversation.
type Turn struct {
	Role    string
	Content string
	At      time.Time
}

// Conversation is a fixed-capacity FIFO window of turns. When full,
// adding a turn evicts the oldest. Safe for concurrent use; under
// concurrency, ordering is the order in which AddTurn calls complete.
type Conversation struct {
	mu    sync.Mutex
	turns []Turn
	cap   int
	now   func() time.Time
}

// NewConversation builds a window holding at most capacity turns.
// Non-positive capacity selects DefaultCapacity.
func NewConversation(capacity int) *Conversation {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Conversation{
		turns: make([]Turn, 0, capacity),
		cap:   capacity,
		now:   time.Now,
	}
}

// AddTurn appends a turn, evicting the oldest when the window is full.
func (c *Conversation) AddTurn(role, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.turns) == c.cap {
		copy(c.turns, c.turns[1:])
		c.turns = c.turns[:c.cap-1]
	}
	c.turns = append(c.turns, Turn{Role: role, Content: content, At: c.now()})
}

// History returns the retained turns oldest-first. The slice is a copy.
func (c *Conversation) History() []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Len reports the number of retained turns.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns)
}

// Clear drops all retained turns.
func (c *Conversation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = c.turns[:0]
}
