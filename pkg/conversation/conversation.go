package conversation

import (
	"sync"
)

// Conversation is an ordered, append-only list of turns. The order of the turns
// is the order in which they are replayed to the completion endpoint.
//
// A Conversation is safe for concurrent use, but a single agent run only ever
// appends from one goroutine.
type Conversation struct {
	mu    sync.RWMutex
	turns []Turn
}

// NewConversation creates a conversation seeded with a copy of history. The
// caller's slice is never retained.
func NewConversation(history ...Turn) *Conversation {
	c := &Conversation{}
	if len(history) > 0 {
		c.turns = make([]Turn, len(history))
		copy(c.turns, history)
	}
	return c
}

// Append adds turns at the end of the conversation.
func (c *Conversation) Append(turns ...Turn) {
	if len(turns) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, turns...)
}

// Turns returns a copy of all turns in conversation order.
func (c *Conversation) Turns() []Turn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.turns)
}

// Last returns the most recently appended turn.
func (c *Conversation) Last() (Turn, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.turns) == 0 {
		return Turn{}, false
	}
	return c.turns[len(c.turns)-1], true
}

// Clone returns an independent conversation holding the same turns.
func (c *Conversation) Clone() *Conversation {
	return NewConversation(c.Turns()...)
}

// Window returns the bounded projection of the conversation, see SelectWindow.
func (c *Conversation) Window(size int) []Turn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return SelectWindow(c.turns, size)
}
