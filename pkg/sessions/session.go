// Package sessions persists chat sessions in SQLite.
package sessions

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/go-go-golems/trustagent/pkg/conversation"
)

const (
	DefaultTitle   = "New Chat"
	titleMaxLength = 20
)

type Message struct {
	Role      conversation.Role `json:"role" yaml:"role"`
	Content   string            `json:"content" yaml:"content"`
	Timestamp time.Time         `json:"timestamp" yaml:"timestamp"`
}

type Session struct {
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	Messages  []Message `json:"messages" yaml:"messages"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// New returns an empty session titled DefaultTitle.
func New() *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.NewString(),
		Title:     DefaultTitle,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Append adds a message stamped with the current time and bumps UpdatedAt.
func (s *Session) Append(role conversation.Role, content string) {
	now := time.Now()
	s.Messages = append(s.Messages, Message{Role: role, Content: content, Timestamp: now})
	s.UpdatedAt = now
}

func (s *Session) IsEmpty() bool {
	return len(s.Messages) == 0
}

// Turns converts the messages to conversation turns.
func (s *Session) Turns() []conversation.Turn {
	ret := make([]conversation.Turn, 0, len(s.Messages))
	for _, m := range s.Messages {
		ret = append(ret, conversation.Turn{Role: m.Role, Content: m.Content, CreatedAt: m.Timestamp})
	}
	return ret
}

// GenerateTitle derives a title from the first user message: trimmed, and cut
// to 20 characters followed by "..." when longer. Without a user message the
// title is DefaultTitle.
func GenerateTitle(messages []Message) string {
	for _, m := range messages {
		if m.Role != conversation.RoleUser {
			continue
		}
		t := strings.TrimSpace(m.Content)
		r := []rune(t)
		if len(r) > titleMaxLength {
			return string(r[:titleMaxLength]) + "..."
		}
		return t
	}
	return DefaultTitle
}
