package sessions

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/go-go-golems/trustagent/pkg/conversation"
)

func TestGenerateTitle(t *testing.T) {
	msg := func(role conversation.Role, content string) Message {
		return Message{Role: role, Content: content}
	}

	assert.Equal(t, DefaultTitle, GenerateTitle(nil))
	assert.Equal(t, DefaultTitle, GenerateTitle([]Message{msg(conversation.RoleSystem, "be nice")}))
	assert.Equal(t, "hello", GenerateTitle([]Message{
		msg(conversation.RoleSystem, "be nice"),
		msg(conversation.RoleUser, "  hello \n"),
		msg(conversation.RoleUser, "second"),
	}))
	assert.Equal(t, "exactly twenty chars", GenerateTitle([]Message{msg(conversation.RoleUser, "exactly twenty chars")}))
	assert.Equal(t, "what files are in my...", GenerateTitle([]Message{msg(conversation.RoleUser, "what files are in my home directory")}))
	assert.Equal(t, strings.Repeat("é", 20)+"...", GenerateTitle([]Message{msg(conversation.RoleUser, strings.Repeat("é", 22))}))
}

func TestSessionTurns(t *testing.T) {
	s := New()
	assert.True(t, s.IsEmpty())
	s.Append(conversation.RoleUser, "q")
	s.Append(conversation.RoleAssistant, "a")
	assert.False(t, s.IsEmpty())

	turns := s.Turns()
	assert.Len(t, turns, 2)
	assert.Equal(t, conversation.RoleAssistant, turns[1].Role)
	assert.Equal(t, "a", turns[1].Content)
	assert.False(t, s.UpdatedAt.Before(s.CreatedAt))
}
