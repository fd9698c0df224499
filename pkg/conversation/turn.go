package conversation

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ParseRole maps a wire role string to a Role. Unknown roles are rejected.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleSystem:
		return RoleSystem, nil
	case RoleUser:
		return RoleUser, nil
	case RoleAssistant:
		return RoleAssistant, nil
	default:
		return "", errors.Errorf("unknown role %q", s)
	}
}

// Turn is a single entry of a conversation. Turns are values and are never
// modified after being appended to a Conversation.
type Turn struct {
	Role      Role      `json:"role" yaml:"role"`
	Content   string    `json:"content" yaml:"content"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

func NewTurn(role Role, content string) Turn {
	return Turn{Role: role, Content: content, CreatedAt: time.Now()}
}

func NewSystemTurn(content string) Turn {
	return NewTurn(RoleSystem, content)
}

func NewUserTurn(content string) Turn {
	return NewTurn(RoleUser, content)
}

func NewAssistantTurn(content string) Turn {
	return NewTurn(RoleAssistant, content)
}

func (t Turn) String() string {
	return fmt.Sprintf("[%s]: %s", t.Role, strings.TrimRight(t.Content, "\n"))
}
