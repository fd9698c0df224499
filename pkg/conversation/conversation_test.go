package conversation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewConversationDoesNotAliasHistory(t *testing.T) {
	history := []Turn{NewSystemTurn("sys"), NewUserTurn("hi")}

	c := NewConversation(history...)
	c.Append(NewAssistantTurn("hello"))
	history[1].Content = "changed"

	turns := c.Turns()
	require.Len(t, turns, 3)
	require.Equal(t, "hi", turns[1].Content)
	require.Len(t, history, 2)
}

func TestConversationTurnsReturnsCopy(t *testing.T) {
	c := NewConversation(NewUserTurn("a"))

	turns := c.Turns()
	turns[0].Content = "b"

	last, ok := c.Last()
	require.True(t, ok)
	require.Equal(t, "a", last.Content)
}

func TestConversationCloneIsIndependent(t *testing.T) {
	c := NewConversation(NewUserTurn("a"))
	cl := c.Clone()
	cl.Append(NewAssistantTurn("b"))

	require.Equal(t, 1, c.Len())
	require.Equal(t, 2, cl.Len())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "history.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`[{"role":"user","content":"hi"},{"role":"Assistant","content":"hello"}]`), 0o600))
	turns, err := LoadFromFile(jsonPath)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	require.Equal(t, RoleAssistant, turns[1].Role)

	yamlPath := filepath.Join(dir, "history.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("- role: system\n  content: be brief\n"), 0o600))
	turns, err = LoadFromFile(yamlPath)
	require.NoError(t, err)
	require.Equal(t, RoleSystem, turns[0].Role)

	badPath := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(badPath, []byte(`[{"role":"tool","content":"x"}]`), 0o600))
	_, err = LoadFromFile(badPath)
	require.Error(t, err)

	_, err = LoadFromFile(filepath.Join(dir, "history.txt"))
	require.Error(t, err)
}
