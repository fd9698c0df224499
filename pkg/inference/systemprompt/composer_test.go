package systemprompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/trustagent/pkg/conversation"
	"github.com/go-go-golems/trustagent/pkg/inference/tools"
)

func TestComposeWithoutTools(t *testing.T) {
	p := Compose(nil)
	require.Equal(t, GenericInstruction, p)
	require.NotContains(t, p, "tool_name")
}

func TestComposeListsToolsInOrder(t *testing.T) {
	p := Compose([]tools.ToolDescriptor{
		{BackendName: "fs", ToolName: "read_file", Description: "reads a file"},
		{BackendName: "web", ToolName: "fetch", Description: "fetches a URL"},
	})

	require.Contains(t, p, "- read_file: reads a file\n- fetch: fetches a URL\n")
	require.Less(t, strings.Index(p, "read_file"), strings.Index(p, "fetch"))
	require.Contains(t, p, `"tool_name"`)
	require.Contains(t, p, `"arguments"`)
	require.Contains(t, p, "markdown")
}

func TestComposeIsPure(t *testing.T) {
	ds := []tools.ToolDescriptor{{ToolName: "a", Description: "b"}}
	require.Equal(t, Compose(ds), Compose(ds))
}

func TestEnsureInsertsSystemTurn(t *testing.T) {
	history := []conversation.Turn{conversation.NewUserTurn("hi")}
	out := Ensure(history, "prompt")

	require.Len(t, out, 2)
	require.Equal(t, conversation.RoleSystem, out[0].Role)
	require.Equal(t, "prompt", out[0].Content)
	require.Equal(t, "hi", out[1].Content)
	require.Len(t, history, 1)
}

func TestEnsureAppendsToCallerSystemTurn(t *testing.T) {
	history := []conversation.Turn{
		conversation.NewSystemTurn("be brief"),
		conversation.NewUserTurn("hi"),
		conversation.NewSystemTurn("late instruction"),
		conversation.NewAssistantTurn("hello"),
	}
	out := Ensure(history, "prompt")

	require.Len(t, out, 3)
	require.Equal(t, "be brief\n\nprompt", out[0].Content)
	require.Equal(t, conversation.RoleUser, out[1].Role)
	require.Equal(t, conversation.RoleAssistant, out[2].Role)
	require.Equal(t, "be brief", history[0].Content)
}

func TestEnsureDropsSystemTurnNotInFirstPosition(t *testing.T) {
	history := []conversation.Turn{
		conversation.NewUserTurn("hi"),
		conversation.NewSystemTurn("late"),
	}
	out := Ensure(history, "prompt")

	require.Len(t, out, 2)
	require.Equal(t, "prompt", out[0].Content)
	require.Equal(t, "hi", out[1].Content)
}
