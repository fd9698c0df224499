package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistrySnapshotIsIsolated(t *testing.T) {
	r := NewRegistry()
	fs := newRecordingBackend("x")
	require.NoError(t, r.Register("fs", fs, []ToolDescriptor{{ToolName: "read_file"}}))
	require.NoError(t, r.Register("web", newRecordingBackend("y"), []ToolDescriptor{{ToolName: "fetch"}}))

	snap := r.Snapshot()
	r.Unregister("fs")

	b, ok := snap.Backend("fs")
	require.True(t, ok)
	require.Equal(t, fs, b)

	_, ok = r.Backend("fs")
	require.False(t, ok)
	require.Equal(t, []string{"web"}, r.Names())

	ds := snap.Descriptors()
	require.Len(t, ds, 2)
	require.Equal(t, "fs", ds[0].BackendName)
	require.Equal(t, "fs/read_file", ds[0].Key())
	require.Equal(t, "web", ds[1].BackendName)
}

func TestRegistryRejectsInvalid(t *testing.T) {
	r := NewRegistry()
	require.Error(t, r.Register("", newRecordingBackend(nil), nil))
	require.Error(t, r.Register("fs", nil, nil))
	r.Unregister("unknown")
}

func TestCollisions(t *testing.T) {
	descs := []ToolDescriptor{
		{BackendName: "a", ToolName: "search"},
		{BackendName: "b", ToolName: "read"},
		{BackendName: "c", ToolName: "search"},
		{BackendName: "d", ToolName: "search"},
	}
	cs := Collisions(descs)
	require.Len(t, cs, 1)
	require.Equal(t, "search", cs[0].ToolName)
	require.Equal(t, "a", cs[0].Winner)
	require.Equal(t, []string{"c", "d"}, cs[0].Shadowed)

	require.Empty(t, Collisions(descs[:2]))
}

func TestOutcomeText(t *testing.T) {
	require.Equal(t, `{"n":1}`, Success("t", "b", map[string]int{"n": 1}).Text())
	require.Equal(t, "plain", Success("t", "b", "plain").Text())
	require.Equal(t, "null", Success("t", "b", nil).Text())
	require.Equal(t, "Tool execution failed: boom", Failure("t", "b", "boom").Text())
}

type echoInput struct {
	Text string `json:"text" jsonschema:"required"`
}

func TestLocalBackend(t *testing.T) {
	l := NewLocalBackend()
	require.NoError(t, l.AddTool("echo", "echoes text", &echoInput{}, func(_ context.Context, args map[string]any) (any, error) {
		return args["text"], nil
	}))
	require.Error(t, l.AddTool("echo", "dup", nil, func(context.Context, map[string]any) (any, error) { return nil, nil }))

	ds := l.Descriptors()
	require.Len(t, ds, 1)
	require.Contains(t, string(ds[0].InputSchema), `"text"`)

	res, err := l.CallTool(context.Background(), "echo", map[string]any{"text": "hi"})
	require.NoError(t, err)
	require.Equal(t, "hi", res.Payload)

	res, err = l.CallTool(context.Background(), "missing", nil)
	require.NoError(t, err)
	require.True(t, res.IsError)
}
