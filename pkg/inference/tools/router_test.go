package tools

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/trustagent/pkg/events"
	"github.com/go-go-golems/trustagent/pkg/inference/engine"
)

type recordedCall struct {
	Name string
	Args map[string]any
}

type recordingBackend struct {
	calls     []recordedCall
	result    *CallResult
	err       error
	connected bool
	wait      time.Duration
}

func newRecordingBackend(payload any) *recordingBackend {
	return &recordingBackend{result: &CallResult{Payload: payload}, connected: true}
}

func (r *recordingBackend) CallTool(ctx context.Context, name string, args map[string]any) (*CallResult, error) {
	r.calls = append(r.calls, recordedCall{Name: name, Args: args})
	if r.wait > 0 {
		select {
		case <-time.After(r.wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return r.result, r.err
}

func (r *recordingBackend) Connected() bool {
	return r.connected
}

var fsDescriptors = []ToolDescriptor{
	{BackendName: "fs", ToolName: "read_file", Description: "reads a file"},
}

func TestRouteSuccess(t *testing.T) {
	fs := newRecordingBackend("hello")
	backends := NewSnapshot(map[string]Backend{"fs": fs}, fsDescriptors)
	sink := events.NewCollectingSink()
	ctx := events.WithEventSinks(context.Background(), sink)

	out, err := NewRouter().Route(ctx, Call{ToolName: "read_file", Arguments: json.RawMessage(`{"path":"a.txt"}`)}, fsDescriptors, backends)
	require.NoError(t, err)
	require.False(t, out.Failed)
	require.Equal(t, "hello", out.Text())
	require.Equal(t, "Tool result for 'read_file':\nhello", out.TurnContent())

	require.Len(t, fs.calls, 1)
	require.Equal(t, "read_file", fs.calls[0].Name)
	require.Equal(t, map[string]any{"path": "a.txt"}, fs.calls[0].Args)

	results := sink.OfType(events.EventTypeToolResult)
	require.Len(t, results, 1)
	require.Equal(t, "fs", results[0].(*events.EventToolResult).ToolResult.BackendName)
}

func TestRouteToolNotFoundMakesNoCall(t *testing.T) {
	fs := newRecordingBackend("hello")
	backends := NewSnapshot(map[string]Backend{"fs": fs}, fsDescriptors)

	_, err := NewRouter().Route(context.Background(), Call{ToolName: "delete_file"}, fsDescriptors, backends)
	require.ErrorIs(t, err, ErrToolNotFound)
	require.Empty(t, fs.calls)
}

func TestRouteBackendUnavailable(t *testing.T) {
	_, err := NewRouter().Route(context.Background(), Call{ToolName: "read_file"}, fsDescriptors, NewSnapshot(nil, nil))
	require.ErrorIs(t, err, ErrBackendUnavailable)

	fs := newRecordingBackend("hello")
	fs.connected = false
	_, err = NewRouter().Route(context.Background(), Call{ToolName: "read_file"}, fsDescriptors,
		NewSnapshot(map[string]Backend{"fs": fs}, fsDescriptors))
	require.ErrorIs(t, err, ErrBackendUnavailable)
	require.Empty(t, fs.calls)
}

func TestRouteBackendErrorWrappingUnavailableIsFatal(t *testing.T) {
	fs := newRecordingBackend(nil)
	fs.err = errors.Wrap(ErrBackendUnavailable, "client closed")

	_, err := NewRouter().Route(context.Background(), Call{ToolName: "read_file"}, fsDescriptors,
		NewSnapshot(map[string]Backend{"fs": fs}, fsDescriptors))
	require.ErrorIs(t, err, ErrBackendUnavailable)
}

func TestRouteFailuresAreData(t *testing.T) {
	fs := newRecordingBackend(nil)
	fs.err = errors.New("permission denied")
	backends := NewSnapshot(map[string]Backend{"fs": fs}, fsDescriptors)

	out, err := NewRouter().Route(context.Background(), Call{ToolName: "read_file"}, fsDescriptors, backends)
	require.NoError(t, err)
	require.True(t, out.Failed)
	require.Equal(t, "Tool execution failed: permission denied", out.Text())

	fs.err = nil
	fs.result = &CallResult{Payload: "no such file", IsError: true}
	out, err = NewRouter().Route(context.Background(), Call{ToolName: "read_file"}, fsDescriptors, backends)
	require.NoError(t, err)
	require.True(t, out.Failed)
	require.Equal(t, "Tool execution failed: no such file", out.Text())
}

func TestRouteNormalizesArguments(t *testing.T) {
	fs := newRecordingBackend("ok")
	backends := NewSnapshot(map[string]Backend{"fs": fs}, fsDescriptors)
	sink := events.NewCollectingSink()
	ctx := events.WithEventSinks(context.Background(), sink)
	r := NewRouter()

	for _, raw := range []string{"", "null", `[1,2]`, `"a.txt"`, `3`} {
		_, err := r.Route(ctx, Call{ToolName: "read_file", Arguments: json.RawMessage(raw)}, fsDescriptors, backends)
		require.NoError(t, err)
	}

	require.Len(t, fs.calls, 5)
	for _, c := range fs.calls {
		require.Nil(t, c.Args)
	}

	diags := sink.OfType(events.EventTypeDiagnostic)
	require.Len(t, diags, 3)
	for _, d := range diags {
		require.Equal(t, events.DiagnosticArgumentsNormalized, d.(*events.EventDiagnostic).Kind)
	}
}

func TestRouteTimeoutIsFailure(t *testing.T) {
	fs := newRecordingBackend("late")
	fs.wait = time.Second
	backends := NewSnapshot(map[string]Backend{"fs": fs}, fsDescriptors)
	r := NewRouter(WithRouterConfig(DefaultRouterConfig().WithTimeout(20 * time.Millisecond)))

	out, err := r.Route(context.Background(), Call{ToolName: "read_file"}, fsDescriptors, backends)
	require.NoError(t, err)
	require.True(t, out.Failed)
	require.Contains(t, out.Failure, "timed out")
}

func TestRouteCancelledContextIsTransportError(t *testing.T) {
	fs := newRecordingBackend("late")
	fs.wait = time.Second
	backends := NewSnapshot(map[string]Backend{"fs": fs}, fsDescriptors)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := NewRouter().Route(ctx, Call{ToolName: "read_file"}, fsDescriptors, backends)
	require.ErrorIs(t, err, engine.ErrTransport)
}

func TestRouteValidatesArguments(t *testing.T) {
	fs := newRecordingBackend("ok")
	descs := []ToolDescriptor{{
		BackendName: "fs",
		ToolName:    "read_file",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"path":{"type":"string"}},"required":["path"]}`),
	}}
	backends := NewSnapshot(map[string]Backend{"fs": fs}, descs)
	r := NewRouter(WithRouterConfig(DefaultRouterConfig().WithValidateArguments(true)))

	out, err := r.Route(context.Background(), Call{ToolName: "read_file", Arguments: json.RawMessage(`{}`)}, descs, backends)
	require.NoError(t, err)
	require.True(t, out.Failed)
	require.Contains(t, out.Failure, "path")
	require.Empty(t, fs.calls)

	out, err = r.Route(context.Background(), Call{ToolName: "read_file", Arguments: json.RawMessage(`{"path":"a.txt"}`)}, descs, backends)
	require.NoError(t, err)
	require.False(t, out.Failed)
	require.Len(t, fs.calls, 1)
}

func TestRouteFirstMatchWins(t *testing.T) {
	a, b := newRecordingBackend("from a"), newRecordingBackend("from b")
	descs := []ToolDescriptor{
		{BackendName: "a", ToolName: "search"},
		{BackendName: "b", ToolName: "search"},
	}
	backends := NewSnapshot(map[string]Backend{"a": a, "b": b}, descs)

	out, err := NewRouter().Route(context.Background(), Call{ToolName: "search"}, descs, backends)
	require.NoError(t, err)
	require.Equal(t, "from a", out.Text())
	require.Empty(t, b.calls)
}
