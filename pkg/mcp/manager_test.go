package mcp

import (
	"context"
	"sort"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/trustagent/pkg/config"
	"github.com/go-go-golems/trustagent/pkg/inference/tools"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	servers := map[string]config.MCPServerConfig{
		"fs":   {Command: "fs-server"},
		"echo": {Command: "echo-server"},
	}
	return NewManager(servers, tools.NewRegistry(), WithConnectFunc(connectInProcess))
}

func TestManagerStartAllRegistersTools(t *testing.T) {
	m := newTestManager(t)
	defer func() { _ = m.StopAll() }()

	require.NoError(t, m.StartAll(context.Background()))

	assert.Equal(t, []string{"echo", "fs"}, sortedNames(m.Registry().Names()))
	assert.Len(t, m.Registry().Descriptors(), 4)

	infos := m.Servers()
	require.Len(t, infos, 2)
	assert.Equal(t, "echo", infos[0].Name)
	assert.Equal(t, StatusRunning, infos[0].Status)
	assert.Equal(t, 2, infos[0].Tools)
	assert.Equal(t, "fs-server", infos[1].Command)
}

func TestManagerStopUnregisters(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	require.NoError(t, m.Start(ctx, "fs"))
	require.NoError(t, m.Start(ctx, "fs"))

	snap := m.Registry().Snapshot()
	require.NoError(t, m.Stop("fs"))
	require.NoError(t, m.Stop("fs"))

	_, ok := m.Registry().Backend("fs")
	assert.False(t, ok)
	assert.Empty(t, m.Registry().Descriptors())

	// a snapshot taken before the stop still resolves the backend, but it
	// reports itself disconnected.
	b, ok := snap.Backend("fs")
	require.True(t, ok)
	_, err := b.CallTool(ctx, "shout", nil)
	assert.True(t, errors.Is(err, tools.ErrBackendUnavailable))

	_, err = m.Tools("fs")
	assert.True(t, errors.Is(err, tools.ErrBackendUnavailable))
}

func TestManagerRecordsStartFailure(t *testing.T) {
	m := NewManager(
		map[string]config.MCPServerConfig{"broken": {Command: "nope"}},
		nil,
		WithConnectFunc(func(ctx context.Context, name string, cfg config.MCPServerConfig) (*Backend, error) {
			return nil, errors.New("exec: not found")
		}),
	)

	err := m.Start(context.Background(), "broken")
	require.Error(t, err)

	infos := m.Servers()
	require.Len(t, infos, 1)
	assert.Equal(t, StatusStopped, infos[0].Status)
	assert.Contains(t, infos[0].LastError, "not found")
}

func TestManagerUnknownServer(t *testing.T) {
	m := newTestManager(t)
	assert.Error(t, m.Start(context.Background(), "missing"))
	assert.Error(t, m.Stop("missing"))
	_, err := m.Tools("missing")
	assert.Error(t, err)
}

func sortedNames(names []string) []string {
	out := append([]string(nil), names...)
	sort.Strings(out)
	return out
}

func TestManagerStartAllRegistersInNameOrder(t *testing.T) {
	// both servers expose the same tools; alpha comes up last
	zetaUp := make(chan struct{})
	connect := func(ctx context.Context, name string, cfg config.MCPServerConfig) (*Backend, error) {
		if name == "alpha" {
			<-zetaUp
		}
		b, err := connectInProcess(ctx, name, cfg)
		if name == "zeta" {
			close(zetaUp)
		}
		return b, err
	}
	servers := map[string]config.MCPServerConfig{
		"zeta":  {Command: "zeta-server"},
		"alpha": {Command: "alpha-server"},
	}
	m := NewManager(servers, tools.NewRegistry(), WithConnectFunc(connect))
	defer func() { _ = m.StopAll() }()

	require.NoError(t, m.StartAll(context.Background()))

	assert.Equal(t, []string{"alpha", "zeta"}, m.Registry().Names())
	ds := m.Registry().Snapshot().Descriptors()
	require.Len(t, ds, 4)
	assert.Len(t, tools.Collisions(ds), 2)

	d, ok := tools.FindDescriptor(ds, "read_file")
	require.True(t, ok)
	assert.Equal(t, "alpha", d.BackendName)
}
