package mcp

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/trustagent/pkg/config"
	"github.com/go-go-golems/trustagent/pkg/inference/tools"
)

type ServerStatus string

const (
	StatusRunning ServerStatus = "running"
	StatusStopped ServerStatus = "stopped"
)

// ServerInfo is the state of one configured server.
type ServerInfo struct {
	Name    string       `json:"name" yaml:"name"`
	Command string       `json:"command" yaml:"command"`
	Status  ServerStatus `json:"status" yaml:"status"`
	Tools   int          `json:"tools" yaml:"tools"`
	// LastError is the error of the last failed start, if any.
	LastError string `json:"last_error,omitempty" yaml:"last_error,omitempty"`
}

// ConnectFunc starts and connects one server.
type ConnectFunc func(ctx context.Context, name string, cfg config.MCPServerConfig) (*Backend, error)

// Manager starts and stops the configured servers and keeps the shared tool
// registry in sync: running servers are registered, stopped ones are not.
type Manager struct {
	mu       sync.Mutex
	servers  map[string]config.MCPServerConfig
	running  map[string]*Backend
	starting map[string]bool
	lastErr  map[string]string

	registry *tools.Registry
	connect  ConnectFunc
}

type ManagerOption func(*Manager)

// WithConnectFunc replaces the stdio launcher.
func WithConnectFunc(f ConnectFunc) ManagerOption {
	return func(m *Manager) {
		m.connect = f
	}
}

func NewManager(servers map[string]config.MCPServerConfig, registry *tools.Registry, options ...ManagerOption) *Manager {
	m := &Manager{
		servers:  map[string]config.MCPServerConfig{},
		running:  map[string]*Backend{},
		starting: map[string]bool{},
		lastErr:  map[string]string{},
		registry: registry,
		connect:  NewStdioBackend,
	}
	for name, cfg := range servers {
		m.servers[name] = cfg
	}
	if m.registry == nil {
		m.registry = tools.NewRegistry()
	}
	for _, o := range options {
		o(m)
	}
	return m
}

func (m *Manager) Registry() *tools.Registry {
	return m.registry
}

// Start launches the named server and registers its tools. Starting a
// running server is a no-op. The lock is not held while the server starts.
func (m *Manager) Start(ctx context.Context, name string) error {
	b, err := m.connectServer(ctx, name)
	if err != nil || b == nil {
		return err
	}
	return m.register(name, b)
}

// connectServer connects name. It returns a nil backend when the server is
// already running or starting.
func (m *Manager) connectServer(ctx context.Context, name string) (*Backend, error) {
	m.mu.Lock()
	cfg, ok := m.servers[name]
	if !ok {
		m.mu.Unlock()
		return nil, errors.Errorf("unknown server %s", name)
	}
	if _, running := m.running[name]; running || m.starting[name] {
		m.mu.Unlock()
		return nil, nil
	}
	m.starting[name] = true
	m.mu.Unlock()

	log.Debug().Str("server", name).Str("command", cfg.Command).Strs("args", cfg.Args).Msg("starting MCP server")
	b, err := m.connect(ctx, name, cfg)
	if err != nil {
		m.mu.Lock()
		delete(m.starting, name)
		m.lastErr[name] = err.Error()
		m.mu.Unlock()
		log.Warn().Err(err).Str("server", name).Msg("could not start MCP server")
		return nil, errors.Wrapf(err, "could not start %s", name)
	}
	return b, nil
}

func (m *Manager) register(name string, b *Backend) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.starting, name)
	delete(m.lastErr, name)

	if err := m.registry.Register(name, b, b.Descriptors()); err != nil {
		_ = b.Close()
		return err
	}
	m.running[name] = b
	return nil
}

// StartAll connects every configured server concurrently, then registers the
// ones that came up in name order, so that tool name collisions always
// resolve to the same server.
func (m *Manager) StartAll(ctx context.Context) error {
	names := m.names()
	backends := make([]*Backend, len(names))

	var g errgroup.Group
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			b, err := m.connectServer(ctx, name)
			backends[i] = b
			return err
		})
	}
	err := g.Wait()

	for i, name := range names {
		if backends[i] == nil {
			continue
		}
		if rerr := m.register(name, backends[i]); rerr != nil && err == nil {
			err = rerr
		}
	}
	return err
}

// StopAll stops every running server.
func (m *Manager) StopAll() error {
	var ret error
	for _, name := range m.names() {
		if err := m.Stop(name); err != nil && ret == nil {
			ret = err
		}
	}
	return ret
}

// Servers lists the configured servers, sorted by name.
func (m *Manager) Servers() []ServerInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	ret := make([]ServerInfo, 0, len(m.servers))
	for name, cfg := range m.servers {
		info := ServerInfo{
			Name:      name,
			Command:   cfg.Command,
			Status:    StatusStopped,
			LastError: m.lastErr[name],
		}
		if b, ok := m.running[name]; ok && b.Connected() {
			info.Status = StatusRunning
			info.Tools = len(b.descriptors)
		}
		ret = append(ret, info)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Name < ret[j].Name })
	return ret
}

// Tools returns the tools of a running server.
func (m *Manager) Tools(name string) ([]tools.ToolDescriptor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.servers[name]; !ok {
		return nil, errors.Errorf("unknown server %s", name)
	}
	b, ok := m.running[name]
	if !ok {
		return nil, errors.Wrapf(tools.ErrBackendUnavailable, "%s is not running", name)
	}
	return b.Descriptors(), nil
}

func (m *Manager) names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.servers))
	for name := range m.servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
