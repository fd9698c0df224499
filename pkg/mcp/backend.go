// Package mcp connects Model Context Protocol servers as tool backends.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/mark3labs/mcp-go/client"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/trustagent/pkg/config"
	"github.com/go-go-golems/trustagent/pkg/inference/tools"
)

const (
	ClientName    = "trustagent"
	ClientVersion = "0.1.0"

	pingTimeout = 2 * time.Second
)

// Backend is a connected MCP server. It implements tools.Backend.
type Backend struct {
	name        string
	client      *client.Client
	connected   atomic.Bool
	serverName  string
	serverVer   string
	descriptors []tools.ToolDescriptor
}

// NewStdioBackend launches cfg.Command and connects to it over stdio.
func NewStdioBackend(ctx context.Context, name string, cfg config.MCPServerConfig) (*Backend, error) {
	c, err := client.NewStdioMCPClient(cfg.Command, cfg.Env, cfg.Args...)
	if err != nil {
		return nil, errors.Wrapf(err, "could not launch %s (%s)", name, cfg.Command)
	}
	b, err := Connect(ctx, name, c)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	return b, nil
}

// Connect performs the MCP handshake on an already started client and
// discovers its tools.
func Connect(ctx context.Context, name string, c *client.Client) (*Backend, error) {
	req := mcpgo.InitializeRequest{}
	req.Params.ProtocolVersion = mcpgo.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcpgo.Implementation{
		Name:    ClientName,
		Version: ClientVersion,
	}

	res, err := c.Initialize(ctx, req)
	if err != nil {
		return nil, errors.Wrapf(err, "could not initialize %s", name)
	}

	b := &Backend{
		name:       name,
		client:     c,
		serverName: res.ServerInfo.Name,
		serverVer:  res.ServerInfo.Version,
	}

	listed, err := c.ListTools(ctx, mcpgo.ListToolsRequest{})
	if err != nil {
		return nil, errors.Wrapf(err, "could not list tools of %s", name)
	}
	for _, t := range listed.Tools {
		b.descriptors = append(b.descriptors, tools.ToolDescriptor{
			BackendName: name,
			ToolName:    t.Name,
			Description: t.Description,
			InputSchema: inputSchema(t),
		})
	}
	b.connected.Store(true)

	log.Info().Str("backend", name).Str("server", b.serverName).Str("server_version", b.serverVer).
		Int("tools", len(b.descriptors)).Msg("connected MCP server")
	return b, nil
}

func inputSchema(t mcpgo.Tool) json.RawMessage {
	if len(t.RawInputSchema) > 0 {
		return t.RawInputSchema
	}
	b, err := json.Marshal(t.InputSchema)
	if err != nil {
		return nil
	}
	return b
}

func (b *Backend) Name() string {
	return b.name
}

// ServerInfo is the name and version reported by the server.
func (b *Backend) ServerInfo() (string, string) {
	return b.serverName, b.serverVer
}

// Descriptors returns the tools discovered at connect time.
func (b *Backend) Descriptors() []tools.ToolDescriptor {
	return append([]tools.ToolDescriptor(nil), b.descriptors...)
}

func (b *Backend) Connected() bool {
	return b.connected.Load()
}

// CallTool invokes a tool. A call on a closed backend, or a failed call after
// which the server no longer answers pings, wraps tools.ErrBackendUnavailable.
func (b *Backend) CallTool(ctx context.Context, name string, args map[string]any) (*tools.CallResult, error) {
	if !b.Connected() {
		return nil, errors.Wrapf(tools.ErrBackendUnavailable, "%s is closed", b.name)
	}

	req := mcpgo.CallToolRequest{}
	req.Params.Name = name
	if args != nil {
		req.Params.Arguments = args
	}

	res, err := b.client.CallTool(ctx, req)
	if err != nil {
		if ctx.Err() == nil && !b.alive(ctx) {
			b.connected.Store(false)
			return nil, errors.Wrapf(tools.ErrBackendUnavailable, "%s: %v", b.name, err)
		}
		return nil, err
	}

	return &tools.CallResult{
		Payload: renderContent(res.Content),
		IsError: res.IsError,
	}, nil
}

func (b *Backend) alive(ctx context.Context) bool {
	pingCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pingTimeout)
	defer cancel()
	return b.client.Ping(pingCtx) == nil
}

// Close shuts the connection down. It is safe to call more than once.
func (b *Backend) Close() error {
	if !b.connected.Swap(false) {
		return nil
	}
	log.Debug().Str("backend", b.name).Msg("closing MCP server")
	return b.client.Close()
}

var _ tools.Backend = (*Backend)(nil)
var _ tools.ConnectionChecker = (*Backend)(nil)

// renderContent joins the text blocks of a result. Non-text blocks are
// rendered as JSON.
func renderContent(content []mcpgo.Content) string {
	parts := make([]string, 0, len(content))
	for _, c := range content {
		switch v := c.(type) {
		case mcpgo.TextContent:
			parts = append(parts, v.Text)
		case *mcpgo.TextContent:
			parts = append(parts, v.Text)
		default:
			bs, err := json.Marshal(c)
			if err != nil {
				parts = append(parts, fmt.Sprintf("%v", c))
				continue
			}
			parts = append(parts, string(bs))
		}
	}
	return strings.Join(parts, "\n")
}
