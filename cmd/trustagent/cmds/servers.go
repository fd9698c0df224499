package cmds

import (
	"context"

	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/cmds/parameters"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	"github.com/go-go-golems/glazed/pkg/settings"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type ServersListCommand struct {
	*cmds.CommandDescription
}

type ServersListSettings struct {
	Connect bool `glazed.parameter:"connect"`
}

var _ cmds.GlazeCommand = (*ServersListCommand)(nil)

func NewServersListCommand() (*ServersListCommand, error) {
	glazedParameterLayer, err := settings.NewGlazedParameterLayers()
	if err != nil {
		return nil, errors.Wrap(err, "could not create glazed parameter layer")
	}

	return &ServersListCommand{
		CommandDescription: cmds.NewCommandDescription(
			"list",
			cmds.WithShort("List configured servers"),
			cmds.WithFlags(
				parameters.NewParameterDefinition(
					"connect",
					parameters.ParameterTypeBool,
					parameters.WithHelp("Start every server to report its status and tool count"),
					parameters.WithDefault(false),
				),
			),
			cmds.WithLayersList(glazedParameterLayer),
		),
	}, nil
}

func (c *ServersListCommand) RunIntoGlazeProcessor(
	ctx context.Context,
	parsedLayers *layers.ParsedLayers,
	gp middlewares.Processor,
) error {
	s := &ServersListSettings{}
	if err := parsedLayers.InitializeStruct(layers.DefaultSlug, s); err != nil {
		return err
	}

	a, err := newApp(ctx, appOptions{startServers: s.Connect})
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
	}()

	return addRows(ctx, gp, serverRows(a.servers.Servers()))
}

type ServerStartCommand struct {
	*cmds.CommandDescription
}

type ServerStartSettings struct {
	Server string `glazed.parameter:"server"`
}

var _ cmds.GlazeCommand = (*ServerStartCommand)(nil)

func NewServerStartCommand() (*ServerStartCommand, error) {
	glazedParameterLayer, err := settings.NewGlazedParameterLayers()
	if err != nil {
		return nil, errors.Wrap(err, "could not create glazed parameter layer")
	}

	return &ServerStartCommand{
		CommandDescription: cmds.NewCommandDescription(
			"start",
			cmds.WithShort("Start a server, list its tools and stop it again"),
			cmds.WithArguments(
				parameters.NewParameterDefinition(
					"server",
					parameters.ParameterTypeString,
					parameters.WithHelp("Name of the server in mcp_servers"),
					parameters.WithRequired(true),
				),
			),
			cmds.WithLayersList(glazedParameterLayer),
		),
	}, nil
}

func (c *ServerStartCommand) RunIntoGlazeProcessor(
	ctx context.Context,
	parsedLayers *layers.ParsedLayers,
	gp middlewares.Processor,
) error {
	s := &ServerStartSettings{}
	if err := parsedLayers.InitializeStruct(layers.DefaultSlug, s); err != nil {
		return err
	}

	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
	}()

	if err := a.servers.Start(ctx, s.Server); err != nil {
		return err
	}
	ds, err := a.servers.Tools(s.Server)
	if err != nil {
		return err
	}
	if err := addRows(ctx, gp, descriptorRows(ds)); err != nil {
		return err
	}
	return a.servers.Stop(s.Server)
}

type ToolsListCommand struct {
	*cmds.CommandDescription
}

var _ cmds.GlazeCommand = (*ToolsListCommand)(nil)

func NewToolsListCommand() (*ToolsListCommand, error) {
	glazedParameterLayer, err := settings.NewGlazedParameterLayers()
	if err != nil {
		return nil, errors.Wrap(err, "could not create glazed parameter layer")
	}

	return &ToolsListCommand{
		CommandDescription: cmds.NewCommandDescription(
			"list",
			cmds.WithShort("Start every server and list its tools"),
			cmds.WithLayersList(glazedParameterLayer),
		),
	}, nil
}

func (c *ToolsListCommand) RunIntoGlazeProcessor(
	ctx context.Context,
	parsedLayers *layers.ParsedLayers,
	gp middlewares.Processor,
) error {
	a, err := newApp(ctx, appOptions{startServers: true, openSessions: true})
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
	}()

	return addRows(ctx, gp, toolStateRows(a.chat.Tools()))
}

func NewServersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "servers",
		Short: "Inspect the configured MCP servers",
	}

	listCmd, err := NewServersListCommand()
	cobra.CheckErr(err)
	startCmd, err := NewServerStartCommand()
	cobra.CheckErr(err)

	cmd.AddCommand(buildGlazeCommand(listCmd), buildGlazeCommand(startCmd))
	return cmd
}

func NewToolsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect the tools offered by the MCP servers",
	}

	listCmd, err := NewToolsListCommand()
	cobra.CheckErr(err)

	cmd.AddCommand(buildGlazeCommand(listCmd))
	return cmd
}
