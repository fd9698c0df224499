// Package cmds holds the trustagent subcommands.
package cmds

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/go-go-golems/trustagent/pkg/chat"
	"github.com/go-go-golems/trustagent/pkg/config"
	"github.com/go-go-golems/trustagent/pkg/inference/tools"
	"github.com/go-go-golems/trustagent/pkg/mcp"
	"github.com/go-go-golems/trustagent/pkg/sessions"
)

// app wires the configuration, the MCP servers, the session store and the
// chat service for one command invocation.
type app struct {
	config   *config.Store
	registry *tools.Registry
	servers  *mcp.Manager
	sessions *sessions.Store
	chat     *chat.Service
}

// loadConfig reads the file named by the persistent --config flag, which the
// root command binds into viper.
func loadConfig() (*config.Config, error) {
	configFile := viper.GetString("config")
	cfg, err := config.Load(config.NewViper(configFile))
	if err != nil {
		return nil, err
	}
	log.Debug().Str("config", configFile).Strs("servers", cfg.ServerNames()).Msg("loaded configuration")
	return cfg, nil
}

type appOptions struct {
	startServers bool
	openSessions bool
	chatOptions  []chat.Option
}

func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a := &app{
		config:   config.NewStore(cfg),
		registry: tools.NewRegistry(),
	}
	a.servers = mcp.NewManager(cfg.MCPServers, a.registry)

	if opts.openSessions {
		a.sessions, err = sessions.Open(cfg.Storage.Path)
		if err != nil {
			return nil, errors.Wrapf(err, "could not open session store %s", cfg.Storage.Path)
		}
		a.chat = chat.NewService(a.config, a.registry, a.sessions, opts.chatOptions...)
	}

	if opts.startServers {
		// a server that fails to start only loses its tools
		if err := a.servers.StartAll(ctx); err != nil {
			log.Warn().Err(err).Msg("not all MCP servers could be started")
		}
	}
	return a, nil
}

func (a *app) Close() error {
	var ret error
	if err := a.servers.StopAll(); err != nil {
		ret = err
	}
	if a.sessions != nil {
		if err := a.sessions.Close(); err != nil && ret == nil {
			ret = err
		}
	}
	return ret
}
