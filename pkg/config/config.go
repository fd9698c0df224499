// Package config loads the application configuration with viper and keeps
// the live copy shared by concurrent runs.
package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/go-go-golems/trustagent/pkg/conversation"
	"github.com/go-go-golems/trustagent/pkg/inference/toolloop"
	"github.com/go-go-golems/trustagent/pkg/inference/tools"
	"github.com/go-go-golems/trustagent/pkg/security"
	"github.com/go-go-golems/trustagent/pkg/steps/ai/settings"
	"github.com/go-go-golems/trustagent/pkg/steps/ai/types"
)

// ErrConfiguration marks configuration problems detected before a run starts.
var ErrConfiguration = errors.New("configuration error")

const (
	AppName         = "trustagent"
	EnvPrefix       = "TRUSTAGENT"
	DefaultAPIType  = string(types.ApiTypeOpenAI)
	DefaultBaseURL  = "https://api.openai.com/v1"
	DefaultModel    = settings.DefaultEngine
	defaultFileName = "config"
)

type OpenAIConfig struct {
	// APIType is the provider: openai, anyscale, fireworks or ollama. All of
	// them speak the OpenAI chat completion protocol.
	APIType string `mapstructure:"api_type" yaml:"api_type"`
	APIKey  string `mapstructure:"api_key" yaml:"api_key"`
	// BaseURL defaults to the public endpoint of APIType.
	BaseURL string `mapstructure:"base_url" yaml:"base_url,omitempty"`
	Model   string `mapstructure:"model" yaml:"model"`
	// AllowLocal permits http and local network base URLs, e.g. for ollama.
	AllowLocal bool `mapstructure:"allow_local" yaml:"allow_local"`
}

// MCPServerConfig describes how to launch one stdio tool backend.
type MCPServerConfig struct {
	Command string   `mapstructure:"command" yaml:"command"`
	Args    []string `mapstructure:"args" yaml:"args,omitempty"`
	// Env entries are KEY=VALUE, added to the inherited environment.
	Env []string `mapstructure:"env" yaml:"env,omitempty"`
}

type AgentConfig struct {
	MaxIterations     int           `mapstructure:"max_iterations" yaml:"max_iterations"`
	WindowSize        int           `mapstructure:"window_size" yaml:"window_size"`
	ToolTimeout       time.Duration `mapstructure:"tool_timeout" yaml:"tool_timeout"`
	ValidateArguments bool          `mapstructure:"validate_arguments" yaml:"validate_arguments"`
	// DisabledTools lists "<server>/<tool>" glob patterns of tools not
	// offered to the model, e.g. "fs/write_*".
	DisabledTools []string `mapstructure:"disabled_tools" yaml:"disabled_tools,omitempty"`
	// Instructions is a text/template, with sprig functions, rendered into
	// the system turn of every run.
	Instructions string `mapstructure:"instructions" yaml:"instructions,omitempty"`
}

type StorageConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

type Config struct {
	OpenAI     OpenAIConfig               `mapstructure:"openai" yaml:"openai"`
	MCPServers map[string]MCPServerConfig `mapstructure:"mcp_servers" yaml:"mcp_servers"`
	Agent      AgentConfig                `mapstructure:"agent" yaml:"agent"`
	Storage    StorageConfig              `mapstructure:"storage" yaml:"storage"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	return &Config{
		OpenAI: OpenAIConfig{
			APIType: DefaultAPIType,
			Model:   DefaultModel,
		},
		MCPServers: map[string]MCPServerConfig{},
		Agent: AgentConfig{
			MaxIterations: toolloop.DefaultMaxIterations,
			WindowSize:    conversation.DefaultWindowSize,
			ToolTimeout:   tools.DefaultToolTimeout,
		},
		Storage: StorageConfig{
			Path: DefaultStoragePath(),
		},
	}
}

// DefaultStoragePath is <user config dir>/trustagent/sessions.db, falling
// back to the working directory.
func DefaultStoragePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", AppName, "sessions.db")
	}
	return filepath.Join(dir, AppName, "sessions.db")
}

// SetDefaults registers the defaults with v so that environment variables
// are picked up for every key.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("openai.api_type", d.OpenAI.APIType)
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model", d.OpenAI.Model)
	v.SetDefault("openai.allow_local", false)
	v.SetDefault("agent.max_iterations", d.Agent.MaxIterations)
	v.SetDefault("agent.window_size", d.Agent.WindowSize)
	v.SetDefault("agent.tool_timeout", d.Agent.ToolTimeout)
	v.SetDefault("agent.validate_arguments", d.Agent.ValidateArguments)
	v.SetDefault("agent.disabled_tools", []string{})
	v.SetDefault("agent.instructions", "")
	v.SetDefault("storage.path", d.Storage.Path)
}

// NewViper returns a viper instance reading configFile, or config.yaml from
// the working directory, $HOME/.trustagent and the user config dir, plus
// TRUSTAGENT_* environment variables.
func NewViper(configFile string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		return v
	}

	v.SetConfigName(defaultFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, "."+AppName))
	}
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, AppName))
	}
	return v
}

// Load reads the configuration file, if any, and decodes v. A missing
// default config file is not an error, an explicitly named one is.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrapf(ErrConfiguration, "could not read config: %v", err)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrapf(ErrConfiguration, "could not decode config: %v", err)
	}
	if cfg.MCPServers == nil {
		cfg.MCPServers = map[string]MCPServerConfig{}
	}
	return cfg, nil
}

// Validate reports the problems that would make a run fail before its first
// round.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.OpenAI.APIKey) == "" {
		return errors.Wrap(ErrConfiguration, "openai.api_key is not set")
	}
	if _, ok := types.DefaultBaseURLs[c.ApiType()]; !ok {
		return errors.Wrapf(ErrConfiguration, "unknown openai.api_type %q", c.OpenAI.APIType)
	}
	if err := security.ValidateEndpoint(c.BaseURL(), security.EndpointPolicy{AllowLocal: c.OpenAI.AllowLocal}); err != nil {
		return errors.Wrapf(ErrConfiguration, "openai.base_url: %v", err)
	}
	if c.OpenAI.Model == "" {
		return errors.Wrap(ErrConfiguration, "openai.model is not set")
	}
	if c.Agent.MaxIterations <= 0 {
		return errors.Wrapf(ErrConfiguration, "agent.max_iterations must be positive, got %d", c.Agent.MaxIterations)
	}
	if c.Agent.WindowSize <= 0 {
		return errors.Wrapf(ErrConfiguration, "agent.window_size must be positive, got %d", c.Agent.WindowSize)
	}
	if c.Agent.ToolTimeout < 0 {
		return errors.Wrap(ErrConfiguration, "agent.tool_timeout cannot be negative")
	}
	for _, name := range c.ServerNames() {
		if strings.TrimSpace(c.MCPServers[name].Command) == "" {
			return errors.Wrapf(ErrConfiguration, "mcp_servers.%s.command is not set", name)
		}
	}
	return nil
}

// ServerNames returns the configured backend names, sorted.
func (c *Config) ServerNames() []string {
	names := make([]string, 0, len(c.MCPServers))
	for name := range c.MCPServers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Config) ApiType() types.ApiType {
	if c.OpenAI.APIType == "" {
		return types.ApiTypeOpenAI
	}
	return types.ApiType(strings.ToLower(c.OpenAI.APIType))
}

// BaseURL is openai.base_url, or the public endpoint of the api type.
func (c *Config) BaseURL() string {
	if c.OpenAI.BaseURL != "" {
		return c.OpenAI.BaseURL
	}
	return types.DefaultBaseURLs[c.ApiType()]
}

// StepSettings maps the openai section to completion settings.
func (c *Config) StepSettings() *settings.StepSettings {
	s := settings.NewStepSettings()
	apiType := c.ApiType()
	s.Chat.ApiType = &apiType
	s.API.SetAPIKey(apiType, c.OpenAI.APIKey)
	s.API.SetBaseURL(apiType, c.BaseURL())
	model := c.OpenAI.Model
	s.Chat.Engine = &model
	return s
}

func (c *Config) LoopConfig() toolloop.LoopConfig {
	return toolloop.DefaultLoopConfig().
		WithMaxIterations(c.Agent.MaxIterations).
		WithWindowSize(c.Agent.WindowSize)
}

func (c *Config) RouterConfig() tools.RouterConfig {
	return tools.DefaultRouterConfig().
		WithTimeout(c.Agent.ToolTimeout).
		WithValidateArguments(c.Agent.ValidateArguments)
}
