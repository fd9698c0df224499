package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/trustagent/pkg/steps/ai/settings"
	"github.com/go-go-golems/trustagent/pkg/steps/ai/types"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(NewViper(writeFile(t, "{}\n")))
	require.NoError(t, err)

	require.Equal(t, "openai", cfg.OpenAI.APIType)
	require.Equal(t, DefaultBaseURL, cfg.BaseURL())
	require.Equal(t, "gpt-4-turbo", cfg.OpenAI.Model)
	require.Equal(t, 20, cfg.Agent.MaxIterations)
	require.Equal(t, 30, cfg.Agent.WindowSize)
	require.Equal(t, 60*time.Second, cfg.Agent.ToolTimeout)
	require.False(t, cfg.Agent.ValidateArguments)
	require.NotEmpty(t, cfg.Storage.Path)
	require.Empty(t, cfg.MCPServers)
}

func TestLoadFile(t *testing.T) {
	p := writeFile(t, `
openai:
  api_key: sk-file
  model: gpt-3.5-turbo
mcp_servers:
  fs:
    command: npx
    args: ["-y", "server-filesystem", "/tmp"]
    env: ["DEBUG=1"]
agent:
  max_iterations: 7
  tool_timeout: 5s
  validate_arguments: true
`)
	cfg, err := Load(NewViper(p))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, "sk-file", cfg.OpenAI.APIKey)
	require.Equal(t, "gpt-3.5-turbo", cfg.OpenAI.Model)
	require.Equal(t, []string{"fs"}, cfg.ServerNames())
	require.Equal(t, "npx", cfg.MCPServers["fs"].Command)
	require.Equal(t, []string{"-y", "server-filesystem", "/tmp"}, cfg.MCPServers["fs"].Args)
	require.Equal(t, []string{"DEBUG=1"}, cfg.MCPServers["fs"].Env)

	require.Equal(t, 7, cfg.LoopConfig().MaxIterations)
	require.Equal(t, 30, cfg.LoopConfig().WindowSize)
	require.Equal(t, 5*time.Second, cfg.RouterConfig().Timeout)
	require.True(t, cfg.RouterConfig().ValidateArguments)

	s := cfg.StepSettings()
	require.NoError(t, s.Validate())
	require.Equal(t, "gpt-3.5-turbo", s.Model())
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("TRUSTAGENT_OPENAI_API_KEY", "sk-env")
	t.Setenv("TRUSTAGENT_AGENT_WINDOW_SIZE", "12")

	cfg, err := Load(NewViper(writeFile(t, "openai:\n  api_key: sk-file\n")))
	require.NoError(t, err)
	require.Equal(t, "sk-env", cfg.OpenAI.APIKey)
	require.Equal(t, 12, cfg.Agent.WindowSize)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(NewViper(filepath.Join(t.TempDir(), "missing.yaml")))
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.ErrorIs(t, cfg.Validate(), ErrConfiguration)

	cfg.OpenAI.APIKey = "sk"
	require.NoError(t, cfg.Validate())

	cfg.MCPServers["broken"] = MCPServerConfig{}
	require.ErrorIs(t, cfg.Validate(), ErrConfiguration)
	delete(cfg.MCPServers, "broken")

	cfg.OpenAI.BaseURL = "http://localhost:11434/v1"
	require.ErrorIs(t, cfg.Validate(), ErrConfiguration)
	cfg.OpenAI.AllowLocal = true
	require.NoError(t, cfg.Validate())
	cfg.OpenAI.BaseURL = "ftp://example.com"
	require.ErrorIs(t, cfg.Validate(), ErrConfiguration)
	cfg.OpenAI.BaseURL = DefaultBaseURL

	cfg.Agent.MaxIterations = 0
	require.ErrorIs(t, cfg.Validate(), ErrConfiguration)
}

func TestAPIType(t *testing.T) {
	cfg := Default()
	cfg.OpenAI.APIKey = "ollama"
	cfg.OpenAI.APIType = "ollama"
	require.Equal(t, "http://localhost:11434/v1", cfg.BaseURL())
	require.ErrorIs(t, cfg.Validate(), ErrConfiguration)
	cfg.OpenAI.AllowLocal = true
	require.NoError(t, cfg.Validate())

	s := cfg.StepSettings()
	require.Equal(t, types.ApiTypeOllama, s.ApiType())
	require.NoError(t, s.Validate())

	cfg.OpenAI.BaseURL = "http://10.0.0.5:11434/v1"
	require.Equal(t, "http://10.0.0.5:11434/v1", cfg.BaseURL())

	cfg.OpenAI.APIType = "mystery"
	require.ErrorIs(t, cfg.Validate(), ErrConfiguration)
}

func TestStoreSnapshotIsIndependent(t *testing.T) {
	cfg := Default()
	cfg.OpenAI.APIKey = "sk-1"
	s := NewStore(cfg)

	snap := s.Snapshot()
	s.Update(func(c *Config) {
		c.OpenAI.APIKey = "sk-2"
		c.MCPServers["fs"] = MCPServerConfig{Command: "x"}
	})

	require.Equal(t, "sk-1", snap.OpenAI.APIKey)
	require.Empty(t, snap.MCPServers)
	require.Equal(t, "sk-2", s.Snapshot().OpenAI.APIKey)

	cfg.OpenAI.APIKey = "mutated"
	require.Equal(t, "sk-2", s.Snapshot().OpenAI.APIKey)
}

func TestWriteDefault(t *testing.T) {
	p := filepath.Join(t.TempDir(), "sub", "config.yaml")
	require.NoError(t, WriteDefault(p, false))
	require.Error(t, WriteDefault(p, false))
	require.NoError(t, WriteDefault(p, true))

	cfg, err := Load(NewViper(p))
	require.NoError(t, err)
	require.Equal(t, 60*time.Second, cfg.Agent.ToolTimeout)
	require.Equal(t, "npx", cfg.MCPServers["filesystem"].Command)
	require.NoError(t, cfg.Validate())
	require.Equal(t, settings.DefaultEngine, cfg.OpenAI.Model)
}
