package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// WriteDefault writes the default configuration, with an example backend,
// to path. An existing file is only replaced when force is set.
func WriteDefault(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return errors.Errorf("%s already exists", path)
	}

	cfg := Default()
	cfg.OpenAI.APIKey = "sk-..."
	cfg.MCPServers["filesystem"] = MCPServerConfig{
		Command: "npx",
		Args:    []string{"-y", "@modelcontextprotocol/server-filesystem", "."},
	}

	b, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "could not encode config")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "could not create %s", filepath.Dir(path))
	}
	return os.WriteFile(path, b, 0o600)
}
