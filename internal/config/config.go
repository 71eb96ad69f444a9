// Package config loads the shell's configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when no --config flag is given.
const DefaultPath = ".hopc/config.yaml"

// Config holds all settings.
type Config struct {
	Log       Log       `yaml:"log" toml:"log"`
	Culture   string    `yaml:"culture" toml:"culture"`
	Discovery Discovery `yaml:"discovery" toml:"discovery"`
	Support   string    `yaml:"support" toml:"support"`
}

// Log configures the diagnostic logger.
type Log struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
	Output string `yaml:"output" toml:"output"`
}

// Discovery configures local server discovery.
type Discovery struct {
	Scheme  string   `yaml:"scheme" toml:"scheme"`
	Servers []string `yaml:"servers" toml:"servers"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Log: Log{
			Level:  "warn",
			Format: "console",
			Output: "stderr",
		},
		Discovery: Discovery{
			Scheme: "opcda",
		},
		Support: "Please contact your system administrator or file an issue at https://github.com/Rashteg/h-opc-rashteg/issues",
	}
}

// Load reads path over the defaults. An empty path reads DefaultPath if
// it exists. The format follows the extension: .toml for TOML, anything
// else YAML.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		if _, err := os.Stat(DefaultPath); err != nil {
			return cfg, nil
		}
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse TOML config %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config %s: %w", path, err)
		}
	}

	if cfg.Discovery.Scheme == "" {
		cfg.Discovery.Scheme = "opcda"
	}
	return cfg, nil
}
