package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file, rejects unknown keys, and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}

		return nil, fmt.Errorf("config file %s has unknown keys: %s", path, strings.Join(keys, ", "))
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads the config file if it exists, otherwise returns all
// defaults. Supports the zero-config first run.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// CLIOverrides holds values from command-line flags. Empty strings mean
// "not specified".
type CLIOverrides struct {
	ConfigPath string
	StagingDir string
	OutputDir  string
	Engine     string
}

// Resolve applies the override chain: defaults → config file → environment
// variables → CLI flags. CLI flags always win, matching user expectations
// for one-off overrides.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Config, error) {
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	if env.ClientID != "" {
		cfg.ClientID = env.ClientID
	}

	if env.TenantID != "" {
		cfg.TenantID = env.TenantID
	}

	if env.StagingDir != "" {
		cfg.StagingDir = env.StagingDir
	}

	if env.Engine != "" {
		cfg.Convert.Engine = env.Engine
	}

	if cli.StagingDir != "" {
		cfg.StagingDir = cli.StagingDir
	}

	if cli.OutputDir != "" {
		cfg.OutputDir = cli.OutputDir
	}

	if cli.Engine != "" {
		cfg.Convert.Engine = cli.Engine
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}
