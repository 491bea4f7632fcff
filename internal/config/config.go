// Package config loads slidecast configuration from a TOML file with a
// defaults → file → environment → CLI flags override chain. Unknown keys in
// the config file are fatal: silently ignoring a typo leads to hard-to-debug
// behavior.
package config

import (
	"fmt"
	"strings"
)

// DefaultClientID is the Azure AD application registered for slidecast
// (public client, device-code flow enabled).
const DefaultClientID = "4c1f9fe3-a2d8-4d0b-9f61-20e1c86f8b42"

// DefaultTenantID targets the multi-tenant endpoint.
const DefaultTenantID = "common"

// Conversion defaults, matching the renderer's export settings.
const (
	DefaultSlideDuration = 10 // seconds each slide is shown
	DefaultHeight        = 720
	DefaultFPS           = 30
	DefaultQuality       = 1
)

// Config is the on-disk configuration schema.
type Config struct {
	ClientID   string `toml:"client_id"`
	TenantID   string `toml:"tenant_id"`
	LogLevel   string `toml:"log_level"`
	StagingDir string `toml:"staging_dir"`
	OutputDir  string `toml:"output_dir"`

	Convert ConvertConfig `toml:"convert"`
}

// ConvertConfig holds rendering engine settings.
type ConvertConfig struct {
	// Engine is the renderer bridge command to spawn, e.g.
	// "ppt-render-bridge". Arguments may be included, space-separated.
	Engine string `toml:"engine"`

	SlideDuration int `toml:"slide_duration"`
	Height        int `toml:"height"`
	FPS           int `toml:"fps"`
	Quality       int `toml:"quality"`
}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		ClientID:   DefaultClientID,
		TenantID:   DefaultTenantID,
		LogLevel:   "info",
		StagingDir: DefaultStagingDir(),
		Convert: ConvertConfig{
			Engine:        "ppt-render-bridge",
			SlideDuration: DefaultSlideDuration,
			Height:        DefaultHeight,
			FPS:           DefaultFPS,
			Quality:       DefaultQuality,
		},
	}
}

// validLogLevels are the accepted log_level values.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks a loaded Config for values that cannot work.
func Validate(cfg *Config) error {
	if cfg.ClientID == "" {
		return fmt.Errorf("config: client_id must not be empty")
	}

	if cfg.LogLevel != "" && !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		return fmt.Errorf("config: invalid log_level %q (want debug, info, warn, or error)", cfg.LogLevel)
	}

	if cfg.Convert.SlideDuration <= 0 {
		return fmt.Errorf("config: convert.slide_duration must be positive, got %d", cfg.Convert.SlideDuration)
	}

	if cfg.Convert.Height <= 0 {
		return fmt.Errorf("config: convert.height must be positive, got %d", cfg.Convert.Height)
	}

	if cfg.Convert.FPS <= 0 {
		return fmt.Errorf("config: convert.fps must be positive, got %d", cfg.Convert.FPS)
	}

	if cfg.Convert.Quality < 0 {
		return fmt.Errorf("config: convert.quality must not be negative, got %d", cfg.Convert.Quality)
	}

	return nil
}
