package main

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castwork/slidecast/internal/config"
)

func TestNewRootCmd_Subcommands(t *testing.T) {
	cmd := newRootCmd()

	want := []string{"login", "logout", "whoami", "shares", "run", "artifacts"}

	for _, name := range want {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, "subcommand %s", name)
		assert.Equal(t, name, sub.Name())
	}
}

func TestNewRootCmd_PersistentFlags(t *testing.T) {
	cmd := newRootCmd()

	for _, name := range []string{"config", "json", "verbose", "quiet"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "flag %s", name)
	}
}

func TestBuildLogger_Levels(t *testing.T) {
	origCfg, origVerbose, origQuiet := resolvedCfg, flagVerbose, flagQuiet
	t.Cleanup(func() {
		resolvedCfg, flagVerbose, flagQuiet = origCfg, origVerbose, origQuiet
	})

	resolvedCfg = config.DefaultConfig()
	flagVerbose = false
	flagQuiet = false

	logger := buildLogger()
	assert.True(t, logger.Enabled(t.Context(), slog.LevelInfo))
	assert.False(t, logger.Enabled(t.Context(), slog.LevelDebug))

	flagVerbose = true
	logger = buildLogger()
	assert.True(t, logger.Enabled(t.Context(), slog.LevelDebug))

	flagVerbose = false
	flagQuiet = true
	logger = buildLogger()
	assert.False(t, logger.Enabled(t.Context(), slog.LevelWarn))
	assert.True(t, logger.Enabled(t.Context(), slog.LevelError))
}

func TestApplyRunFlags(t *testing.T) {
	origOutput, origStaging, origEngine := flagOutputDir, flagStagingDir, flagEngine
	origDuration, origHeight, origFPS, origQuality := flagSlideDuration, flagHeight, flagFPS, flagQuality
	t.Cleanup(func() {
		flagOutputDir, flagStagingDir, flagEngine = origOutput, origStaging, origEngine
		flagSlideDuration, flagHeight, flagFPS, flagQuality = origDuration, origHeight, origFPS, origQuality
	})

	cfg := config.DefaultConfig()

	flagOutputDir = "/videos"
	flagEngine = "alt-bridge"
	flagHeight = 1080
	flagQuality = 0
	flagSlideDuration = 0 // unset; config value kept

	applyRunFlags(cfg)

	assert.Equal(t, "/videos", cfg.OutputDir)
	assert.Equal(t, "alt-bridge", cfg.Convert.Engine)
	assert.Equal(t, 1080, cfg.Convert.Height)
	assert.Equal(t, 0, cfg.Convert.Quality)
	assert.Equal(t, config.DefaultSlideDuration, cfg.Convert.SlideDuration)
}
