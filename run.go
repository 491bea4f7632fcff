package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/castwork/slidecast/internal/config"
	"github.com/castwork/slidecast/internal/convert"
	"github.com/castwork/slidecast/internal/graph"
	"github.com/castwork/slidecast/internal/ledger"
	"github.com/castwork/slidecast/internal/pipeline"
)

// Run command flags.
var (
	flagOutputDir     string
	flagStagingDir    string
	flagEngine        string
	flagSlideDuration int
	flagHeight        int
	flagFPS           int
	flagQuality       int
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <shared-folder>",
		Short: "Download a shared folder's presentations and convert them to video",
		Long: "Download every presentation file from the named shared folder, convert\n" +
			"each to an MP4 through the rendering engine, and move the converted\n" +
			"sources into the staging directory's Archives subfolder.\n\n" +
			"Files are processed strictly in listing order; the first failure aborts\n" +
			"the run. Already-produced artifacts stay on disk.",
		Args: cobra.ExactArgs(1),
		RunE: runRun,
	}

	cmd.Flags().StringVarP(&flagOutputDir, "output", "o", "", "output directory for produced videos")
	cmd.Flags().StringVar(&flagStagingDir, "staging", "", "staging directory for downloads (default: <Downloads>/Input folder)")
	cmd.Flags().StringVar(&flagEngine, "engine", "", "renderer bridge command")
	cmd.Flags().IntVar(&flagSlideDuration, "slide-duration", 0, "seconds each slide is shown")
	cmd.Flags().IntVar(&flagHeight, "height", 0, "output video height in pixels")
	cmd.Flags().IntVar(&flagFPS, "fps", 0, "output video frame rate")
	cmd.Flags().IntVar(&flagQuality, "quality", -1, "renderer quality level")

	return cmd
}

// runJSONOutput is the JSON schema for `run --json`.
type runJSONOutput struct {
	RunID     string   `json:"run_id,omitempty"`
	Folder    string   `json:"folder"`
	Artifacts []string `json:"artifacts"`
}

func runRun(cmd *cobra.Command, args []string) error {
	folderName := args[0]
	logger := buildLogger()
	ctx := cmd.Context()

	cfg := resolvedCfg
	applyRunFlags(cfg)

	if cfg.OutputDir == "" {
		return fmt.Errorf("no output directory: pass --output or set output_dir in the config file")
	}

	ts, err := savedTokenSource(ctx)
	if err != nil {
		return err
	}

	client := graph.NewClient(graph.DefaultBaseURL, defaultHTTPClient(), ts, logger)
	syncer := pipeline.NewSyncer(client, logger)

	converter := &convert.Converter{
		NewEngine: func() convert.Engine {
			return convert.NewProcessEngine(cfg.Convert.Engine, logger)
		},
		Options: convert.ExportOptions{
			SlideDuration: cfg.Convert.SlideDuration,
			Height:        cfg.Convert.Height,
			FPS:           cfg.Convert.FPS,
			Quality:       cfg.Convert.Quality,
		},
		Logger: logger,
	}

	runner := pipeline.NewRunner(syncer, converter, logger)
	runner.OnProgress(statusf)

	startedAt := time.Now()

	artifacts, err := runner.Run(ctx, folderName, cfg.StagingDir, cfg.OutputDir)
	if err != nil {
		return err
	}

	// Recording the run is best-effort: the artifacts already exist on disk
	// and a ledger problem should not turn a successful run into a failure.
	runID := recordRun(cmd, folderName, startedAt, artifacts)

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if err := enc.Encode(runJSONOutput{
			RunID:     runID,
			Folder:    folderName,
			Artifacts: artifacts,
		}); err != nil {
			return fmt.Errorf("encoding JSON output: %w", err)
		}

		return nil
	}

	statusf("Converted %d files.\n", len(artifacts))

	for _, a := range artifacts {
		fmt.Println(a)
	}

	return nil
}

// applyRunFlags lays the run command's flags over the resolved config.
func applyRunFlags(cfg *config.Config) {
	if flagOutputDir != "" {
		cfg.OutputDir = flagOutputDir
	}

	if flagStagingDir != "" {
		cfg.StagingDir = flagStagingDir
	}

	if flagEngine != "" {
		cfg.Convert.Engine = flagEngine
	}

	if flagSlideDuration > 0 {
		cfg.Convert.SlideDuration = flagSlideDuration
	}

	if flagHeight > 0 {
		cfg.Convert.Height = flagHeight
	}

	if flagFPS > 0 {
		cfg.Convert.FPS = flagFPS
	}

	if flagQuality >= 0 {
		cfg.Convert.Quality = flagQuality
	}
}

// recordRun writes the completed run to the artifact ledger.
// Failures are logged, not returned.
func recordRun(cmd *cobra.Command, folder string, startedAt time.Time, artifacts []string) string {
	logger := buildLogger()
	ctx := cmd.Context()

	store, err := ledger.Open(ctx, config.LedgerPath(), logger)
	if err != nil {
		logger.Warn("opening artifact ledger failed", "error", err.Error())
		return ""
	}
	defer store.Close()

	runID, err := store.RecordRun(ctx, folder, startedAt, artifacts)
	if err != nil {
		logger.Warn("recording run failed", "error", err.Error())
		return ""
	}

	return runID
}
