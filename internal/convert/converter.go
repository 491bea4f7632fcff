package convert

import (
	"context"
	"log/slog"
)

// Converter runs conversion jobs with a fresh engine per job, so the
// external rendering process is spawned and terminated once per file.
type Converter struct {
	// NewEngine builds the engine for one job. Injected so tests can
	// substitute a double for the renderer bridge.
	NewEngine func() Engine

	// Options are the export settings applied to every job. OutputPath is
	// set per job.
	Options ExportOptions

	Logger *slog.Logger
}

// Convert runs one conversion job from inputPath to outputPath, blocking
// until the engine reports done or failed.
func (c *Converter) Convert(ctx context.Context, inputPath, outputPath string) error {
	job := NewJob(inputPath, outputPath, c.Options, c.Logger)

	return job.Run(ctx, c.NewEngine())
}
