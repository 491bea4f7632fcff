package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/castwork/slidecast/internal/convert"
)

// FileSyncer stages the shared folder's files locally. Satisfied by Syncer;
// tests substitute a fake.
type FileSyncer interface {
	ResolveAndDownload(ctx context.Context, folderName, localDir string) ([]string, error)
}

// Converter turns one staged presentation into one video file. Satisfied by
// convert.Converter; tests substitute a fake.
type Converter interface {
	Convert(ctx context.Context, inputPath, outputPath string) error
}

// Runner is the pipeline orchestrator. One Run processes one shared folder
// end to end, strictly sequentially: the download completes fully before
// the first conversion starts, and each conversion completes fully before
// the next. This sequencing is also what keeps the single-instance
// rendering engine owned by at most one job at a time.
type Runner struct {
	syncer    FileSyncer
	converter Converter
	logger    *slog.Logger

	// progress, when set, receives a short per-stage status line.
	progress func(format string, args ...any)
}

// NewRunner assembles a pipeline runner.
func NewRunner(syncer FileSyncer, converter Converter, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		syncer:    syncer,
		converter: converter,
		logger:    logger,
	}
}

// OnProgress registers a callback for human-readable per-stage status.
func (r *Runner) OnProgress(fn func(format string, args ...any)) {
	r.progress = fn
}

func (r *Runner) statusf(format string, args ...any) {
	if r.progress != nil {
		r.progress(format, args...)
	}
}

// Run executes one pipeline run: stage the shared folder's files, convert
// each in listing order, archive each converted source, and return the
// produced artifact paths in the same order.
//
// The first failure aborts the whole run and is surfaced verbatim. Work
// already performed — downloaded-but-unconverted files, artifacts of files
// converted before the failure — stays on disk and is not rolled back.
func (r *Runner) Run(ctx context.Context, folderName, stagingDir, outputDir string) ([]string, error) {
	r.logger.Info("pipeline run starting",
		slog.String("folder", folderName),
		slog.String("staging_dir", stagingDir),
		slog.String("output_dir", outputDir),
	)

	r.statusf("Downloading files from %q...\n", folderName)

	files, err := r.syncer.ResolveAndDownload(ctx, folderName, stagingDir)
	if err != nil {
		return nil, err
	}

	r.statusf("Downloaded %d files.\n", len(files))

	if err := os.MkdirAll(outputDir, dirPerms); err != nil {
		return nil, fmt.Errorf("pipeline: creating output directory %s: %w", outputDir, err)
	}

	archiveDir := filepath.Join(stagingDir, ArchiveDirName)
	artifacts := make([]string, 0, len(files))

	for _, staged := range files {
		base := strings.TrimSuffix(filepath.Base(staged), filepath.Ext(staged))
		outputPath := filepath.Join(outputDir, base+convert.OutputExtension)

		r.statusf("Converting %s...\n", filepath.Base(staged))

		if err := r.converter.Convert(ctx, staged, outputPath); err != nil {
			return nil, err
		}

		if _, err := Archive(staged, archiveDir, r.logger); err != nil {
			return nil, err
		}

		artifacts = append(artifacts, outputPath)
	}

	r.logger.Info("pipeline run complete",
		slog.String("folder", folderName),
		slog.Int("artifacts", len(artifacts)),
	)

	return artifacts, nil
}
