package convert

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Sentinel errors for job preconditions and outcomes.
var (
	// ErrInputNotFound means the input file does not exist on disk.
	ErrInputNotFound = errors.New("convert: input file not found")

	// ErrUnsupportedFormat means the input extension is not a recognized
	// presentation format. Checked before the engine is spawned.
	ErrUnsupportedFormat = errors.New("convert: unsupported input format")

	// ErrExportFailed means the engine reported the export as failed.
	ErrExportFailed = errors.New("convert: engine reported export failure")

	// ErrJobAlreadyRun means Run was called twice on the same job.
	ErrJobAlreadyRun = errors.New("convert: job already run")
)

// pollInterval is how often the engine's export status is checked.
// No timeout is enforced: a stalled engine blocks the job indefinitely,
// which is the accepted policy for this host-controlled renderer.
const pollInterval = 2 * time.Second

// OutputExtension is the produced video extension.
const OutputExtension = ".mp4"

// supportedExtensions are the recognized presentation formats (lowercase).
var supportedExtensions = map[string]bool{
	".pptx": true,
	".pptm": true,
}

// State is the lifecycle of a conversion job.
type State int

const (
	StateNotStarted State = iota
	StateRunning
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Job converts one presentation file into one video file. A job is
// single-use: create it, Run it once, inspect State afterward.
type Job struct {
	InputPath  string
	OutputPath string
	Options    ExportOptions

	state  State
	logger *slog.Logger

	// sleepFunc waits between status polls. Tests override it to simulate
	// status transitions without real delays.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewJob creates a conversion job. If outputPath is empty it is derived
// from the input: same directory and base name, video extension.
func NewJob(inputPath, outputPath string, opts ExportOptions, logger *slog.Logger) *Job {
	if logger == nil {
		logger = slog.Default()
	}

	if outputPath == "" {
		outputPath = DerivedOutputPath(inputPath)
	}

	opts.OutputPath = outputPath

	return &Job{
		InputPath:  inputPath,
		OutputPath: outputPath,
		Options:    opts,
		state:      StateNotStarted,
		logger:     logger,
		sleepFunc:  sleepCtx,
	}
}

// DerivedOutputPath returns the video path for an input presentation:
// same directory and base name, OutputExtension.
func DerivedOutputPath(inputPath string) string {
	ext := filepath.Ext(inputPath)
	return strings.TrimSuffix(inputPath, ext) + OutputExtension
}

// State reports the job's current lifecycle state.
func (j *Job) State() State {
	return j.state
}

// Run executes the conversion against the given engine, blocking until the
// engine reports done or failed. Preconditions (input exists, recognized
// extension) are validated before the engine is touched, so an invalid
// input never spawns the external process.
//
// The open document is closed and the engine terminated on every exit path,
// including a status poll error — releasing the renderer is a guaranteed
// cleanup obligation, not a happy-path step.
func (j *Job) Run(ctx context.Context, engine Engine) error {
	if j.state != StateNotStarted {
		return ErrJobAlreadyRun
	}

	if err := j.validate(); err != nil {
		j.state = StateFailed
		return err
	}

	j.state = StateRunning

	j.logger.Info("starting conversion",
		slog.String("input", j.InputPath),
		slog.String("output", j.OutputPath),
	)

	err := j.export(ctx, engine)
	if err != nil {
		j.state = StateFailed
		return err
	}

	j.state = StateCompleted

	j.logger.Info("conversion complete",
		slog.String("output", j.OutputPath),
	)

	return nil
}

// validate checks the job preconditions without engine side effects.
func (j *Job) validate() error {
	if _, err := os.Stat(j.InputPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrInputNotFound, j.InputPath)
		}

		return fmt.Errorf("convert: checking input file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(j.InputPath))
	if !supportedExtensions[ext] {
		return fmt.Errorf("%w: %s (want .pptx or .pptm)", ErrUnsupportedFormat, j.InputPath)
	}

	return nil
}

// export opens the document, issues the export, and polls until a terminal
// status. The deferred release runs on every path out of this function.
func (j *Job) export(ctx context.Context, engine Engine) (err error) {
	doc, err := engine.Open(ctx, j.InputPath)
	if err != nil {
		// The engine process may have started before Open failed.
		j.release(nil, engine)
		return fmt.Errorf("convert: opening %s: %w", j.InputPath, err)
	}

	defer j.release(doc, engine)

	if err := doc.ExportVideo(ctx, j.Options); err != nil {
		return fmt.Errorf("convert: requesting export: %w", err)
	}

	return j.awaitExport(ctx, doc)
}

// awaitExport polls the export status on a fixed interval until the engine
// reports done or failed.
func (j *Job) awaitExport(ctx context.Context, doc Document) error {
	for {
		status, err := doc.ExportStatus(ctx)
		if err != nil {
			return fmt.Errorf("convert: polling export status: %w", err)
		}

		switch status {
		case StatusDone:
			return nil
		case StatusFailed:
			return fmt.Errorf("%w: %s", ErrExportFailed, j.InputPath)
		case StatusInProgress:
			j.logger.Debug("export in progress",
				slog.String("input", j.InputPath),
			)
		}

		if err := j.sleepFunc(ctx, pollInterval); err != nil {
			return fmt.Errorf("convert: waiting for export: %w", err)
		}
	}
}

// release closes the document and terminates the engine. Errors are logged,
// not returned — cleanup failures must not mask the export outcome.
func (j *Job) release(doc Document, engine Engine) {
	// Use a fresh context: release must proceed even if the job's context
	// was canceled mid-poll.
	ctx := context.Background()

	if doc != nil {
		if err := doc.Close(ctx); err != nil {
			j.logger.Warn("closing document failed",
				slog.String("input", j.InputPath),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := engine.Quit(ctx); err != nil {
		j.logger.Warn("terminating engine failed",
			slog.String("error", err.Error()),
		)
	}
}

// sleepCtx waits for d or until ctx is canceled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
