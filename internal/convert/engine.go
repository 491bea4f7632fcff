// Package convert turns one presentation file into one video file by
// driving an external rendering engine. The engine is modeled behind a
// narrow capability interface (open, export, status, close, quit) so a test
// double or an alternative renderer can be substituted without touching the
// pipeline.
package convert

import "context"

// ExportStatus is the renderer's observable export state.
type ExportStatus int

const (
	// StatusInProgress means the export is still rendering.
	StatusInProgress ExportStatus = iota
	// StatusFailed means the renderer gave up on the export.
	StatusFailed
	// StatusDone means the output video is complete.
	StatusDone
)

func (s ExportStatus) String() string {
	switch s {
	case StatusInProgress:
		return "in-progress"
	case StatusFailed:
		return "failed"
	case StatusDone:
		return "done"
	default:
		return "unknown"
	}
}

// ExportOptions carries the renderer's export-to-video parameters.
type ExportOptions struct {
	OutputPath    string
	SlideDuration int // seconds each slide is shown
	Height        int // output height in pixels
	FPS           int
	Quality       int
}

// Document is one presentation opened inside the engine.
type Document interface {
	// ExportVideo issues an asynchronous export-to-video request.
	// Completion is observed through ExportStatus.
	ExportVideo(ctx context.Context, opts ExportOptions) error

	// ExportStatus reports the current state of the export.
	ExportStatus(ctx context.Context) (ExportStatus, error)

	// Close releases the open document inside the engine.
	Close(ctx context.Context) error
}

// Engine is the host-controlled rendering application. It is a
// single-instance desktop resource: at most one document may be open at a
// time, and Quit must be called to release the underlying process.
type Engine interface {
	Open(ctx context.Context, path string) (Document, error)
	Quit(ctx context.Context) error
}
