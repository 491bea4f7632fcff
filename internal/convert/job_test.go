package convert

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDoc is a Document double whose status transitions are scripted.
type fakeDoc struct {
	exportErr error
	statuses  []ExportStatus
	statusErr error

	exportCalls int
	statusCalls int
	closeCalls  int
}

func (d *fakeDoc) ExportVideo(_ context.Context, _ ExportOptions) error {
	d.exportCalls++
	return d.exportErr
}

func (d *fakeDoc) ExportStatus(_ context.Context) (ExportStatus, error) {
	if d.statusErr != nil {
		return StatusInProgress, d.statusErr
	}

	idx := d.statusCalls
	d.statusCalls++

	if idx >= len(d.statuses) {
		idx = len(d.statuses) - 1
	}

	return d.statuses[idx], nil
}

func (d *fakeDoc) Close(_ context.Context) error {
	d.closeCalls++
	return nil
}

// fakeEngine is an Engine double handing out a scripted document.
type fakeEngine struct {
	doc     *fakeDoc
	openErr error

	openCalls int
	quitCalls int
}

func (e *fakeEngine) Open(_ context.Context, _ string) (Document, error) {
	e.openCalls++

	if e.openErr != nil {
		return nil, e.openErr
	}

	return e.doc, nil
}

func (e *fakeEngine) Quit(_ context.Context) error {
	e.quitCalls++
	return nil
}

func writeInput(t *testing.T, name string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("deck"), 0o644))

	return path
}

func newTestJob(t *testing.T, input string) *Job {
	t.Helper()

	job := NewJob(input, "", ExportOptions{SlideDuration: 10, Height: 720, FPS: 30, Quality: 1}, slog.Default())
	job.sleepFunc = func(_ context.Context, _ time.Duration) error { return nil }

	return job
}

func TestJob_Success(t *testing.T) {
	input := writeInput(t, "Q1 Review.pptx")
	engine := &fakeEngine{doc: &fakeDoc{statuses: []ExportStatus{StatusInProgress, StatusInProgress, StatusDone}}}

	job := newTestJob(t, input)
	require.NoError(t, job.Run(context.Background(), engine))

	assert.Equal(t, StateCompleted, job.State())
	assert.Equal(t, 1, engine.doc.exportCalls)
	assert.Equal(t, 3, engine.doc.statusCalls)
	assert.Equal(t, 1, engine.doc.closeCalls)
	assert.Equal(t, 1, engine.quitCalls)
}

func TestJob_DerivesOutputPath(t *testing.T) {
	input := writeInput(t, "Q2 Update.pptm")
	job := newTestJob(t, input)

	want := filepath.Join(filepath.Dir(input), "Q2 Update.mp4")
	assert.Equal(t, want, job.OutputPath)
	assert.Equal(t, want, job.Options.OutputPath)
}

func TestJob_InputNotFound(t *testing.T) {
	engine := &fakeEngine{doc: &fakeDoc{statuses: []ExportStatus{StatusDone}}}

	job := newTestJob(t, filepath.Join(t.TempDir(), "missing.pptx"))
	err := job.Run(context.Background(), engine)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInputNotFound)
	assert.Equal(t, StateFailed, job.State())

	// Preconditions fail before the engine is touched.
	assert.Zero(t, engine.openCalls)
	assert.Zero(t, engine.quitCalls)
}

func TestJob_UnsupportedFormat(t *testing.T) {
	input := writeInput(t, "notes.docx")
	engine := &fakeEngine{doc: &fakeDoc{statuses: []ExportStatus{StatusDone}}}

	job := newTestJob(t, input)
	err := job.Run(context.Background(), engine)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Zero(t, engine.openCalls)
}

func TestJob_UppercaseExtensionAccepted(t *testing.T) {
	input := writeInput(t, "LOUD.PPTX")
	engine := &fakeEngine{doc: &fakeDoc{statuses: []ExportStatus{StatusDone}}}

	job := newTestJob(t, input)
	require.NoError(t, job.Run(context.Background(), engine))
}

func TestJob_ExportFailed(t *testing.T) {
	input := writeInput(t, "bad.pptx")
	engine := &fakeEngine{doc: &fakeDoc{statuses: []ExportStatus{StatusInProgress, StatusFailed}}}

	job := newTestJob(t, input)
	err := job.Run(context.Background(), engine)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExportFailed)
	assert.Equal(t, StateFailed, job.State())

	// The renderer is still released on failure.
	assert.Equal(t, 1, engine.doc.closeCalls)
	assert.Equal(t, 1, engine.quitCalls)
}

func TestJob_StatusPollErrorReleasesEngine(t *testing.T) {
	input := writeInput(t, "flaky.pptx")
	engine := &fakeEngine{doc: &fakeDoc{statusErr: errors.New("bridge gone")}}

	job := newTestJob(t, input)
	err := job.Run(context.Background(), engine)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "polling export status")

	assert.Equal(t, 1, engine.doc.closeCalls)
	assert.Equal(t, 1, engine.quitCalls)
}

func TestJob_OpenErrorStillQuitsEngine(t *testing.T) {
	input := writeInput(t, "deck.pptx")
	engine := &fakeEngine{openErr: errors.New("spawn failed")}

	job := newTestJob(t, input)
	err := job.Run(context.Background(), engine)
	require.Error(t, err)
	assert.Equal(t, 1, engine.quitCalls)
}

func TestJob_RunTwice(t *testing.T) {
	input := writeInput(t, "deck.pptx")
	engine := &fakeEngine{doc: &fakeDoc{statuses: []ExportStatus{StatusDone}}}

	job := newTestJob(t, input)
	require.NoError(t, job.Run(context.Background(), engine))

	err := job.Run(context.Background(), engine)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrJobAlreadyRun)
}

func TestJob_ContextCanceledDuringPoll(t *testing.T) {
	input := writeInput(t, "slow.pptx")
	engine := &fakeEngine{doc: &fakeDoc{statuses: []ExportStatus{StatusInProgress}}}

	ctx, cancel := context.WithCancel(context.Background())

	job := NewJob(input, "", ExportOptions{}, slog.Default())
	job.sleepFunc = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	err := job.Run(ctx, engine)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	// Release runs even after cancellation.
	assert.Equal(t, 1, engine.doc.closeCalls)
	assert.Equal(t, 1, engine.quitCalls)
}

func TestDerivedOutputPath(t *testing.T) {
	assert.Equal(t, "/tmp/deck.mp4", DerivedOutputPath("/tmp/deck.pptx"))
	assert.Equal(t, "/tmp/deck.v2.mp4", DerivedOutputPath("/tmp/deck.v2.pptm"))
}

func TestConverter_FreshEnginePerJob(t *testing.T) {
	inputA := writeInput(t, "a.pptx")
	inputB := writeInput(t, "b.pptx")

	var engines []*fakeEngine

	conv := &Converter{
		NewEngine: func() Engine {
			e := &fakeEngine{doc: &fakeDoc{statuses: []ExportStatus{StatusDone}}}
			engines = append(engines, e)

			return e
		},
		Logger: slog.Default(),
	}

	require.NoError(t, conv.Convert(context.Background(), inputA, filepath.Join(t.TempDir(), "a.mp4")))
	require.NoError(t, conv.Convert(context.Background(), inputB, filepath.Join(t.TempDir(), "b.mp4")))

	require.Len(t, engines, 2)

	for _, e := range engines {
		assert.Equal(t, 1, e.openCalls)
		assert.Equal(t, 1, e.quitCalls)
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "not-started", StateNotStarted.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "completed", StateCompleted.String())
	assert.Equal(t, "failed", StateFailed.String())
}
