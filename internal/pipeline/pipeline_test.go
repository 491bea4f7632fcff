package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castwork/slidecast/internal/graph"
)

// fakeSyncer materializes canned files into the staging dir.
type fakeSyncer struct {
	files []string // base names to stage
	err   error
}

func (f *fakeSyncer) ResolveAndDownload(_ context.Context, _ string, localDir string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}

	if err := os.MkdirAll(localDir, 0o755); err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(f.files))

	for _, name := range f.files {
		path := filepath.Join(localDir, name)
		if err := os.WriteFile(path, []byte("deck: "+name), 0o644); err != nil {
			return nil, err
		}

		paths = append(paths, path)
	}

	return paths, nil
}

// fakeConverter records conversions and writes output files, failing on
// configured inputs.
type fakeConverter struct {
	failOn map[string]bool // base name -> fail

	converted []string // base names in conversion order
}

func (f *fakeConverter) Convert(_ context.Context, inputPath, outputPath string) error {
	base := filepath.Base(inputPath)
	if f.failOn[base] {
		return fmt.Errorf("convert: engine reported export failure: %s", inputPath)
	}

	f.converted = append(f.converted, base)

	return os.WriteFile(outputPath, []byte("video of "+base), 0o644)
}

func TestRun_TwoFiles(t *testing.T) {
	syncer := &fakeSyncer{files: []string{"Q1 Review.pptx", "Q2 Update.pptx"}}
	conv := &fakeConverter{}

	staging := filepath.Join(t.TempDir(), "staging")
	output := filepath.Join(t.TempDir(), "videos")

	runner := NewRunner(syncer, conv, slog.Default())

	artifacts, err := runner.Run(context.Background(), "Quarterly Decks", staging, output)
	require.NoError(t, err)

	require.Len(t, artifacts, 2)
	assert.Equal(t, filepath.Join(output, "Q1 Review.mp4"), artifacts[0])
	assert.Equal(t, filepath.Join(output, "Q2 Update.mp4"), artifacts[1])
	assert.FileExists(t, artifacts[0])
	assert.FileExists(t, artifacts[1])

	// Converted sources moved out of staging into Archives.
	assert.NoFileExists(t, filepath.Join(staging, "Q1 Review.pptx"))
	assert.FileExists(t, filepath.Join(staging, ArchiveDirName, "Q1 Review.pptx"))
	assert.FileExists(t, filepath.Join(staging, ArchiveDirName, "Q2 Update.pptx"))
}

func TestRun_ConversionOrderFollowsListing(t *testing.T) {
	syncer := &fakeSyncer{files: []string{"c.pptx", "a.pptx", "b.pptx"}}
	conv := &fakeConverter{}

	runner := NewRunner(syncer, conv, slog.Default())

	_, err := runner.Run(context.Background(), "Decks", filepath.Join(t.TempDir(), "s"), filepath.Join(t.TempDir(), "o"))
	require.NoError(t, err)

	// Listing order, not lexical order.
	assert.Equal(t, []string{"c.pptx", "a.pptx", "b.pptx"}, conv.converted)
}

func TestRun_FirstFailureAborts(t *testing.T) {
	syncer := &fakeSyncer{files: []string{"Q1 Review.pptx", "Q2 Update.pptx"}}
	conv := &fakeConverter{failOn: map[string]bool{"Q1 Review.pptx": true}}

	staging := filepath.Join(t.TempDir(), "staging")
	output := filepath.Join(t.TempDir(), "videos")

	runner := NewRunner(syncer, conv, slog.Default())

	_, err := runner.Run(context.Background(), "Quarterly Decks", staging, output)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Q1 Review.pptx")

	// The failed file is not archived and the second file is never touched.
	assert.FileExists(t, filepath.Join(staging, "Q1 Review.pptx"))
	assert.FileExists(t, filepath.Join(staging, "Q2 Update.pptx"))
	assert.Empty(t, conv.converted)
	assert.NoFileExists(t, filepath.Join(staging, ArchiveDirName, "Q1 Review.pptx"))
}

func TestRun_SecondFailureKeepsFirstArtifact(t *testing.T) {
	syncer := &fakeSyncer{files: []string{"Q1 Review.pptx", "Q2 Update.pptx"}}
	conv := &fakeConverter{failOn: map[string]bool{"Q2 Update.pptx": true}}

	staging := filepath.Join(t.TempDir(), "staging")
	output := filepath.Join(t.TempDir(), "videos")

	runner := NewRunner(syncer, conv, slog.Default())

	_, err := runner.Run(context.Background(), "Quarterly Decks", staging, output)
	require.Error(t, err)

	// Completed work is not rolled back.
	assert.FileExists(t, filepath.Join(output, "Q1 Review.mp4"))
	assert.FileExists(t, filepath.Join(staging, ArchiveDirName, "Q1 Review.pptx"))

	// The failed file stays in staging, unarchived.
	assert.FileExists(t, filepath.Join(staging, "Q2 Update.pptx"))
}

func TestRun_SyncFailureShortCircuits(t *testing.T) {
	syncer := &fakeSyncer{err: fmt.Errorf("%w: %q", graph.ErrSharedFolderNotFound, "Nope")}
	conv := &fakeConverter{}

	output := filepath.Join(t.TempDir(), "videos")

	runner := NewRunner(syncer, conv, slog.Default())

	_, err := runner.Run(context.Background(), "Nope", filepath.Join(t.TempDir(), "s"), output)
	require.Error(t, err)
	assert.ErrorIs(t, err, graph.ErrSharedFolderNotFound)

	assert.Empty(t, conv.converted)
	assert.NoFileExists(t, output)
}

func TestRun_EmptyFolder(t *testing.T) {
	syncer := &fakeSyncer{}
	conv := &fakeConverter{}

	output := filepath.Join(t.TempDir(), "videos")

	runner := NewRunner(syncer, conv, slog.Default())

	artifacts, err := runner.Run(context.Background(), "Empty", filepath.Join(t.TempDir(), "s"), output)
	require.NoError(t, err)
	assert.Empty(t, artifacts)
	assert.DirExists(t, output)
}

func TestRun_ArtifactNamesMirrorSources(t *testing.T) {
	names := []string{"All Hands.pptx", "macro deck.pptm", "v2.final.pptx"}
	syncer := &fakeSyncer{files: names}
	conv := &fakeConverter{}

	output := filepath.Join(t.TempDir(), "videos")

	runner := NewRunner(syncer, conv, slog.Default())

	artifacts, err := runner.Run(context.Background(), "Decks", filepath.Join(t.TempDir(), "s"), output)
	require.NoError(t, err)
	require.Len(t, artifacts, len(names))

	for i, name := range names {
		base := strings.TrimSuffix(name, filepath.Ext(name))
		assert.Equal(t, filepath.Join(output, base+".mp4"), artifacts[i])
	}
}

func TestRun_ProgressCallback(t *testing.T) {
	syncer := &fakeSyncer{files: []string{"deck.pptx"}}
	conv := &fakeConverter{}

	runner := NewRunner(syncer, conv, slog.Default())

	var lines []string

	runner.OnProgress(func(format string, args ...any) {
		lines = append(lines, fmt.Sprintf(format, args...))
	})

	_, err := runner.Run(context.Background(), "Decks", filepath.Join(t.TempDir(), "s"), filepath.Join(t.TempDir(), "o"))
	require.NoError(t, err)

	joined := strings.Join(lines, "")
	assert.Contains(t, joined, `"Decks"`)
	assert.Contains(t, joined, "deck.pptx")

	// Runs fine with no callback registered too.
	runner2 := NewRunner(&fakeSyncer{files: []string{"x.pptx"}}, &fakeConverter{}, slog.Default())
	_, err = runner2.Run(context.Background(), "Decks", filepath.Join(t.TempDir(), "s2"), filepath.Join(t.TempDir(), "o2"))
	require.NoError(t, err)
}
