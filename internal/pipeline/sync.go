// Package pipeline sequences one slidecast run: download the shared
// folder's files into staging, convert each through the rendering engine,
// archive the converted sources, and return the produced artifacts.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/text/unicode/norm"

	"github.com/castwork/slidecast/internal/graph"
)

// dirPerms is used when creating staging, archive, and output directories.
const dirPerms = 0o755

// GraphAPI is the slice of the Graph client the pipeline consumes.
type GraphAPI interface {
	FindSharedFolder(ctx context.Context, name string) (graph.RemoteRef, error)
	ListChildren(ctx context.Context, ref graph.RemoteRef) ([]graph.Item, error)
	DownloadContent(ctx context.Context, item graph.Item, w io.Writer) (int64, error)
}

// Syncer resolves a shared folder by name and materializes its files in a
// local staging directory.
type Syncer struct {
	client GraphAPI
	logger *slog.Logger
}

// NewSyncer creates a Syncer on top of a Graph client.
func NewSyncer(client GraphAPI, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}

	return &Syncer{client: client, logger: logger}
}

// ResolveAndDownload finds the shared folder, lists its children, and
// downloads every file child to localDir, overwriting same-named files.
// Folders inside are skipped, not recursed. Returns the local paths in the
// provider's listing order.
//
// Any transport error aborts the whole call; files already downloaded by
// the same call are left on disk.
func (s *Syncer) ResolveAndDownload(ctx context.Context, folderName, localDir string) ([]string, error) {
	ref, err := s.client.FindSharedFolder(ctx, folderName)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(localDir, dirPerms); err != nil {
		return nil, fmt.Errorf("pipeline: creating staging directory %s: %w", localDir, err)
	}

	children, err := s.client.ListChildren(ctx, ref)
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(children))

	for i := range children {
		child := &children[i]
		if child.IsFolder {
			s.logger.Debug("skipping folder child",
				slog.String("name", child.Name),
			)

			continue
		}

		localPath, err := s.downloadOne(ctx, child, localDir)
		if err != nil {
			return nil, err
		}

		paths = append(paths, localPath)
	}

	s.logger.Info("staged shared folder",
		slog.String("folder", folderName),
		slog.String("dir", localDir),
		slog.Int("files", len(paths)),
	)

	return paths, nil
}

// downloadOne streams a single file child into localDir.
// Remote names are NFC-normalized before building the local path so
// composed and decomposed spellings land on the same file.
func (s *Syncer) downloadOne(ctx context.Context, item *graph.Item, localDir string) (string, error) {
	localPath := filepath.Join(localDir, norm.NFC.String(item.Name))

	f, err := os.Create(localPath)
	if err != nil {
		return "", fmt.Errorf("pipeline: creating %s: %w", localPath, err)
	}

	_, dlErr := s.client.DownloadContent(ctx, *item, f)

	if closeErr := f.Close(); closeErr != nil && dlErr == nil {
		dlErr = fmt.Errorf("pipeline: closing %s: %w", localPath, closeErr)
	}

	if dlErr != nil {
		return "", dlErr
	}

	return localPath, nil
}
