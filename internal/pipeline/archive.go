package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// ArchiveDirName is the archive subdirectory inside the staging directory.
const ArchiveDirName = "Archives"

// Archive moves a converted source file into archiveDir, preserving its
// base name. Archiving is idempotent per file: if the source is gone but
// the destination already exists, the file was archived earlier and the
// call succeeds. Returns the destination path.
func Archive(stagedPath, archiveDir string, logger *slog.Logger) (string, error) {
	if err := os.MkdirAll(archiveDir, dirPerms); err != nil {
		return "", fmt.Errorf("pipeline: creating archive directory %s: %w", archiveDir, err)
	}

	dest := filepath.Join(archiveDir, filepath.Base(stagedPath))

	if err := os.Rename(stagedPath, dest); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if _, statErr := os.Stat(dest); statErr == nil {
				logger.Debug("file already archived",
					slog.String("path", dest),
				)

				return dest, nil
			}
		}

		return "", fmt.Errorf("pipeline: archiving %s: %w", stagedPath, err)
	}

	logger.Info("archived source file",
		slog.String("from", stagedPath),
		slog.String("to", dest),
	)

	return dest, nil
}
