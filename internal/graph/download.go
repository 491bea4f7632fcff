package graph

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// ErrNoDownloadURL is returned when a file item carries no pre-authenticated
// download URL. Folders and some zero-byte files have none.
var ErrNoDownloadURL = errors.New("graph: item has no download URL")

// DownloadContent streams the referenced item's content to w using the
// item's pre-authenticated download URL. No Authorization header is sent —
// the URL embeds its own auth, which is also why it is never logged.
// Returns the number of bytes written.
func (c *Client) DownloadContent(ctx context.Context, item Item, w io.Writer) (int64, error) {
	if item.DownloadURL == "" {
		c.logger.Warn("item has no download URL",
			slog.String("item_id", item.ID),
			slog.String("name", item.Name),
			slog.Bool("is_folder", item.IsFolder),
		)

		return 0, ErrNoDownloadURL
	}

	c.logger.Info("downloading item content",
		slog.String("item_id", item.ID),
		slog.String("name", item.Name),
		slog.Int64("size", item.Size),
	)

	resp, err := c.doRetry(ctx, "download "+item.Name, func() (*http.Request, error) {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, item.DownloadURL, http.NoBody)
		if reqErr != nil {
			return nil, fmt.Errorf("graph: creating download request: %w", reqErr)
		}

		req.Header.Set("User-Agent", userAgent)

		return req, nil
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, copyErr := io.Copy(w, resp.Body)
	if copyErr != nil {
		c.logger.Error("streaming download failed",
			slog.String("name", item.Name),
			slog.Int64("bytes_before_error", n),
			slog.String("error", copyErr.Error()),
		)

		return n, fmt.Errorf("graph: streaming download content: %w", copyErr)
	}

	c.logger.Debug("download complete",
		slog.String("name", item.Name),
		slog.Int64("bytes_written", n),
	)

	return n, nil
}
