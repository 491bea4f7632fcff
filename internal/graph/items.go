package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// listChildrenPageSize is the $top value for children listings. 200 is the
// Graph API maximum for drive item collections.
const listChildrenPageSize = 200

// driveItemResponse mirrors the Graph API driveItem JSON.
// Unexported — callers get the normalized Item.
type driveItemResponse struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Size            int64            `json:"size"`
	ParentReference *parentRef       `json:"parentReference"`
	File            *fileFacet       `json:"file"`
	Folder          *json.RawMessage `json:"folder"`
	DownloadURL     string           `json:"@microsoft.graph.downloadUrl"` //nolint:tagliatelle // Graph API annotation key
}

type fileFacet struct {
	MimeType string `json:"mimeType"`
}

type listChildrenResponse struct {
	Value    []driveItemResponse `json:"value"`
	NextLink string              `json:"@odata.nextLink"` //nolint:tagliatelle // OData annotation key
}

// toItem normalizes a Graph driveItem into Item.
func (d *driveItemResponse) toItem() Item {
	item := Item{
		ID:          d.ID,
		Name:        d.Name,
		Size:        d.Size,
		IsFolder:    d.Folder != nil,
		DownloadURL: d.DownloadURL,
	}

	if d.ParentReference != nil {
		item.DriveID = strings.ToLower(d.ParentReference.DriveID)
	}

	if d.File != nil {
		item.MimeType = d.File.MimeType
	}

	return item
}

// ListChildren returns all children of the referenced folder in provider
// order, following pagination automatically.
func (c *Client) ListChildren(ctx context.Context, ref RemoteRef) ([]Item, error) {
	c.logger.Info("listing folder children",
		slog.String("drive_id", ref.DriveID),
		slog.String("item_id", ref.ItemID),
	)

	path := fmt.Sprintf("/drives/%s/items/%s/children?$top=%d", ref.DriveID, ref.ItemID, listChildrenPageSize)

	var items []Item

	page := 1

	for path != "" {
		pageItems, nextPath, err := c.listChildrenPage(ctx, path, page)
		if err != nil {
			return nil, err
		}

		items = append(items, pageItems...)
		path = nextPath
		page++
	}

	c.logger.Info("listed folder children",
		slog.String("drive_id", ref.DriveID),
		slog.String("item_id", ref.ItemID),
		slog.Int("total_items", len(items)),
	)

	return items, nil
}

// listChildrenPage fetches one page of children and the next page path
// (empty when pagination is done).
func (c *Client) listChildrenPage(ctx context.Context, path string, page int) ([]Item, string, error) {
	resp, err := c.get(ctx, path)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	var lcr listChildrenResponse
	if err := json.NewDecoder(resp.Body).Decode(&lcr); err != nil {
		return nil, "", fmt.Errorf("graph: decoding children response: %w", err)
	}

	items := make([]Item, 0, len(lcr.Value))
	for i := range lcr.Value {
		items = append(items, lcr.Value[i].toItem())
	}

	c.logger.Debug("fetched children page",
		slog.Int("page", page),
		slog.Int("count", len(items)),
	)

	var nextPath string
	if lcr.NextLink != "" {
		if !strings.HasPrefix(lcr.NextLink, c.baseURL) {
			return nil, "", fmt.Errorf("graph: nextLink URL %q does not match base URL %q", lcr.NextLink, c.baseURL)
		}

		nextPath = lcr.NextLink[len(c.baseURL):]
	}

	return items, nextPath, nil
}
