package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// sharedItemResponse mirrors one entry of GET /me/drive/sharedWithMe.
// Shared entries are usually references: the actual storage location lives
// in the remoteItem facet.
type sharedItemResponse struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Folder          *json.RawMessage `json:"folder"`
	ParentReference *parentRef       `json:"parentReference"`
	RemoteItem      *remoteItemRef   `json:"remoteItem"`
}

type remoteItemRef struct {
	ID              string     `json:"id"`
	ParentReference *parentRef `json:"parentReference"`
}

type parentRef struct {
	ID      string `json:"id"`
	DriveID string `json:"driveId"`
}

type sharedListResponse struct {
	Value []sharedItemResponse `json:"value"`
}

// toSharedItem normalizes a shared entry. The remote reference prefers the
// remoteItem facet; entries without one (rare, same-drive shares) fall back
// to the entry's own identifiers.
func (s *sharedItemResponse) toSharedItem() SharedItem {
	item := SharedItem{
		Name:     s.Name,
		IsFolder: s.Folder != nil,
	}

	switch {
	case s.RemoteItem != nil:
		item.Remote.ItemID = s.RemoteItem.ID
		if s.RemoteItem.ParentReference != nil {
			item.Remote.DriveID = strings.ToLower(s.RemoteItem.ParentReference.DriveID)
		}
	default:
		item.Remote.ItemID = s.ID
		if s.ParentReference != nil {
			item.Remote.DriveID = strings.ToLower(s.ParentReference.DriveID)
		}
	}

	return item
}

// SharedWithMe lists the items shared with the authenticated user, in the
// provider's order.
func (c *Client) SharedWithMe(ctx context.Context) ([]SharedItem, error) {
	c.logger.Info("listing shared items")

	resp, err := c.get(ctx, "/me/drive/sharedWithMe")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var slr sharedListResponse
	if err := json.NewDecoder(resp.Body).Decode(&slr); err != nil {
		return nil, fmt.Errorf("graph: decoding shared items response: %w", err)
	}

	items := make([]SharedItem, 0, len(slr.Value))
	for i := range slr.Value {
		items = append(items, slr.Value[i].toSharedItem())
	}

	c.logger.Info("listed shared items",
		slog.Int("count", len(items)),
	)

	return items, nil
}

// FindSharedFolder resolves a shared folder by name to its storage locator.
// Matching is a case-sensitive exact comparison against folder entries;
// when several shared folders carry the same name, the first in the
// provider's order wins. Returns ErrSharedFolderNotFound if nothing matches.
func (c *Client) FindSharedFolder(ctx context.Context, name string) (RemoteRef, error) {
	items, err := c.SharedWithMe(ctx)
	if err != nil {
		return RemoteRef{}, err
	}

	for i := range items {
		if items[i].Name == name && items[i].IsFolder {
			c.logger.Info("resolved shared folder",
				slog.String("name", name),
				slog.String("drive_id", items[i].Remote.DriveID),
				slog.String("item_id", items[i].Remote.ItemID),
			)

			return items[i].Remote, nil
		}
	}

	return RemoteRef{}, fmt.Errorf("%w: %q", ErrSharedFolderNotFound, name)
}

// userResponse mirrors GET /me.
type userResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Mail        string `json:"mail"`
	// UPN is a fallback: the mail field is often blank on Personal accounts.
	UPN string `json:"userPrincipalName"`
}

// Me returns the authenticated user's profile.
func (c *Client) Me(ctx context.Context) (*User, error) {
	c.logger.Info("fetching authenticated user profile")

	resp, err := c.get(ctx, "/me")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var ur userResponse
	if err := json.NewDecoder(resp.Body).Decode(&ur); err != nil {
		return nil, fmt.Errorf("graph: decoding user response: %w", err)
	}

	email := ur.Mail
	if email == "" {
		email = ur.UPN
	}

	return &User{
		ID:          ur.ID,
		DisplayName: ur.DisplayName,
		Email:       email,
	}, nil
}
