package graph

// Item is a drive item (file or folder) normalized from the Graph API
// response. Callers never see raw API JSON.
type Item struct {
	ID          string
	Name        string
	DriveID     string // normalized to lowercase (Graph API casing is inconsistent)
	Size        int64
	IsFolder    bool
	MimeType    string
	DownloadURL string // pre-authenticated, ephemeral; never log
}

// RemoteRef locates an item in its owning drive. For shared items this is
// the underlying storage location, not the share reference.
type RemoteRef struct {
	DriveID string
	ItemID  string
}

// SharedItem is an entry from the authenticated user's shared-with-me view.
type SharedItem struct {
	Name     string
	IsFolder bool
	Remote   RemoteRef
}

// User is the authenticated account, normalized from /me.
type User struct {
	ID          string
	DisplayName string
	Email       string
}
