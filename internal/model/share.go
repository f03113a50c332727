package model

import "time"

// ShareRecord describes one uploaded file and the rules for accessing it through its short link.
// This is a pure domain model with no database-specific dependencies or tags.
type ShareRecord struct {
	ID      int64 `json:"id"`
	OwnerID int64 `json:"userId"`

	OriginalName    string `json:"originalName"`
	StorageLocation string `json:"-"`
	FileSize        int64  `json:"fileSize"`
	MimeType        string `json:"mimeType"`

	ShortLink string `json:"shortLink"`
	// Password is compared as plaintext; nil means the link is open.
	Password      *string    `json:"-"`
	DownloadCount int64      `json:"downloadCount"`
	ExpiresAt     *time.Time `json:"expiresAt"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// HasPassword reports whether the record is password protected.
func (r *ShareRecord) HasPassword() bool {
	return r.Password != nil && *r.Password != ""
}

// OwnerStats aggregates an owner's records for the dashboard.
type OwnerStats struct {
	TotalFiles     int64         `json:"totalFiles"`
	TotalSize      int64         `json:"totalSize"`
	TotalDownloads int64         `json:"totalDownloads"`
	PopularFiles   []ShareRecord `json:"popularFiles"`
}
