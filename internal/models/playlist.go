package models

import "time"

// Playlist is one imported M3U playlist owned by a tenant.
// Playlists are created once per successful import and never updated;
// deletion happens only through the tenant cascade.
type Playlist struct {
	ID        int64     `json:"id"`
	TenantID  int64     `json:"tenantId,omitempty"`
	Name      string    `json:"name"`
	SourceURL string    `json:"sourceUrl"`
	CreatedAt time.Time `json:"createdAt"`
}

// Category is a channel group inside a playlist (group-title from the M3U).
type Category struct {
	ID         int64     `json:"id"`
	PlaylistID int64     `json:"playlistId,omitempty"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Channel is a single stream entry inside a category.
// (category_id, stream_url) is unique; duplicate URLs are skipped on import.
type Channel struct {
	ID         int64     `json:"id"`
	CategoryID int64     `json:"categoryId,omitempty"`
	Name       string    `json:"name"`
	LogoURL    *string   `json:"logoUrl,omitempty"`
	StreamURL  string    `json:"streamUrl"`
	CreatedAt  time.Time `json:"createdAt"`
}
