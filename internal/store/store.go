package store

import (
	"context"
	"errors"

	"github.com/canalize/canalize/internal/m3u"
	"github.com/canalize/canalize/internal/models"
)

// ErrNotFound is returned when a row does not exist (or is not visible
// to the caller's tenant).
var ErrNotFound = errors.New("not found")

// Store defines persistence for playlists, categories, and channels.
// All reads are tenant-scoped; writes happen only inside ImportTx.
type Store interface {
	// ImportTx runs fn inside a single transaction. fn returning nil
	// commits; any error rolls back, so a failed import leaves no
	// playlist, category, or channel rows behind.
	ImportTx(ctx context.Context, fn func(ImportTx) error) error

	// ListPlaylists returns the tenant's playlists, newest first.
	ListPlaylists(ctx context.Context, tenantID int64) ([]models.Playlist, error)
	// ListCategories returns the categories of a playlist. Ownership is
	// enforced by joining through the playlist's tenant id.
	ListCategories(ctx context.Context, playlistID, tenantID int64) ([]models.Category, error)

	// Ping verifies connectivity.
	Ping(ctx context.Context) error
}

// ImportTx is the transaction-scoped write surface used by one import.
type ImportTx interface {
	// InsertPlaylist creates the playlist row and returns its id.
	InsertPlaylist(ctx context.Context, tenantID int64, name, sourceURL string) (int64, error)
	// InsertCategory creates a category row bound to the playlist.
	InsertCategory(ctx context.Context, playlistID int64, name string) (int64, error)
	// InsertChannels inserts channels with insert-or-ignore semantics
	// on (category_id, stream_url) and reports how many rows were
	// actually inserted vs. skipped as duplicates.
	InsertChannels(ctx context.Context, categoryID int64, channels []m3u.Channel) (inserted, duplicates int, err error)
}
