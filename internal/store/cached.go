package store

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/canalize/canalize/internal/cache"
	"github.com/canalize/canalize/internal/models"
)

// Listing TTLs. Imports invalidate eagerly, so these only bound how
// long stale rows linger after out-of-band changes (tenant deletion).
const (
	ttlPlaylists  = 2 * time.Minute
	ttlCategories = 5 * time.Minute
)

// CachedStore wraps a Store with a Redis caching layer for the
// tenant-scoped listing reads. Imports pass through and invalidate the
// tenant's cached listings on commit.
type CachedStore struct {
	inner Store
	cache *cache.Redis
}

// NewCachedStore creates a CachedStore that wraps inner with Redis caching.
func NewCachedStore(inner Store, c *cache.Redis) *CachedStore {
	return &CachedStore{inner: inner, cache: c}
}

func (c *CachedStore) Ping(ctx context.Context) error {
	return c.inner.Ping(ctx)
}

func (c *CachedStore) ListPlaylists(ctx context.Context, tenantID int64) ([]models.Playlist, error) {
	key := fmt.Sprintf("playlists:%d", tenantID)
	if v, err := cache.Get[[]models.Playlist](ctx, c.cache, key); err == nil {
		return v, nil
	}
	playlists, err := c.inner.ListPlaylists(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if err := cache.Set(ctx, c.cache, key, playlists, ttlPlaylists); err != nil {
		log.Printf("cache: set %s: %v", key, err)
	}
	return playlists, nil
}

func (c *CachedStore) ListCategories(ctx context.Context, playlistID, tenantID int64) ([]models.Category, error) {
	key := fmt.Sprintf("categories:%d:%d", tenantID, playlistID)
	if v, err := cache.Get[[]models.Category](ctx, c.cache, key); err == nil {
		return v, nil
	}
	categories, err := c.inner.ListCategories(ctx, playlistID, tenantID)
	if err != nil {
		return nil, err
	}
	if err := cache.Set(ctx, c.cache, key, categories, ttlCategories); err != nil {
		log.Printf("cache: set %s: %v", key, err)
	}
	return categories, nil
}

// ImportTx delegates to the inner store and invalidates the importing
// tenant's listings once the transaction commits. The tenant id is
// observed from the InsertPlaylist call inside the transaction.
func (c *CachedStore) ImportTx(ctx context.Context, fn func(ImportTx) error) error {
	var tenantID int64
	err := c.inner.ImportTx(ctx, func(tx ImportTx) error {
		return fn(&recordingImportTx{ImportTx: tx, tenantID: &tenantID})
	})
	if err != nil {
		return err
	}
	if tenantID != 0 {
		c.invalidateTenant(ctx, tenantID)
	}
	return nil
}

func (c *CachedStore) invalidateTenant(ctx context.Context, tenantID int64) {
	if err := cache.Del(ctx, c.cache, fmt.Sprintf("playlists:%d", tenantID)); err != nil {
		log.Printf("cache: invalidate playlists:%d: %v", tenantID, err)
	}
	if err := cache.DelPattern(ctx, c.cache, fmt.Sprintf("categories:%d:*", tenantID)); err != nil {
		log.Printf("cache: invalidate categories:%d: %v", tenantID, err)
	}
}

// recordingImportTx captures the tenant id flowing through the
// transaction so the wrapper knows which keys to invalidate.
type recordingImportTx struct {
	ImportTx
	tenantID *int64
}

func (r *recordingImportTx) InsertPlaylist(ctx context.Context, tenantID int64, name, sourceURL string) (int64, error) {
	*r.tenantID = tenantID
	return r.ImportTx.InsertPlaylist(ctx, tenantID, name, sourceURL)
}
