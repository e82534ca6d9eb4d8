package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/canalize/canalize/internal/m3u"
	"github.com/canalize/canalize/internal/models"
)

// Postgres implements Store using PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres store from a DSN. Caller must call
// Close when done.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// Ping verifies connectivity.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// ImportTx runs fn inside one transaction. The deferred rollback is a
// no-op once the commit succeeds.
func (p *Postgres) ImportTx(ctx context.Context, fn func(ImportTx) error) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgImportTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListPlaylists returns the tenant's playlists, newest first.
func (p *Postgres) ListPlaylists(ctx context.Context, tenantID int64) ([]models.Playlist, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, name, source_url, created_at
		 FROM playlists
		 WHERE tenant_id = $1
		 ORDER BY id DESC`,
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListPlaylists: %w", err)
	}
	defer rows.Close()

	var playlists []models.Playlist
	for rows.Next() {
		pl := models.Playlist{TenantID: tenantID}
		if err := rows.Scan(&pl.ID, &pl.Name, &pl.SourceURL, &pl.CreatedAt); err != nil {
			return nil, fmt.Errorf("ListPlaylists scan: %w", err)
		}
		playlists = append(playlists, pl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListPlaylists rows: %w", err)
	}
	return playlists, nil
}

// ListCategories returns the playlist's categories in insertion order.
// The join against playlists enforces tenant isolation.
func (p *Postgres) ListCategories(ctx context.Context, playlistID, tenantID int64) ([]models.Category, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT c.id, c.name, c.created_at
		 FROM categories c
		 INNER JOIN playlists p ON p.id = c.playlist_id
		 WHERE c.playlist_id = $1 AND p.tenant_id = $2
		 ORDER BY c.id`,
		playlistID, tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListCategories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		c := models.Category{PlaylistID: playlistID}
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("ListCategories scan: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListCategories rows: %w", err)
	}
	return categories, nil
}

// pgImportTx is the transaction-scoped write surface.
type pgImportTx struct {
	tx pgx.Tx
}

func (t *pgImportTx) InsertPlaylist(ctx context.Context, tenantID int64, name, sourceURL string) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO playlists (tenant_id, name, source_url) VALUES ($1, $2, $3) RETURNING id`,
		tenantID, name, sourceURL,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("InsertPlaylist: %w", err)
	}
	return id, nil
}

func (t *pgImportTx) InsertCategory(ctx context.Context, playlistID int64, name string) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO categories (playlist_id, name) VALUES ($1, $2) RETURNING id`,
		playlistID, name,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("InsertCategory: %w", err)
	}
	return id, nil
}

// InsertChannels pipelines the inserts for one category in a single
// batch round-trip. ON CONFLICT DO NOTHING gives insert-or-ignore
// semantics: a duplicate stream URL affects zero rows and is counted,
// not failed.
func (t *pgImportTx) InsertChannels(ctx context.Context, categoryID int64, channels []m3u.Channel) (inserted, duplicates int, err error) {
	if len(channels) == 0 {
		return 0, 0, nil
	}

	batch := &pgx.Batch{}
	for _, ch := range channels {
		var logo *string
		if ch.Logo != "" {
			l := ch.Logo
			logo = &l
		}
		batch.Queue(
			`INSERT INTO channels (category_id, name, logo_url, stream_url)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (category_id, stream_url) DO NOTHING`,
			categoryID, ch.Name, logo, ch.URL,
		)
	}

	results := t.tx.SendBatch(ctx, batch)
	defer results.Close()

	for range channels {
		tag, err := results.Exec()
		if err != nil {
			return inserted, duplicates, fmt.Errorf("InsertChannels: %w", err)
		}
		if tag.RowsAffected() == 1 {
			inserted++
		} else {
			duplicates++
		}
	}
	if err := results.Close(); err != nil {
		return inserted, duplicates, fmt.Errorf("InsertChannels close: %w", err)
	}
	return inserted, duplicates, nil
}
