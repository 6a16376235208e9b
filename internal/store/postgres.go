// Package store provides Postgres-backed persistence for channels and videos.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ytsubs/ytsubs/internal/crawler"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgxIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store persists channels and videos in Postgres. It is the single write
// path for both the crawl controller and the channel stats collector.
type Store struct {
	pool pgxIface
}

// New creates a Postgres-backed Store using the provided config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewWithPool constructs a Store from an existing pool (primarily for testing).
func NewWithPool(pool pgxIface) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Bootstrap creates the schema if it does not exist yet.
func (s *Store) Bootstrap(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("bootstrap schema: %w", err)
	}
	return nil
}

// UpsertVideo writes one normalized feed entry. An entry already present is
// refreshed in place: every field except channel_id and first_seen is
// overwritten on re-sight, including the published date, which is re-derived
// from relative text each session. Each call commits independently.
func (s *Store) UpsertVideo(ctx context.Context, entry crawler.Entry) (crawler.UpsertResult, error) {
	if entry.ID == "" {
		return 0, fmt.Errorf("video id is required")
	}
	now := time.Now().UTC()

	var existingID string
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM videos WHERE id = $1`, entry.ID,
	).Scan(&existingID)
	switch {
	case err == nil:
		_, err = s.pool.Exec(ctx, `
UPDATE videos
SET title = $2,
	url = $3,
	views = $4,
	thumbnail = $5,
	published = $6,
	duration_seconds = $7,
	last_seen = $8
WHERE id = $1`,
			entry.ID, entry.Title, entry.URL, entry.Views, entry.Thumbnail,
			entry.Published, entry.Duration, now)
		if err != nil {
			return 0, fmt.Errorf("update video: %w", err)
		}
		return crawler.UpsertUpdated, nil
	case errors.Is(err, pgx.ErrNoRows):
		_, err = s.pool.Exec(ctx, `
INSERT INTO videos (id, channel_id, title, url, thumbnail, views, published, duration_seconds, first_seen, last_seen)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`,
			entry.ID, entry.ChannelID, entry.Title, entry.URL, entry.Thumbnail,
			entry.Views, entry.Published, entry.Duration, now)
		if err != nil {
			return 0, fmt.Errorf("insert video: %w", err)
		}
		return crawler.UpsertInserted, nil
	default:
		return 0, fmt.Errorf("lookup video: %w", err)
	}
}

// PruneVideosBefore deletes rows that aged out of the retention window and
// returns how many were removed.
func (s *Store) PruneVideosBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM videos WHERE published < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune videos: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ChannelExists reports whether the channel is tracked. Video ingestion never
// creates channels; only the subscription scrape does.
func (s *Store) ChannelExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM channels WHERE id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("channel exists: %w", err)
	}
	return exists, nil
}

// UpsertChannel inserts or refreshes one subscribed channel. Baseline fields
// are left untouched; SetChannelBaseline owns those.
func (s *Store) UpsertChannel(ctx context.Context, ch Channel) error {
	if ch.ID == "" {
		return fmt.Errorf("channel id is required")
	}
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx, `
INSERT INTO channels (id, youtube_id, name, url, description, thumbnail, verified, subscribers, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
ON CONFLICT (id) DO UPDATE
SET youtube_id = EXCLUDED.youtube_id,
	name = EXCLUDED.name,
	url = EXCLUDED.url,
	description = EXCLUDED.description,
	thumbnail = EXCLUDED.thumbnail,
	verified = EXCLUDED.verified,
	subscribers = COALESCE(EXCLUDED.subscribers, channels.subscribers),
	updated_at = EXCLUDED.updated_at`,
		ch.ID, ch.YouTubeID, ch.Name, ch.URL, ch.Description, ch.Thumbnail, ch.Verified, ch.Subscribers, now)
	if err != nil {
		return fmt.Errorf("upsert channel: %w", err)
	}
	return nil
}

// SetChannelBaseline records the estimated typical view count for a channel.
func (s *Store) SetChannelBaseline(ctx context.Context, id string, views float64, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
UPDATE channels
SET baseline_views = $2, baseline_updated_at = $3
WHERE id = $1`,
		id, views, at)
	if err != nil {
		return fmt.Errorf("set baseline: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set baseline: channel %q not found", id)
	}
	return nil
}

// ListChannels returns every tracked channel ordered by name.
func (s *Store) ListChannels(ctx context.Context) ([]Channel, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, youtube_id, name, url, description, thumbnail, verified, subscribers,
	baseline_views, baseline_updated_at, created_at, updated_at
FROM channels
ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	var channels []Channel
	for rows.Next() {
		var ch Channel
		if err := rows.Scan(&ch.ID, &ch.YouTubeID, &ch.Name, &ch.URL, &ch.Description,
			&ch.Thumbnail, &ch.Verified, &ch.Subscribers,
			&ch.BaselineViews, &ch.BaselineUpdatedAt, &ch.CreatedAt, &ch.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		channels = append(channels, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate channels: %w", err)
	}
	return channels, nil
}

// CountChannelsWithSubscribers reports how many tracked channels have a
// known subscriber count, used to decide whether stats need collecting.
func (s *Store) CountChannelsWithSubscribers(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM channels WHERE subscribers IS NOT NULL`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count channels: %w", err)
	}
	return count, nil
}

// ChannelViewSamples returns the retained view counts for one channel, newest
// first, feeding the baseline estimator.
func (s *Store) ChannelViewSamples(ctx context.Context, channelID string, limit int) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `
SELECT views FROM videos
WHERE channel_id = $1
ORDER BY published DESC
LIMIT $2`, channelID, limit)
	if err != nil {
		return nil, fmt.Errorf("view samples: %w", err)
	}
	defer rows.Close()

	var samples []int64
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		samples = append(samples, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}
	return samples, nil
}

// ListFeedSource returns retained videos joined with their channel's name,
// subscriber count and baseline, newest first. The ranking engine scores
// these rows in memory.
func (s *Store) ListFeedSource(ctx context.Context, since time.Time) ([]FeedRow, error) {
	rows, err := s.pool.Query(ctx, `
SELECT v.id, v.channel_id, v.title, v.url, v.thumbnail, v.views, v.published, v.duration_seconds,
	c.name, c.thumbnail, c.verified, c.subscribers, c.baseline_views
FROM videos v
JOIN channels c ON c.id = v.channel_id
WHERE v.published >= $1
ORDER BY v.published DESC`, since)
	if err != nil {
		return nil, fmt.Errorf("list feed source: %w", err)
	}
	defer rows.Close()

	var feed []FeedRow
	for rows.Next() {
		var row FeedRow
		if err := rows.Scan(&row.ID, &row.ChannelID, &row.Title, &row.URL, &row.Thumbnail,
			&row.Views, &row.Published, &row.Duration,
			&row.ChannelName, &row.ChannelThumbnail, &row.ChannelVerified,
			&row.Subscribers, &row.BaselineViews); err != nil {
			return nil, fmt.Errorf("scan feed row: %w", err)
		}
		feed = append(feed, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feed source: %w", err)
	}
	return feed, nil
}
