package store

import "time"

// Channel is one subscribed channel. ID is the channel handle when one is
// known, the raw YouTube channel id otherwise. Subscribers and baseline are
// pointers because absent data must stay distinguishable from zero.
type Channel struct {
	ID                string
	YouTubeID         string
	Name              string
	URL               string
	Description       string
	Thumbnail         string
	Verified          bool
	Subscribers       *int64
	BaselineViews     *float64
	BaselineUpdatedAt *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// FeedRow is one retained video joined with the channel fields the ranking
// engine scores against.
type FeedRow struct {
	ID            string
	ChannelID     string
	Title         string
	URL           string
	Thumbnail     string
	Views         int64
	Published     time.Time
	Duration      *int64
	ChannelName      string
	ChannelThumbnail string
	ChannelVerified  bool
	Subscribers      *int64
	BaselineViews    *float64
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS channels (
	id TEXT PRIMARY KEY,
	youtube_id TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL DEFAULT '',
	url TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	thumbnail TEXT NOT NULL DEFAULT '',
	verified BOOLEAN NOT NULL DEFAULT FALSE,
	subscribers BIGINT,
	baseline_views DOUBLE PRECISION,
	baseline_updated_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS videos (
	id TEXT PRIMARY KEY,
	channel_id TEXT NOT NULL REFERENCES channels(id) ON DELETE CASCADE,
	title TEXT NOT NULL,
	url TEXT NOT NULL,
	thumbnail TEXT NOT NULL DEFAULT '',
	views BIGINT NOT NULL,
	published TIMESTAMPTZ NOT NULL,
	duration_seconds BIGINT,
	first_seen TIMESTAMPTZ NOT NULL,
	last_seen TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS videos_published_idx ON videos (published);
CREATE INDEX IF NOT EXISTS videos_channel_idx ON videos (channel_id);
`
