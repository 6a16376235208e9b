package ranking

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ytsubs/ytsubs/internal/crawler"
	"github.com/ytsubs/ytsubs/internal/store"
)

// feedSource is the slice of the store the engine reads.
type feedSource interface {
	ListFeedSource(ctx context.Context, since time.Time) ([]store.FeedRow, error)
}

// Channel is the channel block attached to each ranked video.
type Channel struct {
	Name          string   `json:"name"`
	Thumbnail     string   `json:"thumbnail,omitempty"`
	Verified      bool     `json:"is_verified"`
	Subscribers   *int64   `json:"subscriber_count"`
	BaselineViews *float64 `json:"average_views"`
}

// Video is one scored feed entry, ordered best first. PerformanceScore is
// the composite total; Score carries its component breakdown.
type Video struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	URL              string    `json:"url"`
	Thumbnail        string    `json:"thumbnail"`
	Views            int64     `json:"views"`
	Published        time.Time `json:"published_date"`
	Duration         *int64    `json:"duration"`
	Channel          Channel   `json:"channel"`
	PerformanceScore float64   `json:"performance_score"`
	Score            Score     `json:"score"`
}

// Engine ranks retained videos against their channel baselines.
type Engine struct {
	source feedSource
	clock  crawler.Clock
	window time.Duration
	logger *zap.Logger
}

// NewEngine builds an Engine scoring videos published within window.
func NewEngine(source feedSource, clock crawler.Clock, window time.Duration, logger *zap.Logger) *Engine {
	return &Engine{source: source, clock: clock, window: window, logger: logger}
}

// Rank loads the retained window and returns it scored and sorted, highest
// score first with newer videos breaking ties.
func (e *Engine) Rank(ctx context.Context) ([]Video, error) {
	now := e.clock.Now()
	rows, err := e.source.ListFeedSource(ctx, now.Add(-e.window))
	if err != nil {
		return nil, fmt.Errorf("load feed source: %w", err)
	}

	videos := make([]Video, 0, len(rows))
	for _, row := range rows {
		videos = append(videos, e.scoreRow(row, now))
	}

	sort.SliceStable(videos, func(i, j int) bool {
		if videos[i].Score.Total != videos[j].Score.Total {
			return videos[i].Score.Total > videos[j].Score.Total
		}
		return videos[i].Published.After(videos[j].Published)
	})

	e.logger.Debug("ranked feed", zap.Int("videos", len(videos)))
	return videos, nil
}

func (e *Engine) scoreRow(row store.FeedRow, now time.Time) Video {
	in := Inputs{
		Views:           row.Views,
		AgeHours:        now.Sub(row.Published).Hours(),
		DurationSeconds: row.Duration,
	}
	if row.Subscribers != nil {
		in.Subscribers = *row.Subscribers
	}
	if row.BaselineViews != nil {
		in.BaselineViews = *row.BaselineViews
	}

	score := Compute(in)
	return Video{
		ID:        row.ID,
		Title:     row.Title,
		URL:       row.URL,
		Thumbnail: thumbnailURL(row.ID, row.Thumbnail),
		Views:     row.Views,
		Published: row.Published,
		Duration:  row.Duration,
		Channel: Channel{
			Name:          row.ChannelName,
			Thumbnail:     row.ChannelThumbnail,
			Verified:      row.ChannelVerified,
			Subscribers:   row.Subscribers,
			BaselineViews: row.BaselineViews,
		},
		PerformanceScore: score.Total,
		Score:            score,
	}
}

// thumbnailURL falls back to the predictable CDN path when the tile carried
// no thumbnail.
func thumbnailURL(videoID, thumbnail string) string {
	if strings.TrimSpace(thumbnail) != "" {
		return thumbnail
	}
	return fmt.Sprintf("https://i.ytimg.com/vi/%s/maxresdefault.jpg", videoID)
}
