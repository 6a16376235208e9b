package stats

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ytsubs/ytsubs/internal/crawler"
	"github.com/ytsubs/ytsubs/internal/store"
)

const channelsFeedURL = "https://www.youtube.com/feed/channels"

// channelStore is the slice of the store the collector writes through.
type channelStore interface {
	UpsertChannel(ctx context.Context, ch store.Channel) error
	SetChannelBaseline(ctx context.Context, id string, views float64, at time.Time) error
	ChannelViewSamples(ctx context.Context, channelID string, limit int) ([]int64, error)
}

// Sampler produces recent view counts for one channel.
type Sampler interface {
	Samples(ctx context.Context, channelURL string) ([]int64, error)
}

// Collector scrapes the subscribed-channels feed and refreshes each
// channel's subscriber count and view baseline.
type Collector struct {
	page    crawler.SnapshotProvider
	store   channelStore
	sampler Sampler
	clock   crawler.Clock
	logger  *zap.Logger
}

// NewCollector wires a Collector. sampler may be nil to skip baselines.
func NewCollector(page crawler.SnapshotProvider, st channelStore, sampler Sampler, clock crawler.Clock, logger *zap.Logger) *Collector {
	return &Collector{page: page, store: st, sampler: sampler, clock: clock, logger: logger}
}

// Summary reports the outcome of one collection run.
type Summary struct {
	Channels  int `json:"channels"`
	Updated   int `json:"updated"`
	Baselines int `json:"baselines"`
	Failed    int `json:"failed"`
}

// Run scrapes the channels feed, upserts every subscribed channel, then
// visits each channel's videos tab to estimate its view baseline. Failures
// on individual channels are counted, not fatal.
func (c *Collector) Run(ctx context.Context) (Summary, error) {
	var sum Summary

	if err := c.page.Navigate(ctx, channelsFeedURL); err != nil {
		return sum, err
	}
	_ = c.page.WaitForIdle(ctx, 2*time.Second)

	var html string
	if err := c.page.Evaluate(ctx, `document.documentElement.outerHTML`, &html); err != nil {
		return sum, err
	}

	channels := ExtractChannels(html)
	sum.Channels = len(channels)
	if len(channels) == 0 {
		return sum, errors.New("stats: no channels found on feed page")
	}
	c.logger.Info("found subscribed channels", zap.Int("count", len(channels)))

	for _, info := range channels {
		if ctx.Err() != nil {
			return sum, ctx.Err()
		}
		ch := store.Channel{
			ID:          info.Handle,
			YouTubeID:   info.YouTubeID,
			Name:        info.Name,
			URL:         info.URL,
			Description: info.Description,
			Thumbnail:   info.Thumbnail,
			Verified:    info.Verified,
			Subscribers: info.Subscribers,
		}
		if err := c.store.UpsertChannel(ctx, ch); err != nil {
			sum.Failed++
			c.logger.Warn("channel upsert failed", zap.String("channel", info.Handle), zap.Error(err))
			continue
		}
		sum.Updated++

		if c.sampler == nil || info.URL == "" {
			continue
		}
		samples, err := c.sampler.Samples(ctx, info.URL)
		if err != nil {
			// Fall back to view counts already retained from past crawls.
			c.logger.Warn("view sampling failed, using stored views",
				zap.String("channel", info.Handle), zap.Error(err))
			samples, err = c.store.ChannelViewSamples(ctx, info.Handle, sampleLimit)
			if err != nil {
				sum.Failed++
				continue
			}
		}
		baseline, ok := EstimateBaseline(samples)
		if !ok {
			c.logger.Debug("no usable view samples", zap.String("channel", info.Handle))
			continue
		}
		if err := c.store.SetChannelBaseline(ctx, info.Handle, baseline, c.clock.Now()); err != nil {
			sum.Failed++
			c.logger.Warn("baseline write failed", zap.String("channel", info.Handle), zap.Error(err))
			continue
		}
		sum.Baselines++
		c.logger.Info("channel refreshed",
			zap.String("channel", info.Handle),
			zap.Float64("baseline_views", baseline),
		)
	}
	return sum, nil
}

// ChannelInfo is one channel parsed out of the channels feed page.
type ChannelInfo struct {
	Handle      string
	YouTubeID   string
	Name        string
	URL         string
	Description string
	Thumbnail   string
	Subscribers *int64
	Verified    bool
}

// channelRenderer mirrors the slice of the feed page's embedded data the
// collector reads. Everything else in the blob is ignored.
type channelRenderer struct {
	ChannelID string `json:"channelId"`
	Title     struct {
		SimpleText string `json:"simpleText"`
	} `json:"title"`
	DescriptionSnippet struct {
		Runs []struct {
			Text string `json:"text"`
		} `json:"runs"`
	} `json:"descriptionSnippet"`
	Thumbnail struct {
		Thumbnails []struct {
			URL string `json:"url"`
		} `json:"thumbnails"`
	} `json:"thumbnail"`
	VideoCountText struct {
		SimpleText    string `json:"simpleText"`
		Accessibility struct {
			AccessibilityData struct {
				Label string `json:"label"`
			} `json:"accessibilityData"`
		} `json:"accessibility"`
	} `json:"videoCountText"`
	SubscriberCountText struct {
		SimpleText string `json:"simpleText"`
	} `json:"subscriberCountText"`
	NavigationEndpoint struct {
		CommandMetadata struct {
			WebCommandMetadata struct {
				URL string `json:"url"`
			} `json:"webCommandMetadata"`
		} `json:"commandMetadata"`
		BrowseEndpoint struct {
			CanonicalBaseURL string `json:"canonicalBaseUrl"`
		} `json:"browseEndpoint"`
	} `json:"navigationEndpoint"`
	OwnerBadges []struct {
		MetadataBadgeRenderer struct {
			Style string `json:"style"`
		} `json:"metadataBadgeRenderer"`
	} `json:"ownerBadges"`
}

const channelRendererMarker = `{"channelRenderer":`

// ExtractChannels pulls every channelRenderer object out of the raw page
// HTML. Each marker occurrence is decoded as a single JSON value, so the
// surrounding blob never has to be parsed whole. Fragments that fail to
// decode are skipped.
func ExtractChannels(html string) []ChannelInfo {
	var channels []ChannelInfo
	seen := make(map[string]struct{})

	offset := 0
	for {
		idx := strings.Index(html[offset:], channelRendererMarker)
		if idx < 0 {
			break
		}
		start := offset + idx
		offset = start + len(channelRendererMarker)

		var wrapper struct {
			ChannelRenderer channelRenderer `json:"channelRenderer"`
		}
		dec := json.NewDecoder(strings.NewReader(html[start:]))
		if err := dec.Decode(&wrapper); err != nil {
			continue
		}
		info, ok := toChannelInfo(wrapper.ChannelRenderer)
		if !ok {
			continue
		}
		if _, dup := seen[info.Handle]; dup {
			continue
		}
		seen[info.Handle] = struct{}{}
		channels = append(channels, info)
	}
	return channels
}

func toChannelInfo(r channelRenderer) (ChannelInfo, bool) {
	if r.ChannelID == "" {
		return ChannelInfo{}, false
	}

	// The feed page swaps the meaning of these two fields: videoCountText
	// carries the subscriber count and subscriberCountText the handle.
	handle := ""
	if strings.HasPrefix(r.SubscriberCountText.SimpleText, "@") {
		handle = strings.TrimPrefix(r.SubscriberCountText.SimpleText, "@")
	}
	if handle == "" {
		if base := r.NavigationEndpoint.BrowseEndpoint.CanonicalBaseURL; strings.HasPrefix(base, "@") {
			handle = strings.TrimPrefix(base, "@")
		} else if strings.HasPrefix(base, "/@") {
			handle = strings.TrimPrefix(base, "/@")
		}
	}
	if handle == "" {
		return ChannelInfo{}, false
	}

	subText := r.VideoCountText.SimpleText
	if subText == "" {
		subText = r.VideoCountText.Accessibility.AccessibilityData.Label
	}
	var subscribers *int64
	if n, err := crawler.ParseCompactCount(subText); err == nil {
		subscribers = &n
	}

	verified := false
	for _, badge := range r.OwnerBadges {
		if badge.MetadataBadgeRenderer.Style == "BADGE_STYLE_TYPE_VERIFIED" {
			verified = true
			break
		}
	}

	url := r.NavigationEndpoint.CommandMetadata.WebCommandMetadata.URL
	if url != "" && !strings.HasPrefix(url, "http") {
		url = "https://www.youtube.com" + url
	}

	var desc strings.Builder
	for _, run := range r.DescriptionSnippet.Runs {
		desc.WriteString(run.Text)
	}

	// The last thumbnail variant is the largest one.
	thumb := ""
	if n := len(r.Thumbnail.Thumbnails); n > 0 {
		thumb = r.Thumbnail.Thumbnails[n-1].URL
		if strings.HasPrefix(thumb, "//") {
			thumb = "https:" + thumb
		}
	}

	return ChannelInfo{
		Handle:      handle,
		YouTubeID:   r.ChannelID,
		Name:        r.Title.SimpleText,
		URL:         url,
		Description: desc.String(),
		Thumbnail:   thumb,
		Subscribers: subscribers,
		Verified:    verified,
	}, true
}
