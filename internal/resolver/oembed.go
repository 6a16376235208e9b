// Package resolver recovers channel affiliation for feed entries whose tile
// markup did not expose a channel link.
package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ytsubs/ytsubs/internal/crawler"
)

const defaultEndpoint = "https://www.youtube.com/oembed"

var (
	handleRe  = regexp.MustCompile(`@([\w.-]+)`)
	channelRe = regexp.MustCompile(`channel/([\w-]+)`)
)

// oembedResponse is the subset of the oEmbed payload the resolver needs.
type oembedResponse struct {
	AuthorName string `json:"author_name"`
	AuthorURL  string `json:"author_url"`
}

// OEmbed resolves a video's channel through the public oEmbed endpoint.
// Lookups are rate limited and bounded; failures are returned to the caller,
// which treats them as an unattributable entry rather than retrying.
type OEmbed struct {
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// Option customizes an OEmbed resolver.
type Option func(*OEmbed)

// WithEndpoint overrides the oEmbed URL, used by tests.
func WithEndpoint(endpoint string) Option {
	return func(o *OEmbed) { o.endpoint = endpoint }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *OEmbed) { o.client = client }
}

// NewOEmbed builds a resolver allowing at most rps lookups per second.
func NewOEmbed(rps float64, logger *zap.Logger, opts ...Option) *OEmbed {
	o := &OEmbed{
		endpoint: defaultEndpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Resolve looks up the channel behind videoID. One bounded request per call.
func (o *OEmbed) Resolve(ctx context.Context, videoID string) (crawler.Resolution, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return crawler.Resolution{}, fmt.Errorf("resolver: rate limit wait: %w", err)
	}

	query := url.Values{}
	query.Set("url", "https://www.youtube.com/watch?v="+videoID)
	query.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return crawler.Resolution{}, fmt.Errorf("resolver: build request: %w", err)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return crawler.Resolution{}, fmt.Errorf("resolver: lookup %s: %w", videoID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return crawler.Resolution{}, fmt.Errorf("resolver: lookup %s: status %d", videoID, resp.StatusCode)
	}

	var payload oembedResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return crawler.Resolution{}, fmt.Errorf("resolver: decode %s: %w", videoID, err)
	}

	channelID := channelIDFromURL(payload.AuthorURL)
	if channelID == "" {
		return crawler.Resolution{}, fmt.Errorf("resolver: no channel in author url %q", payload.AuthorURL)
	}

	o.logger.Debug("resolved channel",
		zap.String("video_id", videoID),
		zap.String("channel_id", channelID),
		zap.String("channel_name", payload.AuthorName),
	)
	return crawler.Resolution{
		ChannelID:   channelID,
		ChannelURL:  payload.AuthorURL,
		ChannelName: payload.AuthorName,
	}, nil
}

// channelIDFromURL extracts a handle or UC identifier from an author URL.
// Handles are preferred since the crawler keys channels the same way.
func channelIDFromURL(authorURL string) string {
	if m := handleRe.FindStringSubmatch(authorURL); m != nil {
		return m[1]
	}
	if m := channelRe.FindStringSubmatch(authorURL); m != nil {
		return m[1]
	}
	return ""
}
