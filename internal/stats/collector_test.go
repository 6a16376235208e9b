package stats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ytsubs/ytsubs/internal/store"
)

// feedPageHTML mimics the channels feed page: two channelRenderer blobs
// embedded mid-stream in unrelated markup, one with a handle in
// subscriberCountText and one falling back to the canonical URL.
const feedPageHTML = `<html><script>var ytInitialData = {"items":[` +
	`{"channelRenderer":{"channelId":"UCaaa","title":{"simpleText":"Alpha Channel"},` +
	`"descriptionSnippet":{"runs":[{"text":"Weekly videos about "},{"text":"things"}]},` +
	`"thumbnail":{"thumbnails":[{"url":"//yt3.ggpht.com/alpha=s88"},{"url":"//yt3.ggpht.com/alpha=s176"}]},` +
	`"videoCountText":{"simpleText":"1.2M subscribers"},` +
	`"subscriberCountText":{"simpleText":"@alpha"},` +
	`"navigationEndpoint":{"commandMetadata":{"webCommandMetadata":{"url":"/@alpha"}},"browseEndpoint":{"canonicalBaseUrl":"/@alpha"}},` +
	`"ownerBadges":[{"metadataBadgeRenderer":{"style":"BADGE_STYLE_TYPE_VERIFIED"}}]}},` +
	`{"channelRenderer":{"channelId":"UCbbb","title":{"simpleText":"Beta"},` +
	`"videoCountText":{"simpleText":"No subscribers"},` +
	`"subscriberCountText":{"simpleText":"500 videos"},` +
	`"navigationEndpoint":{"commandMetadata":{"webCommandMetadata":{"url":"/@beta"}},"browseEndpoint":{"canonicalBaseUrl":"@beta"}}}}` +
	`]};</script></html>`

func TestExtractChannels(t *testing.T) {
	channels := ExtractChannels(feedPageHTML)
	require.Len(t, channels, 2)

	alpha := channels[0]
	assert.Equal(t, "alpha", alpha.Handle)
	assert.Equal(t, "UCaaa", alpha.YouTubeID)
	assert.Equal(t, "Alpha Channel", alpha.Name)
	assert.Equal(t, "https://www.youtube.com/@alpha", alpha.URL)
	assert.Equal(t, "Weekly videos about things", alpha.Description)
	assert.Equal(t, "https://yt3.ggpht.com/alpha=s176", alpha.Thumbnail)
	require.NotNil(t, alpha.Subscribers)
	assert.Equal(t, int64(1_200_000), *alpha.Subscribers)
	assert.True(t, alpha.Verified)

	beta := channels[1]
	assert.Equal(t, "beta", beta.Handle)
	require.NotNil(t, beta.Subscribers)
	assert.Equal(t, int64(0), *beta.Subscribers)
	assert.False(t, beta.Verified)
}

func TestExtractChannelsSkipsBrokenFragments(t *testing.T) {
	html := `{"channelRenderer":{"channelId":` + feedPageHTML
	channels := ExtractChannels(html)
	assert.Len(t, channels, 2)
}

func TestExtractChannelsEmptyPage(t *testing.T) {
	assert.Empty(t, ExtractChannels("<html><body>nothing here</body></html>"))
}

type statsPage struct {
	html string
}

func (p *statsPage) Navigate(ctx context.Context, url string) error { return nil }
func (p *statsPage) Evaluate(ctx context.Context, script string, out any) error {
	if s, ok := out.(*string); ok {
		*s = p.html
	}
	return nil
}
func (p *statsPage) ScrollToBottom(ctx context.Context) error          { return nil }
func (p *statsPage) ScrollHeight(ctx context.Context) (int64, error)   { return 0, nil }
func (p *statsPage) WaitForIdle(ctx context.Context, timeout time.Duration) error {
	return nil
}

type recordingStore struct {
	channels      []store.Channel
	baselines     map[string]float64
	storedSamples []int64
	failSet       bool
}

func (r *recordingStore) UpsertChannel(ctx context.Context, ch store.Channel) error {
	r.channels = append(r.channels, ch)
	return nil
}

func (r *recordingStore) SetChannelBaseline(ctx context.Context, id string, views float64, at time.Time) error {
	if r.failSet {
		return errors.New("write failed")
	}
	if r.baselines == nil {
		r.baselines = make(map[string]float64)
	}
	r.baselines[id] = views
	return nil
}

func (r *recordingStore) ChannelViewSamples(ctx context.Context, channelID string, limit int) ([]int64, error) {
	if r.storedSamples == nil {
		return nil, errors.New("no stored samples")
	}
	return r.storedSamples, nil
}

type fixedSampler struct{ samples []int64 }

func (s fixedSampler) Samples(ctx context.Context, channelURL string) ([]int64, error) {
	return s.samples, nil
}

type failingSampler struct{}

func (failingSampler) Samples(ctx context.Context, channelURL string) ([]int64, error) {
	return nil, errors.New("page did not load")
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func TestCollectorRun(t *testing.T) {
	st := &recordingStore{}
	clock := fixedClock{t: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)}
	collector := NewCollector(
		&statsPage{html: feedPageHTML},
		st,
		fixedSampler{samples: []int64{1000, 1100, 1200}},
		clock,
		zap.NewNop(),
	)

	sum, err := collector.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Channels)
	assert.Equal(t, 2, sum.Updated)
	assert.Equal(t, 2, sum.Baselines)
	assert.Zero(t, sum.Failed)

	require.Len(t, st.channels, 2)
	assert.Equal(t, "alpha", st.channels[0].ID)
	assert.Equal(t, "UCaaa", st.channels[0].YouTubeID)
	assert.True(t, st.channels[0].Verified)
	assert.InDelta(t, 1100, st.baselines["alpha"], 1)
}

func TestCollectorRunNoChannels(t *testing.T) {
	collector := NewCollector(&statsPage{html: "<html></html>"}, &recordingStore{}, nil, fixedClock{}, zap.NewNop())

	_, err := collector.Run(context.Background())
	require.Error(t, err)
}

func TestCollectorRunFallsBackToStoredViews(t *testing.T) {
	st := &recordingStore{storedSamples: []int64{2000, 2200, 2400}}
	collector := NewCollector(
		&statsPage{html: feedPageHTML},
		st,
		failingSampler{},
		fixedClock{t: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)},
		zap.NewNop(),
	)

	sum, err := collector.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Baselines)
	assert.Zero(t, sum.Failed)
	assert.InDelta(t, 2200, st.baselines["alpha"], 1)
}

func TestCollectorRunCountsBaselineFailures(t *testing.T) {
	st := &recordingStore{failSet: true}
	collector := NewCollector(
		&statsPage{html: feedPageHTML},
		st,
		fixedSampler{samples: []int64{1000}},
		fixedClock{},
		zap.NewNop(),
	)

	sum, err := collector.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Updated)
	assert.Equal(t, 2, sum.Failed)
	assert.Zero(t, sum.Baselines)
}
