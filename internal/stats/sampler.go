package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/ytsubs/ytsubs/internal/crawler"
)

// sampleLimit caps how many tiles from the videos tab feed the baseline.
const sampleLimit = 30

// viewTextScript pulls the raw view-count text of the first tiles on a
// channel's videos tab. Parsing happens Go-side so the same normalizer
// handles every surface.
const viewTextScript = `(() => {
	const tiles = Array.from(document.querySelectorAll('ytd-rich-grid-media, ytd-rich-item-renderer, ytd-grid-video-renderer')).slice(0, 30);
	return tiles.map(el => {
		const metadata = el.querySelector('#metadata-line');
		if (metadata) {
			for (const span of metadata.querySelectorAll('span')) {
				if (span.textContent.includes('views')) return span.textContent.trim();
			}
		}
		for (const span of el.querySelectorAll('yt-lockup-metadata-view-model span')) {
			if (span.textContent.includes('views')) return span.textContent.trim();
		}
		return '';
	}).filter(t => t !== '');
})()`

// PageSampler reads recent view counts off a channel's videos tab through
// the shared browser session.
type PageSampler struct {
	page crawler.SnapshotProvider
}

// NewPageSampler builds a sampler over the given browser session.
func NewPageSampler(page crawler.SnapshotProvider) *PageSampler {
	return &PageSampler{page: page}
}

// Samples navigates to the channel's videos tab and returns the parseable
// view counts of its most recent uploads.
func (p *PageSampler) Samples(ctx context.Context, channelURL string) ([]int64, error) {
	if err := p.page.Navigate(ctx, channelURL+"/videos"); err != nil {
		return nil, fmt.Errorf("stats: open videos tab: %w", err)
	}
	// One scroll loads enough tiles for a stable baseline.
	_ = p.page.ScrollToBottom(ctx)
	_ = p.page.WaitForIdle(ctx, time.Second)

	var texts []string
	if err := p.page.Evaluate(ctx, viewTextScript, &texts); err != nil {
		return nil, fmt.Errorf("stats: read view counts: %w", err)
	}

	samples := make([]int64, 0, len(texts))
	for _, text := range texts {
		v, err := crawler.ParseCompactCount(text)
		if err != nil || v <= 0 {
			continue
		}
		samples = append(samples, v)
		if len(samples) >= sampleLimit {
			break
		}
	}
	return samples, nil
}
