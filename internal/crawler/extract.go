package crawler

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Strategy extracts raw entries from the currently rendered page. Each
// strategy targets one generation of the feed markup; supporting a new
// layout means appending a strategy, never editing an existing one.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, page SnapshotProvider) ([]RawEntry, error)
}

// Chain evaluates strategies in fixed priority order and returns the first
// non-empty result set. It is the only component that has to change when the
// feed markup does.
type Chain struct {
	strategies []Strategy
	logger     *zap.Logger
}

// NewChain builds a chain over the given strategies.
func NewChain(logger *zap.Logger, strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies, logger: logger}
}

// DefaultChain returns the chain covering all known feed layouts, newest
// markup first.
func DefaultChain(logger *zap.Logger) *Chain {
	return NewChain(logger,
		scriptStrategy{name: "lockup-view-model", script: lockupViewModelScript},
		scriptStrategy{name: "rich-grid", script: richGridScript},
		scriptStrategy{name: "grid-renderer", script: gridRendererScript},
	)
}

// TryExtract runs the chain against one snapshot. All strategies returning
// zero entries is not an error; it feeds the empty-extraction predicate.
func (c *Chain) TryExtract(ctx context.Context, page SnapshotProvider) ([]RawEntry, error) {
	for _, s := range c.strategies {
		entries, err := s.Extract(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("strategy %s: %w", s.Name(), err)
		}
		if len(entries) > 0 {
			c.logger.Debug("extraction strategy matched",
				zap.String("strategy", s.Name()),
				zap.Int("entries", len(entries)),
			)
			return entries, nil
		}
	}
	return nil, nil
}

// scriptStrategy extracts entries by evaluating a JavaScript snippet against
// the live page and decoding its JSON result.
type scriptStrategy struct {
	name   string
	script string
}

func (s scriptStrategy) Name() string { return s.name }

func (s scriptStrategy) Extract(ctx context.Context, page SnapshotProvider) ([]RawEntry, error) {
	var entries []RawEntry
	if err := page.Evaluate(ctx, s.script, &entries); err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	return entries, nil
}

// Current markup: lockup view-model tiles with attributed-string links and
// badge-shape duration overlays.
const lockupViewModelScript = `(() => {
	const absolutize = (href) => {
		if (!href) return '';
		if (href.startsWith('http')) return href;
		return new URL(href, 'https://www.youtube.com').href;
	};
	const tiles = Array.from(document.querySelectorAll('ytd-rich-item-renderer:not([is-slim-media])'))
		.filter(el => el.querySelector('yt-lockup-metadata-view-model'));
	return tiles.map(el => {
		const titleEl = el.querySelector('h3 a') || el.querySelector('a#video-title-link');
		const channelEl = Array.from(el.querySelectorAll('a.yt-core-attributed-string__link, [href*="/@"], [href*="/channel/"]'))
			.find(a => a.href && !a.href.includes('/watch?v='));
		const channelText = el.querySelector('yt-content-metadata-view-model span');
		const thumb = el.querySelector('img.yt-core-image--loaded') || el.querySelector('yt-image img');
		const durationEl = el.querySelector('badge-shape.yt-badge-shape div.yt-badge-shape__text') ||
			el.querySelector('div.yt-badge-shape__text') ||
			el.querySelector('yt-thumbnail-overlay-time-status-view-model span');
		let views = '';
		let publishDate = '';
		el.querySelectorAll('yt-lockup-metadata-view-model span').forEach(span => {
			const text = span.textContent.trim();
			if (text.includes('views')) {
				views = text;
			} else if (/ago|hour|day|week|month|year/.test(text)) {
				publishDate = text;
			}
		});
		const channelUrl = channelEl ? absolutize(channelEl.getAttribute('href') || channelEl.href) : '';
		let channelId = '';
		if (channelUrl) {
			const handle = channelUrl.match(/@([\w-]+)/);
			const chan = channelUrl.match(/channel\/([\w-]+)/);
			channelId = handle ? handle[1] : (chan ? chan[1] : '');
		}
		return {
			title: titleEl ? titleEl.textContent.trim() : '',
			url: titleEl ? absolutize(titleEl.getAttribute('href') || titleEl.href) : '',
			channelName: channelEl ? channelEl.textContent.trim() : '',
			channelUrl: channelUrl,
			channelId: channelId,
			channelText: channelText ? channelText.textContent.trim() : '',
			views: views,
			publishDate: publishDate,
			thumbnailUrl: thumb ? thumb.src : '',
			duration: durationEl ? durationEl.textContent.trim() : ''
		};
	}).filter(e => e.title && e.url);
})()`

// Classic rich-grid markup with #video-title-link and #metadata-line spans.
const richGridScript = `(() => {
	const absolutize = (href) => {
		if (!href) return '';
		if (href.startsWith('http')) return href;
		return new URL(href, 'https://www.youtube.com').href;
	};
	let tiles = Array.from(document.querySelectorAll('ytd-rich-item-renderer:not([is-slim-media])'));
	if (tiles.length === 0) {
		tiles = Array.from(document.querySelectorAll('ytd-rich-grid-media'));
	}
	return tiles.map(el => {
		const titleEl = el.querySelector('a#video-title-link') ||
			el.querySelector('h3 a#video-title') ||
			el.querySelector('#video-title');
		const channelEl = el.querySelector('#channel-name a') ||
			el.querySelector('ytd-channel-name a');
		const thumb = el.querySelector('yt-image img');
		const durationEl = el.querySelector('ytd-thumbnail-overlay-time-status-renderer span');
		let views = '';
		let publishDate = '';
		const metadata = el.querySelector('#metadata-line');
		if (metadata) {
			metadata.querySelectorAll('span').forEach(span => {
				const text = span.textContent.trim();
				if (text.includes('views')) {
					views = text;
				} else {
					publishDate = text;
				}
			});
		}
		const channelUrl = channelEl ? absolutize(channelEl.getAttribute('href') || channelEl.href) : '';
		let channelId = '';
		if (channelUrl) {
			const handle = channelUrl.match(/@([\w-]+)/);
			const chan = channelUrl.match(/channel\/([\w-]+)/);
			channelId = handle ? handle[1] : (chan ? chan[1] : '');
		}
		return {
			title: titleEl ? titleEl.textContent.trim() : '',
			url: titleEl ? absolutize(titleEl.getAttribute('href') || titleEl.href) : '',
			channelName: channelEl ? channelEl.textContent.trim() : '',
			channelUrl: channelUrl,
			channelId: channelId,
			channelText: '',
			views: views,
			publishDate: publishDate,
			thumbnailUrl: thumb ? thumb.src : '',
			duration: durationEl ? durationEl.textContent.trim() : ''
		};
	}).filter(e => e.title && e.url);
})()`

// Legacy grid renderer, still served on some channel and search surfaces.
const gridRendererScript = `(() => {
	return Array.from(document.querySelectorAll('ytd-grid-video-renderer')).map(el => {
		const titleEl = el.querySelector('#video-title');
		const channelEl = el.querySelector('ytd-channel-name a');
		const thumb = el.querySelector('img#img');
		const durationEl = el.querySelector('ytd-thumbnail-overlay-time-status-renderer span');
		const viewsEl = el.querySelector('#metadata-line span:first-child');
		const dateEl = el.querySelector('#metadata-line span:last-child');
		const channelUrl = channelEl ? channelEl.href : '';
		let channelId = '';
		if (channelUrl) {
			const handle = channelUrl.match(/@([\w-]+)/);
			const chan = channelUrl.match(/channel\/([\w-]+)/);
			channelId = handle ? handle[1] : (chan ? chan[1] : '');
		}
		return {
			title: titleEl ? titleEl.textContent.trim() : '',
			url: titleEl ? titleEl.href : '',
			channelName: channelEl ? channelEl.textContent.trim() : '',
			channelUrl: channelUrl,
			channelId: channelId,
			channelText: '',
			views: viewsEl ? viewsEl.textContent.trim() : '',
			publishDate: dateEl ? dateEl.textContent.trim() : '',
			thumbnailUrl: thumb ? thumb.src : '',
			duration: durationEl ? durationEl.textContent.trim() : ''
		};
	}).filter(e => e.title && e.url);
})()`
