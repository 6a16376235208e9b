package crawler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.uber.org/zap"
)

// Config holds the knobs for one crawl session. The controller itself keeps
// no hidden state: everything it touches is passed in through New.
type Config struct {
	FeedURL string

	// MaxIterations is the hard cap on snapshot/extract/scroll cycles.
	MaxIterations int
	// MaxConsecutiveMisses is the shared threshold for the consecutive
	// empty-extraction, no-growth and no-net-change predicates, and for the
	// out-of-window entry counter.
	MaxConsecutiveMisses int
	// RetryIterationBudget bounds how deep into the session transient
	// snapshot failures are still retried. Beyond it they end the session.
	RetryIterationBudget int

	RetentionWindow time.Duration
	IdleTimeout     time.Duration
}

// DefaultConfig returns the session parameters used in production.
func DefaultConfig(feedURL string) Config {
	return Config{
		FeedURL:              feedURL,
		MaxIterations:        20,
		MaxConsecutiveMisses: 3,
		RetryIterationBudget: 5,
		RetentionWindow:      30 * 24 * time.Hour,
		IdleTimeout:          2 * time.Second,
	}
}

// Stop reasons surfaced in the session summary.
const (
	StopReasonNoContent    = "no content extracted"
	StopReasonNoGrowth     = "feed height unchanged"
	StopReasonNoNetChange  = "no new or updated videos"
	StopReasonOutOfWindow  = "reached content outside retention window"
	StopReasonIterationCap = "iteration cap reached"
	StopReasonCanceled     = "canceled"
	StopReasonExtraction   = "extraction failed beyond retry budget"
)

var videoIDRe = regexp.MustCompile(`[?&]v=([\w-]+)`)

// Controller drives one crawl session: load, extract, normalize, resolve,
// ingest, scroll, repeat until a termination predicate fires.
type Controller struct {
	cfg      Config
	page     SnapshotProvider
	chain    *Chain
	store    Store
	resolver ChannelResolver
	clock    Clock
	policy   BackoffPolicy
	archive  Archiver
	logger   *zap.Logger
}

// New wires a Controller from its collaborators. resolver and archive may be
// nil; entries without a channel are then rejected outright and no snapshot
// archive is written.
func New(
	cfg Config,
	page SnapshotProvider,
	chain *Chain,
	store Store,
	resolver ChannelResolver,
	clock Clock,
	policy BackoffPolicy,
	logger *zap.Logger,
) *Controller {
	return &Controller{
		cfg:      cfg,
		page:     page,
		chain:    chain,
		store:    store,
		resolver: resolver,
		clock:    clock,
		policy:   policy,
		logger:   logger,
	}
}

// WithArchive enables raw-payload archiving for debug runs.
func (c *Controller) WithArchive(archive Archiver) *Controller {
	c.archive = archive
	return c
}

// Run executes one session from Idle to Terminated and returns its summary.
// Non-fatal conditions (unparseable entries, unknown channels, out-of-window
// items) accumulate in the summary; only collaborator failures beyond the
// retry budget end the session early, and they do so gracefully.
func (c *Controller) Run(ctx context.Context) (Summary, error) {
	start := c.clock.Now()
	cutoff := start.Add(-c.cfg.RetentionWindow)
	sum := Summary{}

	// Previously retained rows may have aged out even if this session never
	// scrolls far enough to see them, so pruning is unconditional.
	pruned, err := c.store.PruneVideosBefore(ctx, cutoff)
	if err != nil {
		return sum, fmt.Errorf("prune retention window: %w", err)
	}
	sum.Pruned = pruned

	c.logger.Info("starting crawl session",
		zap.String("phase", string(phaseLoading)),
		zap.String("url", c.cfg.FeedURL),
		zap.Int64("pruned", pruned),
	)
	if err := c.navigate(ctx); err != nil {
		return sum, fmt.Errorf("open feed: %w", err)
	}

	sess := newSession()
	var lastHeight int64

	defer func() {
		SessionsTotal.WithLabelValues(sum.StopReason).Inc()
		c.logger.Info("crawl session finished",
			zap.String("phase", string(phaseTerminated)),
			zap.String("stop_reason", sum.StopReason),
			zap.Int("inserted", sum.Inserted),
			zap.Int("updated", sum.Updated),
			zap.Int("rejected", sum.Rejected),
			zap.Int("iterations", sum.Iterations),
		)
	}()

	for i := 0; i < c.cfg.MaxIterations; i++ {
		if ctx.Err() != nil {
			sum.StopReason = StopReasonCanceled
			return sum, nil
		}
		sum.Iterations = i + 1
		IterationsTotal.Inc()

		entries, err := c.extract(ctx, i)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				sum.StopReason = StopReasonCanceled
				return sum, nil
			}
			sum.StopReason = StopReasonExtraction
			return sum, nil
		}

		if len(entries) == 0 {
			sess.emptyStreak++
			if sess.emptyStreak >= c.cfg.MaxConsecutiveMisses {
				sum.StopReason = StopReasonNoContent
				return sum, nil
			}
			if i >= c.cfg.RetryIterationBudget {
				sum.StopReason = StopReasonNoContent
				return sum, nil
			}
			_ = c.page.WaitForIdle(ctx, c.cfg.IdleTimeout)
			continue
		}
		sess.emptyStreak = 0
		EntriesSeenTotal.Add(float64(len(entries)))
		c.archivePayload(ctx, start, i, entries)

		inserted, updated, tooOld := c.ingest(ctx, sess, entries, cutoff, &sum)
		if tooOld {
			sum.StopReason = StopReasonOutOfWindow
			return sum, nil
		}

		if inserted+updated == 0 {
			sess.staleStreak++
			if sess.staleStreak >= c.cfg.MaxConsecutiveMisses {
				sum.StopReason = StopReasonNoNetChange
				return sum, nil
			}
		} else {
			sess.staleStreak = 0
		}

		height, err := c.page.ScrollHeight(ctx)
		if err != nil {
			c.logger.Warn("scroll height check failed", zap.Error(err))
		} else {
			if height == lastHeight {
				sess.heightStreak++
				if sess.heightStreak >= c.cfg.MaxConsecutiveMisses {
					sum.StopReason = StopReasonNoGrowth
					return sum, nil
				}
			} else {
				sess.heightStreak = 0
			}
			lastHeight = height
		}

		c.logger.Debug("scrolling feed",
			zap.String("phase", string(phaseScrollCheck)),
			zap.Int("iteration", i+1),
			zap.Int64("height", height),
			zap.Int("seen", len(sess.seen)),
		)
		if err := c.page.ScrollToBottom(ctx); err != nil {
			c.logger.Warn("scroll failed", zap.Error(err))
		}
		_ = c.page.WaitForIdle(ctx, c.cfg.IdleTimeout)
	}

	sum.StopReason = StopReasonIterationCap
	return sum, nil
}

func (c *Controller) navigate(ctx context.Context) error {
	var err error
	for attempt := 0; ; attempt++ {
		if err = c.page.Navigate(ctx, c.cfg.FeedURL); err == nil {
			_ = c.page.WaitForIdle(ctx, c.cfg.IdleTimeout)
			return nil
		}
		if !c.policy.ShouldRetry(err, attempt) {
			return err
		}
		if waitErr := c.policy.Wait(ctx, attempt); waitErr != nil {
			return waitErr
		}
	}
}

// extract runs the strategy chain, retrying transient failures only while
// the session is still within its first RetryIterationBudget iterations.
func (c *Controller) extract(ctx context.Context, iteration int) ([]RawEntry, error) {
	for attempt := 0; ; attempt++ {
		entries, err := c.chain.TryExtract(ctx, c.page)
		if err == nil {
			return entries, nil
		}
		ExtractionFailuresTotal.Inc()
		c.logger.Warn("extraction attempt failed",
			zap.String("phase", string(phaseExtracting)),
			zap.Int("iteration", iteration+1),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
		if iteration >= c.cfg.RetryIterationBudget || !c.policy.ShouldRetry(err, attempt) {
			return nil, err
		}
		if waitErr := c.policy.Wait(ctx, attempt); waitErr != nil {
			return nil, waitErr
		}
	}
}

// ingest normalizes and stores a batch of raw entries. It returns the net
// inserted/updated counts plus whether the out-of-window predicate fired,
// which terminates the session mid-iteration.
func (c *Controller) ingest(ctx context.Context, sess *session, entries []RawEntry, cutoff time.Time, sum *Summary) (inserted, updated int, tooOld bool) {
	now := c.clock.Now()
	for _, raw := range entries {
		if ctx.Err() != nil {
			return inserted, updated, false
		}
		if raw.Title == "" || raw.URL == "" {
			continue
		}

		published, err := ParseRelativeDate(raw.PublishedText, now)
		if err != nil {
			if errors.Is(err, ErrOutOfWindow) {
				sum.OutOfWindow++
				sess.oldEntries++
				EntriesRejectedTotal.WithLabelValues("out_of_window").Inc()
				if sess.oldEntries >= c.cfg.MaxConsecutiveMisses {
					return inserted, updated, true
				}
			} else {
				sum.Skipped++
			}
			continue
		}

		id := videoIDFromURL(raw.URL)
		if id == "" {
			sum.Skipped++
			continue
		}
		if _, ok := sess.seen[id]; ok {
			continue
		}

		views, err := ParseCompactCount(raw.ViewsText)
		if err != nil {
			// A missing view count is absent data, not zero views.
			sum.Skipped++
			continue
		}

		channelID := raw.ChannelID
		if channelID == "" && c.resolver != nil {
			c.logger.Debug("resolving channel",
				zap.String("phase", string(phaseResolving)),
				zap.String("video_id", id),
			)
			if res, resErr := c.resolver.Resolve(ctx, id); resErr == nil {
				channelID = res.ChannelID
			}
		}
		if channelID == "" {
			sum.Rejected++
			EntriesRejectedTotal.WithLabelValues("missing_channel").Inc()
			c.logger.Warn("rejecting entry without channel",
				zap.String("video_id", id),
				zap.String("title", raw.Title),
				zap.Error(ErrMissingChannel),
			)
			continue
		}

		known, lookupErr := c.store.ChannelExists(ctx, channelID)
		if lookupErr != nil || !known {
			if lookupErr == nil {
				lookupErr = ErrUnknownChannel
			}
			sum.Rejected++
			EntriesRejectedTotal.WithLabelValues("unknown_channel").Inc()
			c.logger.Warn("rejecting entry for untracked channel",
				zap.String("video_id", id),
				zap.String("channel_id", channelID),
				zap.String("channel_name", channelDisplayName(raw)),
				zap.Error(lookupErr),
			)
			continue
		}

		sess.seen[id] = struct{}{}

		if published.Before(cutoff) {
			sum.OutOfWindow++
			sess.oldEntries++
			if sess.oldEntries >= c.cfg.MaxConsecutiveMisses {
				return inserted, updated, true
			}
			continue
		}

		entry := Entry{
			ID:        id,
			ChannelID: channelID,
			Title:     raw.Title,
			URL:       raw.URL,
			Thumbnail: raw.ThumbnailURL,
			Views:     views,
			Published: published,
		}
		if secs, durErr := ParseClockDuration(raw.DurationText); durErr == nil {
			entry.Duration = &secs
		}

		result, err := c.store.UpsertVideo(ctx, entry)
		if err != nil {
			// Independent commits: one failed write never affects the rest.
			sum.Rejected++
			EntriesRejectedTotal.WithLabelValues("store_error").Inc()
			c.logger.Error("upsert failed", zap.String("video_id", id), zap.Error(err))
			continue
		}
		switch result {
		case UpsertInserted:
			inserted++
			sum.Inserted++
			VideosIngestedTotal.WithLabelValues("inserted").Inc()
		case UpsertUpdated:
			updated++
			sum.Updated++
			VideosIngestedTotal.WithLabelValues("updated").Inc()
		}
		sess.oldEntries = 0
	}
	return inserted, updated, false
}

func (c *Controller) archivePayload(ctx context.Context, start time.Time, iteration int, entries []RawEntry) {
	if c.archive == nil {
		return
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return
	}
	path := fmt.Sprintf("sessions/%s/iteration-%02d.json", start.Format("20060102T150405Z"), iteration+1)
	if _, err := c.archive.PutObject(ctx, path, "application/json", data); err != nil {
		c.logger.Warn("snapshot archive write failed", zap.Error(err))
	}
}

func videoIDFromURL(rawURL string) string {
	m := videoIDRe.FindStringSubmatch(rawURL)
	if m == nil {
		return ""
	}
	return m[1]
}

func channelDisplayName(raw RawEntry) string {
	if raw.ChannelName != "" {
		return raw.ChannelName
	}
	return raw.ChannelText
}
