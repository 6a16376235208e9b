package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ytsubs/ytsubs/internal/clock/system"
	"github.com/ytsubs/ytsubs/internal/crawler"
	"github.com/ytsubs/ytsubs/internal/resolver"
)

// newScrapeVideosCmd creates the 'scrape-videos' subcommand, which runs one
// crawl session over the subscriptions feed.
func newScrapeVideosCmd() *cobra.Command {
	var (
		headful        bool
		noGenerateFeed bool
	)

	cmd := &cobra.Command{
		Use:   "scrape-videos",
		Short: "Crawl the subscriptions feed and ingest recent uploads",
		Long: `Opens the subscriptions feed with the persistent browser profile,
scrolls through it extracting video tiles, and upserts everything published
within the retention window into the store. Afterwards the static feed page
is regenerated unless --no-generate-feed is given.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScrapeVideos(cmd, headful, noGenerateFeed)
		},
	}
	cmd.Flags().BoolVar(&headful, "headful", false, "show the browser window (needed to log in)")
	cmd.Flags().BoolVar(&noGenerateFeed, "no-generate-feed", false, "skip regenerating the feed page after the crawl")
	return cmd
}

func runScrapeVideos(cmd *cobra.Command, headful, noGenerateFeed bool) error {
	a, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	logger := a.Logger()

	sess, err := newBrowserSession(a, headful)
	if err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	defer sess.Close()

	if err := sess.Navigate(cmd.Context(), a.Config().Crawler.FeedURL); err != nil {
		return fmt.Errorf("open feed: %w", err)
	}
	if err := ensureLoggedIn(cmd.Context(), sess, a, headful); err != nil {
		return err
	}

	cfg := a.Config().Crawler
	ctrl := crawler.New(
		crawler.Config{
			FeedURL:              cfg.FeedURL,
			MaxIterations:        cfg.MaxIterations,
			MaxConsecutiveMisses: cfg.MaxConsecutiveMisses,
			RetryIterationBudget: cfg.RetryIterationBudget,
			RetentionWindow:      cfg.RetentionWindow(),
			IdleTimeout:          cfg.IdleTimeout,
		},
		sess,
		crawler.DefaultChain(logger),
		a.Store(),
		resolver.NewOEmbed(a.Config().Resolver.RequestsPerSecond, logger),
		system.New(),
		crawler.DefaultBackoffPolicy(),
		logger,
	).WithArchive(a.Archive())

	summary, err := ctrl.Run(cmd.Context())
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run crawl session: %w", err)
	}

	logger.Info("scan complete",
		zap.String("stop_reason", summary.StopReason),
		zap.Int("new_videos", summary.Inserted),
		zap.Int("updated_videos", summary.Updated),
		zap.Int64("trimmed_videos", summary.Pruned),
		zap.Int("rejected", summary.Rejected),
	)

	if noGenerateFeed {
		return nil
	}
	count, err := a.Store().CountChannelsWithSubscribers(cmd.Context())
	if err != nil {
		return fmt.Errorf("check channel stats: %w", err)
	}
	if count == 0 {
		logger.Warn("no channel statistics yet; run scrape-channels, then regenerate with the feed command")
		return nil
	}
	return generateFeedPage(cmd.Context(), a)
}
