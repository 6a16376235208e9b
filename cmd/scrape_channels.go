package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ytsubs/ytsubs/internal/clock/system"
	"github.com/ytsubs/ytsubs/internal/stats"
)

// newScrapeChannelsCmd creates the 'scrape-channels' subcommand, which
// refreshes subscriber counts and view baselines for every subscription.
func newScrapeChannelsCmd() *cobra.Command {
	var headful bool
	var skipBaselines bool

	cmd := &cobra.Command{
		Use:   "scrape-channels",
		Short: "Refresh channel subscriber counts and view baselines",
		Long: `Scrapes the subscribed-channels feed to register every channel and
its subscriber count, then visits each channel's videos tab to estimate the
typical view count used for ranking. Video ingestion only accepts entries
from channels registered here.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScrapeChannels(cmd, headful, skipBaselines)
		},
	}
	cmd.Flags().BoolVar(&headful, "headful", false, "show the browser window (needed to log in)")
	cmd.Flags().BoolVar(&skipBaselines, "skip-baselines", false, "only refresh subscriber counts")
	return cmd
}

func runScrapeChannels(cmd *cobra.Command, headful, skipBaselines bool) error {
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

	if err := sess.Navigate(cmd.Context(), "https://www.youtube.com"); err != nil {
		return fmt.Errorf("open youtube: %w", err)
	}
	if err := ensureLoggedIn(cmd.Context(), sess, a, headful); err != nil {
		return err
	}

	var sampler stats.Sampler
	if !skipBaselines {
		sampler = stats.NewPageSampler(sess)
	}
	collector := stats.NewCollector(sess, a.Store(), sampler, system.New(), logger)

	summary, err := collector.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("collect channel stats: %w", err)
	}

	logger.Info("channel scan complete",
		zap.Int("channels", summary.Channels),
		zap.Int("updated", summary.Updated),
		zap.Int("baselines", summary.Baselines),
		zap.Int("failed", summary.Failed),
	)
	return nil
}
