package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ytsubs/ytsubs/internal/clock/system"
	"github.com/ytsubs/ytsubs/internal/feedpage"
	"github.com/ytsubs/ytsubs/internal/ranking"
)

// newFeedCmd creates the 'feed' subcommand, which renders the ranked feed
// to a static HTML page.
func newFeedCmd() *cobra.Command {
	var open bool

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Generate the ranked feed page",
		Long: `Scores every retained video against its channel's baseline and
writes the ranked feed as a standalone HTML page.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFeed(cmd, open)
		},
	}
	cmd.Flags().BoolVar(&open, "open", false, "open the generated page in the browser")
	return cmd
}

func runFeed(cmd *cobra.Command, open bool) error {
	a, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	if err := generateFeedPage(cmd.Context(), a); err != nil {
		return err
	}
	if open {
		return openFeedPage(a.Config().Feed.OutputPath)
	}
	return nil
}

// generateFeedPage ranks the retained window and writes the static page. It
// is shared with scrape-videos, which regenerates the page after a crawl.
func generateFeedPage(ctx context.Context, a App) error {
	cfg := a.Config().Feed

	engine := ranking.NewEngine(a.Store(), system.New(), cfg.Window(), a.Logger())
	videos, err := engine.Rank(ctx)
	if err != nil {
		return fmt.Errorf("rank feed: %w", err)
	}

	if err := feedpage.WriteFile(cfg.OutputPath, videos, time.Now()); err != nil {
		return fmt.Errorf("write feed page: %w", err)
	}
	a.Logger().Info("feed page generated",
		zap.String("path", cfg.OutputPath),
		zap.Int("videos", len(videos)),
	)
	return nil
}
