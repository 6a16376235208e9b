package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ytsubs/ytsubs/internal/feedpage"
)

// openFeedPage is a variable so tests can intercept the browser launch.
var openFeedPage = feedpage.Open

// newOpenCmd creates the 'open' subcommand, which opens the most recently
// generated feed page in the default browser.
func newOpenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open",
		Short: "Open the generated feed page in the browser",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			return openFeedPage(a.Config().Feed.OutputPath)
		},
	}
}
