// Package cmd defines and implements the CLI commands for the ytsubs
// executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ytsubs/ytsubs/internal/app"
	"github.com/ytsubs/ytsubs/internal/browser"
	"github.com/ytsubs/ytsubs/internal/config"
	"github.com/ytsubs/ytsubs/internal/logging"
	"github.com/ytsubs/ytsubs/internal/storage"
	"github.com/ytsubs/ytsubs/internal/store"
	pkgconfig "github.com/ytsubs/ytsubs/pkg/config"
)

var cfgFile string

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the application interface the commands use, so tests can
// inject a mock container.
type App interface {
	Close()
	Config() config.Config
	Logger() *zap.Logger
	Store() *store.Store
	Archive() storage.Provider
}

// newApp is the application factory. It is a variable so tests can replace
// it with a mock factory.
var newApp = func(ctx context.Context) (App, error) {
	return app.NewApp(ctx)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ytsubs",
		Short: "Harvest and rank your YouTube subscriptions feed.",
		Long: `ytsubs crawls your logged-in subscriptions feed with a headless
browser, keeps a rolling 30-day window of uploads in Postgres, and ranks
them by how much each video outperforms its channel's usual numbers.`,

		// Runs after config is loaded but before the subcommand's RunE:
		// the place to build and inject the application container.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd.Context())
			if err != nil {
				return fmt.Errorf("initialize application services: %w", err)
			}
			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			cmd.SetContext(ctx)
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cobra.OnInitialize(pkgconfig.InitConfig)

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.ytsubs/config.yaml)")

	cmd.AddCommand(newScrapeVideosCmd())
	cmd.AddCommand(newScrapeChannelsCmd())
	cmd.AddCommand(newFeedCmd())
	cmd.AddCommand(newOpenCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

// Execute is the main entry point. Interrupts cancel the command context
// so crawl sessions and the HTTP server shut down cleanly.
func Execute() {
	logging.InitLogger(viper.GetBool("log.development"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logging.L.Error("command failed", zap.Error(err))
		stop()
		os.Exit(1)
	}
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// newBrowserSession opens the shared Chrome session with the persistent
// profile. headful forces a visible window for interactive login.
func newBrowserSession(a App, headful bool) (*browser.Session, error) {
	cfg := a.Config().Browser
	return browser.New(browser.Config{
		UserDataDir:       os.ExpandEnv(cfg.UserDataDir),
		Headless:          cfg.Headless && !headful,
		UserAgent:         cfg.UserAgent,
		NavigationTimeout: cfg.NavigationTimeout,
	}, a.Logger())
}

// ensureLoggedIn verifies the profile carries a YouTube login. With a
// visible window it waits for the user to sign in; headless it fails with
// a pointer to the --headful flag.
func ensureLoggedIn(ctx context.Context, sess *browser.Session, a App, headful bool) error {
	loggedIn, err := sess.IsLoggedIn(ctx)
	if err != nil {
		return err
	}
	if loggedIn {
		return nil
	}
	if !headful && a.Config().Browser.Headless {
		return errors.New("not logged in to YouTube; run again with --headful and sign in")
	}
	a.Logger().Info("waiting for YouTube login in the browser window")
	loginCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()
	return sess.WaitForLogin(loginCtx, 2*time.Second)
}
