// Package browser drives a Chrome session with a persistent profile so the
// subscriptions feed renders with the user's own login cookies.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Config controls how the browser session is launched.
type Config struct {
	// UserDataDir holds the persistent Chrome profile. Login state lives
	// here between runs; wiping the directory logs the tool out.
	UserDataDir string
	// Headless hides the browser window. Login runs need it off.
	Headless          bool
	UserAgent         string
	NavigationTimeout time.Duration
}

// Session is one long-lived browser tab. It implements the snapshot
// interface the crawl controller renders through. Not safe for concurrent
// use; the controller issues one call at a time.
type Session struct {
	cfg         Config
	tab         context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
	logger      *zap.Logger
}

// New launches Chrome with the configured profile and opens the working tab.
func New(cfg Config, logger *zap.Logger) (*Session, error) {
	if cfg.UserDataDir == "" {
		return nil, fmt.Errorf("browser: user data dir is required")
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 45 * time.Second
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(cfg.UserDataDir),
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	tab, tabCancel := chromedp.NewContext(allocCtx)

	s := &Session{
		cfg:         cfg,
		tab:         tab,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
		logger:      logger,
	}
	if err := chromedp.Run(tab, s.networkSetupAction()); err != nil {
		s.Close()
		return nil, fmt.Errorf("browser: start session: %w", err)
	}
	return s, nil
}

// Close tears down the tab and the browser process.
func (s *Session) Close() {
	s.tabCancel()
	s.allocCancel()
}

func (s *Session) networkSetupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if s.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(s.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}

// run executes actions in the session tab, bounded by both the caller's
// context and the navigation timeout.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(s.tab, s.cfg.NavigationTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(runCtx, actions...)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		cancel()
		<-done
		return ctx.Err()
	}
}

// Navigate loads the URL and waits for the document body.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("navigating", zap.String("url", url))
	err := s.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	return nil
}

// Evaluate runs the script against the live page and decodes the result
// into out.
func (s *Session) Evaluate(ctx context.Context, script string, out any) error {
	if err := s.run(ctx, chromedp.Evaluate(script, out)); err != nil {
		return fmt.Errorf("browser: evaluate: %w", err)
	}
	return nil
}

// ScrollToBottom scrolls the viewport to the current bottom of the document,
// which triggers the feed's infinite-scroll loader.
func (s *Session) ScrollToBottom(ctx context.Context) error {
	err := s.run(ctx, chromedp.Evaluate(
		`window.scrollTo(0, document.documentElement.scrollHeight)`, nil,
	))
	if err != nil {
		return fmt.Errorf("browser: scroll: %w", err)
	}
	return nil
}

// ScrollHeight reports the document height, used to detect when scrolling
// stops loading more content.
func (s *Session) ScrollHeight(ctx context.Context) (int64, error) {
	var height int64
	err := s.run(ctx, chromedp.Evaluate(`document.documentElement.scrollHeight`, &height))
	if err != nil {
		return 0, fmt.Errorf("browser: scroll height: %w", err)
	}
	return height, nil
}

// WaitForIdle gives the page time to settle after navigation or scrolling.
func (s *Session) WaitForIdle(ctx context.Context, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsLoggedIn reports whether the current profile carries a YouTube login.
// It checks for the signed-in avatar button on the loaded page.
func (s *Session) IsLoggedIn(ctx context.Context) (bool, error) {
	var loggedIn bool
	script := `(() => {
		if (document.querySelector('button#avatar-btn')) return true;
		if (document.querySelector('img#avatar-btn')) return true;
		return document.querySelector('a[aria-label*="Sign in"]') === null &&
			document.querySelector('ytd-masthead #buttons a[href*="ServiceLogin"]') === null;
	})()`
	if err := s.run(ctx, chromedp.Evaluate(script, &loggedIn)); err != nil {
		return false, fmt.Errorf("browser: login check: %w", err)
	}
	return loggedIn, nil
}

// WaitForLogin polls until the profile is signed in or the context expires.
// Used by interactive login runs with a visible browser window.
func (s *Session) WaitForLogin(ctx context.Context, poll time.Duration) error {
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		ok, err := s.IsLoggedIn(ctx)
		if err == nil && ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("browser: waiting for login: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}
