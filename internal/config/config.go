// Package config loads the typed application configuration from Viper.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config captures every knob that influences the tool. All values originate
// from Viper so they can come from the config file, env vars, or flags.
type Config struct {
	Browser  BrowserConfig
	Crawler  CrawlerConfig
	Database DatabaseConfig
	Resolver ResolverConfig
	Feed     FeedConfig
	Server   ServerConfig
	Archive  ArchiveConfig
}

// BrowserConfig controls the persistent Chrome session.
type BrowserConfig struct {
	UserDataDir       string
	Headless          bool
	UserAgent         string
	NavigationTimeout time.Duration
}

// CrawlerConfig controls one crawl session.
type CrawlerConfig struct {
	FeedURL              string
	MaxIterations        int
	MaxConsecutiveMisses int
	RetryIterationBudget int
	RetentionDays        int
	IdleTimeout          time.Duration
}

// DatabaseConfig controls the Postgres pool.
type DatabaseConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// ResolverConfig controls the oEmbed channel resolver.
type ResolverConfig struct {
	RequestsPerSecond float64
}

// FeedConfig controls feed generation.
type FeedConfig struct {
	OutputPath string
	WindowDays int
}

// ServerConfig controls the HTTP surface.
type ServerConfig struct {
	Addr   string
	APIKey string
}

// ArchiveConfig controls raw-payload archiving for debug runs.
type ArchiveConfig struct {
	Provider string
	BaseDir  string
}

// Load constructs a Config by reading from Viper.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Browser: BrowserConfig{
			UserDataDir:       v.GetString("browser.user_data_dir"),
			Headless:          v.GetBool("browser.headless"),
			UserAgent:         v.GetString("browser.user_agent"),
			NavigationTimeout: v.GetDuration("browser.navigation_timeout"),
		},
		Crawler: CrawlerConfig{
			FeedURL:              v.GetString("crawler.feed_url"),
			MaxIterations:        v.GetInt("crawler.max_iterations"),
			MaxConsecutiveMisses: v.GetInt("crawler.max_consecutive_misses"),
			RetryIterationBudget: v.GetInt("crawler.retry_iteration_budget"),
			RetentionDays:        v.GetInt("crawler.retention_days"),
			IdleTimeout:          v.GetDuration("crawler.idle_timeout"),
		},
		Database: DatabaseConfig{
			DSN:             v.GetString("database.dsn"),
			MaxConns:        v.GetInt32("database.max_conns"),
			MinConns:        v.GetInt32("database.min_conns"),
			MaxConnLifetime: v.GetDuration("database.max_conn_lifetime"),
		},
		Resolver: ResolverConfig{
			RequestsPerSecond: v.GetFloat64("resolver.requests_per_second"),
		},
		Feed: FeedConfig{
			OutputPath: v.GetString("feed.output_path"),
			WindowDays: v.GetInt("feed.window_days"),
		},
		Server: ServerConfig{
			Addr:   v.GetString("server.addr"),
			APIKey: v.GetString("server.api_key"),
		},
		Archive: ArchiveConfig{
			Provider: v.GetString("archive.provider"),
			BaseDir:  v.GetString("archive.base_dir"),
		},
	}
	return cfg, cfg.Validate()
}

// Validate checks for obviously bad configuration combinations.
func (c Config) Validate() error {
	if c.Browser.UserDataDir == "" {
		return fmt.Errorf("browser.user_data_dir must be set")
	}
	if c.Crawler.FeedURL == "" {
		return fmt.Errorf("crawler.feed_url must be set")
	}
	if c.Crawler.MaxIterations <= 0 {
		return fmt.Errorf("crawler.max_iterations must be > 0")
	}
	if c.Crawler.MaxConsecutiveMisses <= 0 {
		return fmt.Errorf("crawler.max_consecutive_misses must be > 0")
	}
	if c.Crawler.RetentionDays <= 0 {
		return fmt.Errorf("crawler.retention_days must be > 0")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn must be set")
	}
	if c.Resolver.RequestsPerSecond <= 0 {
		return fmt.Errorf("resolver.requests_per_second must be > 0")
	}
	if c.Feed.WindowDays <= 0 {
		return fmt.Errorf("feed.window_days must be > 0")
	}
	switch c.Archive.Provider {
	case "", "noop", "memory":
	case "local":
		if c.Archive.BaseDir == "" {
			return fmt.Errorf("archive.provider is 'local' but archive.base_dir is not set")
		}
	default:
		return fmt.Errorf("unknown archive provider: %s", c.Archive.Provider)
	}
	return nil
}

// RetentionWindow returns the retention span as a duration.
func (c CrawlerConfig) RetentionWindow() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// Window returns the feed span as a duration.
func (c FeedConfig) Window() time.Duration {
	return time.Duration(c.WindowDays) * 24 * time.Hour
}
