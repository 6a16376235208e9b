// Package app initializes and holds long-lived application services, acting
// as a dependency injection container.
package app

import (
	"context"
	"fmt"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ytsubs/ytsubs/internal/config"
	"github.com/ytsubs/ytsubs/internal/logging"
	"github.com/ytsubs/ytsubs/internal/storage"
	"github.com/ytsubs/ytsubs/internal/storage/local"
	"github.com/ytsubs/ytsubs/internal/storage/memory"
	"github.com/ytsubs/ytsubs/internal/store"
)

// App holds the shared, long-lived services: logger, store and the archive
// provider. It is initialized once at startup and handed to the commands
// that need it.
type App struct {
	cfg     config.Config
	logger  *zap.Logger
	store   *store.Store
	archive storage.Provider
}

// Config returns the loaded application configuration.
func (a *App) Config() config.Config {
	return a.cfg
}

// Logger returns the shared zap logger instance.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Store returns the Postgres-backed channel and video store.
func (a *App) Store() *store.Store {
	return a.store
}

// Archive returns the configured raw-payload archive provider.
func (a *App) Archive() storage.Provider {
	return a.archive
}

// NewApp creates and initializes a new App from the Viper configuration.
// It fails fast if any critical service cannot be initialized.
func NewApp(ctx context.Context) (*App, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(viper.GetBool("log.development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	st, err := store.New(ctx, store.Config{
		DSN:             cfg.Database.DSN,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	if err := st.Bootstrap(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("bootstrap store: %w", err)
	}

	archive, err := newArchive(cfg.Archive, logger)
	if err != nil {
		st.Close()
		return nil, err
	}

	logger.Debug("application services initialized")
	return &App{
		cfg:     cfg,
		logger:  logger,
		store:   st,
		archive: archive,
	}, nil
}

func newArchive(cfg config.ArchiveConfig, logger *zap.Logger) (storage.Provider, error) {
	switch cfg.Provider {
	case "", "noop":
		return storage.NoOpProvider{}, nil
	case "memory":
		return memory.NewBlobStore(), nil
	case "local":
		logger.Info("archiving raw payloads", zap.String("base_dir", cfg.BaseDir))
		provider, err := local.New(local.Config{BaseDir: cfg.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("init archive: %w", err)
		}
		return provider, nil
	default:
		return nil, fmt.Errorf("unknown archive provider: %s", cfg.Provider)
	}
}

// Close gracefully shuts down all services in the App container.
func (a *App) Close() {
	a.store.Close()
	// Sync flushes buffered log entries; failure here is unactionable.
	_ = a.logger.Sync()
}
