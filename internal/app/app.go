// Package app initializes and holds long-lived application services, acting
// as a dependency injection container for the CLI and the HTTP server.
package app

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/search-console-gateway/internal/api"
	"github.com/JakeFAU/search-console-gateway/internal/config"
	"github.com/JakeFAU/search-console-gateway/internal/export"
	gcsstore "github.com/JakeFAU/search-console-gateway/internal/export/gcs"
	localstore "github.com/JakeFAU/search-console-gateway/internal/export/local"
	"github.com/JakeFAU/search-console-gateway/internal/logging"
	"github.com/JakeFAU/search-console-gateway/internal/publisher"
	memorypublisher "github.com/JakeFAU/search-console-gateway/internal/publisher/memory"
	gcppublisher "github.com/JakeFAU/search-console-gateway/internal/publisher/pubsub"
	"github.com/JakeFAU/search-console-gateway/internal/ratelimit"
	"github.com/JakeFAU/search-console-gateway/internal/searchconsole"
	"github.com/JakeFAU/search-console-gateway/internal/telemetry"
)

// App holds the shared services built from Config. It is created once at
// startup and closed when the command finishes.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	client   *searchconsole.Client
	exporter *export.Exporter
	events   publisher.Publisher
	closers  []namedCloser
}

type namedCloser struct {
	name  string
	close func() error
}

// Config returns the configuration the App was built from.
func (a *App) Config() config.Config {
	return a.cfg
}

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Reporter returns the Search Console client.
func (a *App) Reporter() api.Reporter {
	return a.client
}

// Exporter returns the analytics report exporter, or nil when
// export.provider is "noop".
func (a *App) Exporter() api.Exporter {
	if a.exporter == nil {
		return nil
	}
	return a.exporter
}

// Events returns the publisher for sitemap events.
func (a *App) Events() publisher.Publisher {
	return a.events
}

// Build creates the application's dependencies and fails fast if any of them
// cannot be initialized.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging, logging.ServiceFields(cfg.Telemetry)...)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)

	if _, _, err := telemetry.Init(ctx, cfg.Telemetry); err != nil {
		return nil, fmt.Errorf("telemetry init failed: %w", err)
	}

	a := &App{cfg: cfg, logger: logger}
	sessions := searchconsole.LimitedSessions{
		Sessions: searchconsole.NewCredentialsFileSessions(searchconsole.SessionConfig{
			KeyFile:  cfg.Credentials.KeyFile,
			Scopes:   cfg.Credentials.Scopes,
			Endpoint: cfg.API.Endpoint,
		}),
		Limiter: ratelimit.New(ratelimit.Config{RPS: cfg.API.RateLimitRPS, Burst: cfg.API.RateLimitBurst}),
	}
	a.client = searchconsole.NewClient(sessions, searchconsole.WithLogger(logger.Named("searchconsole")))

	store, err := a.setupStore(ctx)
	if err != nil {
		a.closeAll()
		return nil, err
	}
	if store != nil {
		a.exporter = export.New(a.client, store, cfg.Export.Prefix, logger.Named("export"))
	}

	a.events, err = a.setupEvents(ctx)
	if err != nil {
		a.closeAll()
		return nil, err
	}

	logger.Info("application services initialized",
		zap.String("export_provider", cfg.Export.Provider),
		zap.String("events_provider", cfg.Events.Provider),
	)
	return a, nil
}

func (a *App) setupStore(ctx context.Context) (export.BlobStore, error) {
	switch a.cfg.Export.Provider {
	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		store, err := gcsstore.New(client, gcsstore.Config{Bucket: a.cfg.Export.GCSBucket})
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("gcs blob store init failed: %w", err)
		}
		a.closers = append(a.closers, namedCloser{name: "gcs", close: store.Close})
		a.logger.Debug("using GCS report store", zap.String("bucket", a.cfg.Export.GCSBucket))
		return store, nil
	case "local":
		store, err := localstore.New(localstore.Config{BaseDir: a.cfg.Export.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("local blob store init failed: %w", err)
		}
		a.logger.Debug("using local report store", zap.String("path", a.cfg.Export.BaseDir))
		return store, nil
	default:
		a.logger.Debug("report export disabled")
		return nil, nil
	}
}

func (a *App) setupEvents(ctx context.Context) (publisher.Publisher, error) {
	switch a.cfg.Events.Provider {
	case "pubsub":
		client, err := pubsub.NewClient(ctx, a.cfg.Events.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("pubsub client init failed: %w", err)
		}
		pub, err := gcppublisher.New(client, a.cfg.Events.TopicID)
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("pubsub publisher init failed: %w", err)
		}
		a.closers = append(a.closers, namedCloser{name: "pubsub", close: pub.Close})
		a.logger.Info("Pub/Sub publisher initialized",
			zap.String("project", a.cfg.Events.ProjectID),
			zap.String("topic", a.cfg.Events.TopicID),
		)
		return pub, nil
	case "memory":
		a.logger.Debug("using in-memory event publisher")
		return memorypublisher.New(), nil
	default:
		a.logger.Debug("using no-op event publisher")
		return publisher.Noop{}, nil
	}
}

// Close releases clients, flushes telemetry and syncs the logger.
func (a *App) Close(ctx context.Context) error {
	a.closeAll()
	if err := telemetry.Shutdown(ctx); err != nil {
		a.logger.Warn("telemetry shutdown failed", zap.Error(err))
	}
	_ = a.logger.Sync()
	return nil
}

func (a *App) closeAll() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.close(); err != nil {
			a.logger.Warn("close failed", zap.String("component", c.name), zap.Error(err))
		}
	}
	a.closers = nil
}
