package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"newsflash-bot/internal/bot"
	"newsflash-bot/internal/config"
	"newsflash-bot/internal/extract"
	"newsflash-bot/internal/fetcher"
	"newsflash-bot/internal/normalize"
	"newsflash-bot/internal/observability"
	"newsflash-bot/internal/pipeline"
	"newsflash-bot/internal/registry"
	"newsflash-bot/internal/server"
	"newsflash-bot/internal/storage"
	"newsflash-bot/internal/storage/filestore"
	"newsflash-bot/internal/storage/mssql"
	"newsflash-bot/internal/usage"
)

const apifyBudgetKey = "apify"

// App owns every long-lived collaborator and is built once at startup.
type App struct {
	cfg        *config.Config
	logger     *observability.Logger
	metrics    *observability.Metrics
	registry   *registry.Registry
	repo       storage.Repository
	tracker    *usage.Tracker
	browser    *fetcher.BrowserFetcher
	aggregator *pipeline.Aggregator
	server     *server.Server
	bot        *bot.Bot
}

// New wires the pipeline. withTransports=false skips the bot and the HTTP
// server, for one-shot tools.
func New(cfg *config.Config, logger *observability.Logger, withTransports bool) (*App, error) {
	a := &App{
		cfg:     cfg,
		logger:  logger,
		metrics: observability.NewMetrics(),
	}

	descs, err := cfg.Sources()
	if err != nil {
		return nil, fmt.Errorf("failed to load sources: %w", err)
	}
	a.registry, err = registry.New(descs)
	if err != nil {
		return nil, fmt.Errorf("invalid source registry: %w", err)
	}

	a.repo, err = openRepository(cfg, logger)
	if err != nil {
		return nil, err
	}
	a.tracker = usage.NewTracker(a.repo, logger, 256)

	fetchers := a.buildFetchers()
	a.aggregator = pipeline.New(
		cfg,
		a.registry,
		fetchers,
		extract.New(),
		normalize.NewNormalizer(cfg.Normalize),
		logger,
		a.metrics,
	)

	if !withTransports {
		return a, nil
	}

	if cfg.Server.Enabled {
		if !cfg.Bot.Debug {
			gin.SetMode(gin.ReleaseMode)
		}
		a.server = server.NewServer(cfg, a.aggregator, a.registry, a.metrics, logger)
	}

	if cfg.Bot.Enabled {
		a.bot, err = bot.New(cfg, a.aggregator, a.registry, a.tracker, a.repo, logger)
		if err != nil {
			a.Close(context.Background())
			return nil, err
		}
	}

	return a, nil
}

func openRepository(cfg *config.Config, logger *observability.Logger) (storage.Repository, error) {
	switch cfg.Storage.Driver {
	case "mssql":
		repo, err := mssql.NewRepository(cfg.Storage.DSN, cfg.GetCommandTimeout(), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open mssql usage store: %w", err)
		}
		return repo, nil
	default:
		repo, err := filestore.Open(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open usage file: %w", err)
		}
		return repo, nil
	}
}

// buildFetchers registers a fetcher per configured strategy. Sources whose
// strategy is missing here fail with a per-source error.
func (a *App) buildFetchers() map[registry.Strategy]fetcher.Fetcher {
	fetchers := map[registry.Strategy]fetcher.Fetcher{
		registry.PlainHTTP: fetcher.NewHTTPFetcher(a.cfg, a.logger),
	}

	if a.cfg.Rod.Enabled {
		a.browser = fetcher.NewBrowserFetcher(a.cfg, a.logger)
		fetchers[registry.HeadlessBrowser] = a.browser
	} else {
		a.logger.Warn("Headless browser disabled", "strategy", string(registry.HeadlessBrowser))
	}

	if a.cfg.Relay.Mode != "" {
		relay, err := fetcher.NewRelayFetcher(a.cfg, a.logger)
		if err != nil {
			a.logger.Error("Relay fetcher unavailable", "error", err.Error())
		} else {
			fetchers[registry.HTTPViaRelay] = relay
		}
	} else {
		a.logger.Warn("Relay not configured", "strategy", string(registry.HTTPViaRelay))
	}

	if a.cfg.Apify.Token != "" {
		budget := usage.NewBudget(a.repo, apifyBudgetKey, a.cfg.Apify.DailyLimit, a.metrics)
		fetchers[registry.ApifyActor] = fetcher.NewApifyFetcher(a.cfg, budget, a.logger)
	} else {
		a.logger.Warn("Apify token not set", "strategy", string(registry.ApifyActor))
	}

	return fetchers
}

func (a *App) Aggregator() *pipeline.Aggregator {
	return a.aggregator
}

// Run serves the configured transports until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a.server == nil && a.bot == nil {
		return fmt.Errorf("nothing to run: both bot and server are disabled")
	}

	g, ctx := errgroup.WithContext(ctx)
	if a.server != nil {
		g.Go(func() error {
			return a.server.ListenAndServe(ctx, ":"+a.cfg.Server.Port)
		})
	}
	if a.bot != nil {
		g.Go(func() error {
			return a.bot.Run(ctx)
		})
	}
	return g.Wait()
}

// ReloadSources re-reads sources_file and swaps the registry snapshot.
// In-flight requests keep the descriptors they already hold.
func (a *App) ReloadSources() error {
	descs, err := a.cfg.Sources()
	if err != nil {
		return err
	}
	if err := a.registry.Replace(descs); err != nil {
		return err
	}
	a.logger.Info("Sources reloaded", "count", len(descs))
	return nil
}

// Close releases everything New opened. Queued usage events get ctx to drain.
func (a *App) Close(ctx context.Context) {
	if err := a.tracker.Close(ctx); err != nil {
		a.logger.Warn("Usage tracker did not drain", "error", err.Error())
	}
	if a.browser != nil {
		a.browser.Close()
	}
	if err := a.repo.Close(); err != nil {
		a.logger.Error("Failed to close usage store", "error", err.Error())
	}
	if path := a.cfg.Observability.MetricsPath; path != "" {
		if err := a.metrics.Dump(path); err != nil {
			a.logger.Error("Failed to dump metrics", "error", err.Error())
		}
	}
}
