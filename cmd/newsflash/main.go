package main

import (
	"context"
	"flag"
	"log"
	"time"

	"newsflash-bot/internal/app"
	"newsflash-bot/internal/config"
	"newsflash-bot/internal/observability"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := observability.NewLogger(observability.LoggerOptions{
		Path:       cfg.Observability.LogPath,
		Level:      cfg.Observability.LogLevel,
		MaxSizeMB:  cfg.Observability.LogMaxSizeMB,
		MaxBackups: cfg.Observability.LogMaxBackups,
		MaxAgeDays: cfg.Observability.LogMaxAgeDays,
	})
	defer func() { _ = logger.Close() }()

	a, err := app.New(cfg, logger, true)
	if err != nil {
		logger.Error("Failed to start", "error", err.Error())
		log.Fatalf("Failed to start: %v", err)
	}

	ctx, cancel := app.GracefulShutdown(logger)
	defer cancel()
	app.WatchReload(ctx, logger, a.ReloadSources)

	logger.Info("newsflash starting",
		"bot", cfg.Bot.Enabled,
		"server", cfg.Server.Enabled,
		"port", cfg.Server.Port,
	)

	runErr := a.Run(ctx)

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer closeCancel()
	a.Close(closeCtx)

	if runErr != nil {
		logger.Error("Stopped with error", "error", runErr.Error())
		log.Fatalf("Stopped with error: %v", runErr)
	}
	logger.Info("newsflash stopped")
}
