package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"newsflash-bot/internal/observability"
)

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM.
func GracefulShutdown(logger *observability.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

// WatchReload calls reload on every SIGHUP until ctx is done. A failed
// reload keeps the previous registry.
func WatchReload(ctx context.Context, logger *observability.Logger, reload func() error) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)

	go func() {
		defer signal.Stop(hup)
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				logger.Info("Reload signal received")
				if err := reload(); err != nil {
					logger.Error("Reload failed, keeping previous sources", "error", err.Error())
				}
			}
		}
	}()
}
