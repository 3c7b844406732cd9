package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	apphttp "gitlab.com/timkado/web/storefront-state/internal/adapters/http"
)

const defaultShutdownTimeout = 15 * time.Second

// Run registers the routes, starts the event loop and serves HTTP until SIGINT/SIGTERM or ctx
// cancellation, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	cfg := a.configProvider.Get()
	a.logger.Info(ctx, "Starting application", "service_name", cfg.App.ServiceName, "version", cfg.App.Version,
		"storage_driver", cfg.Storage.Driver, "catalog_source", cfg.Catalog.Source)

	a.routes(ctx)
	// the loop outlives the signal so in-flight requests can finish
	a.loop.Start(context.WithoutCancel(ctx))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info(gctx, fmt.Sprintf("HTTP server listening on port %d", cfg.Server.HTTPPort))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error(gctx, "HTTP server ListenAndServe error", "error", err.Error())
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info(context.Background(), "Initiating graceful shutdown")

		timeout := a.configProvider.Get().ShutdownTimeout()
		if timeout <= 0 {
			timeout = defaultShutdownTimeout
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error(context.Background(), "HTTP server graceful shutdown failed", "error", err.Error())
		}
		a.logger.Info(context.Background(), "HTTP server shut down")

		// in-flight handlers are done, so nothing posts to the loop any more
		a.loop.Stop()
		a.loop.Wait()
		a.logger.Info(context.Background(), "State event loop stopped")
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	a.logger.Info(context.Background(), "Application shut down gracefully")
	return nil
}

func (a *App) routes(ctx context.Context) {
	a.httpServeMux.Handle("GET /health", apphttp.HealthHandler(a.logger))
	a.httpServeMux.Handle("GET /ready", apphttp.ReadyHandler(a.logger, a.readiness...))
	a.httpServeMux.Handle("GET /metrics", promhttp.Handler())
	a.handlers.Register(a.httpServeMux)
	a.logger.Info(ctx, "HTTP routes registered", "readiness_checks", len(a.readiness))
}
