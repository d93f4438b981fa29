package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"garage/internal/auth"
	"garage/internal/cache"
	"garage/internal/cli"
	apphttp "garage/internal/http"
	"garage/internal/log"
	"garage/internal/services"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentApp)
	ctx, stop := cli.SignalContext(logger)
	defer stop()

	res := cli.OpenBackend(ctx, logger, cfg)
	defer cli.CloseBackend(logger, res)

	snapshots := cache.NewLRUCache[services.Snapshot](cfg.CacheSize, cfg.CacheTTL)
	caches := cache.NewManager()
	caches.Register(snapshots)
	caches.StartCleanup(ctx, time.Minute)
	defer caches.Stop()

	dashboard := services.NewDashboardService(res.Store, snapshots)
	deps := apphttp.Dependencies{
		Logger:         logger,
		Projects:       services.NewProjectService(res.Store, dashboard),
		Expenses:       services.NewExpenseService(res.Store, res.SyncPublisher(), dashboard),
		Dashboard:      dashboard,
		DefaultUserID:  cfg.DefaultUserID,
		RateLimitRPM:   cfg.RateLimitRPM,
		TrustedProxies: cfg.TrustedProxies,
		Ready:          res.Ping,
		Cache:          snapshots,
	}
	if cfg.AuthJWTSecret != "" {
		deps.Verifier = auth.NewVerifier(cfg.AuthJWTSecret)
		logger.InfoContext(ctx, "Token authentication enabled", "default_user", cfg.DefaultUserID != "")
	}

	srv, err := apphttp.NewServer(":"+cfg.Port, deps)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to configure server", "error", err)
		cli.CloseBackend(logger, res)
		os.Exit(1)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.InfoContext(ctx, "Starting garage server", "port", cfg.Port, "backend", cfg.DataBackend, "amqp", res.AMQP != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.ErrorContext(context.Background(), "Server error", "error", err, "port", cfg.Port)
			cli.CloseBackend(logger, res)
			os.Exit(1)
		}
	}

	cli.Shutdown(logger, 30*time.Second, srv.Shutdown)
}
