package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"garage/internal/cli"
	"garage/internal/config"
	"garage/internal/log"
	"garage/internal/sheets"
	gsheet "garage/internal/sheets/google"
	memsheet "garage/internal/sheets/memory"
	"garage/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentWorker)
	ctx, stop := cli.SignalContext(logger)
	defer stop()

	logger.InfoContext(ctx, "Starting garage-worker", "backend", cfg.DataBackend)
	if cfg.DataBackend != "sqlite" {
		logger.WarnContext(ctx, "Worker runs against its own in-memory store; only sqlite is shared with the server")
	}

	res := cli.OpenBackend(ctx, logger, cfg)
	defer cli.CloseBackend(logger, res)

	mirror, err := openMirror(ctx, cfg, logger)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize spreadsheet mirror", "error", err)
		cli.CloseBackend(logger, res)
		os.Exit(1)
	}

	w := worker.NewSyncWorker(res.Store, mirror, mirror, cfg.SyncBatchSize)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.Run(gctx, cfg.SyncInterval) })
	if res.AMQP != nil {
		g.Go(func() error { return res.AMQP.Consume(gctx, w) })
	} else {
		logger.InfoContext(ctx, "AMQP client not available, relying on periodic sync only")
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.ErrorContext(context.Background(), "Worker stopped with error", "error", err)
		cli.CloseBackend(logger, res)
		os.Exit(1)
	}
	logger.InfoContext(context.Background(), "Worker stopped gracefully")
}

// openMirror returns the Google Sheets client when a spreadsheet is
// configured and an in-process mirror otherwise.
func openMirror(ctx context.Context, cfg *config.Config, logger *log.Logger) (sheets.Mirror, error) {
	if !cfg.HasSheets() {
		logger.InfoContext(ctx, "Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, using in-memory mirror")
		return memsheet.New(), nil
	}
	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		ExpensesSheet:      cfg.GoogleSheetName,
		RemindersSheet:     cfg.GoogleRemindersSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return client, nil
}
