package main

import (
	"context"
	"errors"
	"os"

	"garage/internal/cli"
	"garage/internal/log"
	"garage/internal/services"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentReminder)
	ctx, stop := cli.SignalContext(logger)
	defer stop()

	res := cli.OpenBackend(ctx, logger, cfg)
	defer cli.CloseBackend(logger, res)

	if res.AMQP == nil {
		logger.WarnContext(ctx, "AMQP client not available, reminder alerts will only be logged")
	}

	scanner := services.NewReminderScanner(res.Store, res.AlertPublisher())
	logger.InfoContext(ctx, "Starting reminder-worker", "interval", cfg.ReminderScanInterval)

	if err := scanner.Run(ctx, cfg.ReminderScanInterval); err != nil && !errors.Is(err, context.Canceled) {
		logger.ErrorContext(context.Background(), "Reminder worker failed", "error", err)
		cli.CloseBackend(logger, res)
		os.Exit(1)
	}
	logger.InfoContext(context.Background(), "Reminder worker stopped gracefully")
}
