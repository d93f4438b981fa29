// Package worker keeps the spreadsheet mirror in step with the data store.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"garage/internal/amqp"
	"garage/internal/sheets"
	"garage/internal/store"
)

const defaultBatchSize = 20

// SyncWorker applies bus messages to the mirror. The pending scan is a
// backup for messages that were never published or got lost.
type SyncWorker struct {
	store     store.SyncStore
	mirror    sheets.ExpenseMirror
	reminders sheets.ReminderWriter
	batchSize int
}

var _ amqp.Handler = (*SyncWorker)(nil)

// NewSyncWorker accepts a nil reminders writer; alerts are then only logged.
func NewSyncWorker(st store.SyncStore, mirror sheets.ExpenseMirror, reminders sheets.ReminderWriter, batchSize int) *SyncWorker {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &SyncWorker{
		store:     st,
		mirror:    mirror,
		reminders: reminders,
		batchSize: batchSize,
	}
}

// HandleSync writes the current state of the expense, whatever version the
// message carries.
func (w *SyncWorker) HandleSync(ctx context.Context, msg *amqp.ExpenseSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message", "id", msg.ID, "version", msg.Version)

	rec, err := w.store.GetSyncRecord(ctx, msg.ID)
	if errors.Is(err, store.ErrNotFound) {
		// Deleted after the message was published; the delete message
		// cleans up the mirror.
		slog.InfoContext(ctx, "Expense no longer exists, skipping sync", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get expense from storage: %w", err)
	}
	return w.syncRecord(ctx, rec)
}

func (w *SyncWorker) HandleDelete(ctx context.Context, msg *amqp.ExpenseDeleteMessage) error {
	slog.InfoContext(ctx, "Processing delete message", "id", msg.ID, "project_id", msg.ProjectID)
	if err := w.mirror.DeleteExpense(ctx, msg.ID); err != nil {
		return fmt.Errorf("delete expense from mirror: %w", err)
	}
	return nil
}

func (w *SyncWorker) HandleReminder(ctx context.Context, msg *amqp.ReminderAlertMessage) error {
	slog.InfoContext(ctx, "Reminder alert",
		"project_id", msg.ProjectID,
		"project", msg.ProjectName,
		"kind", msg.Kind,
		"date", msg.Date,
		"status", msg.Status)
	if w.reminders == nil {
		return nil
	}
	row := sheets.ReminderRow{
		At:          msg.Timestamp,
		ProjectID:   msg.ProjectID,
		ProjectName: msg.ProjectName,
		Kind:        msg.Kind,
		Date:        msg.Date,
		Status:      msg.Status,
	}
	if err := w.reminders.AppendReminder(ctx, row); err != nil {
		return fmt.Errorf("append reminder: %w", err)
	}
	return nil
}

// ProcessPending pushes one batch of unsynced expenses and returns how many
// reached the mirror.
func (w *SyncWorker) ProcessPending(ctx context.Context) (int, error) {
	return w.processPending(ctx, w.batchSize)
}

// StartupSyncCheck catches up on a larger batch after downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	synced, err := w.processPending(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	slog.InfoContext(ctx, "Startup sync completed", "synced", synced)
	return nil
}

// Run does the startup check and then polls for pending expenses until ctx
// is cancelled.
func (w *SyncWorker) Run(ctx context.Context, interval time.Duration) error {
	if err := w.StartupSyncCheck(ctx); err != nil {
		slog.ErrorContext(ctx, "Startup sync check failed", "error", err)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.ProcessPending(ctx); err != nil && ctx.Err() == nil {
				slog.ErrorContext(ctx, "Pending sync failed", "error", err)
			}
		}
	}
}

func (w *SyncWorker) processPending(ctx context.Context, limit int) (int, error) {
	pending, err := w.store.ListPendingSync(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("get pending expenses: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "Processing pending expenses", "count", len(pending))
	synced := 0
	for _, rec := range pending {
		if err := ctx.Err(); err != nil {
			return synced, err
		}
		if err := w.syncRecord(ctx, rec); err != nil {
			slog.ErrorContext(ctx, "Failed to sync expense", "id", rec.Expense.ID, "error", err)
			continue
		}
		synced++
	}
	return synced, nil
}

func (w *SyncWorker) syncRecord(ctx context.Context, rec store.SyncRecord) error {
	e := rec.Expense
	ref, err := w.mirror.UpsertExpense(ctx, sheets.NewExpenseRow(e, rec.ProjectName))
	if err != nil {
		if markErr := w.store.MarkSyncError(ctx, e.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", e.ID, "error", markErr)
		}
		return fmt.Errorf("upsert expense: %w", err)
	}

	// The write already happened; a failed mark only means the row is
	// written again on the next scan.
	if err := w.store.MarkSynced(ctx, e.ID, e.Version); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", e.ID, "error", err)
	}

	slog.InfoContext(ctx, "Synced expense",
		"id", e.ID,
		"version", e.Version,
		"sheets_ref", ref)
	return nil
}
