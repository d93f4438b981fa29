package services

import (
	"context"
	"fmt"
	"log/slog"

	"garage/internal/core"
)

// ExpenseService writes expenses locally first and then announces the change
// on the message bus. Publishing is best effort: the write already succeeded
// and the sync worker's pending scan picks up anything that was missed.
type ExpenseService struct {
	store     ExpenseStore
	publisher SyncPublisher
	cache     Invalidator
}

// NewExpenseService accepts a nil publisher when messaging is not configured.
func NewExpenseService(st ExpenseStore, publisher SyncPublisher, cache Invalidator) *ExpenseService {
	if cache == nil {
		cache = noopInvalidator{}
	}
	return &ExpenseService{store: st, publisher: publisher, cache: cache}
}

func (s *ExpenseService) Add(ctx context.Context, userID string, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	return s.save(ctx, userID, e)
}

func (s *ExpenseService) save(ctx context.Context, userID string, e core.Expense) (core.Expense, error) {
	saved, err := s.store.AddExpense(ctx, userID, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	s.cache.Invalidate(userID)
	s.publishSync(ctx, saved)
	return saved, nil
}

func (s *ExpenseService) Update(ctx context.Context, userID string, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	saved, err := s.store.UpdateExpense(ctx, userID, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	s.cache.Invalidate(userID)
	s.publishSync(ctx, saved)
	return saved, nil
}

// Delete returns the removed expense so callers can refresh its project.
func (s *ExpenseService) Delete(ctx context.Context, userID string, id int64) (core.Expense, error) {
	e, err := s.store.GetExpense(ctx, userID, id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	if err := s.store.DeleteExpense(ctx, userID, id); err != nil {
		return core.Expense{}, fmt.Errorf("delete expense: %w", err)
	}
	s.cache.Invalidate(userID)

	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping delete message")
		return e, nil
	}
	if err := s.publisher.PublishExpenseDelete(ctx, id, e.ProjectID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete message", "id", id, "error", err)
	}
	return e, nil
}

// Import adds expenses one by one and stops at the first failure. It returns
// how many were written. Imported rows only need a project and a date; their
// amounts and descriptions are stored as the ledger recorded them.
func (s *ExpenseService) Import(ctx context.Context, userID string, expenses []core.Expense) (int, error) {
	for i, e := range expenses {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		err := e.ValidateImported()
		if err == nil {
			_, err = s.save(ctx, userID, e)
		}
		if err != nil {
			return i, fmt.Errorf("import row %d (%s): %w", i+1, e.Description, err)
		}
	}
	return len(expenses), nil
}

func (s *ExpenseService) publishSync(ctx context.Context, e core.Expense) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message")
		return
	}
	if err := s.publisher.PublishExpenseSync(ctx, e.ID, e.Version); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", e.ID, "version", e.Version, "error", err)
	}
}
