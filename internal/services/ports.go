// Package services orchestrates writes to the store, cache invalidation and
// the messages that keep the mirror in sync. Reads go through
// DashboardService, which runs the aggregation engine over a cached
// snapshot.
package services

import (
	"context"
	"errors"

	"garage/internal/amqp"
	"garage/internal/store"
)

// ErrNotCar is returned when car-only data is written to another project type.
var ErrNotCar = errors.New("project is not a car rebuild")

type (
	// SyncPublisher is the part of the AMQP client ExpenseService needs.
	SyncPublisher interface {
		PublishExpenseSync(ctx context.Context, id, version int64) error
		PublishExpenseDelete(ctx context.Context, id, projectID int64) error
	}

	AlertPublisher interface {
		PublishReminderAlert(ctx context.Context, msg *amqp.ReminderAlertMessage) error
	}

	// Invalidator drops cached reads of a user after a write.
	Invalidator interface {
		Invalidate(userID string)
	}

	ProjectStore interface {
		store.ProjectReader
		store.ProjectWriter
	}

	ExpenseStore interface {
		store.ExpenseLister
		store.ExpenseWriter
	}
)

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(string) {}
