// Package store declares the ports the services use to reach the data store.
// Every read is scoped to one user; records owned by someone else behave as
// if they did not exist.
package store

import (
	"context"
	"errors"
	"time"

	"garage/internal/core"
)

// ErrNotFound is returned for missing, soft-deleted or foreign records.
var ErrNotFound = errors.New("not found")

type (
	ProjectReader interface {
		// ListProjects returns the user's non-deleted projects, newest first.
		ListProjects(ctx context.Context, userID string) ([]core.Project, error)
		GetProject(ctx context.Context, userID string, id int64) (core.Project, error)
	}

	ProjectWriter interface {
		CreateProject(ctx context.Context, p core.Project) (core.Project, error)
		// UpdateProject replaces the editable fields. ID, UserID and
		// CreatedAt are never changed.
		UpdateProject(ctx context.Context, p core.Project) (core.Project, error)
		// DeleteProject sets the soft-delete flag.
		DeleteProject(ctx context.Context, userID string, id int64) error
	}

	ExpenseLister interface {
		// ListExpenses returns every expense of the user's non-deleted projects.
		ListExpenses(ctx context.Context, userID string) ([]core.Expense, error)
		// ListProjectExpenses returns one project's expenses, newest first.
		ListProjectExpenses(ctx context.Context, userID string, projectID int64) ([]core.Expense, error)
		GetExpense(ctx context.Context, userID string, id int64) (core.Expense, error)
	}

	// ExpenseWriter checks ownership through the expense's project.
	ExpenseWriter interface {
		AddExpense(ctx context.Context, userID string, e core.Expense) (core.Expense, error)
		UpdateExpense(ctx context.Context, userID string, e core.Expense) (core.Expense, error)
		DeleteExpense(ctx context.Context, userID string, id int64) error
	}

	// CarLister is used by the reminder scanner, which works across users.
	CarLister interface {
		ListCarProjects(ctx context.Context) ([]core.Project, error)
	}

	// SyncStore tracks which expenses still have to reach the mirror.
	SyncStore interface {
		GetSyncRecord(ctx context.Context, expenseID int64) (SyncRecord, error)
		ListPendingSync(ctx context.Context, limit int) ([]SyncRecord, error)
		// MarkSynced is a no-op when the expense was edited after version.
		MarkSynced(ctx context.Context, expenseID, version int64) error
		MarkSyncError(ctx context.Context, expenseID int64) error
	}

	// Store is everything a backend provides.
	Store interface {
		ProjectReader
		ProjectWriter
		ExpenseLister
		ExpenseWriter
		CarLister
		SyncStore
		Close() error
	}
)

// SyncStatus of an expense towards the mirror.
type SyncStatus string

const (
	SyncPending SyncStatus = "pending"
	SyncSynced  SyncStatus = "synced"
	SyncError   SyncStatus = "error"
)

// SyncRecord carries what the mirror needs to write one row.
type SyncRecord struct {
	Expense     core.Expense
	ProjectName string
	Status      SyncStatus
	UpdatedAt   time.Time
}
