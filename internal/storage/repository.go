package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"garage/internal/core"
	"garage/internal/store"

	_ "modernc.org/sqlite"
)

// SQLiteRepository implements store.Store on a local SQLite file.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

var _ store.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping is used by the readiness check.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) ListProjects(ctx context.Context, userID string) ([]core.Project, error) {
	rows, err := r.queries.ListProjectsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	out := make([]core.Project, len(rows))
	for i, row := range rows {
		out[i] = toCoreProject(ctx, row)
	}
	return out, nil
}

func (r *SQLiteRepository) GetProject(ctx context.Context, userID string, id int64) (core.Project, error) {
	row, err := r.queries.GetProject(ctx, id, userID)
	if err != nil {
		return core.Project{}, notFound(err, "get project")
	}
	return toCoreProject(ctx, row), nil
}

func (r *SQLiteRepository) CreateProject(ctx context.Context, p core.Project) (core.Project, error) {
	row := fromCoreProject(p)
	row.CreatedAt = core.FormatTimestamp(r.now())
	created, err := r.queries.CreateProject(ctx, row)
	if err != nil {
		return core.Project{}, fmt.Errorf("create project: %w", err)
	}
	slog.InfoContext(ctx, "Project saved to SQLite", "id", created.ID, "type", created.Type)
	return toCoreProject(ctx, created), nil
}

func (r *SQLiteRepository) UpdateProject(ctx context.Context, p core.Project) (core.Project, error) {
	updated, err := r.queries.UpdateProject(ctx, fromCoreProject(p))
	if err != nil {
		return core.Project{}, notFound(err, "update project")
	}
	return toCoreProject(ctx, updated), nil
}

func (r *SQLiteRepository) DeleteProject(ctx context.Context, userID string, id int64) error {
	n, err := r.queries.SoftDeleteProject(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	slog.InfoContext(ctx, "Project soft-deleted", "id", id)
	return nil
}

func (r *SQLiteRepository) ListCarProjects(ctx context.Context) ([]core.Project, error) {
	rows, err := r.queries.ListCarProjects(ctx, core.TypeCarRebuild)
	if err != nil {
		return nil, fmt.Errorf("list car projects: %w", err)
	}
	out := make([]core.Project, len(rows))
	for i, row := range rows {
		out[i] = toCoreProject(ctx, row)
	}
	return out, nil
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context, userID string) ([]core.Expense, error) {
	rows, err := r.queries.ListExpensesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return toCoreExpenses(ctx, rows), nil
}

func (r *SQLiteRepository) ListProjectExpenses(ctx context.Context, userID string, projectID int64) ([]core.Expense, error) {
	if _, err := r.queries.GetProject(ctx, projectID, userID); err != nil {
		return nil, notFound(err, "get project")
	}
	rows, err := r.queries.ListExpensesByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list project expenses: %w", err)
	}
	return toCoreExpenses(ctx, rows), nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, userID string, id int64) (core.Expense, error) {
	row, err := r.queries.GetExpenseForUser(ctx, id, userID)
	if err != nil {
		return core.Expense{}, notFound(err, "get expense")
	}
	return toCoreExpense(ctx, row), nil
}

func (r *SQLiteRepository) AddExpense(ctx context.Context, userID string, e core.Expense) (core.Expense, error) {
	if _, err := r.queries.GetProject(ctx, e.ProjectID, userID); err != nil {
		return core.Expense{}, notFound(err, "get project")
	}
	row := fromCoreExpense(e)
	row.UpdatedAt = core.FormatTimestamp(r.now())
	created, err := r.queries.CreateExpense(ctx, row)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", created.ID,
		"project_id", created.ProjectID,
		"amount", created.Amount)

	return toCoreExpense(ctx, created), nil
}

// UpdateExpense checks ownership of the current and the target project in
// one transaction.
func (r *SQLiteRepository) UpdateExpense(ctx context.Context, userID string, e core.Expense) (core.Expense, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Expense{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()
	q := r.queries.WithTx(tx)

	if _, err := q.GetExpenseForUser(ctx, e.ID, userID); err != nil {
		return core.Expense{}, notFound(err, "get expense")
	}
	if _, err := q.GetProject(ctx, e.ProjectID, userID); err != nil {
		return core.Expense{}, notFound(err, "get project")
	}
	row := fromCoreExpense(e)
	row.UpdatedAt = core.FormatTimestamp(r.now())
	updated, err := q.UpdateExpense(ctx, row)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.Expense{}, fmt.Errorf("commit: %w", err)
	}
	return toCoreExpense(ctx, updated), nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, userID string, id int64) error {
	if _, err := r.queries.GetExpenseForUser(ctx, id, userID); err != nil {
		return notFound(err, "get expense")
	}
	if err := r.queries.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	slog.InfoContext(ctx, "Expense deleted", "id", id)
	return nil
}

func (r *SQLiteRepository) GetSyncRecord(ctx context.Context, expenseID int64) (store.SyncRecord, error) {
	row, err := r.queries.GetSyncRow(ctx, expenseID)
	if err != nil {
		return store.SyncRecord{}, notFound(err, "get sync record")
	}
	return toSyncRecord(ctx, row), nil
}

// ListPendingSync returns expenses not yet mirrored, including those whose
// last attempt failed.
func (r *SQLiteRepository) ListPendingSync(ctx context.Context, limit int) ([]store.SyncRecord, error) {
	rows, err := r.queries.ListPendingSync(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending sync expenses: %w", err)
	}
	out := make([]store.SyncRecord, len(rows))
	for i, row := range rows {
		out[i] = toSyncRecord(ctx, row)
	}
	return out, nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, expenseID, version int64) error {
	if err := r.queries.MarkExpenseSynced(ctx, expenseID, version); err != nil {
		return fmt.Errorf("mark expense synced: %w", err)
	}
	slog.InfoContext(ctx, "Expense marked as synced", "id", expenseID, "version", version)
	return nil
}

func (r *SQLiteRepository) MarkSyncError(ctx context.Context, expenseID int64) error {
	n, err := r.queries.MarkExpenseSyncError(ctx, expenseID)
	if err != nil {
		return fmt.Errorf("mark expense sync error: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	slog.WarnContext(ctx, "Expense marked with sync error", "id", expenseID)
	return nil
}

func notFound(err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func toSyncRecord(ctx context.Context, row SyncRow) store.SyncRecord {
	updated, _ := core.ParseTimestamp(row.UpdatedAt)
	return store.SyncRecord{
		Expense:     toCoreExpense(ctx, row.Expense),
		ProjectName: row.ProjectName,
		Status:      store.SyncStatus(row.SyncStatus),
		UpdatedAt:   updated,
	}
}
