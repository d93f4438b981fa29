// Package sheets mirrors expenses and reminder alerts into a spreadsheet so
// they can be browsed and shared outside the app.
package sheets

import (
	"context"
	"strconv"
	"time"

	"garage/internal/core"
)

// Ports for outbound adapters.
type (
	// ExpenseMirror keeps one row per expense, keyed by expense id.
	ExpenseMirror interface {
		UpsertExpense(ctx context.Context, row ExpenseRow) (rowRef string, err error)
		// DeleteExpense clears the row with the id. A missing row is not an
		// error.
		DeleteExpense(ctx context.Context, id int64) error
	}

	ReminderWriter interface {
		AppendReminder(ctx context.Context, row ReminderRow) error
	}

	Mirror interface {
		ExpenseMirror
		ReminderWriter
	}
)

// ExpenseRow is the sheet layout of an expense:
// id, date, project, description, category, amount, amount_secondary.
type ExpenseRow struct {
	ID              int64
	Date            time.Time
	Project         string
	Description     string
	Category        string
	Amount          core.Money
	AmountSecondary core.Money
}

func NewExpenseRow(e core.Expense, project string) ExpenseRow {
	return ExpenseRow{
		ID:              e.ID,
		Date:            e.Date,
		Project:         project,
		Description:     e.Description,
		Category:        e.Category,
		Amount:          e.Amount,
		AmountSecondary: e.AmountSecondary,
	}
}

// Values renders the row as sheet cells. Amounts are plain decimals so the
// sheet can sum them; an unset secondary amount is an empty cell.
func (r ExpenseRow) Values() []any {
	secondary := ""
	if !r.AmountSecondary.IsZero() {
		secondary = r.AmountSecondary.Decimal().StringFixed(2)
	}
	return []any{
		strconv.FormatInt(r.ID, 10),
		r.Date.Format(core.DateLayout),
		r.Project,
		r.Description,
		r.Category,
		r.Amount.Decimal().StringFixed(2),
		secondary,
	}
}

// ReminderRow is one alert line: when, project, kind, due date, status.
type ReminderRow struct {
	At          time.Time
	ProjectID   int64
	ProjectName string
	Kind        string
	Date        string
	Status      string
}

func (r ReminderRow) Values() []any {
	return []any{
		r.At.UTC().Format(time.RFC3339),
		strconv.FormatInt(r.ProjectID, 10),
		r.ProjectName,
		r.Kind,
		r.Date,
		r.Status,
	}
}
