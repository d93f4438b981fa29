// Package memory is an in-process sheets mirror for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"garage/internal/sheets"
)

type Store struct {
	mu        sync.Mutex
	rows      []sheets.ExpenseRow
	reminders []sheets.ReminderRow
}

var _ sheets.Mirror = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// UpsertExpense replaces the row with the same id or appends a new one.
func (s *Store) UpsertExpense(_ context.Context, row sheets.ExpenseRow) (string, error) {
	if row.ID <= 0 {
		return "", fmt.Errorf("expense row without id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		if s.rows[i].ID == row.ID {
			s.rows[i] = row
			return fmt.Sprintf("mem:%d", i+1), nil
		}
	}
	s.rows = append(s.rows, row)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

func (s *Store) DeleteExpense(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		if s.rows[i].ID == id {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *Store) AppendReminder(_ context.Context, row sheets.ReminderRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reminders = append(s.reminders, row)
	return nil
}

// Rows returns a copy of the mirrored expense rows.
func (s *Store) Rows() []sheets.ExpenseRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sheets.ExpenseRow(nil), s.rows...)
}

func (s *Store) Reminders() []sheets.ReminderRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sheets.ReminderRow(nil), s.reminders...)
}
