package memory

import (
	"context"
	"testing"

	"garage/internal/core"
	"garage/internal/sheets"
)

func TestUpsertAndDelete(t *testing.T) {
	ctx := context.Background()
	s := New()

	if _, err := s.UpsertExpense(ctx, sheets.ExpenseRow{}); err == nil {
		t.Fatalf("row without id must be rejected")
	}

	ref, err := s.UpsertExpense(ctx, sheets.ExpenseRow{ID: 1, Description: "Oil", Amount: core.MustMoney("10")})
	if err != nil || ref != "mem:1" {
		t.Fatalf("first upsert: %q %v", ref, err)
	}
	s.UpsertExpense(ctx, sheets.ExpenseRow{ID: 2, Description: "Tyres"})
	ref, _ = s.UpsertExpense(ctx, sheets.ExpenseRow{ID: 1, Description: "Oil and filter"})
	if ref != "mem:1" {
		t.Fatalf("upsert of existing id moved the row: %q", ref)
	}

	rows := s.Rows()
	if len(rows) != 2 || rows[0].Description != "Oil and filter" {
		t.Fatalf("rows: %+v", rows)
	}

	if err := s.DeleteExpense(ctx, 1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteExpense(ctx, 1); err != nil {
		t.Fatalf("deleting a missing row: %v", err)
	}
	if rows := s.Rows(); len(rows) != 1 || rows[0].ID != 2 {
		t.Fatalf("rows after delete: %+v", rows)
	}
}

func TestAppendReminder(t *testing.T) {
	s := New()
	s.AppendReminder(context.Background(), sheets.ReminderRow{ProjectID: 1, Kind: "insurance"})
	if got := s.Reminders(); len(got) != 1 || got[0].Kind != "insurance" {
		t.Fatalf("reminders: %+v", got)
	}
}
