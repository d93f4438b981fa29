package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"garage/internal/core"
	"garage/internal/store"
)

var _ store.Store = (*Store)(nil)

func fixedClock() func() time.Time {
	t := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Minute)
		return t
	}
}

func TestProjectLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewWithClock(fixedClock())

	p, err := s.CreateProject(ctx, core.Project{UserID: "u1", Name: "Golf", Type: core.TypeCarRebuild, Car: &core.CarDetails{VIN: "WVW"}})
	if err != nil || p.ID != 1 || p.CreatedAt.IsZero() {
		t.Fatalf("unexpected create: %+v err=%v", p, err)
	}
	created := p.CreatedAt

	p.Name = "Golf GTI"
	p.CreatedAt = time.Time{}
	p, err = s.UpdateProject(ctx, p)
	if err != nil || p.Name != "Golf GTI" || !p.CreatedAt.Equal(created) {
		t.Fatalf("update must keep CreatedAt: %+v err=%v", p, err)
	}

	// Mutating a returned value must not leak into the store.
	p.Car.VIN = "changed"
	got, _ := s.GetProject(ctx, "u1", p.ID)
	if got.Car.VIN != "WVW" {
		t.Fatalf("store shares CarDetails with caller")
	}

	if _, err := s.GetProject(ctx, "u2", p.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("foreign project should be not found, got %v", err)
	}

	if err := s.DeleteProject(ctx, "u1", p.ID); err != nil {
		t.Fatal(err)
	}
	list, _ := s.ListProjects(ctx, "u1")
	if len(list) != 0 {
		t.Fatalf("soft-deleted project listed: %+v", list)
	}
	if _, err := s.GetProject(ctx, "u1", p.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("soft-deleted project should be not found")
	}
}

func TestExpenseOwnership(t *testing.T) {
	ctx := context.Background()
	s := NewWithClock(fixedClock())
	mine, _ := s.CreateProject(ctx, core.Project{UserID: "u1", Name: "A", Type: "PC Build"})
	theirs, _ := s.CreateProject(ctx, core.Project{UserID: "u2", Name: "B", Type: "PC Build"})

	e := core.Expense{ProjectID: theirs.ID, Description: "x", Amount: core.MustMoney("1"), Date: time.Now()}
	if _, err := s.AddExpense(ctx, "u1", e); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("writing to a foreign project should fail, got %v", err)
	}

	e.ProjectID = mine.ID
	added, err := s.AddExpense(ctx, "u1", e)
	if err != nil || added.Version != 1 {
		t.Fatalf("add: %+v err=%v", added, err)
	}
	added.ProjectID = theirs.ID
	if _, err := s.UpdateExpense(ctx, "u1", added); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("moving to a foreign project should fail, got %v", err)
	}
	if err := s.DeleteExpense(ctx, "u2", added.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("foreign delete should fail, got %v", err)
	}
}

func TestListExpensesSkipsDeletedProjects(t *testing.T) {
	ctx := context.Background()
	s := NewWithClock(fixedClock())
	a, _ := s.CreateProject(ctx, core.Project{UserID: "u1", Name: "A", Type: "PC Build"})
	b, _ := s.CreateProject(ctx, core.Project{UserID: "u1", Name: "B", Type: "PC Build"})
	d1 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, e := range []core.Expense{
		{ProjectID: a.ID, Description: "old", Amount: core.MustMoney("1"), Date: d1},
		{ProjectID: a.ID, Description: "new", Amount: core.MustMoney("2"), Date: d1.AddDate(0, 1, 0)},
		{ProjectID: b.ID, Description: "gone", Amount: core.MustMoney("3"), Date: d1},
	} {
		if _, err := s.AddExpense(ctx, "u1", e); err != nil {
			t.Fatal(err)
		}
	}
	_ = s.DeleteProject(ctx, "u1", b.ID)

	all, _ := s.ListExpenses(ctx, "u1")
	if len(all) != 2 || all[0].Description != "new" {
		t.Fatalf("unexpected expenses: %+v", all)
	}
	if _, err := s.ListProjectExpenses(ctx, "u1", b.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("deleted project expenses should be not found")
	}
}

func TestSyncTracking(t *testing.T) {
	ctx := context.Background()
	s := NewWithClock(fixedClock())
	p, _ := s.CreateProject(ctx, core.Project{UserID: "u1", Name: "A", Type: "PC Build"})
	e, _ := s.AddExpense(ctx, "u1", core.Expense{ProjectID: p.ID, Description: "x", Amount: core.MustMoney("1"), Date: time.Now()})

	pending, _ := s.ListPendingSync(ctx, 10)
	if len(pending) != 1 || pending[0].ProjectName != "A" || pending[0].Status != store.SyncPending {
		t.Fatalf("unexpected pending: %+v", pending)
	}

	// An edit after the message was queued makes the old version stale.
	e.Description = "y"
	e, _ = s.UpdateExpense(ctx, "u1", e)
	if err := s.MarkSynced(ctx, e.ID, 1); err != nil {
		t.Fatal(err)
	}
	pending, _ = s.ListPendingSync(ctx, 10)
	if len(pending) != 1 {
		t.Fatalf("stale version must not mark synced")
	}

	if err := s.MarkSynced(ctx, e.ID, e.Version); err != nil {
		t.Fatal(err)
	}
	pending, _ = s.ListPendingSync(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("expected nothing pending, got %+v", pending)
	}

	if err := s.MarkSyncError(ctx, e.ID); err != nil {
		t.Fatal(err)
	}
	rec, err := s.GetSyncRecord(ctx, e.ID)
	if err != nil || rec.Status != store.SyncError {
		t.Fatalf("unexpected record %+v err=%v", rec, err)
	}
}

func TestListCarProjects(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.Seed(ctx, "demo"); err != nil {
		t.Fatal(err)
	}
	cars, _ := s.ListCarProjects(ctx)
	if len(cars) != 1 || cars[0].Name != "Golf Mk2 GTI" {
		t.Fatalf("unexpected cars: %+v", cars)
	}
	projects, _ := s.ListProjects(ctx, "demo")
	if len(projects) != 2 {
		t.Fatalf("seed should create two projects, got %d", len(projects))
	}
}
