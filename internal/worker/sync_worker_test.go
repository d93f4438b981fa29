package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"garage/internal/amqp"
	"garage/internal/core"
	"garage/internal/sheets"
	sheetsmem "garage/internal/sheets/memory"
	"garage/internal/store"
	"garage/internal/store/memory"
)

const user = "user-1"

type failingMirror struct {
	*sheetsmem.Store
	fail bool
}

func (m *failingMirror) UpsertExpense(ctx context.Context, row sheets.ExpenseRow) (string, error) {
	if m.fail {
		return "", errors.New("quota exceeded")
	}
	return m.Store.UpsertExpense(ctx, row)
}

func setup(t *testing.T) (*memory.Store, *failingMirror, *SyncWorker, []core.Expense) {
	t.Helper()
	ctx := context.Background()
	st := memory.New()
	p, err := st.CreateProject(ctx, core.Project{UserID: user, Name: "Golf", Type: core.TypeCarRebuild})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	var added []core.Expense
	for i, desc := range []string{"Oil", "Tyres", "Paint"} {
		e, err := st.AddExpense(ctx, user, core.Expense{
			ProjectID:   p.ID,
			Description: desc,
			Category:    "Parts",
			Amount:      core.MustMoney("10"),
			Date:        time.Date(2025, 7, i+1, 0, 0, 0, 0, time.UTC),
		})
		if err != nil {
			t.Fatalf("add expense: %v", err)
		}
		added = append(added, e)
	}
	mirror := &failingMirror{Store: sheetsmem.New()}
	return st, mirror, NewSyncWorker(st, mirror, mirror, 2), added
}

func pendingCount(t *testing.T, st store.SyncStore) int {
	t.Helper()
	recs, err := st.ListPendingSync(context.Background(), 0)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	return len(recs)
}

func TestHandleSync(t *testing.T) {
	st, mirror, w, added := setup(t)
	ctx := context.Background()

	if err := w.HandleSync(ctx, amqp.NewExpenseSyncMessage(added[0].ID, 1)); err != nil {
		t.Fatalf("handle sync: %v", err)
	}
	rows := mirror.Rows()
	if len(rows) != 1 || rows[0].ID != added[0].ID || rows[0].Project != "Golf" {
		t.Fatalf("mirror rows: %+v", rows)
	}
	rec, _ := st.GetSyncRecord(ctx, added[0].ID)
	if rec.Status != store.SyncSynced {
		t.Fatalf("status: %s", rec.Status)
	}

	// Same message again only rewrites the same row.
	w.HandleSync(ctx, amqp.NewExpenseSyncMessage(added[0].ID, 1))
	if len(mirror.Rows()) != 1 {
		t.Fatalf("duplicate row for the same expense")
	}
}

func TestHandleSyncDeletedExpense(t *testing.T) {
	st, mirror, w, added := setup(t)
	ctx := context.Background()
	st.DeleteExpense(ctx, user, added[0].ID)

	if err := w.HandleSync(ctx, amqp.NewExpenseSyncMessage(added[0].ID, 1)); err != nil {
		t.Fatalf("a vanished expense is not an error: %v", err)
	}
	if len(mirror.Rows()) != 0 {
		t.Fatalf("nothing should be written")
	}
}

func TestHandleSyncMirrorFailure(t *testing.T) {
	st, mirror, w, added := setup(t)
	ctx := context.Background()
	mirror.fail = true

	if err := w.HandleSync(ctx, amqp.NewExpenseSyncMessage(added[0].ID, 1)); err == nil {
		t.Fatalf("expected error so the message is requeued")
	}
	rec, _ := st.GetSyncRecord(ctx, added[0].ID)
	if rec.Status != store.SyncError {
		t.Fatalf("status: %s", rec.Status)
	}
}

func TestHandleDelete(t *testing.T) {
	_, mirror, w, added := setup(t)
	ctx := context.Background()
	w.HandleSync(ctx, amqp.NewExpenseSyncMessage(added[0].ID, 1))
	w.HandleSync(ctx, amqp.NewExpenseSyncMessage(added[1].ID, 1))

	if err := w.HandleDelete(ctx, amqp.NewExpenseDeleteMessage(added[0].ID, added[0].ProjectID)); err != nil {
		t.Fatalf("handle delete: %v", err)
	}
	rows := mirror.Rows()
	if len(rows) != 1 || rows[0].ID != added[1].ID {
		t.Fatalf("rows: %+v", rows)
	}
}

func TestHandleReminder(t *testing.T) {
	_, mirror, w, _ := setup(t)
	msg := &amqp.ReminderAlertMessage{
		Type: amqp.TypeReminderAlert, ProjectID: 1, ProjectName: "Golf",
		Kind: "insurance", Date: "2025-06-01", Status: "expired", Timestamp: time.Now(),
	}
	if err := w.HandleReminder(context.Background(), msg); err != nil {
		t.Fatalf("handle reminder: %v", err)
	}
	if got := mirror.Reminders(); len(got) != 1 || got[0].Status != "expired" {
		t.Fatalf("reminders: %+v", got)
	}

	noSheet := NewSyncWorker(memory.New(), mirror, nil, 0)
	if err := noSheet.HandleReminder(context.Background(), msg); err != nil {
		t.Fatalf("without a reminders sheet: %v", err)
	}
}

func TestProcessPendingInBatches(t *testing.T) {
	st, mirror, w, _ := setup(t)
	ctx := context.Background()

	n, err := w.ProcessPending(ctx)
	if err != nil || n != 2 {
		t.Fatalf("first batch: %d %v", n, err)
	}
	if pendingCount(t, st) != 1 {
		t.Fatalf("one expense should still be pending")
	}
	n, _ = w.ProcessPending(ctx)
	if n != 1 || pendingCount(t, st) != 0 || len(mirror.Rows()) != 3 {
		t.Fatalf("second batch: %d synced, %d rows", n, len(mirror.Rows()))
	}
}

func TestProcessPendingRetriesErrors(t *testing.T) {
	st, mirror, w, _ := setup(t)
	ctx := context.Background()

	mirror.fail = true
	if n, err := w.ProcessPending(ctx); err != nil || n != 0 {
		t.Fatalf("failing mirror: %d %v", n, err)
	}
	mirror.fail = false
	if err := w.StartupSyncCheck(ctx); err != nil {
		t.Fatalf("startup: %v", err)
	}
	if pendingCount(t, st) != 0 {
		t.Fatalf("errored expenses must be retried")
	}
}

func TestEditDuringSyncStaysPending(t *testing.T) {
	st, _, w, added := setup(t)
	ctx := context.Background()

	rec, _ := st.GetSyncRecord(ctx, added[0].ID)
	e := added[0]
	e.Description = "Oil 5W-40"
	if _, err := st.UpdateExpense(ctx, user, e); err != nil {
		t.Fatalf("update: %v", err)
	}
	// A sync of the stale record must not mark the newer version as synced.
	if err := w.syncRecord(ctx, rec); err != nil {
		t.Fatalf("sync: %v", err)
	}
	cur, _ := st.GetSyncRecord(ctx, added[0].ID)
	if cur.Status == store.SyncSynced {
		t.Fatalf("newer version marked synced by a stale write")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	_, mirror, w, _ := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, time.Hour) }()

	deadline := time.After(2 * time.Second)
	for len(mirror.Rows()) < 3 {
		select {
		case <-deadline:
			t.Fatalf("startup check did not sync, rows=%d", len(mirror.Rows()))
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not stop")
	}
}
