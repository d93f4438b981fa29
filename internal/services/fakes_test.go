package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"garage/internal/amqp"
	"garage/internal/core"
	"garage/internal/store"
	"garage/internal/store/memory"
)

const testUser = "user-1"

var errPublish = errors.New("broker down")

type syncMsg struct{ id, version int64 }
type deleteMsg struct{ id, projectID int64 }

type fakePublisher struct {
	mu      sync.Mutex
	syncs   []syncMsg
	deletes []deleteMsg
	alerts  []*amqp.ReminderAlertMessage
	err     error
}

func (p *fakePublisher) PublishExpenseSync(_ context.Context, id, version int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.syncs = append(p.syncs, syncMsg{id, version})
	return nil
}

func (p *fakePublisher) PublishExpenseDelete(_ context.Context, id, projectID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.deletes = append(p.deletes, deleteMsg{id, projectID})
	return nil
}

func (p *fakePublisher) PublishReminderAlert(_ context.Context, msg *amqp.ReminderAlertMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.alerts = append(p.alerts, msg)
	return nil
}

type countingInvalidator struct{ calls map[string]int }

func (c *countingInvalidator) Invalidate(userID string) {
	if c.calls == nil {
		c.calls = make(map[string]int)
	}
	c.calls[userID]++
}

// countingStore counts list calls and can be told to fail them. duringList,
// when set, runs inside ListProjects to simulate a write racing a read.
type countingStore struct {
	*memory.Store
	mu         sync.Mutex
	projects   int
	expenses   int
	failList   error
	duringList func()
}

func (s *countingStore) ListProjects(ctx context.Context, userID string) ([]core.Project, error) {
	s.mu.Lock()
	s.projects++
	err, hook := s.failList, s.duringList
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	projects, err := s.Store.ListProjects(ctx, userID)
	if hook != nil {
		hook()
	}
	return projects, err
}

func (s *countingStore) ListExpenses(ctx context.Context, userID string) ([]core.Expense, error) {
	s.mu.Lock()
	s.expenses++
	s.mu.Unlock()
	return s.Store.ListExpenses(ctx, userID)
}

var _ store.Store = (*countingStore)(nil)

func fixedNow() time.Time {
	return time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
}

func newMemStore() *memory.Store {
	return memory.NewWithClock(fixedNow)
}

func mustCreate(t testing.TB, st *memory.Store, p core.Project) core.Project {
	if p.UserID == "" {
		p.UserID = testUser
	}
	created, err := st.CreateProject(context.Background(), p.Normalize())
	if err != nil {
		t.Helper()
		t.Fatalf("create project: %v", err)
	}
	return created
}

func expense(projectID int64, desc, category, amount string, day int) core.Expense {
	return core.Expense{
		ProjectID:   projectID,
		Description: desc,
		Category:    category,
		Amount:      core.MustMoney(amount),
		Date:        time.Date(2025, 6, day, 0, 0, 0, 0, time.UTC),
	}
}
