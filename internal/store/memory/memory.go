// Package memory is an in-process implementation of the store ports, used
// for local development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"garage/internal/core"
	"garage/internal/store"
)

type syncState struct {
	status    store.SyncStatus
	synced    int64 // last version written to the mirror
	updatedAt time.Time
}

type Store struct {
	mu       sync.Mutex
	now      func() time.Time
	projects map[int64]core.Project
	expenses map[int64]core.Expense
	syncs    map[int64]*syncState
	nextProj int64
	nextExp  int64
}

func New() *Store {
	return &Store{
		now:      time.Now,
		projects: make(map[int64]core.Project),
		expenses: make(map[int64]core.Expense),
		syncs:    make(map[int64]*syncState),
	}
}

// NewWithClock is New with a fixed time source.
func NewWithClock(now func() time.Time) *Store {
	s := New()
	s.now = now
	return s
}

// Seed inserts a demo portfolio for the given user so an empty dev
// instance has something to show.
func (s *Store) Seed(ctx context.Context, userID string) error {
	golf, err := s.CreateProject(ctx, core.Project{
		UserID: userID, Name: "Golf Mk2 GTI", Type: core.TypeCarRebuild,
		BuyPrice: core.MustMoney("3500"),
		Car: &core.CarDetails{
			LicensePlate: "B 1234 XY", OdometerStart: 182000,
			InsuranceDate: core.NewDate(s.now().Year()+1, 1, 15),
		},
	})
	if err != nil {
		return err
	}
	seedExpenses := []core.Expense{
		{ProjectID: golf.ID, Description: "Timing belt kit", Category: "Service", Amount: core.MustMoney("189.90"), Date: s.now().AddDate(0, 0, -20)},
		{ProjectID: golf.ID, Description: "Rust repair", Category: "Repair", Amount: core.MustMoney("640"), Date: s.now().AddDate(0, 0, -5)},
	}
	for _, e := range seedExpenses {
		if _, err := s.AddExpense(ctx, userID, e); err != nil {
			return err
		}
	}
	_, err = s.CreateProject(ctx, core.Project{
		UserID: userID, Name: "Workshop PC", Type: "PC Build", Status: core.StatusCompleted,
		BuyPrice: core.MustMoney("450"), SoldPrice: core.MustMoney("700"),
	})
	return err
}

func (s *Store) Close() error { return nil }

func (s *Store) ListProjects(_ context.Context, userID string) ([]core.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Project
	for _, p := range s.projects {
		if p.UserID == userID && !p.IsDeleted {
			out = append(out, cloneProject(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) GetProject(_ context.Context, userID string, id int64) (core.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.ownedProject(userID, id)
	if !ok {
		return core.Project{}, store.ErrNotFound
	}
	return cloneProject(p), nil
}

func (s *Store) CreateProject(_ context.Context, p core.Project) (core.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextProj++
	p.ID = s.nextProj
	p.CreatedAt = s.now()
	p.IsDeleted = false
	p = cloneProject(p)
	s.projects[p.ID] = p
	return cloneProject(p), nil
}

func (s *Store) UpdateProject(_ context.Context, p core.Project) (core.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.ownedProject(p.UserID, p.ID)
	if !ok {
		return core.Project{}, store.ErrNotFound
	}
	p.CreatedAt = cur.CreatedAt
	p.IsDeleted = false
	p = cloneProject(p)
	s.projects[p.ID] = p
	return cloneProject(p), nil
}

func (s *Store) DeleteProject(_ context.Context, userID string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.ownedProject(userID, id)
	if !ok {
		return store.ErrNotFound
	}
	p.IsDeleted = true
	s.projects[id] = p
	return nil
}

func (s *Store) ListCarProjects(_ context.Context) ([]core.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Project
	for _, p := range s.projects {
		if !p.IsDeleted && p.IsCar() {
			out = append(out, cloneProject(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListExpenses(_ context.Context, userID string) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Expense
	for _, e := range s.expenses {
		if _, ok := s.ownedProject(userID, e.ProjectID); ok {
			out = append(out, e)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *Store) ListProjectExpenses(_ context.Context, userID string, projectID int64) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ownedProject(userID, projectID); !ok {
		return nil, store.ErrNotFound
	}
	var out []core.Expense
	for _, e := range s.expenses {
		if e.ProjectID == projectID {
			out = append(out, e)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *Store) GetExpense(_ context.Context, userID string, id int64) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok {
		return core.Expense{}, store.ErrNotFound
	}
	if _, ok := s.ownedProject(userID, e.ProjectID); !ok {
		return core.Expense{}, store.ErrNotFound
	}
	return e, nil
}

func (s *Store) AddExpense(_ context.Context, userID string, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ownedProject(userID, e.ProjectID); !ok {
		return core.Expense{}, store.ErrNotFound
	}
	s.nextExp++
	e.ID = s.nextExp
	e.Version = 1
	s.expenses[e.ID] = e
	s.syncs[e.ID] = &syncState{status: store.SyncPending, updatedAt: s.now()}
	return e, nil
}

func (s *Store) UpdateExpense(_ context.Context, userID string, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.expenses[e.ID]
	if !ok {
		return core.Expense{}, store.ErrNotFound
	}
	// Both the old and the new project must belong to the user.
	if _, ok := s.ownedProject(userID, cur.ProjectID); !ok {
		return core.Expense{}, store.ErrNotFound
	}
	if _, ok := s.ownedProject(userID, e.ProjectID); !ok {
		return core.Expense{}, store.ErrNotFound
	}
	e.Version = cur.Version + 1
	s.expenses[e.ID] = e
	st := s.syncs[e.ID]
	st.status = store.SyncPending
	st.updatedAt = s.now()
	return e, nil
}

func (s *Store) DeleteExpense(_ context.Context, userID string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok {
		return store.ErrNotFound
	}
	if _, ok := s.ownedProject(userID, e.ProjectID); !ok {
		return store.ErrNotFound
	}
	delete(s.expenses, id)
	delete(s.syncs, id)
	return nil
}

func (s *Store) GetSyncRecord(_ context.Context, expenseID int64) (store.SyncRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[expenseID]
	if !ok {
		return store.SyncRecord{}, store.ErrNotFound
	}
	return s.syncRecord(e), nil
}

func (s *Store) ListPendingSync(_ context.Context, limit int) ([]store.SyncRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.SyncRecord
	for id, st := range s.syncs {
		if st.status == store.SyncSynced {
			continue
		}
		out = append(out, s.syncRecord(s.expenses[id]))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Expense.ID < out[j].Expense.ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) MarkSynced(_ context.Context, expenseID, version int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[expenseID]
	if !ok {
		return store.ErrNotFound
	}
	if e.Version != version {
		return nil
	}
	st := s.syncs[expenseID]
	st.status = store.SyncSynced
	st.synced = version
	st.updatedAt = s.now()
	return nil
}

func (s *Store) MarkSyncError(_ context.Context, expenseID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.syncs[expenseID]
	if !ok {
		return store.ErrNotFound
	}
	st.status = store.SyncError
	st.updatedAt = s.now()
	return nil
}

// ownedProject must be called with mu held.
func (s *Store) ownedProject(userID string, id int64) (core.Project, bool) {
	p, ok := s.projects[id]
	if !ok || p.IsDeleted || p.UserID != userID {
		return core.Project{}, false
	}
	return p, true
}

func (s *Store) syncRecord(e core.Expense) store.SyncRecord {
	st := s.syncs[e.ID]
	return store.SyncRecord{
		Expense:     e,
		ProjectName: s.projects[e.ProjectID].Name,
		Status:      st.status,
		UpdatedAt:   st.updatedAt,
	}
}

// cloneProject detaches the CarDetails pointer from the stored copy.
func cloneProject(p core.Project) core.Project {
	if p.Car != nil {
		c := *p.Car
		p.Car = &c
	}
	return p
}

func sortNewestFirst(es []core.Expense) {
	sort.Slice(es, func(i, j int) bool {
		if !es[i].Date.Equal(es[j].Date) {
			return es[i].Date.After(es[j].Date)
		}
		return es[i].ID > es[j].ID
	})
}
