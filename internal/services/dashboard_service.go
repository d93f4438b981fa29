package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"garage/internal/cache"
	"garage/internal/core"
	"garage/internal/engine"
	"garage/internal/store"
)

const fetchTimeout = 7 * time.Second

// Snapshot is everything the engine needs to render one user's dashboard.
type Snapshot struct {
	Projects []core.Project
	Expenses []core.Expense
}

type DashboardStore interface {
	store.ProjectReader
	store.ExpenseLister
}

// DashboardService serves read models. Snapshots are cached per user and
// dropped by Invalidate after every write.
type DashboardService struct {
	store DashboardStore
	cache cache.Cache[Snapshot]
	now   func() time.Time

	// gens counts invalidations per user. A snapshot is only cached when no
	// invalidation happened while it was being read.
	mu   sync.Mutex
	gens map[string]uint64
}

// NewDashboardService accepts a nil cache, in which case every read hits the
// store.
func NewDashboardService(st DashboardStore, c cache.Cache[Snapshot]) *DashboardService {
	return &DashboardService{store: st, cache: c, now: time.Now, gens: make(map[string]uint64)}
}

func (s *DashboardService) Portfolio(ctx context.Context, userID string) (engine.Portfolio, error) {
	snap, err := s.snapshot(ctx, userID)
	if err != nil {
		return engine.Portfolio{}, err
	}
	return engine.BuildPortfolio(snap.Projects, snap.Expenses, s.now()), nil
}

// ProjectSummary returns store.ErrNotFound when the project is not in the
// user's snapshot.
func (s *DashboardService) ProjectSummary(ctx context.Context, userID string, id int64) (engine.ProjectSummary, error) {
	snap, err := s.snapshot(ctx, userID)
	if err != nil {
		return engine.ProjectSummary{}, err
	}
	for _, p := range snap.Projects {
		if p.ID != id {
			continue
		}
		var own []core.Expense
		for _, e := range snap.Expenses {
			if e.ProjectID == id {
				own = append(own, e)
			}
		}
		sortNewestFirst(own)
		return engine.Summarize(p, own, s.now()), nil
	}
	return engine.ProjectSummary{}, fmt.Errorf("project %d: %w", id, store.ErrNotFound)
}

// Invalidate implements Invalidator.
func (s *DashboardService) Invalidate(userID string) {
	if s.cache == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gens[userID]++
	s.cache.Delete(userID)
}

func (s *DashboardService) generation(userID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gens[userID]
}

// remember caches snap unless userID was invalidated after gen was taken.
func (s *DashboardService) remember(userID string, gen uint64, snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gens[userID] != gen {
		return
	}
	s.cache.Set(userID, snap)
}

func (s *DashboardService) snapshot(ctx context.Context, userID string) (Snapshot, error) {
	if s.cache != nil {
		if snap, ok := s.cache.Get(userID); ok {
			return snap.clone(), nil
		}
	}
	gen := s.generation(userID)

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	var snap Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		projects, err := s.store.ListProjects(gctx, userID)
		if err != nil {
			return fmt.Errorf("list projects: %w", err)
		}
		snap.Projects = projects
		return nil
	})
	g.Go(func() error {
		expenses, err := s.store.ListExpenses(gctx, userID)
		if err != nil {
			return fmt.Errorf("list expenses: %w", err)
		}
		snap.Expenses = expenses
		return nil
	})
	if err := g.Wait(); err != nil {
		slog.ErrorContext(ctx, "Failed to load dashboard snapshot", "user_id", userID, "error", err)
		return Snapshot{}, err
	}

	if s.cache != nil {
		s.remember(userID, gen, snap)
	}
	return snap.clone(), nil
}

// clone copies the slices so callers cannot reorder a cached snapshot.
func (s Snapshot) clone() Snapshot {
	return Snapshot{
		Projects: append([]core.Project(nil), s.Projects...),
		Expenses: append([]core.Expense(nil), s.Expenses...),
	}
}

func sortNewestFirst(expenses []core.Expense) {
	sort.SliceStable(expenses, func(i, j int) bool {
		if !expenses[i].Date.Equal(expenses[j].Date) {
			return expenses[i].Date.After(expenses[j].Date)
		}
		return expenses[i].ID > expenses[j].ID
	})
}
