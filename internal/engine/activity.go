package engine

import (
	"sort"
	"time"

	"garage/internal/core"
)

// LatestActivity is the later of the project's creation time and the dates
// of the given expenses. Zero timestamps count as the earliest instant.
func LatestActivity(p core.Project, expenses []core.Expense) time.Time {
	latest := p.CreatedAt
	for _, e := range expenses {
		if e.Date.After(latest) {
			latest = e.Date
		}
	}
	return latest
}

// ActivityIndex computes LatestActivity for every project in one pass over
// each collection. Expenses of projects outside the set are ignored.
func ActivityIndex(projects []core.Project, expenses []core.Expense) map[int64]time.Time {
	idx := make(map[int64]time.Time, len(projects))
	for _, p := range projects {
		idx[p.ID] = p.CreatedAt
	}
	for _, e := range expenses {
		cur, ok := idx[e.ProjectID]
		if ok && e.Date.After(cur) {
			idx[e.ProjectID] = e.Date
		}
	}
	return idx
}

// SortByActivity returns a copy of projects ordered most recently active
// first. Ties keep their input order.
func SortByActivity(projects []core.Project, expenses []core.Expense) []core.Project {
	idx := ActivityIndex(projects, expenses)
	out := make([]core.Project, len(projects))
	copy(out, projects)
	sort.SliceStable(out, func(i, j int) bool {
		return idx[out[i].ID].After(idx[out[j].ID])
	})
	return out
}

// Partition splits projects into active (status other than completed) and
// completed, preserving relative order within each group.
func Partition(projects []core.Project) (active, completed []core.Project) {
	for _, p := range projects {
		if p.IsCompleted() {
			completed = append(completed, p)
		} else {
			active = append(active, p)
		}
	}
	return active, completed
}
