package engine

import (
	"time"

	"garage/internal/core"
)

// ProjectSummary bundles every derived value a project card or detail page
// renders.
type ProjectSummary struct {
	Project  core.Project
	Expenses []core.Expense

	TotalExpenses   core.Money
	TotalInvestment core.Money
	NetProfit       core.Money
	ROI             float64
	Breakdown       Breakdown
	LatestActivity  time.Time

	ReminderStatus ReminderStatus
	Reminders      []Reminder

	DistanceKm  int64
	HasDistance bool
}

// Summarize derives the summary of one project from its own expenses.
func Summarize(p core.Project, expenses []core.Expense, now time.Time) ProjectSummary {
	var spent core.Money
	for _, e := range expenses {
		spent = spent.Add(e.Amount)
	}
	s := ProjectSummary{
		Project:         p,
		Expenses:        expenses,
		TotalExpenses:   spent,
		TotalInvestment: TotalInvestment(p, expenses),
		NetProfit:       NetProfit(p, expenses),
		ROI:             ROI(p, expenses),
		Breakdown:       CategoryBreakdown(expenses),
		LatestActivity:  LatestActivity(p, expenses),
		ReminderStatus:  AggregateReminderStatus(p, now),
		Reminders:       Reminders(p, now),
	}
	if p.Car != nil {
		s.DistanceKm, s.HasDistance = p.Car.DistanceDriven()
	}
	return s
}

// Portfolio is the dashboard view over all of a user's projects.
type Portfolio struct {
	Active    []ProjectSummary
	Completed []ProjectSummary

	TotalValue    core.Money // buy prices plus expenses
	TotalExpenses core.Money
	TotalProfit   core.Money // net profit over completed projects

	ProjectCount   int
	AttentionCount int // projects with an expired or warning reminder
}

// BuildPortfolio sorts projects by activity, partitions them and summarizes
// each one. Expenses of projects outside the set are ignored.
func BuildPortfolio(projects []core.Project, expenses []core.Expense, now time.Time) Portfolio {
	grouped := GroupByProject(projects, expenses)
	active, completed := Partition(SortByActivity(projects, expenses))

	pf := Portfolio{
		TotalValue:   TotalPortfolioValue(projects, expenses),
		ProjectCount: len(projects),
	}
	summarize := func(list []core.Project) []ProjectSummary {
		out := make([]ProjectSummary, 0, len(list))
		for _, p := range list {
			s := Summarize(p, grouped[p.ID], now)
			pf.TotalExpenses = pf.TotalExpenses.Add(s.TotalExpenses)
			if s.ReminderStatus.NeedsAttention() {
				pf.AttentionCount++
			}
			out = append(out, s)
		}
		return out
	}
	pf.Active = summarize(active)
	pf.Completed = summarize(completed)
	for _, s := range pf.Completed {
		pf.TotalProfit = pf.TotalProfit.Add(s.NetProfit)
	}
	return pf
}
