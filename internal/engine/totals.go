// Package engine derives every computed figure the dashboard shows from plain
// collections of projects and expenses: totals, profit and ROI, category
// breakdowns with pie geometry, activity ordering and reminder urgency.
//
// All functions are pure. They never mutate their inputs, never fail, and
// hold no state between calls.
package engine

import (
	"math"

	"garage/internal/core"
)

// TotalInvestment is the buy price plus the sum of the given expenses. The
// caller passes the expenses that belong to the project.
func TotalInvestment(p core.Project, expenses []core.Expense) core.Money {
	total := p.BuyPrice
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}

// NetProfit is SoldPrice minus TotalInvestment. It is computed regardless of
// status; callers decide whether an active project's profit is meaningful.
func NetProfit(p core.Project, expenses []core.Expense) core.Money {
	return p.SoldPrice.Sub(TotalInvestment(p, expenses))
}

// ROI returns NetProfit / TotalInvestment * 100 rounded to one decimal, or 0
// when the total investment is zero.
func ROI(p core.Project, expenses []core.Expense) float64 {
	invested := TotalInvestment(p, expenses)
	if invested.IsZero() {
		return 0
	}
	profit := p.SoldPrice.Sub(invested)
	pct, _ := profit.Decimal().Div(invested.Decimal()).Shift(2).Float64()
	return round1(pct)
}

// TotalPortfolioValue sums every project's buy price and every expense whose
// project is in the set. Expenses of unknown projects are ignored.
func TotalPortfolioValue(projects []core.Project, expenses []core.Expense) core.Money {
	var total core.Money
	known := make(map[int64]struct{}, len(projects))
	for _, p := range projects {
		known[p.ID] = struct{}{}
		total = total.Add(p.BuyPrice)
	}
	for _, e := range expenses {
		if _, ok := known[e.ProjectID]; ok {
			total = total.Add(e.Amount)
		}
	}
	return total
}

// TotalExpenses sums every expense whose project is in the set.
func TotalExpenses(projects []core.Project, expenses []core.Expense) core.Money {
	var total core.Money
	for _, list := range GroupByProject(projects, expenses) {
		for _, e := range list {
			total = total.Add(e.Amount)
		}
	}
	return total
}

// GroupByProject buckets expenses by project id in one pass. Only projects in
// the set get a key; orphan expenses are dropped. Input order is preserved
// within each bucket.
func GroupByProject(projects []core.Project, expenses []core.Expense) map[int64][]core.Expense {
	out := make(map[int64][]core.Expense, len(projects))
	for _, p := range projects {
		out[p.ID] = nil
	}
	for _, e := range expenses {
		if list, ok := out[e.ProjectID]; ok {
			out[e.ProjectID] = append(list, e)
		}
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
