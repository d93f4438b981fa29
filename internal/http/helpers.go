package http

import (
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"garage/internal/core"
	"garage/internal/engine"
)

// formatEuros renders an amount the way the dashboard shows money:
// "€1.234,56", with "-€" for negative values.
func formatEuros(m core.Money) string {
	d := m.Decimal().Round(2)
	neg := d.IsNegative()
	if neg {
		d = d.Neg()
	}
	whole, frac, _ := strings.Cut(d.StringFixed(2), ".")

	var b strings.Builder
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(c)
	}
	s := "€" + b.String() + "," + frac
	if neg {
		return "-" + s
	}
	return s
}

// formatROI renders a percentage with one decimal, e.g. "27.3%".
func formatROI(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64) + "%"
}

// amountInput prefills a money form field; zero stays empty so optional
// fields round-trip.
func amountInput(m core.Money) string {
	if m.IsZero() {
		return ""
	}
	return m.Decimal().StringFixed(2)
}

// sanitizeInput removes control characters other than tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// pathID reads a positive integer path value.
func pathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"euros":       formatEuros,
		"roi":         formatROI,
		"amountInput": amountInput,
		"day": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format(core.DateLayout)
		},
		"humanDate": func(t time.Time) string {
			if t.IsZero() {
				return "never"
			}
			return t.Format("02 Jan 2006")
		},
		"reminderDate": func(d core.Date) string {
			if d.IsEmpty() {
				return "not set"
			}
			return d.Format("02 Jan 2006")
		},
		"statusClass": func(s engine.ReminderStatus) string {
			return "reminder-" + string(s)
		},
		"profitClass": func(m core.Money) string {
			if m.IsNegative() {
				return "loss"
			}
			return "profit"
		},
	}
}
