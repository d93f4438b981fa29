package engine

import (
	"fmt"
	"math"
	"strings"

	"garage/internal/core"
)

// OtherCategory collects expenses without a category.
const OtherCategory = "Other"

// Pie geometry in SVG user units (viewBox 0 0 100 100).
const (
	PieCenterX = 50.0
	PieCenterY = 50.0
	PieRadius  = 40.0

	// pieStartAngle points at 12 o'clock.
	pieStartAngle = -90.0
)

// Palette is cycled by slice index.
var Palette = []string{"#3b82f6", "#10b981", "#f59e0b", "#ef4444", "#8b5cf6", "#ec4899"}

type Slice struct {
	Name    string
	Amount  core.Money
	Percent int     // signed share of the net total, rounded for display
	Share   float64 // fraction of the absolute sum, drives the geometry

	StartAngle float64 // degrees
	EndAngle   float64
	Color      string
	Path       string // SVG path data
}

type Breakdown struct {
	Total  core.Money
	Slices []Slice
}

// IsEmpty reports whether there is nothing to draw.
func (b Breakdown) IsEmpty() bool { return len(b.Slices) == 0 }

// CategoryBreakdown totals expenses per category in first-occurrence order and
// lays the categories out as consecutive pie slices starting at 12 o'clock.
// Empty input, or a net total of exactly zero, yields an empty Breakdown.
// Percentages are taken against the signed net total so they sum to 100 even
// when refunds are mixed in; slice sizes use absolute amounts so the circle
// always closes.
func CategoryBreakdown(expenses []core.Expense) Breakdown {
	var order []string
	var grand, magnitude core.Money
	sums := make(map[string]core.Money)
	for _, e := range expenses {
		name := strings.TrimSpace(e.Category)
		if name == "" {
			name = OtherCategory
		}
		if _, seen := sums[name]; !seen {
			order = append(order, name)
		}
		sums[name] = sums[name].Add(e.Amount)
		grand = grand.Add(e.Amount)
	}
	if len(order) == 0 || grand.IsZero() {
		return Breakdown{}
	}
	for _, name := range order {
		magnitude = magnitude.Add(abs(sums[name]))
	}

	out := Breakdown{Total: grand, Slices: make([]Slice, 0, len(order))}
	angle := pieStartAngle
	for i, name := range order {
		amount := sums[name]
		percent, _ := amount.Decimal().Div(grand.Decimal()).Float64()
		share, _ := abs(amount).Decimal().Div(magnitude.Decimal()).Float64()
		sweep := share * 360
		s := Slice{
			Name:       name,
			Amount:     amount,
			Percent:    int(math.Round(percent * 100)),
			Share:      share,
			StartAngle: angle,
			EndAngle:   angle + sweep,
			Color:      Palette[i%len(Palette)],
		}
		s.Path = slicePath(s.StartAngle, s.EndAngle)
		out.Slices = append(out.Slices, s)
		angle = s.EndAngle
	}
	return out
}

// slicePath returns the SVG path for a wedge between two angles. A full
// circle cannot be drawn with one arc (start and end points coincide), so it
// is split into two half arcs.
func slicePath(start, end float64) string {
	sweep := math.Abs(end - start)
	if sweep >= 360-1e-9 {
		x1, y1 := pointAt(start)
		x2, y2 := pointAt(start + 180)
		return fmt.Sprintf("M %s %s A %g %g 0 1 1 %s %s A %g %g 0 1 1 %s %s Z",
			coord(x1), coord(y1), PieRadius, PieRadius, coord(x2), coord(y2),
			PieRadius, PieRadius, coord(x1), coord(y1))
	}
	large := 0
	if sweep > 180 {
		large = 1
	}
	x1, y1 := pointAt(start)
	x2, y2 := pointAt(end)
	return fmt.Sprintf("M %g %g L %s %s A %g %g 0 %d 1 %s %s Z",
		PieCenterX, PieCenterY, coord(x1), coord(y1),
		PieRadius, PieRadius, large, coord(x2), coord(y2))
}

func abs(m core.Money) core.Money { return core.NewMoney(m.Decimal().Abs()) }

func pointAt(deg float64) (x, y float64) {
	rad := deg * math.Pi / 180
	return PieCenterX + PieRadius*math.Cos(rad), PieCenterY + PieRadius*math.Sin(rad)
}

// coord prints a coordinate with at most two decimals and no negative zero.
func coord(v float64) string {
	v = math.Round(v*100) / 100
	if v == 0 {
		v = 0
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}
