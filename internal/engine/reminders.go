package engine

import (
	"time"

	"garage/internal/core"
)

type ReminderStatus string

const (
	ReminderNone    ReminderStatus = "none"
	ReminderExpired ReminderStatus = "expired"
	ReminderWarning ReminderStatus = "warning"
	ReminderOK      ReminderStatus = "ok"
)

// severity orders statuses for the worst-of reduction.
func (s ReminderStatus) severity() int {
	switch s {
	case ReminderExpired:
		return 3
	case ReminderWarning:
		return 2
	case ReminderOK:
		return 1
	default:
		return 0
	}
}

// NeedsAttention reports whether the status should be surfaced to the user.
func (s ReminderStatus) NeedsAttention() bool {
	return s == ReminderExpired || s == ReminderWarning
}

type ReminderKind string

const (
	KindInsurance      ReminderKind = "insurance"
	KindTechnicalCheck ReminderKind = "technical_check"
	KindVignette       ReminderKind = "vignette"
)

// Label is the human readable name of the reminder.
func (k ReminderKind) Label() string {
	switch k {
	case KindInsurance:
		return "Insurance"
	case KindTechnicalCheck:
		return "Technical check"
	case KindVignette:
		return "Vignette"
	}
	return string(k)
}

type Reminder struct {
	Kind   ReminderKind
	Date   core.Date
	Status ReminderStatus
}

// ReminderStatusOf classifies a reminder date against now. The day boundary
// is midnight in now's location and both boundaries are inclusive: a date of
// today is expired, a date exactly one calendar month out is a warning.
func ReminderStatusOf(d core.Date, now time.Time) ReminderStatus {
	if d.IsEmpty() {
		return ReminderNone
	}
	loc := now.Location()
	y, m, day := now.Date()
	today := time.Date(y, m, day, 0, 0, 0, 0, loc)
	at := d.At(loc)

	switch {
	case !at.After(today):
		return ReminderExpired
	case !at.After(today.AddDate(0, 1, 0)):
		return ReminderWarning
	default:
		return ReminderOK
	}
}

// Reminders lists the three reminder dates of a car project with their
// status. Non-car projects have none.
func Reminders(p core.Project, now time.Time) []Reminder {
	if !p.IsCar() {
		return nil
	}
	c := p.Car
	out := []Reminder{
		{Kind: KindInsurance, Date: c.InsuranceDate},
		{Kind: KindTechnicalCheck, Date: c.TechnicalCheckDate},
		{Kind: KindVignette, Date: c.VignetteDate},
	}
	for i := range out {
		out[i].Status = ReminderStatusOf(out[i].Date, now)
	}
	return out
}

// AggregateReminderStatus reduces a project's reminders to the most urgent
// status. Non-car projects, and car projects without any date set, report
// ReminderNone.
func AggregateReminderStatus(p core.Project, now time.Time) ReminderStatus {
	worst := ReminderNone
	for _, r := range Reminders(p, now) {
		if r.Status.severity() > worst.severity() {
			worst = r.Status
		}
	}
	return worst
}
