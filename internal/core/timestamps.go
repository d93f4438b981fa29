package core

import (
	"strings"
	"time"
)

// DateLayout is the wire and storage format of calendar days.
const DateLayout = "2006-01-02"

// timestampLayouts are tried in order when reading stored timestamps. The
// hosted store historically emitted both RFC3339 and Postgres-style values.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	DateLayout,
}

// ParseTimestamp parses a stored timestamp. It fails closed: a value that
// cannot be parsed yields the zero time (the earliest possible instant) and
// ok=false, so one bad record never blocks aggregation.
func ParseTimestamp(s string) (t time.Time, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// storageLayout is fixed width so stored values sort lexically.
const storageLayout = "2006-01-02T15:04:05.000000000Z07:00"

// FormatTimestamp is the inverse of ParseTimestamp for storage.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(storageLayout)
}

// ParseDate parses an optional YYYY-MM-DD calendar day. Empty or invalid
// input yields the zero Date, i.e. "not set".
func ParseDate(s string) Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		if ts, ok := ParseTimestamp(s); ok {
			return NewDate(ts.Year(), int(ts.Month()), ts.Day())
		}
		return Date{}
	}
	return Date{Time: t}
}
