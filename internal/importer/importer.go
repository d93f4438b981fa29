// Package importer turns a spreadsheet export of historical expenses into
// Expense records. Amounts in the file are in the secondary currency and are
// converted to EUR at the fixed peg.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"garage/internal/core"
)

// DefaultProjectID is the project historical imports were written to.
const DefaultProjectID int64 = 1

// PegRate is the fixed number of secondary currency units per EUR.
var PegRate = decimal.RequireFromString("1.95583")

// ConversionMode selects how converted amounts are rounded.
type ConversionMode string

const (
	// ModeRounded rounds converted amounts half away from zero to cents.
	ModeRounded ConversionMode = "rounded"
	// ModeUnrounded keeps the full quotient, as one historical import did.
	ModeUnrounded ConversionMode = "unrounded"
)

// ParseMode validates a mode name. Empty selects ModeRounded.
func ParseMode(s string) (ConversionMode, error) {
	switch ConversionMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeRounded:
		return ModeRounded, nil
	case ModeUnrounded:
		return ModeUnrounded, nil
	}
	return "", fmt.Errorf("unknown conversion mode %q (want %s or %s)", s, ModeRounded, ModeUnrounded)
}

// Convert turns a secondary currency amount into EUR.
func Convert(secondary decimal.Decimal, mode ConversionMode) decimal.Decimal {
	eur := secondary.Div(PegRate)
	if mode == ModeUnrounded {
		return eur
	}
	return eur.Round(2)
}

// dateLayouts are the formats seen in exports, most specific first.
var dateLayouts = []string{
	"January 2, 2006 3:04 PM",
	"January 2, 2006 15:04",
	"January 2, 2006",
	"Jan 2, 2006",
	core.DateLayout,
	time.RFC3339,
}

type Options struct {
	ProjectID int64
	Mode      ConversionMode
	// Location interprets dates without a zone. Defaults to UTC.
	Location *time.Location
}

// SkippedRow records an input line that could not be imported.
type SkippedRow struct {
	Line   int
	Reason string
}

type Result struct {
	Expenses []core.Expense
	Skipped  []SkippedRow
}

// Parse reads the CSV export. The first record is a header. Each following
// record is Name, Amount, Category, Created; unquoted dates containing a
// comma spill into extra fields and are joined back together. Rows with a bad
// amount, date or description are skipped and reported; the rest are kept.
func Parse(r io.Reader, opts Options) (Result, error) {
	if opts.ProjectID == 0 {
		opts.ProjectID = DefaultProjectID
	}
	if opts.Mode == "" {
		opts.Mode = ModeRounded
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return Result{}, nil
		}
		return Result{}, fmt.Errorf("read csv header: %w", err)
	}

	var res Result
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				res.Skipped = append(res.Skipped, SkippedRow{Line: perr.StartLine, Reason: perr.Err.Error()})
				continue
			}
			return res, fmt.Errorf("read csv: %w", err)
		}
		if blank(record) {
			continue
		}
		line, _ := reader.FieldPos(0)
		e, err := parseRecord(record, opts)
		if err != nil {
			res.Skipped = append(res.Skipped, SkippedRow{Line: line, Reason: err.Error()})
			continue
		}
		res.Expenses = append(res.Expenses, e)
	}
	return res, nil
}

func parseRecord(record []string, opts Options) (core.Expense, error) {
	if len(record) < 4 {
		return core.Expense{}, fmt.Errorf("expected at least 4 fields, got %d", len(record))
	}
	secondary, err := decimal.NewFromString(strings.TrimSpace(record[1]))
	if err != nil {
		return core.Expense{}, fmt.Errorf("invalid amount %q", record[1])
	}
	date, err := parseDate(strings.Join(record[3:], ","), opts.Location)
	if err != nil {
		return core.Expense{}, err
	}
	e := core.Expense{
		ProjectID:       opts.ProjectID,
		Description:     strings.TrimSpace(record[0]),
		Category:        cleanCategory(record[2]),
		Amount:          core.NewMoney(Convert(secondary, opts.Mode)),
		AmountSecondary: core.NewMoney(secondary),
		Date:            date,
	}
	if err := e.ValidateImported(); err != nil {
		return core.Expense{}, fmt.Errorf("invalid expense: %w", err)
	}
	return e, nil
}

// cleanCategory drops a trailing " (link)" and any stray quotes.
func cleanCategory(raw string) string {
	name, _, _ := strings.Cut(raw, " (")
	return strings.TrimSpace(strings.ReplaceAll(name, `"`, ""))
}

func parseDate(raw string, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(strings.ReplaceAll(raw, `"`, ""))
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
