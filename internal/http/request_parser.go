// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.
// Handlers accept either form-encoded bodies (htmx, plain forms) or JSON.

package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"garage/internal/core"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 1 << 20

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body != nil {
		p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if strings.Contains(p.contentType, "application/json") || p.body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// parseBody reads and parses the request body, answering 400 on failure.
// It returns nil when the response has been written.
func parseBody(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Invalid request body").Write(w)
		return nil
	}
	return p
}

// ParseProjectForm builds a project from the create/edit form. Reminder
// dates and notes are not part of it.
func ParseProjectForm(p *RequestBodyParser) (core.Project, error) {
	proj := core.Project{
		Name:        p.Get("name"),
		Type:        p.Get("type"),
		Description: p.Get("description"),
		Status:      core.ProjectStatus(p.Get("status")),
		ImagePath:   p.Get("image_path"),
	}

	var err error
	if proj.BuyPrice, err = core.ParseOptionalMoney(p.Get("buy_price")); err != nil {
		return core.Project{}, fmt.Errorf("buy price: %w", err)
	}
	if proj.SoldPrice, err = core.ParseOptionalMoney(p.Get("sold_price")); err != nil {
		return core.Project{}, fmt.Errorf("sold price: %w", err)
	}

	if proj.Type == core.TypeCarRebuild {
		car := &core.CarDetails{
			VIN:          strings.ToUpper(p.Get("vin")),
			LicensePlate: p.Get("license_plate"),
		}
		if car.OdometerStart, err = parseOdometer(p.Get("odometer_start")); err != nil {
			return core.Project{}, err
		}
		if car.OdometerEnd, err = parseOdometer(p.Get("odometer_end")); err != nil {
			return core.Project{}, err
		}
		proj.Car = car
	}
	return proj, nil
}

func parseOdometer(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("odometer %q: %w", s, core.ErrInvalidOdometer)
	}
	return v, nil
}

// ParseExpenseForm builds an expense for projectID. A missing date means
// today in now's location.
func ParseExpenseForm(p *RequestBodyParser, projectID int64, now time.Time) (core.Expense, error) {
	amount, err := core.ParseMoney(p.Get("amount"))
	if err != nil {
		return core.Expense{}, fmt.Errorf("amount: %w", err)
	}

	date := now
	if raw := p.Get("date"); raw != "" {
		d := core.ParseDate(raw)
		if d.IsEmpty() {
			return core.Expense{}, fmt.Errorf("date %q: %w", raw, core.ErrMissingDate)
		}
		date = d.At(now.Location())
	}

	return core.Expense{
		ProjectID:   projectID,
		Description: p.Get("description"),
		Category:    p.Get("category"),
		Amount:      amount,
		Date:        date,
	}, nil
}

// ReminderDates are the three car reminder dates of the reminders form.
// Empty fields clear a date.
type ReminderDates struct {
	Insurance      core.Date
	TechnicalCheck core.Date
	Vignette       core.Date
}

func ParseReminderForm(p *RequestBodyParser) ReminderDates {
	return ReminderDates{
		Insurance:      core.ParseDate(p.Get("insurance_date")),
		TechnicalCheck: core.ParseDate(p.Get("technical_check_date")),
		Vignette:       core.ParseDate(p.Get("vignette_date")),
	}
}
