package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	StatusActive    ProjectStatus = "active"
	StatusCompleted ProjectStatus = "completed"
)

// TypeCarRebuild is the project type that carries CarDetails.
const TypeCarRebuild = "Car Rebuild"

// Well-known expense categories offered by the forms. Category is free text,
// so anything else is accepted as well.
var DefaultCategories = []string{"Service", "Repair", "Buying", "Tuning"}

type (
	ProjectStatus string

	// Date is a calendar day. The zero value means "not set".
	Date struct {
		time.Time
	}

	Project struct {
		ID          int64
		UserID      string
		Name        string
		Type        string
		Description string
		Status      ProjectStatus
		BuyPrice    Money
		SoldPrice   Money
		ImagePath   string
		CreatedAt   time.Time
		IsDeleted   bool

		// Car is only populated for TypeCarRebuild projects.
		Car *CarDetails
	}

	CarDetails struct {
		VIN                string
		LicensePlate       string
		OdometerStart      int64
		OdometerEnd        int64
		InsuranceDate      Date
		TechnicalCheckDate Date
		VignetteDate       Date
		Notes              string
	}

	Expense struct {
		ID              int64
		ProjectID       int64
		Amount          Money
		AmountSecondary Money // secondary currency, set by the CSV importer only
		Description     string
		Category        string
		Date            time.Time
		Version         int64 // bumped by the store on every write
	}
)

// Validation errors. Every error returned by a Validate method wraps one of
// these.
var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyName        = errors.New("empty project name")
	ErrEmptyType        = errors.New("empty project type")
	ErrInvalidStatus    = errors.New("invalid project status")
	ErrInvalidOdometer  = errors.New("invalid odometer reading")
	ErrEmptyDescription = errors.New("empty description")
	ErrMissingProject   = errors.New("missing project id")
	ErrMissingDate      = errors.New("missing expense date")
	ErrTooLong          = errors.New("value too long")
)

var validationErrors = []error{
	ErrInvalidAmount, ErrEmptyName, ErrEmptyType, ErrInvalidStatus,
	ErrInvalidOdometer, ErrEmptyDescription, ErrMissingProject, ErrMissingDate, ErrTooLong,
}

// IsValidation reports whether err is caused by invalid input.
func IsValidation(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// IsEmpty returns true if the date is not set
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// At returns midnight of the same calendar day in loc.
func (d Date) At(loc *time.Location) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, loc)
}

// String formats the date as YYYY-MM-DD, or "" when unset.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// IsCompleted reports whether the project is sold/finished.
func (p Project) IsCompleted() bool {
	return p.Status == StatusCompleted
}

// IsCar reports whether the project carries car metadata.
func (p Project) IsCar() bool {
	return p.Type == TypeCarRebuild && p.Car != nil
}

// Normalize fills defaults and enforces the type/variant pairing: a car
// project always has CarDetails, any other type never does.
func (p Project) Normalize() Project {
	p.Name = strings.TrimSpace(p.Name)
	p.Type = strings.TrimSpace(p.Type)
	if p.Status == "" {
		p.Status = StatusActive
	}
	if p.Type == TypeCarRebuild {
		if p.Car == nil {
			p.Car = &CarDetails{}
		}
	} else {
		p.Car = nil
	}
	return p
}

func (p Project) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if len(p.Name) > 120 {
		return fmt.Errorf("name: %w (max 120 characters)", ErrTooLong)
	}
	if strings.TrimSpace(p.Type) == "" {
		return ErrEmptyType
	}
	switch p.Status {
	case StatusActive, StatusCompleted, "":
	default:
		return ErrInvalidStatus
	}
	if p.BuyPrice.IsNegative() || p.SoldPrice.IsNegative() {
		return ErrInvalidAmount
	}
	if p.Car != nil {
		if err := p.Car.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c CarDetails) Validate() error {
	if c.OdometerStart < 0 || c.OdometerEnd < 0 {
		return ErrInvalidOdometer
	}
	if len(c.VIN) > 17 {
		return fmt.Errorf("VIN: %w (max 17 characters)", ErrTooLong)
	}
	return nil
}

// DistanceDriven returns the kilometres between the start and end odometer
// readings. ok is false when there is no usable end reading.
func (c CarDetails) DistanceDriven() (km int64, ok bool) {
	if c.OdometerEnd <= 0 || c.OdometerEnd < c.OdometerStart {
		return 0, false
	}
	return c.OdometerEnd - c.OdometerStart, true
}

func (e Expense) Validate() error {
	if e.ProjectID <= 0 {
		return ErrMissingProject
	}
	if e.Date.IsZero() {
		return ErrMissingDate
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return fmt.Errorf("description: %w (max 200 characters)", ErrTooLong)
	}
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// ValidateImported checks an expense loaded from an external ledger. Those
// rows are kept as recorded, so zero or negative amounts and empty
// descriptions pass; only the project and date are required.
func (e Expense) ValidateImported() error {
	if e.ProjectID <= 0 {
		return ErrMissingProject
	}
	if e.Date.IsZero() {
		return ErrMissingDate
	}
	return nil
}
