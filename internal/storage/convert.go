package storage

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/shopspring/decimal"

	"garage/internal/core"
)

// Stored values that fail to parse never abort a read: amounts become 0,
// timestamps the zero time, reminder dates read as unset.

func toCoreProject(ctx context.Context, row Project) core.Project {
	created, ok := core.ParseTimestamp(row.CreatedAt)
	if !ok {
		slog.WarnContext(ctx, "Unparseable project timestamp", "id", row.ID, "value", row.CreatedAt)
	}
	p := core.Project{
		ID:          row.ID,
		UserID:      row.UserID,
		Name:        row.Name,
		Type:        row.Type,
		Description: row.Description,
		Status:      core.ProjectStatus(row.Status),
		BuyPrice:    parseAmount(ctx, row.BuyPrice, "buy_price", row.ID),
		SoldPrice:   parseAmount(ctx, row.SoldPrice, "sold_price", row.ID),
		ImagePath:   row.ImagePath,
		CreatedAt:   created,
		IsDeleted:   row.IsDeleted,
	}
	if p.Type == core.TypeCarRebuild {
		p.Car = &core.CarDetails{
			VIN:                row.Vin.String,
			LicensePlate:       row.LicensePlate.String,
			OdometerStart:      row.OdometerStart.Int64,
			OdometerEnd:        row.OdometerEnd.Int64,
			InsuranceDate:      core.ParseDate(row.InsuranceDate.String),
			TechnicalCheckDate: core.ParseDate(row.TechnicalCheckDate.String),
			VignetteDate:       core.ParseDate(row.VignetteDate.String),
			Notes:              row.Notes.String,
		}
	}
	return p
}

func fromCoreProject(p core.Project) Project {
	row := Project{
		ID:          p.ID,
		UserID:      p.UserID,
		Name:        p.Name,
		Type:        p.Type,
		Description: p.Description,
		Status:      string(p.Status),
		BuyPrice:    p.BuyPrice.String(),
		SoldPrice:   p.SoldPrice.String(),
		ImagePath:   p.ImagePath,
	}
	if row.Status == "" {
		row.Status = string(core.StatusActive)
	}
	if c := p.Car; c != nil {
		row.Vin = nullString(c.VIN)
		row.LicensePlate = nullString(c.LicensePlate)
		row.OdometerStart = sql.NullInt64{Int64: c.OdometerStart, Valid: true}
		row.OdometerEnd = sql.NullInt64{Int64: c.OdometerEnd, Valid: c.OdometerEnd > 0}
		row.InsuranceDate = nullString(c.InsuranceDate.String())
		row.TechnicalCheckDate = nullString(c.TechnicalCheckDate.String())
		row.VignetteDate = nullString(c.VignetteDate.String())
		row.Notes = nullString(c.Notes)
	}
	return row
}

func toCoreExpense(ctx context.Context, row Expense) core.Expense {
	date, ok := core.ParseTimestamp(row.Date)
	if !ok {
		slog.WarnContext(ctx, "Unparseable expense date", "id", row.ID, "value", row.Date)
	}
	return core.Expense{
		ID:              row.ID,
		ProjectID:       row.ProjectID,
		Amount:          parseAmount(ctx, row.Amount, "amount", row.ID),
		AmountSecondary: parseAmount(ctx, row.AmountSecondary, "amount_secondary", row.ID),
		Description:     row.Description,
		Category:        row.Category,
		Date:            date,
		Version:         row.Version,
	}
}

func toCoreExpenses(ctx context.Context, rows []Expense) []core.Expense {
	out := make([]core.Expense, len(rows))
	for i, row := range rows {
		out[i] = toCoreExpense(ctx, row)
	}
	return out
}

func fromCoreExpense(e core.Expense) Expense {
	return Expense{
		ID:              e.ID,
		ProjectID:       e.ProjectID,
		Amount:          e.Amount.String(),
		AmountSecondary: e.AmountSecondary.String(),
		Description:     e.Description,
		Category:        e.Category,
		Date:            core.FormatTimestamp(e.Date),
	}
}

func parseAmount(ctx context.Context, s, column string, id int64) core.Money {
	if s == "" {
		return core.Money{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		slog.WarnContext(ctx, "Unparseable stored amount", "id", id, "column", column, "value", s)
		return core.Money{}
	}
	return core.NewMoney(d)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
