package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	ports "garage/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Config selects the spreadsheet and the credentials used to reach it.
type Config struct {
	SpreadsheetID      string
	ExpensesSheet      string
	RemindersSheet     string
	ServiceAccountJSON string
	ServiceAccountFile string
}

type Client struct {
	svc            *gsheet.Service
	spreadsheetID  string
	expensesSheet  string
	remindersSheet string
}

var _ ports.Mirror = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	c := &Client{
		svc:            svc,
		spreadsheetID:  cfg.SpreadsheetID,
		expensesSheet:  cfg.ExpensesSheet,
		remindersSheet: cfg.RemindersSheet,
	}
	if c.expensesSheet == "" {
		c.expensesSheet = "Expenses"
	}
	if c.remindersSheet == "" {
		c.remindersSheet = "Reminders"
	}
	return c, nil
}

// newSheetsService prefers inline JSON credentials, then a credentials file,
// then GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	credentialsFile := strings.TrimSpace(cfg.ServiceAccountFile)
	if cfg.ServiceAccountJSON == "" && credentialsFile == "" {
		credentialsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case cfg.ServiceAccountJSON != "":
		credentialsJSON = []byte(cfg.ServiceAccountJSON)
	case credentialsFile != "":
		b, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "credentials_size", len(credentialsJSON))
	return service, nil
}

// UpsertExpense overwrites the row holding the expense id, or writes the
// first free row when there is none.
func (c *Client) UpsertExpense(ctx context.Context, row ports.ExpenseRow) (string, error) {
	if row.ID <= 0 {
		return "", errors.New("expense row without id")
	}
	ids, err := c.readIDs(ctx)
	if err != nil {
		return "", err
	}

	n := findRow(ids, row.ID)
	if n == 0 {
		n = len(ids) + 1
	}
	rng := rowRange(c.expensesSheet, n)
	vr := &gsheet.ValueRange{Values: [][]any{row.Values()}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("update %s: %w", rng, err)
	}
	return rng, nil
}

// DeleteExpense clears the cells of the row so the row numbers of other
// expenses stay put.
func (c *Client) DeleteExpense(ctx context.Context, id int64) error {
	ids, err := c.readIDs(ctx)
	if err != nil {
		return err
	}
	n := findRow(ids, id)
	if n == 0 {
		slog.WarnContext(ctx, "Expense row not found in sheet, nothing to delete", "id", id)
		return nil
	}
	rng := rowRange(c.expensesSheet, n)
	_, err = c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	return nil
}

func (c *Client) AppendReminder(ctx context.Context, row ports.ReminderRow) error {
	rng := fmt.Sprintf("%s!A:F", c.remindersSheet)
	vr := &gsheet.ValueRange{Values: [][]any{row.Values()}}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append %s: %w", rng, err)
	}
	return nil
}

func (c *Client) readIDs(ctx context.Context) ([][]any, error) {
	rng := fmt.Sprintf("%s!A:A", c.expensesSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

// findRow returns the 1-based row whose first cell is id, or 0.
func findRow(values [][]any, id int64) int {
	want := strconv.FormatInt(id, 10)
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == want {
			return i + 1
		}
	}
	return 0
}

func rowRange(sheet string, n int) string {
	return fmt.Sprintf("%s!A%d:G%d", sheet, n, n)
}
