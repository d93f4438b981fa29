package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Project mirrors a row of the projects table.
type Project struct {
	ID                 int64
	UserID             string
	Name               string
	Type               string
	Description        string
	Status             string
	BuyPrice           string
	SoldPrice          string
	ImagePath          string
	Vin                sql.NullString
	LicensePlate       sql.NullString
	OdometerStart      sql.NullInt64
	OdometerEnd        sql.NullInt64
	InsuranceDate      sql.NullString
	TechnicalCheckDate sql.NullString
	VignetteDate       sql.NullString
	Notes              sql.NullString
	CreatedAt          string
	IsDeleted          bool
}

// Expense mirrors a row of the expenses table.
type Expense struct {
	ID              int64
	ProjectID       int64
	Amount          string
	AmountSecondary string
	Description     string
	Category        string
	Date            string
	Version         int64
	SyncStatus      string
	UpdatedAt       string
}

type SyncRow struct {
	Expense
	ProjectName string
}

const projectColumns = `id, user_id, name, type, description, status, buy_price, sold_price, image_path,
	vin, license_plate, odometer_start, odometer_end, insurance_date, technical_check_date, vignette_date,
	notes, created_at, is_deleted`

const expenseColumns = `e.id, e.project_id, e.amount, e.amount_secondary, e.description, e.category, e.date,
	e.version, e.sync_status, e.updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProject(row rowScanner) (Project, error) {
	var p Project
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Type, &p.Description, &p.Status, &p.BuyPrice,
		&p.SoldPrice, &p.ImagePath, &p.Vin, &p.LicensePlate, &p.OdometerStart, &p.OdometerEnd,
		&p.InsuranceDate, &p.TechnicalCheckDate, &p.VignetteDate, &p.Notes, &p.CreatedAt, &p.IsDeleted)
	return p, err
}

func scanExpense(row rowScanner) (Expense, error) {
	var e Expense
	err := row.Scan(&e.ID, &e.ProjectID, &e.Amount, &e.AmountSecondary, &e.Description, &e.Category,
		&e.Date, &e.Version, &e.SyncStatus, &e.UpdatedAt)
	return e, err
}

func collectProjects(rows *sql.Rows, err error) ([]Project, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func collectExpenses(rows *sql.Rows, err error) ([]Expense, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

const listProjectsByUser = `SELECT ` + projectColumns + ` FROM projects
WHERE user_id = ? AND is_deleted = 0
ORDER BY created_at DESC, id DESC`

func (q *Queries) ListProjectsByUser(ctx context.Context, userID string) ([]Project, error) {
	return collectProjects(q.db.QueryContext(ctx, listProjectsByUser, userID))
}

const getProject = `SELECT ` + projectColumns + ` FROM projects
WHERE id = ? AND user_id = ? AND is_deleted = 0`

func (q *Queries) GetProject(ctx context.Context, id int64, userID string) (Project, error) {
	return scanProject(q.db.QueryRowContext(ctx, getProject, id, userID))
}

const listCarProjects = `SELECT ` + projectColumns + ` FROM projects
WHERE type = ? AND is_deleted = 0
ORDER BY id`

func (q *Queries) ListCarProjects(ctx context.Context, carType string) ([]Project, error) {
	return collectProjects(q.db.QueryContext(ctx, listCarProjects, carType))
}

const createProject = `INSERT INTO projects (
	user_id, name, type, description, status, buy_price, sold_price, image_path,
	vin, license_plate, odometer_start, odometer_end, insurance_date, technical_check_date,
	vignette_date, notes, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + projectColumns

func (q *Queries) CreateProject(ctx context.Context, p Project) (Project, error) {
	return scanProject(q.db.QueryRowContext(ctx, createProject,
		p.UserID, p.Name, p.Type, p.Description, p.Status, p.BuyPrice, p.SoldPrice, p.ImagePath,
		p.Vin, p.LicensePlate, p.OdometerStart, p.OdometerEnd, p.InsuranceDate, p.TechnicalCheckDate,
		p.VignetteDate, p.Notes, p.CreatedAt))
}

const updateProject = `UPDATE projects SET
	name = ?, type = ?, description = ?, status = ?, buy_price = ?, sold_price = ?, image_path = ?,
	vin = ?, license_plate = ?, odometer_start = ?, odometer_end = ?, insurance_date = ?,
	technical_check_date = ?, vignette_date = ?, notes = ?
WHERE id = ? AND user_id = ? AND is_deleted = 0
RETURNING ` + projectColumns

// UpdateProject never touches user_id or created_at.
func (q *Queries) UpdateProject(ctx context.Context, p Project) (Project, error) {
	return scanProject(q.db.QueryRowContext(ctx, updateProject,
		p.Name, p.Type, p.Description, p.Status, p.BuyPrice, p.SoldPrice, p.ImagePath,
		p.Vin, p.LicensePlate, p.OdometerStart, p.OdometerEnd, p.InsuranceDate,
		p.TechnicalCheckDate, p.VignetteDate, p.Notes, p.ID, p.UserID))
}

const softDeleteProject = `UPDATE projects SET is_deleted = 1
WHERE id = ? AND user_id = ? AND is_deleted = 0`

func (q *Queries) SoftDeleteProject(ctx context.Context, id int64, userID string) (int64, error) {
	res, err := q.db.ExecContext(ctx, softDeleteProject, id, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listExpensesByUser = `SELECT ` + expenseColumns + ` FROM expenses e
JOIN projects p ON p.id = e.project_id
WHERE p.user_id = ? AND p.is_deleted = 0
ORDER BY e.date DESC, e.id DESC`

func (q *Queries) ListExpensesByUser(ctx context.Context, userID string) ([]Expense, error) {
	return collectExpenses(q.db.QueryContext(ctx, listExpensesByUser, userID))
}

const listExpensesByProject = `SELECT ` + expenseColumns + ` FROM expenses e
WHERE e.project_id = ?
ORDER BY e.date DESC, e.id DESC`

func (q *Queries) ListExpensesByProject(ctx context.Context, projectID int64) ([]Expense, error) {
	return collectExpenses(q.db.QueryContext(ctx, listExpensesByProject, projectID))
}

const getExpenseForUser = `SELECT ` + expenseColumns + ` FROM expenses e
JOIN projects p ON p.id = e.project_id
WHERE e.id = ? AND p.user_id = ? AND p.is_deleted = 0`

func (q *Queries) GetExpenseForUser(ctx context.Context, id int64, userID string) (Expense, error) {
	return scanExpense(q.db.QueryRowContext(ctx, getExpenseForUser, id, userID))
}

const createExpense = `INSERT INTO expenses (
	project_id, amount, amount_secondary, description, category, date, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id, project_id, amount, amount_secondary, description, category, date, version, sync_status, updated_at`

func (q *Queries) CreateExpense(ctx context.Context, e Expense) (Expense, error) {
	return scanExpense(q.db.QueryRowContext(ctx, createExpense,
		e.ProjectID, e.Amount, e.AmountSecondary, e.Description, e.Category, e.Date, e.UpdatedAt))
}

const updateExpense = `UPDATE expenses SET
	project_id = ?, amount = ?, amount_secondary = ?, description = ?, category = ?, date = ?,
	updated_at = ?, version = version + 1, sync_status = 'pending'
WHERE id = ?
RETURNING id, project_id, amount, amount_secondary, description, category, date, version, sync_status, updated_at`

func (q *Queries) UpdateExpense(ctx context.Context, e Expense) (Expense, error) {
	return scanExpense(q.db.QueryRowContext(ctx, updateExpense,
		e.ProjectID, e.Amount, e.AmountSecondary, e.Description, e.Category, e.Date, e.UpdatedAt, e.ID))
}

const deleteExpense = `DELETE FROM expenses WHERE id = ?`

func (q *Queries) DeleteExpense(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteExpense, id)
	return err
}

const syncSelect = `SELECT ` + expenseColumns + `, p.name FROM expenses e
JOIN projects p ON p.id = e.project_id`

func scanSyncRow(row rowScanner) (SyncRow, error) {
	var s SyncRow
	err := row.Scan(&s.ID, &s.ProjectID, &s.Amount, &s.AmountSecondary, &s.Description, &s.Category,
		&s.Date, &s.Version, &s.SyncStatus, &s.UpdatedAt, &s.ProjectName)
	return s, err
}

func (q *Queries) GetSyncRow(ctx context.Context, id int64) (SyncRow, error) {
	return scanSyncRow(q.db.QueryRowContext(ctx, syncSelect+` WHERE e.id = ?`, id))
}

const listPendingSync = syncSelect + `
WHERE e.sync_status != 'synced'
ORDER BY e.id
LIMIT ?`

func (q *Queries) ListPendingSync(ctx context.Context, limit int64) ([]SyncRow, error) {
	rows, err := q.db.QueryContext(ctx, listPendingSync, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SyncRow
	for rows.Next() {
		s, err := scanSyncRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

const markExpenseSynced = `UPDATE expenses SET sync_status = 'synced'
WHERE id = ? AND version = ?`

func (q *Queries) MarkExpenseSynced(ctx context.Context, id, version int64) error {
	_, err := q.db.ExecContext(ctx, markExpenseSynced, id, version)
	return err
}

const markExpenseSyncError = `UPDATE expenses SET sync_status = 'error' WHERE id = ?`

func (q *Queries) MarkExpenseSyncError(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, markExpenseSyncError, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
