/*
Package sqlite provides a SQLite-backed implementation of severance.Store.

PURPOSE:
  Persists saved transition compensation calculations: the party, the full
  input snapshot and the result snapshot taken at save/update time.

KEY TABLE:
  calculations: one row per saved calculation, soft-deleted via deleted_at

SNAPSHOT FORMAT:
  - Input amounts and percentages: decimal strings as entered
  - Averaged bonus years: JSON array in bonus_years_json
  - Result: JSON object in result_json, money as fixed two-decimal strings
  Reloading a row reproduces the stored Result exactly; nothing is
  recomputed on read.

DELETE SEMANTICS:
  Delete sets deleted_at. A second Delete finds the tombstone and returns
  nil; Get/Replace ignore tombstoned rows and return ErrNotFound.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety, so every operation is atomic per
  record. Concurrent Replace/Delete on one id are last-write-wins.

WAL MODE:
  File databases are opened with WAL (Write-Ahead Logging). ":memory:"
  databases are pinned to a single connection so every query sees the same
  schema.

USAGE:
  store, err := sqlite.New("./data/transition.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  calcs := severance.NewCalculations(engine, store)

SEE ALSO:
  - severance/store.go: Interface definition
  - severance/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	json "github.com/goccy/go-json"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/workx/transition-engine/severance"
)

// Store implements severance.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	dsn := dbPath + "?_foreign_keys=on&_journal_mode=WAL"
	if dbPath == ":memory:" {
		dsn = dbPath
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS calculations (
		id TEXT PRIMARY KEY,
		employer_name TEXT NOT NULL,
		employee_name TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		base_salary TEXT NOT NULL,
		vacation_pct TEXT NOT NULL,
		includes_thirteenth BOOLEAN NOT NULL DEFAULT FALSE,
		thirteenth_pct TEXT NOT NULL,
		bonus_mode TEXT NOT NULL,
		bonus_fixed TEXT,
		bonus_years_json TEXT,
		overtime TEXT NOT NULL,
		other TEXT NOT NULL,
		pension_considered BOOLEAN NOT NULL DEFAULT FALSE,
		result_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		deleted_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_calculations_employee
		ON calculations(employee_name) WHERE deleted_at IS NULL;
	CREATE INDEX IF NOT EXISTS idx_calculations_updated
		ON calculations(updated_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// CALCULATION STORE (severance.Store interface)
// =============================================================================

const selectColumns = `
	SELECT id, employer_name, employee_name, start_date, end_date,
		base_salary, vacation_pct, includes_thirteenth, thirteenth_pct,
		bonus_mode, bonus_fixed, bonus_years_json, overtime, other,
		pension_considered, result_json, created_at, updated_at
	FROM calculations`

// Insert saves a new calculation.
func (s *Store) Insert(ctx context.Context, c severance.SavedCalculation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, err := toRow(c)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO calculations (
			id, employer_name, employee_name, start_date, end_date,
			base_salary, vacation_pct, includes_thirteenth, thirteenth_pct,
			bonus_mode, bonus_fixed, bonus_years_json, overtime, other,
			pension_considered, result_json, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		row.id, row.employerName, row.employeeName, row.startDate, row.endDate,
		row.baseSalary, row.vacationPct, row.includesThirteenth, row.thirteenthPct,
		row.bonusMode, row.bonusFixed, row.bonusYearsJSON, row.overtime, row.other,
		row.pensionConsidered, row.resultJSON, row.createdAt, row.updatedAt,
	)
	if isUniqueConstraintError(err) {
		return severance.ErrDuplicateID
	}
	return err
}

// Replace overwrites inputs, party and result of a live calculation.
func (s *Store) Replace(ctx context.Context, c severance.SavedCalculation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, err := toRow(c)
	if err != nil {
		return err
	}

	query := `
		UPDATE calculations SET
			employer_name = ?, employee_name = ?, start_date = ?, end_date = ?,
			base_salary = ?, vacation_pct = ?, includes_thirteenth = ?, thirteenth_pct = ?,
			bonus_mode = ?, bonus_fixed = ?, bonus_years_json = ?, overtime = ?, other = ?,
			pension_considered = ?, result_json = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`
	res, err := s.db.ExecContext(ctx, query,
		row.employerName, row.employeeName, row.startDate, row.endDate,
		row.baseSalary, row.vacationPct, row.includesThirteenth, row.thirteenthPct,
		row.bonusMode, row.bonusFixed, row.bonusYearsJSON, row.overtime, row.other,
		row.pensionConsidered, row.resultJSON, row.updatedAt,
		row.id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &severance.NotFoundError{ID: c.ID}
	}
	return nil
}

// Get retrieves a live calculation by ID.
func (s *Store) Get(ctx context.Context, id string) (severance.SavedCalculation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, err := scanCalculation(s.db.QueryRowContext(ctx,
		selectColumns+" WHERE id = ? AND deleted_at IS NULL", id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return severance.SavedCalculation{}, &severance.NotFoundError{ID: id}
	}
	return c, err
}

// List returns live calculations whose employee name contains the filter,
// ignoring case. Matching happens in Go so non-ASCII names fold correctly.
func (s *Store) List(ctx context.Context, employeeFilter string) ([]severance.SavedCalculation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		selectColumns+" WHERE deleted_at IS NULL ORDER BY updated_at DESC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []severance.SavedCalculation{}
	for rows.Next() {
		c, err := scanCalculation(rows)
		if err != nil {
			return nil, err
		}
		if severance.MatchesEmployee(c.Party.EmployeeName, employeeFilter) {
			result = append(result, c)
		}
	}
	return result, rows.Err()
}

// Delete tombstones a calculation. A second Delete is a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deletedAt sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT deleted_at FROM calculations WHERE id = ?", id,
	).Scan(&deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return &severance.NotFoundError{ID: id}
	}
	if err != nil {
		return err
	}
	if deletedAt.Valid {
		return nil
	}

	_, err = s.db.ExecContext(ctx,
		"UPDATE calculations SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL",
		time.Now().UTC().Format(time.RFC3339Nano), id,
	)
	return err
}

// =============================================================================
// ROW MAPPING
// =============================================================================

type calculationRow struct {
	id                 string
	employerName       string
	employeeName       string
	startDate          string
	endDate            string
	baseSalary         string
	vacationPct        string
	includesThirteenth bool
	thirteenthPct      string
	bonusMode          string
	bonusFixed         sql.NullString
	bonusYearsJSON     sql.NullString
	overtime           string
	other              string
	pensionConsidered  bool
	resultJSON         string
	createdAt          string
	updatedAt          string
}

type bonusYearRecord struct {
	Year  int    `json:"year"`
	Total string `json:"total"`
}

// resultRecord mirrors severance.Result with money as fixed strings.
type resultRecord struct {
	TenureYears            int     `json:"tenure_years"`
	TenureMonths           int     `json:"tenure_months"`
	TenureTotalMonths      int     `json:"tenure_total_months"`
	VacationAllowance      string  `json:"vacation_allowance"`
	ThirteenthMonth        string  `json:"thirteenth_month"`
	BonusMonthly           string  `json:"bonus_monthly"`
	TotalMonthlySalary     string  `json:"total_monthly_salary"`
	YearlySalary           string  `json:"yearly_salary"`
	RawAmount              string  `json:"raw_amount"`
	CappedAmount           string  `json:"capped_amount"`
	CapApplied             bool    `json:"cap_applied"`
	CapYear                int     `json:"cap_year"`
	StatutoryCap           string  `json:"statutory_cap"`
	CapValueUsed           string  `json:"cap_value_used"`
	BonusMonthlyEquivalent *string `json:"bonus_monthly_equivalent,omitempty"`
}

func toRow(c severance.SavedCalculation) (calculationRow, error) {
	in := c.Inputs
	row := calculationRow{
		id:                 c.ID,
		employerName:       c.Party.EmployerName,
		employeeName:       c.Party.EmployeeName,
		startDate:          c.Period.Start.String(),
		endDate:            c.Period.End.String(),
		baseSalary:         in.MonthlyBaseSalary.Decimal.String(),
		vacationPct:        in.VacationAllowancePercent.String(),
		includesThirteenth: in.IncludesThirteenthMonth,
		thirteenthPct:      in.ThirteenthMonthPercent.String(),
		bonusMode:          string(severance.BonusNone),
		overtime:           in.OvertimeMonthlyAmount.String(),
		other:              in.OtherMonthlyAmount.String(),
		pensionConsidered:  in.PensionConsidered,
		createdAt:          c.CreatedAt.UTC().Format(time.RFC3339Nano),
		updatedAt:          c.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}

	switch b := in.Bonus.(type) {
	case severance.FixedBonus:
		row.bonusMode = string(severance.BonusFixed)
		row.bonusFixed = nullString(b.Monthly.String())
	case severance.AveragedBonus:
		row.bonusMode = string(severance.BonusAveraged)
		years := make([]bonusYearRecord, len(b.Years))
		for i, y := range b.Years {
			years[i] = bonusYearRecord{Year: y.Year, Total: y.Total.String()}
		}
		data, err := json.Marshal(years)
		if err != nil {
			return row, fmt.Errorf("encode bonus years: %w", err)
		}
		row.bonusYearsJSON = nullString(string(data))
	}

	r := c.Result
	rec := resultRecord{
		TenureYears:        r.TenureYears,
		TenureMonths:       r.TenureMonths,
		TenureTotalMonths:  r.TenureTotalMonths,
		VacationAllowance:  severance.FormatMoney(r.VacationAllowance),
		ThirteenthMonth:    severance.FormatMoney(r.ThirteenthMonth),
		BonusMonthly:       severance.FormatMoney(r.BonusMonthly),
		TotalMonthlySalary: severance.FormatMoney(r.TotalMonthlySalary),
		YearlySalary:       severance.FormatMoney(r.YearlySalary),
		RawAmount:          severance.FormatMoney(r.RawAmount),
		CappedAmount:       severance.FormatMoney(r.CappedAmount),
		CapApplied:         r.CapApplied,
		CapYear:            r.CapYear,
		StatutoryCap:       severance.FormatMoney(r.StatutoryCap),
		CapValueUsed:       severance.FormatMoney(r.CapValueUsed),
	}
	if r.BonusMonthlyEquivalent.Valid {
		s := severance.FormatMoney(r.BonusMonthlyEquivalent.Decimal)
		rec.BonusMonthlyEquivalent = &s
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return row, fmt.Errorf("encode result: %w", err)
	}
	row.resultJSON = string(data)
	return row, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCalculation(sc scanner) (severance.SavedCalculation, error) {
	var row calculationRow
	err := sc.Scan(
		&row.id, &row.employerName, &row.employeeName, &row.startDate, &row.endDate,
		&row.baseSalary, &row.vacationPct, &row.includesThirteenth, &row.thirteenthPct,
		&row.bonusMode, &row.bonusFixed, &row.bonusYearsJSON, &row.overtime, &row.other,
		&row.pensionConsidered, &row.resultJSON, &row.createdAt, &row.updatedAt,
	)
	if err != nil {
		return severance.SavedCalculation{}, err
	}
	return fromRow(row)
}

func fromRow(row calculationRow) (severance.SavedCalculation, error) {
	p := parser{}
	c := severance.SavedCalculation{
		ID:    row.id,
		Party: severance.Party{EmployerName: row.employerName, EmployeeName: row.employeeName},
		Period: severance.EmploymentPeriod{
			Start: p.date(row.startDate),
			End:   p.date(row.endDate),
		},
		Inputs: severance.CompensationInputs{
			MonthlyBaseSalary:        decimal.NewNullDecimal(p.decimal(row.baseSalary)),
			VacationAllowancePercent: p.decimal(row.vacationPct),
			IncludesThirteenthMonth:  row.includesThirteenth,
			ThirteenthMonthPercent:   p.decimal(row.thirteenthPct),
			OvertimeMonthlyAmount:    p.decimal(row.overtime),
			OtherMonthlyAmount:       p.decimal(row.other),
			PensionConsidered:        row.pensionConsidered,
		},
		CreatedAt: p.time(row.createdAt),
		UpdatedAt: p.time(row.updatedAt),
	}

	switch severance.BonusMode(row.bonusMode) {
	case severance.BonusFixed:
		c.Inputs.Bonus = severance.FixedBonus{Monthly: p.decimal(row.bonusFixed.String)}
	case severance.BonusAveraged:
		var years []bonusYearRecord
		if err := json.Unmarshal([]byte(row.bonusYearsJSON.String), &years); err != nil {
			return c, fmt.Errorf("decode bonus years of %s: %w", row.id, err)
		}
		b := severance.AveragedBonus{Years: make([]severance.BonusYear, len(years))}
		for i, y := range years {
			b.Years[i] = severance.BonusYear{Year: y.Year, Total: p.decimal(y.Total)}
		}
		c.Inputs.Bonus = b
	default:
		c.Inputs.Bonus = severance.NoBonus{}
	}

	var rec resultRecord
	if err := json.Unmarshal([]byte(row.resultJSON), &rec); err != nil {
		return c, fmt.Errorf("decode result of %s: %w", row.id, err)
	}
	c.Result = severance.Result{
		TenureYears:        rec.TenureYears,
		TenureMonths:       rec.TenureMonths,
		TenureTotalMonths:  rec.TenureTotalMonths,
		VacationAllowance:  p.decimal(rec.VacationAllowance),
		ThirteenthMonth:    p.decimal(rec.ThirteenthMonth),
		BonusMonthly:       p.decimal(rec.BonusMonthly),
		TotalMonthlySalary: p.decimal(rec.TotalMonthlySalary),
		YearlySalary:       p.decimal(rec.YearlySalary),
		RawAmount:          p.decimal(rec.RawAmount),
		CappedAmount:       p.decimal(rec.CappedAmount),
		CapApplied:         rec.CapApplied,
		CapYear:            rec.CapYear,
		StatutoryCap:       p.decimal(rec.StatutoryCap),
		CapValueUsed:       p.decimal(rec.CapValueUsed),
	}
	if rec.BonusMonthlyEquivalent != nil {
		c.Result.BonusMonthlyEquivalent = decimal.NewNullDecimal(p.decimal(*rec.BonusMonthlyEquivalent))
	}

	if p.err != nil {
		return c, fmt.Errorf("decode calculation %s: %w", row.id, p.err)
	}
	return c, nil
}

// parser keeps the first conversion error so fromRow stays linear.
type parser struct {
	err error
}

func (p *parser) decimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil && p.err == nil {
		p.err = err
	}
	return d
}

func (p *parser) date(s string) civil.Date {
	d, err := civil.ParseDate(s)
	if err != nil && p.err == nil {
		p.err = err
	}
	return d
}

func (p *parser) time(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil && p.err == nil {
		p.err = err
	}
	return t
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
