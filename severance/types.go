/*
Package severance computes the Dutch statutory transition compensation
(transitievergoeding).

PURPOSE:
  Turns an employment period and a composite monthly remuneration into the
  legally defined severance amount, applies the statutory ceiling for the
  termination year and keeps saved calculations reproducible.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: decimal amounts rounded to cents at every component boundary
  - EmploymentPeriod: start and end calendar dates
  - Bonus: tagged variant, exactly one of NoBonus, FixedBonus, AveragedBonus
  - CompensationInputs: everything the salary aggregator needs
  - Result: the derived figures, never edited by hand
  - SavedCalculation: a persisted snapshot of inputs plus result

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal everywhere, no float64 near the cap threshold
  2. Purity: Engine.Evaluate depends only on its arguments and the cap table
  3. No drift: a stored Result equals a fresh evaluation of the stored inputs

USAGE:
  engine := severance.NewEngine(caps)
  result, err := engine.Evaluate(period, inputs)

SEE ALSO:
  - engine.go: CompensationEngine
  - caps.go: statutory cap table
  - calculations.go: save/update/list/delete service
*/
package severance

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY
// =============================================================================

// MoneyPlaces is the number of decimals kept for every currency amount.
const MoneyPlaces = 2

// RoundMoney rounds half away from zero to cents.
func RoundMoney(d decimal.Decimal) decimal.Decimal { return d.Round(MoneyPlaces) }

// FormatMoney renders an amount with exactly two decimals ("6480.00").
func FormatMoney(d decimal.Decimal) string { return d.StringFixed(MoneyPlaces) }

// MustParseDecimal parses s or panics. Intended for constants and tests.
func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

var (
	hundred = decimal.NewFromInt(100)

	// DefaultVacationAllowancePercent is the statutory minimum vakantiegeld.
	DefaultVacationAllowancePercent = decimal.RequireFromString("8.0")

	// DefaultThirteenthMonthPercent is one month out of twelve, rounded.
	DefaultThirteenthMonthPercent = decimal.RequireFromString("8.3")
)

// Percent applies pct (e.g. 8.0) to base and rounds to cents.
func Percent(base, pct decimal.Decimal) decimal.Decimal {
	return RoundMoney(base.Mul(pct).Div(hundred))
}

// =============================================================================
// EMPLOYMENT PERIOD
// =============================================================================

// EmploymentPeriod is the span of employment, End >= Start.
type EmploymentPeriod struct {
	Start civil.Date
	End   civil.Date
}

// TerminationYear is the calendar year that selects the statutory cap.
func (p EmploymentPeriod) TerminationYear() int { return p.End.Year }

func (p EmploymentPeriod) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

func isZeroDate(d civil.Date) bool { return d == civil.Date{} }

// =============================================================================
// BONUS - tagged variant
// =============================================================================

// BonusMode names the variant of a Bonus.
type BonusMode string

const (
	BonusNone     BonusMode = "none"
	BonusFixed    BonusMode = "fixed"
	BonusAveraged BonusMode = "averaged"
)

// ParseBonusMode accepts the lower-case names; the empty string means none.
func ParseBonusMode(s string) (BonusMode, bool) {
	switch BonusMode(s) {
	case "", BonusNone:
		return BonusNone, true
	case BonusFixed:
		return BonusFixed, true
	case BonusAveraged:
		return BonusAveraged, true
	}
	return "", false
}

// Bonus is one of NoBonus, FixedBonus or AveragedBonus.
type Bonus interface {
	Mode() BonusMode
	isBonus()
}

// NoBonus contributes nothing to the monthly salary.
type NoBonus struct{}

// FixedBonus contributes a fixed monthly amount.
type FixedBonus struct {
	Monthly decimal.Decimal
}

// AveragedBonus holds the bonus totals of the three calendar years preceding
// the termination year. See AverageBonus.
type AveragedBonus struct {
	Years []BonusYear
}

// BonusYear is the total bonus paid in one calendar year.
type BonusYear struct {
	Year  int
	Total decimal.Decimal
}

func (NoBonus) Mode() BonusMode       { return BonusNone }
func (FixedBonus) Mode() BonusMode    { return BonusFixed }
func (AveragedBonus) Mode() BonusMode { return BonusAveraged }

func (NoBonus) isBonus()       {}
func (FixedBonus) isBonus()    {}
func (AveragedBonus) isBonus() {}

// Totals returns the yearly totals in stored order.
func (b AveragedBonus) Totals() []decimal.Decimal {
	out := make([]decimal.Decimal, len(b.Years))
	for i, y := range b.Years {
		out[i] = y.Total
	}
	return out
}

// BonusLookbackYears is the number of calendar years averaged.
const BonusLookbackYears = 3

// BonusYearsFor returns the calendar years preceding the termination year,
// newest first.
func BonusYearsFor(end civil.Date) []int {
	years := make([]int, BonusLookbackYears)
	for i := range years {
		years[i] = end.Year - 1 - i
	}
	return years
}

// =============================================================================
// INPUTS
// =============================================================================

// CompensationInputs are the primitive remuneration inputs of one evaluation.
//
// PensionConsidered is stored and displayed but has no arithmetic effect.
type CompensationInputs struct {
	MonthlyBaseSalary        decimal.NullDecimal
	VacationAllowancePercent decimal.Decimal
	IncludesThirteenthMonth  bool
	ThirteenthMonthPercent   decimal.Decimal
	Bonus                    Bonus
	OvertimeMonthlyAmount    decimal.Decimal
	OtherMonthlyAmount       decimal.Decimal
	PensionConsidered        bool
}

// DefaultInputs returns inputs with the default percentages and no bonus.
func DefaultInputs(base decimal.Decimal) CompensationInputs {
	return CompensationInputs{
		MonthlyBaseSalary:        decimal.NewNullDecimal(base),
		VacationAllowancePercent: DefaultVacationAllowancePercent,
		ThirteenthMonthPercent:   DefaultThirteenthMonthPercent,
		Bonus:                    NoBonus{},
	}
}

// bonus never returns nil.
func (in CompensationInputs) bonus() Bonus {
	if in.Bonus == nil {
		return NoBonus{}
	}
	return in.Bonus
}

// Party identifies who a calculation is for. Only required to save.
type Party struct {
	EmployerName string
	EmployeeName string
}

// =============================================================================
// RESULT
// =============================================================================

// Result is the derived outcome of one evaluation.
type Result struct {
	TenureYears       int
	TenureMonths      int
	TenureTotalMonths int

	VacationAllowance  decimal.Decimal
	ThirteenthMonth    decimal.Decimal
	BonusMonthly       decimal.Decimal
	TotalMonthlySalary decimal.Decimal
	YearlySalary       decimal.Decimal

	RawAmount    decimal.Decimal
	CappedAmount decimal.Decimal
	CapApplied   bool
	CapYear      int
	StatutoryCap decimal.Decimal
	CapValueUsed decimal.Decimal

	// Valid only for BonusAveraged.
	BonusMonthlyEquivalent decimal.NullDecimal
}

// Equal compares every figure by value.
func (r Result) Equal(o Result) bool {
	if r.TenureYears != o.TenureYears || r.TenureMonths != o.TenureMonths ||
		r.TenureTotalMonths != o.TenureTotalMonths || r.CapApplied != o.CapApplied ||
		r.CapYear != o.CapYear {
		return false
	}
	pairs := [][2]decimal.Decimal{
		{r.VacationAllowance, o.VacationAllowance},
		{r.ThirteenthMonth, o.ThirteenthMonth},
		{r.BonusMonthly, o.BonusMonthly},
		{r.TotalMonthlySalary, o.TotalMonthlySalary},
		{r.YearlySalary, o.YearlySalary},
		{r.RawAmount, o.RawAmount},
		{r.CappedAmount, o.CappedAmount},
		{r.StatutoryCap, o.StatutoryCap},
		{r.CapValueUsed, o.CapValueUsed},
	}
	for _, p := range pairs {
		if !p[0].Equal(p[1]) {
			return false
		}
	}
	if r.BonusMonthlyEquivalent.Valid != o.BonusMonthlyEquivalent.Valid {
		return false
	}
	return !r.BonusMonthlyEquivalent.Valid ||
		r.BonusMonthlyEquivalent.Decimal.Equal(o.BonusMonthlyEquivalent.Decimal)
}

// =============================================================================
// SAVED CALCULATION
// =============================================================================

// SavedCalculation is a persisted evaluation. Result always equals what
// Engine.Evaluate returns for Period and Inputs.
type SavedCalculation struct {
	ID        string
	Party     Party
	Period    EmploymentPeriod
	Inputs    CompensationInputs
	Result    Result
	CreatedAt time.Time
	UpdatedAt time.Time
}
