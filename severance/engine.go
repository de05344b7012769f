/*
engine.go - CompensationEngine

PURPOSE:
  Orchestrates tenure, composite salary, bonus averaging and the statutory
  cap into one Result.

FORMULA:
  rawAmount    = (totalMonthlySalary / 3) * (tenureTotalMonths / 12)
  yearlySalary = totalMonthlySalary * 12
  maxAllowed   = max(cap[year(endDate)], yearlySalary)
  cappedAmount = min(rawAmount, maxAllowed)
  capApplied   = rawAmount > maxAllowed

  rawAmount is computed as total * months / 36 so the only rounding happens
  once, to cents, at the end.

VALIDATION ORDER:
  1. Missing start date, end date, base salary (one aggregated error)
  2. End before start
  3. Amount ranges and bonus shape (one aggregated error)
  4. Cap year present in the table
  5. Tenure > 0 when averaging bonuses

CONCURRENCY:
  Engine holds only the immutable cap table. Evaluate is safe to call from
  any number of goroutines.

SEE ALSO:
  - tenure.go, salary.go, bonus.go, caps.go: the parts
  - calculations.go: persists results
*/
package severance

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Engine evaluates transition compensation against one cap table.
type Engine struct {
	caps CapTable
}

// NewEngine creates an engine for the given cap table.
func NewEngine(caps CapTable) *Engine {
	return &Engine{caps: caps}
}

// Caps returns the table the engine evaluates against.
func (e *Engine) Caps() CapTable { return e.caps }

var rawDivisor = decimal.NewFromInt(36) // 3 * 12

// Evaluate computes the Result for one period and set of inputs. It never
// substitutes defaults for missing values.
func (e *Engine) Evaluate(period EmploymentPeriod, in CompensationInputs) (Result, error) {
	in, err := Validate(period, in)
	if err != nil {
		return Result{}, err
	}

	tenure, err := TenureBetween(period.Start, period.End)
	if err != nil {
		return Result{}, err
	}

	// Fail on the cap year before doing any arithmetic.
	year := period.TerminationYear()
	if _, err := e.caps.Lookup(year); err != nil {
		return Result{}, err
	}

	bonusMonthly, equivalent, err := ResolveBonus(in.bonus(), tenure.TotalMonths())
	if err != nil {
		return Result{}, err
	}

	salary := ComposeSalary(in, bonusMonthly)
	yearly := salary.Yearly()
	raw := RoundMoney(salary.Total.Mul(decimal.NewFromInt(int64(tenure.TotalMonths()))).Div(rawDivisor))

	decision, err := e.caps.Resolve(year, yearly, raw)
	if err != nil {
		return Result{}, err
	}

	return Result{
		TenureYears:            tenure.Years,
		TenureMonths:           tenure.Months,
		TenureTotalMonths:      tenure.TotalMonths(),
		VacationAllowance:      salary.Vacation,
		ThirteenthMonth:        salary.Thirteenth,
		BonusMonthly:           salary.Bonus,
		TotalMonthlySalary:     salary.Total,
		YearlySalary:           yearly,
		RawAmount:              raw,
		CappedAmount:           decision.Amount,
		CapApplied:             decision.Applied,
		CapYear:                decision.Year,
		StatutoryCap:           decision.StatutoryCap,
		CapValueUsed:           decision.MaxAllowed,
		BonusMonthlyEquivalent: equivalent,
	}, nil
}

// Validate checks period and inputs and returns the inputs with a non-nil
// bonus and normalized bonus years.
func Validate(period EmploymentPeriod, in CompensationInputs) (CompensationInputs, error) {
	missing := fieldCollector{kind: ErrMissingRequiredField}
	if isZeroDate(period.Start) {
		missing.add("start_date")
	}
	if isZeroDate(period.End) {
		missing.add("end_date")
	}
	if !in.MonthlyBaseSalary.Valid {
		missing.add("monthly_base_salary")
	}
	if err := missing.err(); err != nil {
		return in, err
	}

	if !period.Start.IsValid() || !period.End.IsValid() {
		return in, &ValidationError{Kind: ErrInvalidInput, Fields: []string{"period"}, Reason: "not a calendar date"}
	}
	if period.End.Before(period.Start) {
		return in, fmt.Errorf("%w: %s", ErrInvalidPeriod, period)
	}

	invalid := fieldCollector{kind: ErrInvalidInput}
	if !in.MonthlyBaseSalary.Decimal.IsPositive() {
		invalid.add("monthly_base_salary")
	}
	nonNegative := []struct {
		name  string
		value decimal.Decimal
	}{
		{"vacation_allowance_percent", in.VacationAllowancePercent},
		{"thirteenth_month_percent", in.ThirteenthMonthPercent},
		{"overtime_monthly_amount", in.OvertimeMonthlyAmount},
		{"other_monthly_amount", in.OtherMonthlyAmount},
	}
	for _, f := range nonNegative {
		if f.value.IsNegative() {
			invalid.add(f.name)
		}
	}

	in.Bonus = in.bonus()
	switch b := in.Bonus.(type) {
	case FixedBonus:
		if b.Monthly.IsNegative() {
			invalid.add("bonus.fixed_monthly_amount")
		}
	case AveragedBonus:
		for i, y := range b.Years {
			if y.Total.IsNegative() {
				invalid.add(fmt.Sprintf("bonus.years[%d].total", i))
			}
		}
	}
	if err := invalid.err(); err != nil {
		return in, err
	}

	if b, ok := in.Bonus.(AveragedBonus); ok {
		normalized, err := NormalizeBonusYears(b, period)
		if err != nil {
			return in, err
		}
		in.Bonus = normalized
	}
	return in, nil
}
