/*
engine_test.go - Engine scenarios and invariants

Tests for:
- Worked scenarios (basic, short tenure, cap applied, averaged bonus, all components)
- Result invariants over a grid of inputs
- Validation order and aggregation
- Cap year lookup
*/
package severance_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workx/transition-engine/severance"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func testCaps() severance.CapTable {
	return severance.MustCapTable(map[int]int64{
		2020: 83000,
		2021: 84000,
		2022: 86000,
		2023: 89000,
		2024: 94000,
		2025: 98000,
		2026: 102000,
	})
}

func newTestEngine() *severance.Engine {
	return severance.NewEngine(testCaps())
}

func d(s string) decimal.Decimal { return severance.MustParseDecimal(s) }

func date(y int, m time.Month, day int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: day}
}

func period(start, end civil.Date) severance.EmploymentPeriod {
	return severance.EmploymentPeriod{Start: start, End: end}
}

func assertMoney(t *testing.T, expected string, actual decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.Equal(t, expected, severance.FormatMoney(actual), msgAndArgs...)
}

// =============================================================================
// SCENARIO TESTS
// =============================================================================

func TestEvaluate_Basic(t *testing.T) {
	// GIVEN: Base 3000, 8% vacation, six years of service ending 2026
	// WHEN: Evaluating
	// THEN: Raw amount is a sixth of a month per half year, no cap
	res, err := newTestEngine().Evaluate(
		period(date(2020, time.March, 1), date(2026, time.March, 1)),
		severance.DefaultInputs(d("3000")),
	)
	require.NoError(t, err)

	assert.Equal(t, 6, res.TenureYears)
	assert.Equal(t, 0, res.TenureMonths)
	assert.Equal(t, 72, res.TenureTotalMonths)
	assertMoney(t, "240.00", res.VacationAllowance)
	assertMoney(t, "0.00", res.ThirteenthMonth)
	assertMoney(t, "0.00", res.BonusMonthly)
	assertMoney(t, "3240.00", res.TotalMonthlySalary)
	assertMoney(t, "38880.00", res.YearlySalary)
	assertMoney(t, "6480.00", res.RawAmount)
	assertMoney(t, "6480.00", res.CappedAmount)
	assert.False(t, res.CapApplied)
	assert.Equal(t, 2026, res.CapYear)
	assertMoney(t, "102000.00", res.StatutoryCap)
	assertMoney(t, "102000.00", res.CapValueUsed)
	assert.False(t, res.BonusMonthlyEquivalent.Valid)
}

func TestEvaluate_ShortTenure(t *testing.T) {
	// GIVEN: Seven months of service on base 5000
	res, err := newTestEngine().Evaluate(
		period(date(2025, time.June, 1), date(2026, time.January, 1)),
		severance.DefaultInputs(d("5000")),
	)
	require.NoError(t, err)

	// THEN: 5400 / 3 * 7 / 12 = 1050
	assert.Equal(t, 7, res.TenureTotalMonths)
	assertMoney(t, "5400.00", res.TotalMonthlySalary)
	assertMoney(t, "1050.00", res.RawAmount)
	assertMoney(t, "1050.00", res.CappedAmount)
	assert.False(t, res.CapApplied)
}

func TestEvaluate_CapAppliedAtYearlySalary(t *testing.T) {
	// GIVEN: 37 years on base 10000; yearly salary 129600 exceeds the 2026 cap
	res, err := newTestEngine().Evaluate(
		period(date(1989, time.January, 1), date(2026, time.January, 1)),
		severance.DefaultInputs(d("10000")),
	)
	require.NoError(t, err)

	// THEN: The ceiling is the yearly salary, not the statutory cap
	assert.Equal(t, 444, res.TenureTotalMonths)
	assertMoney(t, "129600.00", res.YearlySalary)
	assertMoney(t, "133200.00", res.RawAmount)
	assertMoney(t, "102000.00", res.StatutoryCap)
	assertMoney(t, "129600.00", res.CapValueUsed)
	assertMoney(t, "129600.00", res.CappedAmount)
	assert.True(t, res.CapApplied)
}

func TestEvaluate_CapAppliedAtStatutoryCap(t *testing.T) {
	p := period(date(1989, time.January, 1), date(2026, time.January, 1))

	// GIVEN: Base 5000 for 37 years; raw 66600 stays below the 2026 cap
	res, err := newTestEngine().Evaluate(p, severance.DefaultInputs(d("5000")))
	require.NoError(t, err)
	assertMoney(t, "66600.00", res.RawAmount)
	assert.False(t, res.CapApplied)

	// WHEN: Base 7800, yearly 101088 below the cap, raw 103896 above it
	res, err = newTestEngine().Evaluate(p, severance.DefaultInputs(d("7800")))
	require.NoError(t, err)

	// THEN: The statutory cap is the ceiling
	assertMoney(t, "101088.00", res.YearlySalary)
	assertMoney(t, "103896.00", res.RawAmount)
	assertMoney(t, "102000.00", res.CapValueUsed)
	assertMoney(t, "102000.00", res.CappedAmount)
	assert.True(t, res.CapApplied)
}

func TestEvaluate_AveragedBonus(t *testing.T) {
	// GIVEN: Bonus totals 3600/2400/1200 over the three years before 2026
	in := severance.DefaultInputs(d("3000"))
	in.Bonus = severance.AveragedBonus{Years: []severance.BonusYear{
		{Year: 2025, Total: d("3600")},
		{Year: 2024, Total: d("2400")},
		{Year: 2023, Total: d("1200")},
	}}

	res, err := newTestEngine().Evaluate(period(date(2020, time.March, 1), date(2026, time.March, 1)), in)
	require.NoError(t, err)

	// THEN: 7200 / min(36, 72) = 200 per month
	assertMoney(t, "200.00", res.BonusMonthly)
	require.True(t, res.BonusMonthlyEquivalent.Valid)
	assertMoney(t, "200.00", res.BonusMonthlyEquivalent.Decimal)
	assertMoney(t, "3440.00", res.TotalMonthlySalary)
	assertMoney(t, "6880.00", res.CappedAmount)
}

func TestEvaluate_AveragedBonus_ShortTenureDivisor(t *testing.T) {
	// GIVEN: Seven months of service; only the last year carries a bonus
	in := severance.DefaultInputs(d("5000"))
	in.Bonus = severance.AveragedBonus{Years: []severance.BonusYear{
		{Total: d("700")}, {Total: d("0")}, {Total: d("0")},
	}}

	res, err := newTestEngine().Evaluate(period(date(2025, time.June, 1), date(2026, time.January, 1)), in)
	require.NoError(t, err)

	// THEN: The divisor is the tenure, not 36
	assertMoney(t, "100.00", res.BonusMonthly)
}

func TestEvaluate_AllComponents(t *testing.T) {
	// GIVEN: Every pay component set
	in := severance.DefaultInputs(d("4000"))
	in.IncludesThirteenthMonth = true
	in.Bonus = severance.FixedBonus{Monthly: d("100")}
	in.OvertimeMonthlyAmount = d("50")
	in.OtherMonthlyAmount = d("25")
	in.PensionConsidered = true

	res, err := newTestEngine().Evaluate(period(date(2016, time.January, 1), date(2026, time.January, 1)), in)
	require.NoError(t, err)

	assertMoney(t, "320.00", res.VacationAllowance)
	assertMoney(t, "332.00", res.ThirteenthMonth)
	assertMoney(t, "100.00", res.BonusMonthly)
	assertMoney(t, "4827.00", res.TotalMonthlySalary)
	assertMoney(t, "16090.00", res.CappedAmount)
	assert.False(t, res.BonusMonthlyEquivalent.Valid, "fixed bonus has no averaged equivalent")
}

func TestEvaluate_PensionFlagHasNoArithmeticEffect(t *testing.T) {
	p := period(date(2016, time.January, 1), date(2026, time.January, 1))
	without := severance.DefaultInputs(d("4000"))
	with := without
	with.PensionConsidered = true

	a, err := newTestEngine().Evaluate(p, without)
	require.NoError(t, err)
	b, err := newTestEngine().Evaluate(p, with)
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
}

func TestEvaluate_ZeroTenure(t *testing.T) {
	p := period(date(2026, time.January, 1), date(2026, time.January, 1))

	// GIVEN: Start equals end, no bonus
	res, err := newTestEngine().Evaluate(p, severance.DefaultInputs(d("3000")))
	require.NoError(t, err)
	assert.Equal(t, 0, res.TenureTotalMonths)
	assertMoney(t, "0.00", res.CappedAmount)

	// GIVEN: Start equals end with an averaged bonus
	in := severance.DefaultInputs(d("3000"))
	in.Bonus = severance.AveragedBonus{Years: []severance.BonusYear{{}, {}, {}}}
	_, err = newTestEngine().Evaluate(p, in)

	// THEN: Averaging fails loudly
	assert.ErrorIs(t, err, severance.ErrDivisionByZeroTenure)
}

// =============================================================================
// INVARIANTS
// =============================================================================

func TestEvaluate_Invariants(t *testing.T) {
	engine := newTestEngine()
	bases := []string{"1", "1500", "3000.55", "8000", "10000", "25000"}
	starts := []civil.Date{
		date(1980, time.July, 31),
		date(1999, time.February, 28),
		date(2010, time.December, 15),
		date(2024, time.May, 1),
		date(2025, time.December, 31),
	}
	ends := []civil.Date{
		date(2025, time.December, 31),
		date(2026, time.March, 1),
		date(2026, time.February, 28),
	}

	for _, base := range bases {
		for _, start := range starts {
			for _, end := range ends {
				if end.Before(start) {
					continue
				}
				name := fmt.Sprintf("%s_%s_%s", base, start, end)
				in := severance.DefaultInputs(d(base))
				in.IncludesThirteenthMonth = true

				res, err := engine.Evaluate(period(start, end), in)
				require.NoError(t, err, name)

				assert.Equal(t, res.TenureTotalMonths, res.TenureYears*12+res.TenureMonths, name)
				assert.True(t, res.TenureMonths >= 0 && res.TenureMonths < 12, name)
				assert.True(t, res.CappedAmount.LessThanOrEqual(res.RawAmount), name)
				assert.False(t, res.CappedAmount.IsNegative(), name)
				assert.Equal(t, res.CappedAmount.LessThan(res.RawAmount), res.CapApplied, name)
				assert.True(t, res.CappedAmount.LessThanOrEqual(res.CapValueUsed), name)
				assert.True(t, res.CapValueUsed.Equal(decimal.Max(res.StatutoryCap, res.YearlySalary)), name)

				again, err := engine.Evaluate(period(start, end), in)
				require.NoError(t, err)
				assert.True(t, res.Equal(again), "evaluate must be repeatable: %s", name)
			}
		}
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestEvaluate_MissingFieldsAggregated(t *testing.T) {
	// GIVEN: No dates and no base salary
	_, err := newTestEngine().Evaluate(severance.EmploymentPeriod{}, severance.CompensationInputs{})

	// THEN: One error lists all three
	require.ErrorIs(t, err, severance.ErrMissingRequiredField)
	var verr *severance.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"start_date", "end_date", "monthly_base_salary"}, verr.Fields)
	assert.True(t, severance.IsClientError(err))
}

func TestEvaluate_MissingBaseOnly(t *testing.T) {
	in := severance.DefaultInputs(d("1"))
	in.MonthlyBaseSalary = decimal.NullDecimal{}

	_, err := newTestEngine().Evaluate(period(date(2020, time.January, 1), date(2026, time.January, 1)), in)

	var verr *severance.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"monthly_base_salary"}, verr.Fields)
}

func TestEvaluate_EndBeforeStart(t *testing.T) {
	_, err := newTestEngine().Evaluate(
		period(date(2026, time.January, 2), date(2026, time.January, 1)),
		severance.DefaultInputs(d("3000")),
	)
	assert.ErrorIs(t, err, severance.ErrInvalidPeriod)
}

func TestEvaluate_InvalidCalendarDate(t *testing.T) {
	_, err := newTestEngine().Evaluate(
		period(date(2025, time.February, 30), date(2026, time.January, 1)),
		severance.DefaultInputs(d("3000")),
	)
	assert.ErrorIs(t, err, severance.ErrInvalidInput)
}

func TestEvaluate_InvalidAmountsAggregated(t *testing.T) {
	// GIVEN: A zero base salary and several negative components
	in := severance.DefaultInputs(d("0"))
	in.VacationAllowancePercent = d("-1")
	in.OvertimeMonthlyAmount = d("-10")
	in.Bonus = severance.FixedBonus{Monthly: d("-5")}

	_, err := newTestEngine().Evaluate(period(date(2020, time.January, 1), date(2026, time.January, 1)), in)

	require.ErrorIs(t, err, severance.ErrInvalidInput)
	var verr *severance.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{
		"monthly_base_salary",
		"vacation_allowance_percent",
		"overtime_monthly_amount",
		"bonus.fixed_monthly_amount",
	}, verr.Fields)
}

func TestEvaluate_BonusYearsMismatch(t *testing.T) {
	in := severance.DefaultInputs(d("3000"))

	// GIVEN: Only two yearly totals
	in.Bonus = severance.AveragedBonus{Years: []severance.BonusYear{{Total: d("1")}, {Total: d("2")}}}
	_, err := newTestEngine().Evaluate(period(date(2020, time.January, 1), date(2026, time.January, 1)), in)
	assert.ErrorIs(t, err, severance.ErrInvalidInput)

	// GIVEN: Years that do not precede the termination year
	in.Bonus = severance.AveragedBonus{Years: []severance.BonusYear{
		{Year: 2026, Total: d("1")}, {Year: 2025, Total: d("1")}, {Year: 2024, Total: d("1")},
	}}
	_, err = newTestEngine().Evaluate(period(date(2020, time.January, 1), date(2026, time.January, 1)), in)

	var verr *severance.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"bonus.years[0].year"}, verr.Fields)
}

func TestValidate_FillsBonusYears(t *testing.T) {
	in := severance.DefaultInputs(d("3000"))
	in.Bonus = severance.AveragedBonus{Years: []severance.BonusYear{
		{Total: d("10")}, {Total: d("20")}, {Total: d("30")},
	}}

	out, err := severance.Validate(period(date(2020, time.January, 1), date(2026, time.June, 30)), in)
	require.NoError(t, err)

	b, ok := out.Bonus.(severance.AveragedBonus)
	require.True(t, ok)
	assert.Equal(t, 2025, b.Years[0].Year)
	assert.Equal(t, 2024, b.Years[1].Year)
	assert.Equal(t, 2023, b.Years[2].Year)
}

func TestValidate_NilBonusBecomesNone(t *testing.T) {
	in := severance.DefaultInputs(d("3000"))
	in.Bonus = nil

	out, err := severance.Validate(period(date(2020, time.January, 1), date(2026, time.January, 1)), in)
	require.NoError(t, err)
	assert.Equal(t, severance.BonusNone, out.Bonus.Mode())
}

func TestEvaluate_UnknownCapYear(t *testing.T) {
	// GIVEN: A termination year beyond the configured table
	_, err := newTestEngine().Evaluate(
		period(date(2020, time.January, 1), date(2027, time.January, 1)),
		severance.DefaultInputs(d("3000")),
	)

	// THEN: Fatal, never defaulted
	require.ErrorIs(t, err, severance.ErrUnknownCapYear)
	var capErr *severance.UnknownCapYearError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, 2027, capErr.Year)
}

func TestEvaluate_ValidationBeforeCapLookup(t *testing.T) {
	// Missing fields are reported even when the cap year is unknown too.
	_, err := newTestEngine().Evaluate(
		period(date(2020, time.January, 1), date(2030, time.January, 1)),
		severance.CompensationInputs{},
	)
	assert.ErrorIs(t, err, severance.ErrMissingRequiredField)
	assert.False(t, errors.Is(err, severance.ErrUnknownCapYear))
}
