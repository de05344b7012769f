package severance

import "github.com/shopspring/decimal"

// =============================================================================
// COMPOSITE SALARY - one monthly figure from all pay components
// =============================================================================

// SalaryBreakdown is the composite monthly salary with its parts.
type SalaryBreakdown struct {
	Base       decimal.Decimal
	Vacation   decimal.Decimal
	Thirteenth decimal.Decimal
	Bonus      decimal.Decimal
	Overtime   decimal.Decimal
	Other      decimal.Decimal
	Total      decimal.Decimal
}

// Yearly is twelve times the monthly total.
func (s SalaryBreakdown) Yearly() decimal.Decimal {
	return RoundMoney(s.Total.Mul(decimal.NewFromInt(12)))
}

// ComposeSalary adds the allowances to the base salary. Percentages apply to
// the base only, never to each other. bonusMonthly is the already resolved
// monthly bonus (see ResolveBonus).
func ComposeSalary(in CompensationInputs, bonusMonthly decimal.Decimal) SalaryBreakdown {
	base := RoundMoney(in.MonthlyBaseSalary.Decimal)

	s := SalaryBreakdown{
		Base:       base,
		Vacation:   Percent(base, in.VacationAllowancePercent),
		Thirteenth: RoundMoney(decimal.Zero),
		Bonus:      RoundMoney(bonusMonthly),
		Overtime:   RoundMoney(in.OvertimeMonthlyAmount),
		Other:      RoundMoney(in.OtherMonthlyAmount),
	}
	if in.IncludesThirteenthMonth {
		s.Thirteenth = Percent(base, in.ThirteenthMonthPercent)
	}

	s.Total = s.Base.
		Add(s.Vacation).
		Add(s.Thirteenth).
		Add(s.Bonus).
		Add(s.Overtime).
		Add(s.Other)
	return s
}
