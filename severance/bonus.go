package severance

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// BonusReferenceMonths is the legal reference window for bonus averaging.
const BonusReferenceMonths = 36

// AverageBonus converts yearly bonus totals into a monthly equivalent:
// sum(totals) / min(36, tenureTotalMonths). An employee never divides by more
// months than they worked.
func AverageBonus(totals []decimal.Decimal, tenureTotalMonths int) (decimal.Decimal, error) {
	if tenureTotalMonths <= 0 {
		return decimal.Decimal{}, ErrDivisionByZeroTenure
	}

	sum := decimal.Zero
	for _, t := range totals {
		sum = sum.Add(t)
	}

	divisor := min(BonusReferenceMonths, tenureTotalMonths)
	return RoundMoney(sum.Div(decimal.NewFromInt(int64(divisor)))), nil
}

// ResolveBonus returns the monthly bonus for the composite salary and, for
// averaged bonuses, the same figure as the reported monthly equivalent.
func ResolveBonus(b Bonus, tenureTotalMonths int) (decimal.Decimal, decimal.NullDecimal, error) {
	switch v := b.(type) {
	case nil, NoBonus:
		return RoundMoney(decimal.Zero), decimal.NullDecimal{}, nil
	case FixedBonus:
		return RoundMoney(v.Monthly), decimal.NullDecimal{}, nil
	case AveragedBonus:
		monthly, err := AverageBonus(v.Totals(), tenureTotalMonths)
		if err != nil {
			return decimal.Decimal{}, decimal.NullDecimal{}, err
		}
		return monthly, decimal.NewNullDecimal(monthly), nil
	default:
		return decimal.Decimal{}, decimal.NullDecimal{}, fmt.Errorf("%w: unsupported bonus %T", ErrInvalidInput, b)
	}
}

// NormalizeBonusYears fills in zero years from the termination date and
// checks that given years are exactly the three preceding calendar years.
func NormalizeBonusYears(b AveragedBonus, period EmploymentPeriod) (AveragedBonus, error) {
	if len(b.Years) != BonusLookbackYears {
		return b, &ValidationError{
			Kind:   ErrInvalidInput,
			Fields: []string{"bonus.years"},
			Reason: fmt.Sprintf("averaged bonus needs %d yearly totals, got %d", BonusLookbackYears, len(b.Years)),
		}
	}

	expected := BonusYearsFor(period.End)
	out := AveragedBonus{Years: make([]BonusYear, len(b.Years))}
	for i, y := range b.Years {
		if y.Year == 0 {
			y.Year = expected[i]
		}
		if y.Year != expected[i] {
			return b, &ValidationError{
				Kind:   ErrInvalidInput,
				Fields: []string{fmt.Sprintf("bonus.years[%d].year", i)},
				Reason: fmt.Sprintf("expected %d for termination year %d", expected[i], period.TerminationYear()),
			}
		}
		out.Years[i] = y
	}
	return out, nil
}
