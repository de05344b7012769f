package severance

import "cloud.google.com/go/civil"

// =============================================================================
// TENURE - whole years plus remainder months
// =============================================================================

// Tenure is the length of employment. Months is always in [0, 11].
type Tenure struct {
	Years  int
	Months int
}

// TotalMonths is Years*12 + Months.
func (t Tenure) TotalMonths() int { return t.Years*12 + t.Months }

// TenureBetween counts whole months from start to end. A month is complete
// once end reaches the same day-of-month as start; partial months are dropped.
func TenureBetween(start, end civil.Date) (Tenure, error) {
	if end.Before(start) {
		return Tenure{}, ErrInvalidPeriod
	}

	years := end.Year - start.Year
	months := int(end.Month) - int(start.Month)

	// The last month is incomplete until the anniversary day.
	if end.Day < start.Day {
		months--
	}

	// Borrow a year for negative remainders.
	if months < 0 {
		years--
		months += 12
	}

	return Tenure{Years: years, Months: months}, nil
}
