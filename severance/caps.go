package severance

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STATUTORY CAP TABLE - year -> ceiling, read-only after construction
// =============================================================================

// CapTable maps a calendar year to its statutory cap. The zero value is an
// empty table; every lookup on it fails with ErrUnknownCapYear.
type CapTable struct {
	caps map[int]decimal.Decimal
}

// NewCapTable copies caps into an immutable table. Every amount must be
// positive.
func NewCapTable(caps map[int]decimal.Decimal) (CapTable, error) {
	t := CapTable{caps: make(map[int]decimal.Decimal, len(caps))}
	for year, amount := range caps {
		if !amount.IsPositive() {
			return CapTable{}, fmt.Errorf("%w: cap for %d must be positive, got %s", ErrInvalidInput, year, amount)
		}
		t.caps[year] = RoundMoney(amount)
	}
	return t, nil
}

// MustCapTable is NewCapTable for literals.
func MustCapTable(caps map[int]int64) CapTable {
	m := make(map[int]decimal.Decimal, len(caps))
	for y, a := range caps {
		m[y] = decimal.NewFromInt(a)
	}
	t, err := NewCapTable(m)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup returns the cap for year or an *UnknownCapYearError.
func (t CapTable) Lookup(year int) (decimal.Decimal, error) {
	amount, ok := t.caps[year]
	if !ok {
		return decimal.Decimal{}, &UnknownCapYearError{Year: year}
	}
	return amount, nil
}

// Years returns the configured years in ascending order.
func (t CapTable) Years() []int {
	years := make([]int, 0, len(t.caps))
	for y := range t.caps {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// Len is the number of configured years.
func (t CapTable) Len() int { return len(t.caps) }

// CapEntry is one configured year and its statutory cap.
type CapEntry struct {
	Year   int
	Amount decimal.Decimal
}

// Entries returns every configured year with its cap, ascending by year.
func (t CapTable) Entries() []CapEntry {
	entries := make([]CapEntry, 0, len(t.caps))
	for _, y := range t.Years() {
		entries = append(entries, CapEntry{Year: y, Amount: t.caps[y]})
	}
	return entries
}

// =============================================================================
// CAP RESOLVER
// =============================================================================

// CapDecision is the outcome of comparing a raw amount against the ceiling.
type CapDecision struct {
	Year         int
	StatutoryCap decimal.Decimal
	MaxAllowed   decimal.Decimal // max(statutory cap, yearly salary)
	Amount       decimal.Decimal // min(raw, MaxAllowed)
	Applied      bool
}

// Resolve applies the ceiling for year: the greater of the statutory cap and
// the employee's yearly salary. raw is compared once and never re-capped.
func (t CapTable) Resolve(year int, yearlySalary, raw decimal.Decimal) (CapDecision, error) {
	statutory, err := t.Lookup(year)
	if err != nil {
		return CapDecision{}, err
	}

	d := CapDecision{
		Year:         year,
		StatutoryCap: statutory,
		MaxAllowed:   decimal.Max(statutory, yearlySalary),
		Amount:       raw,
	}
	if raw.GreaterThan(d.MaxAllowed) {
		d.Amount = d.MaxAllowed
		d.Applied = true
	}
	return d, nil
}
