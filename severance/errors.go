/*
errors.go - Error taxonomy of the severance engine

PURPOSE:
  All error types in one place. Every condition here is expected and
  recoverable: the caller re-prompts the user, nothing crashes.

ERROR CATEGORIES:
  1. Validation errors - missing fields, bad amounts, end before start
  2. Configuration errors - termination year without a statutory cap
  3. Arithmetic guards - tenure of zero months in bonus averaging
  4. Store errors - unknown saved calculation id

USAGE:
  if errors.Is(err, severance.ErrMissingRequiredField) {
      var verr *severance.ValidationError
      errors.As(err, &verr) // verr.Fields lists every missing field
  }

SEE ALSO:
  - engine.go: Produces validation and cap errors
  - calculations.go: Produces store errors
*/
package severance

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMissingRequiredField is returned when start date, end date or monthly
	// base salary is absent, or party names are missing on save.
	ErrMissingRequiredField = errors.New("missing required field")

	// ErrInvalidPeriod is returned when the end date is before the start date.
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrInvalidInput is returned for negative amounts, a non-positive base
	// salary or malformed bonus years.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownCapYear is returned when the termination year has no entry in
	// the statutory cap table. Never defaulted.
	ErrUnknownCapYear = errors.New("no statutory cap for year")

	// ErrDivisionByZeroTenure is returned when bonus averaging is asked to
	// divide by a tenure of zero months.
	ErrDivisionByZeroTenure = errors.New("bonus averaging over zero months of tenure")

	// ErrNotFound is returned when a saved calculation id does not exist.
	ErrNotFound = errors.New("calculation not found")

	// ErrDuplicateID is returned when inserting an id that was already used.
	ErrDuplicateID = errors.New("calculation id already used")

	// ErrResultDrift is returned when a stored result no longer matches a
	// fresh evaluation of its stored inputs.
	ErrResultDrift = errors.New("stored result differs from re-evaluation")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError aggregates every field problem found in one pass.
type ValidationError struct {
	Kind   error    // ErrMissingRequiredField or ErrInvalidInput
	Fields []string // offending field names, in check order
	Reason string   // optional human text
}

func (e *ValidationError) Error() string {
	msg := e.Kind.Error()
	if len(e.Fields) > 0 {
		msg += ": " + strings.Join(e.Fields, ", ")
	}
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

func (e *ValidationError) Unwrap() error { return e.Kind }

// UnknownCapYearError names the termination year that has no cap.
type UnknownCapYearError struct {
	Year int
}

func (e *UnknownCapYearError) Error() string {
	return fmt.Sprintf("no statutory cap configured for %d", e.Year)
}

func (e *UnknownCapYearError) Unwrap() error { return ErrUnknownCapYear }

// NotFoundError names the missing calculation id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("calculation %s not found", e.ID) }

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// fieldCollector builds a ValidationError from several checks.
type fieldCollector struct {
	kind   error
	fields []string
}

func (c *fieldCollector) add(field string) { c.fields = append(c.fields, field) }

func (c *fieldCollector) err() error {
	if len(c.fields) == 0 {
		return nil
	}
	return &ValidationError{Kind: c.kind, Fields: c.fields}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrMissingRequiredField) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrUnknownCapYear) ||
		errors.Is(err, ErrDivisionByZeroTenure)
}

// IsNotFound returns true if the error indicates a missing calculation.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
