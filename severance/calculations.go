/*
calculations.go - Save, update, list and delete evaluated calculations

PURPOSE:
  Combines the Engine with a Store. Every write evaluates first, so a stored
  Result is always exactly what the engine returns for the stored inputs.

OPERATIONS:
  Save:      validate party, evaluate, insert under a fresh id
  Update:    evaluate the replacement inputs, overwrite inputs and result
  Get:       load one record
  List:      filter by employee name, newest first
  Delete:    idempotent removal
  Recompute: check a stored record against a fresh evaluation

SEE ALSO:
  - engine.go: Evaluate
  - store.go: Store interface
*/
package severance

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Draft is the body of a save: who it is for plus the inputs.
type Draft struct {
	Party  Party
	Period EmploymentPeriod
	Inputs CompensationInputs
}

// UpdateDraft fully replaces period and inputs. Blank party names keep the
// stored names.
type UpdateDraft struct {
	Party  Party
	Period EmploymentPeriod
	Inputs CompensationInputs
}

// Calculations is the persistence-facing service.
type Calculations struct {
	Engine *Engine
	Store  Store

	// Now and NewID are replaceable in tests.
	Now   func() time.Time
	NewID func() string
}

// NewCalculations creates a service with the wall clock and uuid ids.
func NewCalculations(engine *Engine, store Store) *Calculations {
	return &Calculations{
		Engine: engine,
		Store:  store,
		Now:    func() time.Time { return time.Now().UTC() },
		NewID:  uuid.NewString,
	}
}

func (c *Calculations) evaluate(period EmploymentPeriod, in CompensationInputs) (CompensationInputs, Result, error) {
	normalized, err := Validate(period, in)
	if err != nil {
		return in, Result{}, err
	}
	result, err := c.Engine.Evaluate(period, normalized)
	if err != nil {
		return in, Result{}, err
	}
	return normalized, result, nil
}

// Save evaluates d and stores it under a new id.
func (c *Calculations) Save(ctx context.Context, d Draft) (SavedCalculation, error) {
	party := trimParty(d.Party)
	missing := fieldCollector{kind: ErrMissingRequiredField}
	if party.EmployerName == "" {
		missing.add("employer_name")
	}
	if party.EmployeeName == "" {
		missing.add("employee_name")
	}
	if err := missing.err(); err != nil {
		return SavedCalculation{}, err
	}

	inputs, result, err := c.evaluate(d.Period, d.Inputs)
	if err != nil {
		return SavedCalculation{}, err
	}

	now := c.Now()
	saved := SavedCalculation{
		ID:        c.NewID(),
		Party:     party,
		Period:    d.Period,
		Inputs:    inputs,
		Result:    result,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.Store.Insert(ctx, saved); err != nil {
		return SavedCalculation{}, fmt.Errorf("save calculation: %w", err)
	}
	return saved, nil
}

// Update re-evaluates and overwrites the record with id.
func (c *Calculations) Update(ctx context.Context, id string, d UpdateDraft) (SavedCalculation, error) {
	existing, err := c.Store.Get(ctx, id)
	if err != nil {
		return SavedCalculation{}, err
	}

	inputs, result, err := c.evaluate(d.Period, d.Inputs)
	if err != nil {
		return SavedCalculation{}, err
	}

	party := trimParty(d.Party)
	if party.EmployerName != "" {
		existing.Party.EmployerName = party.EmployerName
	}
	if party.EmployeeName != "" {
		existing.Party.EmployeeName = party.EmployeeName
	}
	existing.Period = d.Period
	existing.Inputs = inputs
	existing.Result = result
	existing.UpdatedAt = c.Now()

	if err := c.Store.Replace(ctx, existing); err != nil {
		return SavedCalculation{}, err
	}
	return existing, nil
}

// Get returns one saved calculation.
func (c *Calculations) Get(ctx context.Context, id string) (SavedCalculation, error) {
	return c.Store.Get(ctx, id)
}

// List returns calculations whose employee name contains filter, most
// recently updated first.
func (c *Calculations) List(ctx context.Context, filter string) ([]SavedCalculation, error) {
	list, err := c.Store.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].UpdatedAt.Equal(list[j].UpdatedAt) {
			return list[i].UpdatedAt.After(list[j].UpdatedAt)
		}
		return list[i].ID < list[j].ID
	})
	return list, nil
}

// Delete removes a calculation. Deleting twice is not an error.
func (c *Calculations) Delete(ctx context.Context, id string) error {
	return c.Store.Delete(ctx, id)
}

// Recompute re-evaluates the stored inputs of id and returns ErrResultDrift
// if the stored result differs.
func (c *Calculations) Recompute(ctx context.Context, id string) (SavedCalculation, error) {
	saved, err := c.Store.Get(ctx, id)
	if err != nil {
		return SavedCalculation{}, err
	}
	fresh, err := c.Engine.Evaluate(saved.Period, saved.Inputs)
	if err != nil {
		return saved, err
	}
	if !fresh.Equal(saved.Result) {
		return saved, fmt.Errorf("%w: calculation %s", ErrResultDrift, id)
	}
	return saved, nil
}

func trimParty(p Party) Party {
	return Party{
		EmployerName: strings.TrimSpace(p.EmployerName),
		EmployeeName: strings.TrimSpace(p.EmployeeName),
	}
}
