// Package store provides Store implementations.
package store

import (
	"context"
	"sync"

	"github.com/workx/transition-engine/severance"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	calculations map[string]severance.SavedCalculation
	deleted      map[string]bool
}

func NewMemory() *Memory {
	return &Memory{
		calculations: make(map[string]severance.SavedCalculation),
		deleted:      make(map[string]bool),
	}
}

// Insert adds a new record. Ids are never reused, even after delete.
func (m *Memory) Insert(_ context.Context, c severance.SavedCalculation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.calculations[c.ID]; ok || m.deleted[c.ID] {
		return severance.ErrDuplicateID
	}
	m.calculations[c.ID] = clone(c)
	return nil
}

func (m *Memory) Replace(_ context.Context, c severance.SavedCalculation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.calculations[c.ID]; !ok {
		return &severance.NotFoundError{ID: c.ID}
	}
	m.calculations[c.ID] = clone(c)
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (severance.SavedCalculation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.calculations[id]
	if !ok {
		return severance.SavedCalculation{}, &severance.NotFoundError{ID: id}
	}
	return clone(c), nil
}

func (m *Memory) List(_ context.Context, employeeFilter string) ([]severance.SavedCalculation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []severance.SavedCalculation{}
	for _, c := range m.calculations {
		if severance.MatchesEmployee(c.Party.EmployeeName, employeeFilter) {
			result = append(result, clone(c))
		}
	}
	return result, nil
}

// Delete drops the record and keeps a tombstone so a retry is a no-op.
func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.deleted[id] {
		return nil
	}
	if _, ok := m.calculations[id]; !ok {
		return &severance.NotFoundError{ID: id}
	}
	delete(m.calculations, id)
	m.deleted[id] = true
	return nil
}

// clone copies the bonus years so callers cannot mutate stored state.
func clone(c severance.SavedCalculation) severance.SavedCalculation {
	if b, ok := c.Inputs.Bonus.(severance.AveragedBonus); ok {
		years := make([]severance.BonusYear, len(b.Years))
		copy(years, b.Years)
		c.Inputs.Bonus = severance.AveragedBonus{Years: years}
	}
	return c
}
