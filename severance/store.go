/*
store.go - Persistence interface for saved calculations

PURPOSE:
  Defines the boundary between the calculation service and the database.
  Implementations store complete snapshots; they never evaluate.

KEY INTERFACE:
  Store: Insert, Replace, Get, List, Delete

RECORD LIFECYCLE:
  absent -> saved -> (updated)* -> deleted

  Deleted ids are remembered. Delete on a deleted id is a no-op so client
  retries are safe; Replace and Get on a deleted id fail with ErrNotFound,
  as do all operations on an id that never existed.

CONCURRENCY:
  Each operation is atomic per record. Concurrent Replace/Delete on the same
  id are last-write-wins; there is no version check.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - severance/store/memory.go: In-memory for tests and dev

SEE ALSO:
  - calculations.go: Service using Store
*/
package severance

import (
	"context"
	"strings"
)

// Store persists SavedCalculation snapshots.
type Store interface {
	// Insert persists a new record. The id must be unused.
	Insert(ctx context.Context, c SavedCalculation) error

	// Replace overwrites an existing, non-deleted record.
	Replace(ctx context.Context, c SavedCalculation) error

	// Get returns a non-deleted record.
	Get(ctx context.Context, id string) (SavedCalculation, error)

	// List returns every non-deleted record whose employee name contains
	// employeeFilter, case-insensitively. Order is unspecified.
	List(ctx context.Context, employeeFilter string) ([]SavedCalculation, error)

	// Delete removes a record. Deleting a deleted record returns nil.
	Delete(ctx context.Context, id string) error
}

// MatchesEmployee reports whether name contains filter, ignoring case. An
// empty filter matches everything.
func MatchesEmployee(name, filter string) bool {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(filter))
}
