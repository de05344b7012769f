/*
auditor.go - Periodic re-evaluation of saved calculations

PURPOSE:
  Re-runs the engine on every saved calculation and reports records whose
  stored result no longer matches. Mismatches appear when the cap table is
  redeployed with a changed amount for a year that already has saved
  calculations; the stored snapshot is kept, the audit only reports.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Uses severance.Calculations.Recompute per record
  - Keeps the last report in memory for GET /api/admin/audit

CONFIGURATION:
  - CheckInterval: How often to check (default: 24 hours)
  - Enabled: Whether the auditor is active (default: true)

USAGE:
  auditor := NewDriftAuditor(calcs)
  auditor.Start()
  // ... later
  auditor.Stop()

SEE ALSO:
  - handlers.go: RunAudit endpoint (manual run)
  - severance/calculations.go: Recompute
*/
package api

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/workx/transition-engine/severance"
)

// AuditReport summarizes one audit run.
type AuditReport struct {
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Checked    int          `json:"checked"`
	Drifted    []AuditIssue `json:"drifted"`
	Failed     []AuditIssue `json:"failed"`
}

// AuditIssue names one calculation that did not re-evaluate cleanly.
type AuditIssue struct {
	ID           string `json:"id"`
	EmployeeName string `json:"employee_name"`
	Error        string `json:"error"`
}

// DriftAuditor checks the saved-result invariant on a schedule.
type DriftAuditor struct {
	Calculations  *severance.Calculations
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex

	lastMu sync.RWMutex
	last   *AuditReport
}

// NewDriftAuditor creates a new auditor.
func NewDriftAuditor(calcs *severance.Calculations) *DriftAuditor {
	return &DriftAuditor{
		Calculations:  calcs,
		CheckInterval: 24 * time.Hour,
		Enabled:       true,
	}
}

// Start begins the auditor.
func (a *DriftAuditor) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.Enabled {
		log.Println("[Audit] Disabled, not starting")
		return
	}
	if a.ticker != nil {
		return
	}

	a.ticker = time.NewTicker(a.CheckInterval)
	a.stop = make(chan struct{})
	a.wg.Add(1)

	go a.run()

	log.Printf("[Audit] Started with check interval: %v", a.CheckInterval)
}

// Stop stops the auditor and waits for a running check to finish.
func (a *DriftAuditor) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.ticker != nil {
		a.ticker.Stop()
		close(a.stop)
		a.wg.Wait()
		a.ticker = nil
		log.Println("[Audit] Stopped")
	}
}

func (a *DriftAuditor) run() {
	defer a.wg.Done()

	// Run immediately on start
	a.RunOnce(context.Background())

	for {
		select {
		case <-a.ticker.C:
			a.RunOnce(context.Background())
		case <-a.stop:
			return
		}
	}
}

// RunOnce audits every saved calculation and stores the report.
func (a *DriftAuditor) RunOnce(ctx context.Context) AuditReport {
	report := AuditReport{
		StartedAt: time.Now().UTC(),
		Drifted:   []AuditIssue{},
		Failed:    []AuditIssue{},
	}

	list, err := a.Calculations.List(ctx, "")
	if err != nil {
		log.Printf("[Audit] Error listing calculations: %v", err)
		report.Failed = append(report.Failed, AuditIssue{Error: err.Error()})
	}

	for _, c := range list {
		report.Checked++
		_, err := a.Calculations.Recompute(ctx, c.ID)
		switch {
		case err == nil:
		case errors.Is(err, severance.ErrResultDrift):
			report.Drifted = append(report.Drifted, AuditIssue{ID: c.ID, EmployeeName: c.Party.EmployeeName, Error: err.Error()})
		case severance.IsNotFound(err):
			// Deleted while auditing.
			report.Checked--
		default:
			report.Failed = append(report.Failed, AuditIssue{ID: c.ID, EmployeeName: c.Party.EmployeeName, Error: err.Error()})
		}
	}
	report.FinishedAt = time.Now().UTC()

	if len(report.Drifted) > 0 || len(report.Failed) > 0 {
		log.Printf("[Audit] Completed: %d checked, %d drifted, %d failed",
			report.Checked, len(report.Drifted), len(report.Failed))
	}

	a.lastMu.Lock()
	a.last = &report
	a.lastMu.Unlock()
	return report
}

// Last returns the most recent report.
func (a *DriftAuditor) Last() (AuditReport, bool) {
	a.lastMu.RLock()
	defer a.lastMu.RUnlock()
	if a.last == nil {
		return AuditReport{}, false
	}
	return *a.last, true
}
