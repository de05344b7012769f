/*
handlers_test.go - HTTP tests for the API handlers

Tests for:
- Stateless evaluation and error status mapping
- Saved calculation lifecycle (save, get, update, list, delete)
- PDF export and the exporter contract guard
- Drift audit endpoints
*/
package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workx/transition-engine/report"
	"github.com/workx/transition-engine/severance"
	"github.com/workx/transition-engine/severance/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func testCaps() severance.CapTable {
	return severance.MustCapTable(map[int]int64{
		2024: 94000,
		2025: 98000,
		2026: 102000,
	})
}

func newTestHandler(exporter report.Exporter) *Handler {
	return NewHandler(severance.NewEngine(testCaps()), store.NewMemory(), exporter, report.Branding{
		FirmName: "Test Advocaten",
		Footer:   "Indicatief",
	})
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	return NewRouter(newTestHandler(report.NewPDF()), []string{"http://localhost:5173"})
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

const basicInputs = `
	"start_date": "2020-03-01",
	"end_date": "2026-03-01",
	"monthly_base_salary": 3000`

const saveBasic = `{
	"employer_name": "Voorbeeld B.V.",
	"employee_name": "Anna de Vries",` + basicInputs + `
}`

// =============================================================================
// EVALUATION
// =============================================================================

func TestEvaluate_Basic(t *testing.T) {
	rec := do(t, newTestRouter(t), http.MethodPost, "/api/evaluate", `{`+basicInputs+`}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decodeBody[EvaluationDTO](t, rec)
	assert.Equal(t, "3240.00", got.Result.TotalMonthlySalary)
	assert.Equal(t, "6480.00", got.Result.CappedAmount)
	assert.False(t, got.Result.CapApplied)
	assert.Equal(t, 72, got.Result.TenureTotalMonths)
	assert.Equal(t, "8", got.Inputs.VacationAllowancePercent, "default vacation allowance applied")
	assert.Equal(t, "none", got.Inputs.Bonus.Mode)
	assert.Nil(t, got.Result.BonusMonthlyEquivalent)
}

func TestEvaluate_AveragedBonusAsStrings(t *testing.T) {
	body := `{` + basicInputs + `,
		"bonus": {"mode": "averaged", "years": [
			{"year": 2025, "total": "3600"},
			{"total": "2400.00"},
			{"total": 1200}
		]}
	}`
	rec := do(t, newTestRouter(t), http.MethodPost, "/api/evaluate", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decodeBody[EvaluationDTO](t, rec)
	assert.Equal(t, "200.00", got.Result.BonusMonthly)
	require.NotNil(t, got.Result.BonusMonthlyEquivalent)
	assert.Equal(t, "200.00", *got.Result.BonusMonthlyEquivalent)
	require.Len(t, got.Inputs.Bonus.Years, 3)
	assert.Equal(t, 2024, got.Inputs.Bonus.Years[1].Year, "missing years are filled in")
}

func TestEvaluate_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"malformed body", `{"start_date":`, http.StatusBadRequest, "invalid_body"},
		{"missing fields", `{}`, http.StatusBadRequest, "missing_required_field"},
		{"bad date", `{"start_date": "01-03-2020", "end_date": "2026-03-01", "monthly_base_salary": 1}`, http.StatusBadRequest, "invalid_input"},
		{"end before start", `{"start_date": "2026-03-02", "end_date": "2026-03-01", "monthly_base_salary": 1}`, http.StatusBadRequest, "invalid_period"},
		{"negative overtime", `{` + basicInputs + `, "overtime_monthly_amount": -1}`, http.StatusBadRequest, "invalid_input"},
		{"unknown bonus mode", `{` + basicInputs + `, "bonus": {"mode": "sometimes"}}`, http.StatusBadRequest, "invalid_input"},
		{"fixed bonus without amount", `{` + basicInputs + `, "bonus": {"mode": "fixed"}}`, http.StatusBadRequest, "missing_required_field"},
		{"unknown cap year", `{"start_date": "2020-01-01", "end_date": "2031-01-01", "monthly_base_salary": 1}`, http.StatusUnprocessableEntity, "unknown_cap_year"},
		{"zero tenure averaging", `{"start_date": "2026-01-01", "end_date": "2026-01-01", "monthly_base_salary": 1, "bonus": {"mode": "averaged", "years": [{"total": 1}, {"total": 1}, {"total": 1}]}}`, http.StatusBadRequest, "division_by_zero_tenure"},
	}

	router := newTestRouter(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/api/evaluate", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decodeBody[ErrorResponse](t, rec).Code)
		})
	}
}

func TestEvaluate_MissingFieldsListed(t *testing.T) {
	rec := do(t, newTestRouter(t), http.MethodPost, "/api/evaluate", `{"end_date": "2026-01-01"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	got := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, []string{"start_date", "monthly_base_salary"}, got.Fields)
}

func TestListCaps(t *testing.T) {
	rec := do(t, newTestRouter(t), http.MethodGet, "/api/caps", "")
	require.Equal(t, http.StatusOK, rec.Code)

	got := decodeBody[CapTableDTO](t, rec)
	require.Len(t, got.Caps, 3)
	assert.Equal(t, CapDTO{Year: 2024, Amount: "94000.00"}, got.Caps[0])
	assert.Equal(t, CapDTO{Year: 2026, Amount: "102000.00"}, got.Caps[2])
}

// =============================================================================
// SAVED CALCULATIONS
// =============================================================================

func TestCalculationLifecycle(t *testing.T) {
	router := newTestRouter(t)

	// GIVEN: A saved calculation
	rec := do(t, router, http.MethodPost, "/api/calculations", saveBasic)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	saved := decodeBody[CalculationDTO](t, rec)
	require.NotEmpty(t, saved.ID)
	assert.Equal(t, "6480.00", saved.Result.CappedAmount)

	// WHEN: Reading it back
	rec = do(t, router, http.MethodGet, "/api/calculations/"+saved.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, saved.Result, decodeBody[CalculationDTO](t, rec).Result)

	// WHEN: Updating with identical inputs
	rec = do(t, router, http.MethodPatch, "/api/calculations/"+saved.ID, `{`+basicInputs+`}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	same := decodeBody[CalculationDTO](t, rec)
	assert.Equal(t, saved.Result, same.Result, "same inputs reproduce the same result")
	assert.Equal(t, "Anna de Vries", same.EmployeeName, "blank names keep the stored names")

	// WHEN: Updating with new inputs
	rec = do(t, router, http.MethodPatch, "/api/calculations/"+saved.ID, `{
		"employee_name": "Anna Jansen",
		"start_date": "2025-06-01", "end_date": "2026-01-01", "monthly_base_salary": "5000"
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeBody[CalculationDTO](t, rec)
	assert.Equal(t, "1050.00", updated.Result.CappedAmount)
	assert.Equal(t, "Anna Jansen", updated.EmployeeName)

	// WHEN: Deleting twice
	rec = do(t, router, http.MethodDelete, "/api/calculations/"+saved.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, router, http.MethodDelete, "/api/calculations/"+saved.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// THEN: Reads and updates are not found
	rec = do(t, router, http.MethodGet, "/api/calculations/"+saved.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, router, http.MethodPatch, "/api/calculations/"+saved.ID, `{`+basicInputs+`}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeBody[ErrorResponse](t, rec).Code)
}

func TestSaveCalculation_RequiresNames(t *testing.T) {
	rec := do(t, newTestRouter(t), http.MethodPost, "/api/calculations", `{`+basicInputs+`}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	got := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "missing_required_field", got.Code)
	assert.Equal(t, []string{"employer_name", "employee_name"}, got.Fields)
}

func TestDeleteCalculation_Unknown(t *testing.T) {
	rec := do(t, newTestRouter(t), http.MethodDelete, "/api/calculations/does-not-exist", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListCalculations_Filter(t *testing.T) {
	router := newTestRouter(t)
	for _, name := range []string{"Anna de Vries", "Bram Jansen", "Johanna Vries"} {
		body := `{"employer_name": "Voorbeeld B.V.", "employee_name": "` + name + `",` + basicInputs + `}`
		rec := do(t, router, http.MethodPost, "/api/calculations", body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := do(t, router, http.MethodGet, "/api/calculations", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]CalculationDTO](t, rec), 3)

	rec = do(t, router, http.MethodGet, "/api/calculations?employee=VRIES", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[[]CalculationDTO](t, rec)
	require.Len(t, list, 2)
	for _, c := range list {
		assert.Contains(t, strings.ToLower(c.EmployeeName), "vries")
	}

	rec = do(t, router, http.MethodGet, "/api/calculations?employee=nobody", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

// =============================================================================
// EXPORT
// =============================================================================

func TestExportCalculation(t *testing.T) {
	router := newTestRouter(t)
	rec := do(t, router, http.MethodPost, "/api/calculations", saveBasic)
	require.Equal(t, http.StatusCreated, rec.Code)
	saved := decodeBody[CalculationDTO](t, rec)

	rec = do(t, router, http.MethodGet, "/api/calculations/"+saved.ID+"/export", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), saved.ID)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
	assert.Greater(t, rec.Body.Len(), report.MinDocumentSize)
}

func TestExportCalculation_Unknown(t *testing.T) {
	rec := do(t, newTestRouter(t), http.MethodGet, "/api/calculations/missing/export", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportEvaluation(t *testing.T) {
	rec := do(t, newTestRouter(t), http.MethodPost, "/api/export", `{"employee_name": "Anna de Vries",`+basicInputs+`}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))

	rec = do(t, newTestRouter(t), http.MethodPost, "/api/export", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExport_ExporterFailures(t *testing.T) {
	tests := []struct {
		name     string
		exporter report.ExporterFunc
	}{
		{"error", func(context.Context, report.Document) ([]byte, error) {
			return nil, errors.New("renderer unavailable")
		}},
		{"truncated output", func(context.Context, report.Document) ([]byte, error) {
			return []byte("%PDF-1.4"), nil
		}},
		{"not a pdf", func(context.Context, report.Document) ([]byte, error) {
			return bytes.Repeat([]byte("<html>"), 100), nil
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := NewRouter(newTestHandler(tt.exporter), nil)

			rec := do(t, router, http.MethodPost, "/api/export", `{`+basicInputs+`}`)

			// THEN: A typed error, never the bytes with a 200
			assert.Equal(t, http.StatusBadGateway, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, "export_failed", decodeBody[ErrorResponse](t, rec).Code)
		})
	}
}

// =============================================================================
// AUDIT
// =============================================================================

func TestAudit(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/api/admin/audit", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()))

	for i := 0; i < 2; i++ {
		rec = do(t, router, http.MethodPost, "/api/calculations", saveBasic)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec = do(t, router, http.MethodPost, "/api/admin/audit", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[AuditReport](t, rec)
	assert.Equal(t, 2, got.Checked)
	assert.Empty(t, got.Drifted)
	assert.Empty(t, got.Failed)

	rec = do(t, router, http.MethodGet, "/api/admin/audit", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decodeBody[AuditReport](t, rec).Checked)
}

func TestAuditor_ReportsDrift(t *testing.T) {
	// GIVEN: A capped calculation saved under the 2026 cap of 102000
	mem := store.NewMemory()
	h := NewHandler(severance.NewEngine(testCaps()), mem, report.NewPDF(), report.Branding{})
	saved, err := h.Calculations.Save(context.Background(), severance.Draft{
		Party:  severance.Party{EmployerName: "Voorbeeld B.V.", EmployeeName: "C. Bakker"},
		Period: severance.EmploymentPeriod{Start: date(1989, 1, 1), End: date(2026, 1, 1)},
		Inputs: scenarioInputs("7800"),
	})
	require.NoError(t, err)

	// WHEN: The table is redeployed with another amount for 2026
	redeployed := NewDriftAuditor(severance.NewCalculations(
		severance.NewEngine(severance.MustCapTable(map[int]int64{2026: 110000})),
		mem,
	))
	got := redeployed.RunOnce(context.Background())

	// THEN: The record is reported, not rewritten
	require.Len(t, got.Drifted, 1)
	assert.Equal(t, saved.ID, got.Drifted[0].ID)
	assert.Equal(t, "C. Bakker", got.Drifted[0].EmployeeName)

	stored, err := mem.Get(context.Background(), saved.ID)
	require.NoError(t, err)
	assert.True(t, stored.Result.Equal(saved.Result))
}

func TestAuditor_StartStop(t *testing.T) {
	a := NewDriftAuditor(severance.NewCalculations(severance.NewEngine(testCaps()), store.NewMemory()))
	a.Start()
	a.Start()
	a.Stop()
	a.Stop()

	_, ran := a.Last()
	assert.True(t, ran, "the first run happens on start")

	disabled := NewDriftAuditor(severance.NewCalculations(severance.NewEngine(testCaps()), store.NewMemory()))
	disabled.Enabled = false
	disabled.Start()
	disabled.Stop()
	_, ran = disabled.Last()
	assert.False(t, ran)
}
