/*
handlers.go - HTTP API handlers for the transition compensation calculator

PURPOSE:
  Exposes the severance engine and its calculation store via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to
  severance.Engine and severance.Calculations.

ENDPOINTS:
  Evaluation:
    POST   /api/evaluate                  Evaluate without saving
    GET    /api/caps                      Statutory cap table

  Calculations:
    POST   /api/calculations              Save
    GET    /api/calculations?employee=    List (substring, case-insensitive)
    GET    /api/calculations/{id}         Get
    PATCH  /api/calculations/{id}         Update (full replace of inputs)
    DELETE /api/calculations/{id}         Delete (204, also when already deleted)

  Export:
    GET    /api/calculations/{id}/export  PDF of a saved calculation
    POST   /api/export                    PDF of an unsaved evaluation

  Admin:
    POST   /api/admin/audit               Re-evaluate every saved calculation
    GET    /api/admin/audit               Last audit report

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Missing fields, invalid input, invalid period, malformed body
  - 404: Calculation not found
  - 422: No statutory cap for the termination year
  - 502: Exporter failed or returned a malformed document
  - 500: Internal errors

SECURITY NOTE:
  No authentication. Session and role checks belong to the portal in front
  of this service.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Worked examples
  - server.go: Router setup and middleware
*/
package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/workx/transition-engine/report"
	"github.com/workx/transition-engine/severance"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine       *severance.Engine
	Calculations *severance.Calculations
	Exporter     report.Exporter
	Branding     report.Branding
	Auditor      *DriftAuditor
}

// NewHandler creates a handler. The exporter is wrapped in report.Checked.
func NewHandler(engine *severance.Engine, store severance.Store, exporter report.Exporter, branding report.Branding) *Handler {
	calcs := severance.NewCalculations(engine, store)
	return &Handler{
		Engine:       engine,
		Calculations: calcs,
		Exporter:     report.Checked(exporter),
		Branding:     branding,
		Auditor:      NewDriftAuditor(calcs),
	}
}

// =============================================================================
// EVALUATION HANDLERS
// =============================================================================

// Evaluate computes a result without saving.
// POST /api/evaluate
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req InputsRequest
	if !decode(w, r, &req) {
		return
	}

	period, inputs, err := req.toDomain()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	inputs, err = severance.Validate(period, inputs)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	result, err := h.Engine.Evaluate(period, inputs)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, EvaluationDTO{
		Inputs: toInputsDTO(period, inputs),
		Result: toResultDTO(result),
	})
}

// ListCaps returns the statutory cap table.
// GET /api/caps
func (h *Handler) ListCaps(w http.ResponseWriter, r *http.Request) {
	dto := CapTableDTO{Caps: []CapDTO{}}
	for _, e := range h.Engine.Caps().Entries() {
		dto.Caps = append(dto.Caps, CapDTO{Year: e.Year, Amount: severance.FormatMoney(e.Amount)})
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// CALCULATION HANDLERS
// =============================================================================

// SaveCalculation evaluates and stores a new calculation.
// POST /api/calculations
func (h *Handler) SaveCalculation(w http.ResponseWriter, r *http.Request) {
	var req SaveCalculationRequest
	if !decode(w, r, &req) {
		return
	}

	period, inputs, err := req.toDomain()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	saved, err := h.Calculations.Save(r.Context(), severance.Draft{
		Party:  severance.Party{EmployerName: req.EmployerName, EmployeeName: req.EmployeeName},
		Period: period,
		Inputs: inputs,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toCalculationDTO(saved))
}

// UpdateCalculation replaces the inputs of a saved calculation.
// PATCH /api/calculations/{id}
func (h *Handler) UpdateCalculation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateCalculationRequest
	if !decode(w, r, &req) {
		return
	}

	period, inputs, err := req.toDomain()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	saved, err := h.Calculations.Update(r.Context(), id, severance.UpdateDraft{
		Party:  severance.Party{EmployerName: req.EmployerName, EmployeeName: req.EmployeeName},
		Period: period,
		Inputs: inputs,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCalculationDTO(saved))
}

// ListCalculations returns saved calculations, newest first.
// GET /api/calculations?employee=<substring>
func (h *Handler) ListCalculations(w http.ResponseWriter, r *http.Request) {
	list, err := h.Calculations.List(r.Context(), r.URL.Query().Get("employee"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]CalculationDTO, len(list))
	for i, c := range list {
		dtos[i] = toCalculationDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCalculation returns one saved calculation.
// GET /api/calculations/{id}
func (h *Handler) GetCalculation(w http.ResponseWriter, r *http.Request) {
	saved, err := h.Calculations.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCalculationDTO(saved))
}

// DeleteCalculation removes a saved calculation. Repeating it succeeds.
// DELETE /api/calculations/{id}
func (h *Handler) DeleteCalculation(w http.ResponseWriter, r *http.Request) {
	if err := h.Calculations.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// EXPORT HANDLERS
// =============================================================================

// ExportCalculation streams the PDF of a saved calculation.
// GET /api/calculations/{id}/export
func (h *Handler) ExportCalculation(w http.ResponseWriter, r *http.Request) {
	saved, err := h.Calculations.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.writeDocument(w, r, report.FromSaved(saved, h.Branding), "transitievergoeding-"+saved.ID+".pdf")
}

// ExportEvaluation streams the PDF of an unsaved evaluation.
// POST /api/export
func (h *Handler) ExportEvaluation(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if !decode(w, r, &req) {
		return
	}

	period, inputs, err := req.toDomain()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	inputs, err = severance.Validate(period, inputs)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	result, err := h.Engine.Evaluate(period, inputs)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.writeDocument(w, r, report.Document{
		Party:    severance.Party{EmployerName: req.EmployerName, EmployeeName: req.EmployeeName},
		Period:   period,
		Inputs:   inputs,
		Result:   result,
		Branding: h.Branding,
	}, "transitievergoeding.pdf")
}

func (h *Handler) writeDocument(w http.ResponseWriter, r *http.Request, doc report.Document, filename string) {
	data, err := h.Exporter.Export(r.Context(), doc)
	if err != nil {
		log.Printf("[Export] %s: %v", filename, err)
		writeError(w, http.StatusBadGateway, "Failed to export calculation", "export_failed", err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Printf("[Export] %s: write response: %v", filename, err)
	}
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// RunAudit re-evaluates every saved calculation now.
// POST /api/admin/audit
func (h *Handler) RunAudit(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Auditor.RunOnce(r.Context()))
}

// GetAudit returns the last audit report, or null before the first run.
// GET /api/admin/audit
func (h *Handler) GetAudit(w http.ResponseWriter, r *http.Request) {
	last, ok := h.Auditor.Last()
	if !ok {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, last)
}

// =============================================================================
// HELPERS
// =============================================================================

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "invalid_body", err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message, code string, err error) {
	resp := ErrorResponse{Error: message, Code: code}
	if err != nil {
		resp.Details = err.Error()
	}
	var verr *severance.ValidationError
	if errors.As(err, &verr) {
		resp.Fields = verr.Fields
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps the severance error taxonomy onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, severance.ErrMissingRequiredField):
		writeError(w, http.StatusBadRequest, "Missing required fields", "missing_required_field", err)
	case errors.Is(err, severance.ErrInvalidPeriod):
		writeError(w, http.StatusBadRequest, "End date is before start date", "invalid_period", err)
	case errors.Is(err, severance.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "Invalid input", "invalid_input", err)
	case errors.Is(err, severance.ErrDivisionByZeroTenure):
		writeError(w, http.StatusBadRequest, "Tenure too short to average bonuses", "division_by_zero_tenure", err)
	case errors.Is(err, severance.ErrUnknownCapYear):
		writeError(w, http.StatusUnprocessableEntity, "No statutory cap configured for the termination year", "unknown_cap_year", err)
	case severance.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Calculation not found", "not_found", err)
	default:
		log.Printf("[API] internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal error", "internal", err)
	}
}
