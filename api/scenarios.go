/*
scenarios.go - Worked examples for demos and acceptance checks

PURPOSE:
  Provides reference calculations that can be saved with one call. Each
  scenario is a complete Draft whose outcome is documented, so the portal
  can show how the figures come about.

AVAILABLE SCENARIOS:

  basic:          base 3000, 72 months, no cap                -> 6480.00
  short-tenure:   base 5000, 7 months                         -> 1050.00
  cap-applied:    base 10000, 444 months, capped at yearly pay -> 129600.00
  averaged-bonus: bonuses 3600/2400/1200 over 72 months        -> 6880.00
  all-components: 13th month, fixed bonus, overtime, other     -> 16090.00

USAGE VIA API:

  POST /api/scenarios/load
  {"scenario_id": "cap-applied"}

ADDING NEW SCENARIOS:
  1. Add an entry to 'scenarios' with the Draft and the expected amount
  2. Add it to scenarios_test.go

SEE ALSO:
  - handlers.go: Calculation handlers
  - severance/engine.go: Formula
*/
package api

import (
	"net/http"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/workx/transition-engine/severance"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type scenario struct {
	ScenarioDTO
	Draft severance.Draft
}

func date(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func scenarioInputs(base string) severance.CompensationInputs {
	return severance.DefaultInputs(dec(base))
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "basic",
			Name:        "Basic",
			Description: "Base salary 3000 with 8% vacation allowance, six years of service",
			Expected:    "6480.00",
		},
		Draft: severance.Draft{
			Party:  severance.Party{EmployerName: "Voorbeeld B.V.", EmployeeName: "A. de Vries"},
			Period: severance.EmploymentPeriod{Start: date(2020, 3, 1), End: date(2026, 3, 1)},
			Inputs: scenarioInputs("3000"),
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "short-tenure",
			Name:        "Short Tenure",
			Description: "Seven months of service, compensation pro rata",
			Expected:    "1050.00",
		},
		Draft: severance.Draft{
			Party:  severance.Party{EmployerName: "Voorbeeld B.V.", EmployeeName: "B. Jansen"},
			Period: severance.EmploymentPeriod{Start: date(2025, 6, 1), End: date(2026, 1, 1)},
			Inputs: scenarioInputs("5000"),
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "cap-applied",
			Name:        "Cap Applied",
			Description: "37 years of service; capped at the yearly salary, which exceeds the 2026 cap",
			Expected:    "129600.00",
		},
		Draft: severance.Draft{
			Party:  severance.Party{EmployerName: "Voorbeeld B.V.", EmployeeName: "C. Bakker"},
			Period: severance.EmploymentPeriod{Start: date(1989, 1, 1), End: date(2026, 1, 1)},
			Inputs: scenarioInputs("10000"),
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "averaged-bonus",
			Name:        "Averaged Bonus",
			Description: "Bonuses of the last three years averaged over 36 months",
			Expected:    "6880.00",
		},
		Draft: severance.Draft{
			Party:  severance.Party{EmployerName: "Voorbeeld B.V.", EmployeeName: "D. Visser"},
			Period: severance.EmploymentPeriod{Start: date(2020, 3, 1), End: date(2026, 3, 1)},
			Inputs: func() severance.CompensationInputs {
				in := scenarioInputs("3000")
				in.Bonus = severance.AveragedBonus{Years: []severance.BonusYear{
					{Year: 2025, Total: dec("3600")},
					{Year: 2024, Total: dec("2400")},
					{Year: 2023, Total: dec("1200")},
				}}
				return in
			}(),
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "all-components",
			Name:        "All Components",
			Description: "13th month, fixed bonus, overtime and other pay on top of vacation allowance",
			Expected:    "16090.00",
		},
		Draft: severance.Draft{
			Party:  severance.Party{EmployerName: "Voorbeeld B.V.", EmployeeName: "E. Smit"},
			Period: severance.EmploymentPeriod{Start: date(2016, 1, 1), End: date(2026, 1, 1)},
			Inputs: func() severance.CompensationInputs {
				in := scenarioInputs("4000")
				in.IncludesThirteenthMonth = true
				in.Bonus = severance.FixedBonus{Monthly: dec("100")}
				in.OvertimeMonthlyAmount = dec("50")
				in.OtherMonthlyAmount = dec("25")
				in.PensionConsidered = true
				return in
			}(),
		},
	},
}

func findScenario(id string) (scenario, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return scenario{}, false
}

// ListScenarios returns the worked examples.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	dtos := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		dtos[i] = s.ScenarioDTO
	}
	writeJSON(w, http.StatusOK, dtos)
}

// LoadScenario saves a worked example as a new calculation.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decode(w, r, &req) {
		return
	}

	s, ok := findScenario(req.ScenarioID)
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown scenario", "unknown_scenario", nil)
		return
	}

	saved, err := h.Calculations.Save(r.Context(), s.Draft)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCalculationDTO(saved))
}
