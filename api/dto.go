/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the severance domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Requests accept numbers or strings ("3000", 3000, "3000.50").
  Responses always render money as fixed two-decimal strings ("6480.00").
  Absent optional amounts fall back to the documented defaults.

TYPES:
  Inputs:       InputsRequest, BonusRequest
  Calculations: SaveCalculationRequest, UpdateCalculationRequest,
                CalculationDTO, ResultDTO
  Caps:         CapTableDTO
  Scenarios:    ScenarioDTO, LoadScenarioRequest

VALIDATION:
  DTOs only parse. Domain validation happens in severance.Validate, so
  a missing field is reported by the engine, not by JSON decoding.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/workx/transition-engine/severance"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// InputsRequest carries the period and the remuneration inputs.
type InputsRequest struct {
	StartDate                string              `json:"start_date"`
	EndDate                  string              `json:"end_date"`
	MonthlyBaseSalary        decimal.NullDecimal `json:"monthly_base_salary"`
	VacationAllowancePercent decimal.NullDecimal `json:"vacation_allowance_percent"`
	IncludesThirteenthMonth  bool                `json:"includes_thirteenth_month"`
	ThirteenthMonthPercent   decimal.NullDecimal `json:"thirteenth_month_percent"`
	Bonus                    BonusRequest        `json:"bonus"`
	OvertimeMonthlyAmount    decimal.NullDecimal `json:"overtime_monthly_amount"`
	OtherMonthlyAmount       decimal.NullDecimal `json:"other_monthly_amount"`
	PensionConsidered        bool                `json:"pension_considered"`
}

// BonusRequest selects the bonus variant. Only the fields of Mode are read.
type BonusRequest struct {
	Mode               string              `json:"mode"` // none, fixed, averaged
	FixedMonthlyAmount decimal.NullDecimal `json:"fixed_monthly_amount,omitempty"`
	Years              []BonusYearDTO      `json:"years,omitempty"`
}

// BonusYearDTO is one yearly bonus total. Year may be omitted.
type BonusYearDTO struct {
	Year  int             `json:"year,omitempty"`
	Total decimal.Decimal `json:"total"`
}

// SaveCalculationRequest is the body of POST /api/calculations.
type SaveCalculationRequest struct {
	EmployerName string `json:"employer_name"`
	EmployeeName string `json:"employee_name"`
	InputsRequest
}

// UpdateCalculationRequest is the body of PATCH /api/calculations/{id}.
// Inputs are fully replaced; blank names keep the stored names.
type UpdateCalculationRequest struct {
	EmployerName string `json:"employer_name,omitempty"`
	EmployeeName string `json:"employee_name,omitempty"`
	InputsRequest
}

// ExportRequest is the body of POST /api/export for unsaved evaluations.
type ExportRequest struct {
	EmployerName string `json:"employer_name,omitempty"`
	EmployeeName string `json:"employee_name,omitempty"`
	InputsRequest
}

// toDomain converts the request. Date strings that are present must parse;
// absent ones are left zero for the engine to report as missing.
func (r InputsRequest) toDomain() (severance.EmploymentPeriod, severance.CompensationInputs, error) {
	var period severance.EmploymentPeriod
	var err error
	if period.Start, err = parseDate("start_date", r.StartDate); err != nil {
		return period, severance.CompensationInputs{}, err
	}
	if period.End, err = parseDate("end_date", r.EndDate); err != nil {
		return period, severance.CompensationInputs{}, err
	}

	in := severance.CompensationInputs{
		MonthlyBaseSalary:        r.MonthlyBaseSalary,
		VacationAllowancePercent: orDefault(r.VacationAllowancePercent, severance.DefaultVacationAllowancePercent),
		IncludesThirteenthMonth:  r.IncludesThirteenthMonth,
		ThirteenthMonthPercent:   orDefault(r.ThirteenthMonthPercent, severance.DefaultThirteenthMonthPercent),
		OvertimeMonthlyAmount:    orDefault(r.OvertimeMonthlyAmount, decimal.Zero),
		OtherMonthlyAmount:       orDefault(r.OtherMonthlyAmount, decimal.Zero),
		PensionConsidered:        r.PensionConsidered,
	}

	mode, ok := severance.ParseBonusMode(strings.ToLower(strings.TrimSpace(r.Bonus.Mode)))
	if !ok {
		return period, in, &severance.ValidationError{
			Kind:   severance.ErrInvalidInput,
			Fields: []string{"bonus.mode"},
			Reason: fmt.Sprintf("unknown bonus mode %q", r.Bonus.Mode),
		}
	}
	switch mode {
	case severance.BonusNone:
		in.Bonus = severance.NoBonus{}
	case severance.BonusFixed:
		if !r.Bonus.FixedMonthlyAmount.Valid {
			return period, in, &severance.ValidationError{
				Kind:   severance.ErrMissingRequiredField,
				Fields: []string{"bonus.fixed_monthly_amount"},
			}
		}
		in.Bonus = severance.FixedBonus{Monthly: r.Bonus.FixedMonthlyAmount.Decimal}
	case severance.BonusAveraged:
		b := severance.AveragedBonus{Years: make([]severance.BonusYear, len(r.Bonus.Years))}
		for i, y := range r.Bonus.Years {
			b.Years[i] = severance.BonusYear{Year: y.Year, Total: y.Total}
		}
		in.Bonus = b
	}
	return period, in, nil
}

func parseDate(field, s string) (civil.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return civil.Date{}, nil
	}
	d, err := civil.ParseDate(s)
	if err != nil {
		return civil.Date{}, &severance.ValidationError{
			Kind:   severance.ErrInvalidInput,
			Fields: []string{field},
			Reason: "use YYYY-MM-DD",
		}
	}
	return d, nil
}

func orDefault(v decimal.NullDecimal, fallback decimal.Decimal) decimal.Decimal {
	if v.Valid {
		return v.Decimal
	}
	return fallback
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// InputsDTO echoes the stored inputs.
type InputsDTO struct {
	StartDate                string   `json:"start_date"`
	EndDate                  string   `json:"end_date"`
	MonthlyBaseSalary        string   `json:"monthly_base_salary"`
	VacationAllowancePercent string   `json:"vacation_allowance_percent"`
	IncludesThirteenthMonth  bool     `json:"includes_thirteenth_month"`
	ThirteenthMonthPercent   string   `json:"thirteenth_month_percent"`
	Bonus                    BonusDTO `json:"bonus"`
	OvertimeMonthlyAmount    string   `json:"overtime_monthly_amount"`
	OtherMonthlyAmount       string   `json:"other_monthly_amount"`
	PensionConsidered        bool     `json:"pension_considered"`
}

// BonusDTO echoes the bonus variant.
type BonusDTO struct {
	Mode               string            `json:"mode"`
	FixedMonthlyAmount string            `json:"fixed_monthly_amount,omitempty"`
	Years              []BonusYearOutDTO `json:"years,omitempty"`
}

// BonusYearOutDTO is one yearly bonus total in responses.
type BonusYearOutDTO struct {
	Year  int    `json:"year"`
	Total string `json:"total"`
}

// ResultDTO is the derived calculation result.
type ResultDTO struct {
	TenureYears            int     `json:"tenure_years"`
	TenureMonths           int     `json:"tenure_months"`
	TenureTotalMonths      int     `json:"tenure_total_months"`
	VacationAllowance      string  `json:"vacation_allowance"`
	ThirteenthMonth        string  `json:"thirteenth_month"`
	BonusMonthly           string  `json:"bonus_monthly"`
	TotalMonthlySalary     string  `json:"total_monthly_salary"`
	YearlySalary           string  `json:"yearly_salary"`
	RawAmount              string  `json:"raw_amount"`
	CappedAmount           string  `json:"capped_amount"`
	CapApplied             bool    `json:"cap_applied"`
	CapYear                int     `json:"cap_year"`
	StatutoryCap           string  `json:"statutory_cap"`
	CapValueUsed           string  `json:"cap_value_used"`
	BonusMonthlyEquivalent *string `json:"bonus_monthly_equivalent,omitempty"`
}

// EvaluationDTO is the response of POST /api/evaluate.
type EvaluationDTO struct {
	Inputs InputsDTO `json:"inputs"`
	Result ResultDTO `json:"result"`
}

// CalculationDTO is a saved calculation.
type CalculationDTO struct {
	ID           string    `json:"id"`
	EmployerName string    `json:"employer_name"`
	EmployeeName string    `json:"employee_name"`
	Inputs       InputsDTO `json:"inputs"`
	Result       ResultDTO `json:"result"`
	CreatedAt    string    `json:"created_at"`
	UpdatedAt    string    `json:"updated_at"`
}

// CapTableDTO lists the statutory caps.
type CapTableDTO struct {
	Caps []CapDTO `json:"caps"`
}

// CapDTO is one configured year.
type CapDTO struct {
	Year   int    `json:"year"`
	Amount string `json:"amount"`
}

// ScenarioDTO describes a worked example.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Expected    string `json:"expected"`
}

// LoadScenarioRequest is the request to save a worked example.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Code    string   `json:"code,omitempty"`
	Details string   `json:"details,omitempty"`
	Fields  []string `json:"fields,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toInputsDTO(p severance.EmploymentPeriod, in severance.CompensationInputs) InputsDTO {
	dto := InputsDTO{
		StartDate:                p.Start.String(),
		EndDate:                  p.End.String(),
		MonthlyBaseSalary:        severance.FormatMoney(in.MonthlyBaseSalary.Decimal),
		VacationAllowancePercent: in.VacationAllowancePercent.String(),
		IncludesThirteenthMonth:  in.IncludesThirteenthMonth,
		ThirteenthMonthPercent:   in.ThirteenthMonthPercent.String(),
		Bonus:                    BonusDTO{Mode: string(severance.BonusNone)},
		OvertimeMonthlyAmount:    severance.FormatMoney(in.OvertimeMonthlyAmount),
		OtherMonthlyAmount:       severance.FormatMoney(in.OtherMonthlyAmount),
		PensionConsidered:        in.PensionConsidered,
	}
	switch b := in.Bonus.(type) {
	case severance.FixedBonus:
		dto.Bonus = BonusDTO{Mode: string(severance.BonusFixed), FixedMonthlyAmount: severance.FormatMoney(b.Monthly)}
	case severance.AveragedBonus:
		dto.Bonus = BonusDTO{Mode: string(severance.BonusAveraged)}
		for _, y := range b.Years {
			dto.Bonus.Years = append(dto.Bonus.Years, BonusYearOutDTO{Year: y.Year, Total: severance.FormatMoney(y.Total)})
		}
	}
	return dto
}

func toResultDTO(r severance.Result) ResultDTO {
	dto := ResultDTO{
		TenureYears:        r.TenureYears,
		TenureMonths:       r.TenureMonths,
		TenureTotalMonths:  r.TenureTotalMonths,
		VacationAllowance:  severance.FormatMoney(r.VacationAllowance),
		ThirteenthMonth:    severance.FormatMoney(r.ThirteenthMonth),
		BonusMonthly:       severance.FormatMoney(r.BonusMonthly),
		TotalMonthlySalary: severance.FormatMoney(r.TotalMonthlySalary),
		YearlySalary:       severance.FormatMoney(r.YearlySalary),
		RawAmount:          severance.FormatMoney(r.RawAmount),
		CappedAmount:       severance.FormatMoney(r.CappedAmount),
		CapApplied:         r.CapApplied,
		CapYear:            r.CapYear,
		StatutoryCap:       severance.FormatMoney(r.StatutoryCap),
		CapValueUsed:       severance.FormatMoney(r.CapValueUsed),
	}
	if r.BonusMonthlyEquivalent.Valid {
		s := severance.FormatMoney(r.BonusMonthlyEquivalent.Decimal)
		dto.BonusMonthlyEquivalent = &s
	}
	return dto
}

func toCalculationDTO(c severance.SavedCalculation) CalculationDTO {
	return CalculationDTO{
		ID:           c.ID,
		EmployerName: c.Party.EmployerName,
		EmployeeName: c.Party.EmployeeName,
		Inputs:       toInputsDTO(c.Period, c.Inputs),
		Result:       toResultDTO(c.Result),
		CreatedAt:    c.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    c.UpdatedAt.Format(time.RFC3339),
	}
}
