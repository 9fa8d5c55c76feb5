/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Profiles, events and
  results reuse the factory JSON types so the wire format and the stored
  format are the same document.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Calculators:
    LegalDeductionsRequest, TaxRequest, TaxResponse,
    GrossFromNetRequest, GrossFromNetResponse

  Settlements:
    PreviewRequest, SettleRequest, SettlementDTO

  Employees and events:
    EmployeeDTO, EventDTO

  Runs:
    RunRequest, RunDTO

  Scenarios:
    ScenarioDTO, LoadScenarioRequest, LoadScenarioResponse

VALIDATION:
  Struct tags are checked with go-playground/validator before a handler
  runs. Profile and event shape rules live in factory, not here.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/result.go: ResultJSON
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/store"
)

// =============================================================================
// CALCULATORS
// =============================================================================

type LegalDeductionsRequest struct {
	Nominal *decimal.Decimal `json:"nominal" validate:"required"`
}

type TaxRequest struct {
	TaxableBase *decimal.Decimal `json:"taxable_base" validate:"required"`
}

type TaxResponse struct {
	TaxableBase     decimal.Decimal `json:"taxable_base"`
	Tax             decimal.Decimal `json:"tax"`
	ExemptThreshold decimal.Decimal `json:"exempt_threshold"`
}

type GrossFromNetRequest struct {
	TargetNet *decimal.Decimal `json:"target_net" validate:"required"`
}

type GrossFromNetResponse struct {
	TargetNet decimal.Decimal    `json:"target_net"`
	Solver    factory.SolverJSON `json:"solver"`
}

// =============================================================================
// SETTLEMENTS
// =============================================================================

// OptionsDTO carries the per-run tax overrides.
type OptionsDTO struct {
	AdvanceTax       *decimal.Decimal `json:"advance_tax,omitempty"`
	MonthsWithoutTax *int             `json:"months_without_tax,omitempty" validate:"omitempty,min=0"`
}

func (o OptionsDTO) toOptions() payroll.Options {
	return payroll.Options{AdvanceTax: o.AdvanceTax, MonthsWithoutTax: o.MonthsWithoutTax}
}

func optionsToDTO(o payroll.Options) OptionsDTO {
	return OptionsDTO{AdvanceTax: o.AdvanceTax, MonthsWithoutTax: o.MonthsWithoutTax}
}

// PreviewRequest settles inline inputs without storing anything.
type PreviewRequest struct {
	Profile factory.ProfileJSON `json:"profile"`
	Events  []factory.EventJSON `json:"events"`
	Month   int                 `json:"month" validate:"required,min=1,max=12"`
	Year    int                 `json:"year" validate:"required,min=1900,max=9999"`
	OptionsDTO
}

// SettleRequest settles a stored employee for one month.
type SettleRequest struct {
	Month int `json:"month" validate:"required,min=1,max=12"`
	Year  int `json:"year" validate:"required,min=1900,max=9999"`
	OptionsDTO
	// Replace overwrites an existing settlement for the month.
	Replace bool `json:"replace,omitempty"`
}

type SettlementDTO struct {
	ID         string             `json:"id,omitempty"`
	EmployeeID string             `json:"employee_id,omitempty"`
	Month      int                `json:"month"`
	Year       int                `json:"year"`
	Options    OptionsDTO         `json:"options"`
	Result     factory.ResultJSON `json:"result"`
	CreatedAt  *time.Time         `json:"created_at,omitempty"`
}

func settlementToDTO(rec store.SettlementRecord) SettlementDTO {
	created := rec.CreatedAt
	return SettlementDTO{
		ID:         rec.ID,
		EmployeeID: rec.EmployeeID,
		Month:      int(rec.Month),
		Year:       rec.Year,
		Options:    optionsToDTO(rec.Options),
		Result:     factory.ResultToJSON(rec.Result),
		CreatedAt:  &created,
	}
}

// =============================================================================
// EMPLOYEES AND EVENTS
// =============================================================================

// EmployeeDTO is an employee known by its compensation profile.
type EmployeeDTO struct {
	ID        string              `json:"id"`
	Profile   factory.ProfileJSON `json:"profile"`
	UpdatedAt time.Time           `json:"updated_at"`
}

type EventDTO struct {
	EmployeeID string `json:"employee_id"`
	factory.EventJSON
	CreatedAt time.Time `json:"created_at"`
}

func eventToDTO(rec store.EventRecord) EventDTO {
	ej := factory.EventToJSON(rec.Event)
	ej.ID = rec.ID
	return EventDTO{EmployeeID: rec.EmployeeID, EventJSON: ej, CreatedAt: rec.CreatedAt}
}

// =============================================================================
// RUNS
// =============================================================================

type RunRequest struct {
	Month int `json:"month" validate:"required,min=1,max=12"`
	Year  int `json:"year" validate:"required,min=1900,max=9999"`
}

type RunDTO struct {
	ID          string     `json:"id"`
	Month       int        `json:"month"`
	Year        int        `json:"year"`
	Trigger     string     `json:"trigger"`
	Status      string     `json:"status"`
	Settled     int        `json:"settled"`
	Skipped     int        `json:"skipped"`
	Failed      int        `json:"failed"`
	Errors      []string   `json:"errors,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func runToDTO(r store.RunRecord) RunDTO {
	return RunDTO{
		ID:          r.ID,
		Month:       int(r.Month),
		Year:        r.Year,
		Trigger:     r.Trigger,
		Status:      string(r.Status),
		Settled:     r.Settled,
		Skipped:     r.Skipped,
		Failed:      r.Failed,
		Errors:      r.Errors,
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
	}
}

// =============================================================================
// SCENARIOS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
	// Month and Year date the scenario's events; both default to the
	// current month.
	Month int `json:"month,omitempty" validate:"omitempty,min=1,max=12"`
	Year  int `json:"year,omitempty" validate:"omitempty,min=1900,max=9999"`
}

type LoadScenarioResponse struct {
	Scenario  ScenarioDTO `json:"scenario"`
	Employees []string    `json:"employees"`
	Month     int         `json:"month"`
	Year      int         `json:"year"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
