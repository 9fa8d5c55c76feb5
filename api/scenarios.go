/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	payroll inputs. Each scenario stores compensation profiles and one
	month of events that exercise a specific part of the settlement.

AVAILABLE SCENARIOS:

	monthly-clean:     Monthly employee, no events
	absences-overtime: Absences and overtime in both pricing modes
	daily-meal:        Daily-rate employee with meal subsidy
	advances:          Cash and consumption advances, manual deduction
	top-bracket:       High earner taxed in every bracket
	payroll-office:    All of the above as one team, for batch runs

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Store profiles
 3. Store events dated in the requested month

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "absences-overtime", "month": 6, "year": 2025}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Add its employees to scenarioEmployees

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Settlement endpoints to run against loaded data
  - factory/profile.go: Profile and event JSON
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/store"
	"go.uber.org/zap"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "monthly-clean",
		Name:        "Monthly Employee",
		Description: "Pactated net of 50,000 with no events; shows the rounding remainder",
		Category:    "basics",
	},
	{
		ID:          "absences-overtime",
		Name:        "Absences & Overtime",
		Description: "Two absence days, priced overtime hours and a fixed overtime amount",
		Category:    "earnings",
	},
	{
		ID:          "daily-meal",
		Name:        "Daily Rate + Meal Subsidy",
		Description: "Daily-rate worker with meal tickets reduced by an absence",
		Category:    "earnings",
	},
	{
		ID:          "advances",
		Name:        "Advances & Deductions",
		Description: "Cash and consumption advances, and a manual deduction",
		Category:    "deductions",
	},
	{
		ID:          "top-bracket",
		Name:        "Top Bracket",
		Description: "Net of 400,000 taxed across all four brackets",
		Category:    "tax",
	},
	{
		ID:          "payroll-office",
		Name:        "Payroll Office",
		Description: "Every employee above, ready for a batch run",
		Category:    "batch",
	},
}

// scenarioEmployee is one employee's profile and events. Event dates are
// day-of-month only; the month comes from the load request.
type scenarioEmployee struct {
	ID      string
	Profile string
	Events  []scenarioEvent
}

type scenarioEvent struct {
	Day  int
	JSON string // EventJSON without the date
}

var scenarioEmployees = map[string][]scenarioEmployee{
	"monthly-clean": {
		{ID: "emp-monthly", Profile: `{"type": "monthly", "pactated_monthly_net": "50000"}`},
	},
	"absences-overtime": {
		{
			ID:      "emp-overtime",
			Profile: `{"type": "monthly", "pactated_monthly_net": "80000", "normal_hour_rate": "300", "overtime_hour_rate": "450"}`,
			Events: []scenarioEvent{
				{Day: 3, JSON: `{"type": "absence", "days": 1}`},
				{Day: 4, JSON: `{"type": "absence", "days": 1}`},
				{Day: 12, JSON: `{"type": "overtime", "hours": 4}`},
				{Day: 13, JSON: `{"type": "overtime", "hours": 2, "unit_price": "500"}`},
				{Day: 20, JSON: `{"type": "overtime", "hours": 3, "amount": "1500"}`},
			},
		},
	},
	"daily-meal": {
		{
			ID:      "emp-daily",
			Profile: `{"type": "daily_rate", "daily_rate": "2000", "meal_subsidy_enabled": true, "daily_meal_allowance": "100"}`,
			Events: []scenarioEvent{
				{Day: 9, JSON: `{"type": "absence", "days": 1}`},
			},
		},
	},
	"advances": {
		{
			ID:      "emp-advances",
			Profile: `{"type": "monthly", "pactated_monthly_net": "60000"}`,
			Events: []scenarioEvent{
				{Day: 5, JSON: `{"type": "cash_advance", "amount": "5000"}`},
				{Day: 15, JSON: `{"type": "consumption_advance", "amount": "1200"}`},
				{Day: 25, JSON: `{"type": "manual_deduction", "amount": "300"}`},
			},
		},
	},
	"top-bracket": {
		{ID: "emp-executive", Profile: `{"type": "monthly", "pactated_monthly_net": "400000"}`},
	},
}

func init() {
	var office []scenarioEmployee
	for _, id := range []string{"monthly-clean", "absences-overtime", "daily-meal", "advances", "top-bracket"} {
		office = append(office, scenarioEmployees[id]...)
	}
	scenarioEmployees["payroll-office"] = office
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the database and loads a scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !h.decode(w, r, &req) {
		return
	}

	scenario, ok := findScenario(req.ScenarioID)
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown scenario", fmt.Errorf("scenario %q", req.ScenarioID))
		return
	}

	now := time.Now().UTC()
	month, year := now.Month(), now.Year()
	if req.Month != 0 {
		month = time.Month(req.Month)
	}
	if req.Year != 0 {
		year = req.Year
	}

	ids, err := h.loadScenario(r.Context(), scenario.ID, month, year)
	if err != nil {
		h.Logger.Error("failed to load scenario", zap.String("scenario_id", scenario.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.mu.Lock()
	h.currentScenario = scenario.ID
	h.mu.Unlock()

	h.Logger.Info("scenario loaded", zap.String("scenario_id", scenario.ID), zap.Strings("employees", ids))
	writeJSON(w, http.StatusOK, LoadScenarioResponse{
		Scenario:  scenario,
		Employees: ids,
		Month:     int(month),
		Year:      year,
	})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func findScenario(id string) (ScenarioDTO, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return ScenarioDTO{}, false
}

func (h *Handler) loadScenario(ctx context.Context, id string, month time.Month, year int) ([]string, error) {
	if err := h.Store.Reset(ctx); err != nil {
		return nil, fmt.Errorf("failed to reset: %w", err)
	}

	lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	var ids []string
	for _, emp := range scenarioEmployees[id] {
		profile, err := factory.ParseProfile(emp.Profile)
		if err != nil {
			return nil, fmt.Errorf("%s profile: %w", emp.ID, err)
		}
		if err := h.Store.SaveProfile(ctx, store.ProfileRecord{EmployeeID: emp.ID, Profile: profile}); err != nil {
			return nil, err
		}

		for _, se := range emp.Events {
			ev, err := scenarioEventFor(se, month, year, lastDay)
			if err != nil {
				return nil, fmt.Errorf("%s event: %w", emp.ID, err)
			}
			rec := store.EventRecord{ID: uuid.NewString(), EmployeeID: emp.ID, Event: ev}
			if err := h.Store.AppendEvent(ctx, rec); err != nil {
				return nil, err
			}
		}
		ids = append(ids, emp.ID)
	}
	return ids, nil
}

func scenarioEventFor(se scenarioEvent, month time.Month, year, lastDay int) (payroll.Event, error) {
	var ej factory.EventJSON
	if err := json.Unmarshal([]byte(se.JSON), &ej); err != nil {
		return nil, err
	}
	day := se.Day
	if day > lastDay {
		day = lastDay
	}
	ej.Date = time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Format(factory.DateLayout)
	return factory.EventFromJSON(ej)
}
