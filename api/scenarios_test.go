package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListScenarios(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/api/scenarios", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decodeBody[[]ScenarioDTO](t, rec)
	require.Len(t, got, len(scenarios))
	for _, s := range got {
		assert.NotEmpty(t, scenarioEmployees[s.ID], "scenario %s has no employees", s.ID)
	}
}

func TestLoadScenario_EveryScenarioLoads(t *testing.T) {
	router, _ := newTestRouter(t)

	// February exercises the shortest month
	for _, s := range scenarios {
		t.Run(s.ID, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/api/scenarios/load", `{"scenario_id": "`+s.ID+`", "month": 2, "year": 2025}`)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			got := decodeBody[LoadScenarioResponse](t, rec)
			assert.Equal(t, s.ID, got.Scenario.ID)
			assert.Len(t, got.Employees, len(scenarioEmployees[s.ID]))
			assert.Equal(t, 2, got.Month)
			assert.Equal(t, 2025, got.Year)
		})
	}
}

func TestLoadScenario_ThenSettle(t *testing.T) {
	// GIVEN: The absences-overtime scenario loaded for June
	// WHEN: Settling its employee
	// THEN: Events are dated in June and reach the settlement

	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/scenarios/load", `{"scenario_id": "absences-overtime", "month": 6, "year": 2025}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/api/employees/emp-overtime/events?month=6&year=2025", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]EventDTO](t, rec), 5)

	rec = do(t, router, http.MethodPost, "/api/employees/emp-overtime/settlements", `{"month": 6, "year": 2025}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	got := decodeBody[SettlementDTO](t, rec)
	assertDecimal(t, "2", got.Result.AbsenceDays)
	assertDecimal(t, "9", got.Result.OvertimeHours)
	// 4h at 450, 2h at 500, plus a fixed 1500
	assertDecimal(t, "4300", got.Result.Earnings.OvertimeAmount)

	rec = do(t, router, http.MethodGet, "/api/scenarios/current", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "absences-overtime", decodeBody[ScenarioDTO](t, rec).ID)
}

func TestLoadScenario_ReplacesPreviousData(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/scenarios/load", `{"scenario_id": "payroll-office", "month": 6, "year": 2025}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, router, http.MethodPost, "/api/scenarios/load", `{"scenario_id": "monthly-clean", "month": 6, "year": 2025}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/employees", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	employees := decodeBody[[]EmployeeDTO](t, rec)
	require.Len(t, employees, 1)
	assert.Equal(t, "emp-monthly", employees[0].ID)
}

func TestLoadScenario_Invalid(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/scenarios/load", `{"scenario_id": "nope"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/scenarios/load", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/scenarios/load", `{"scenario_id": "advances", "month": 13}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResetDatabase(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/scenarios/load", `{"scenario_id": "advances"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/scenarios/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/employees", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[[]EmployeeDTO](t, rec))

	rec = do(t, router, http.MethodGet, "/api/scenarios/current", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "null", rec.Body.String())
}
