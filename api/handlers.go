/*
handlers.go - HTTP API handlers for the payroll settlement engine

PURPOSE:
  Exposes the settlement engine via REST API. Handles HTTP
  request/response, JSON serialization, input-shape validation, and
  delegates to the engine and the store.

ENDPOINTS:
  Calculators (pure, nothing stored):
    POST   /api/calc/legal-deductions     Legal deductions on a nominal
    POST   /api/calc/tax                  Progressive tax on a taxable base
    POST   /api/calc/gross-from-net       Nominal that yields a net
    POST   /api/settlements/preview       Full settlement of inline inputs

  Employees:
    GET    /api/employees                 Employees with a profile
    PUT    /api/employees/{id}/profile    Create or replace profile
    GET    /api/employees/{id}/profile    Get profile

  Events:
    POST   /api/employees/{id}/events     Record a monthly event
    GET    /api/employees/{id}/events     Events of ?month=&year=
    DELETE /api/events/{id}               Remove an event

  Settlements:
    POST   /api/employees/{id}/settlements  Settle a stored month
    GET    /api/employees/{id}/settlements  Settlement history
    GET    /api/settlements/{id}            One settlement

  Runs:
    POST   /api/runs                      Batch-settle all employees
    GET    /api/runs                      Run history

  Rates:
    GET    /api/rates                     Active rate tables

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Database access
  - Engine: Rate tables and solver constants in force
  - Settler: Shared with the scheduler for stored settlements

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Month already settled
  - 500: Internal errors

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - settler.go: Stored and batch settlement
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/store"
	"go.uber.org/zap"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   store.Store
	Engine  payroll.Engine
	Settler *Settler
	Logger  *zap.Logger

	validate *validator.Validate

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler with the given store and engine.
func NewHandler(s store.Store, engine payroll.Engine, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Store:    s,
		Engine:   engine,
		Settler:  NewSettler(s, engine, logger),
		Logger:   logger,
		validate: newValidator(),
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// =============================================================================
// CALCULATOR HANDLERS
// =============================================================================

// CalcLegalDeductions returns the four statutory withholdings on a nominal.
func (h *Handler) CalcLegalDeductions(w http.ResponseWriter, r *http.Request) {
	var req LegalDeductionsRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Nominal.IsNegative() {
		writeError(w, http.StatusBadRequest, "Invalid request", errors.New("nominal must not be negative"))
		return
	}
	writeJSON(w, http.StatusOK, factory.LegalDeductionsToJSON(h.Engine.Rates.Compute(*req.Nominal)))
}

// CalcTax returns the progressive income tax on a taxable base.
func (h *Handler) CalcTax(w http.ResponseWriter, r *http.Request) {
	var req TaxRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.TaxableBase.IsNegative() {
		writeError(w, http.StatusBadRequest, "Invalid request", errors.New("taxable_base must not be negative"))
		return
	}
	writeJSON(w, http.StatusOK, TaxResponse{
		TaxableBase:     *req.TaxableBase,
		Tax:             h.Engine.Schedule.Compute(*req.TaxableBase),
		ExemptThreshold: h.Engine.Schedule.ExemptThreshold(),
	})
}

// CalcGrossFromNet solves the nominal that nets to target_net.
func (h *Handler) CalcGrossFromNet(w http.ResponseWriter, r *http.Request) {
	var req GrossFromNetRequest
	if !h.decode(w, r, &req) {
		return
	}
	sr := h.Engine.SolveGrossFromNet(*req.TargetNet)
	writeJSON(w, http.StatusOK, GrossFromNetResponse{
		TargetNet: *req.TargetNet,
		Solver: factory.SolverJSON{
			Nominal:    sr.Nominal,
			Iterations: sr.Iterations,
			Converged:  sr.Converged,
			Residual:   sr.Residual,
		},
	})
}

// PreviewSettlement settles inline inputs without storing anything.
func (h *Handler) PreviewSettlement(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if !h.decode(w, r, &req) {
		return
	}

	profile, err := factory.ProfileFromJSON(req.Profile)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid profile", err)
		return
	}
	events, err := factory.EventsFromJSON(req.Events)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid events", err)
		return
	}
	month := time.Month(req.Month)
	if inMonth := factory.EventsInMonth(events, month, req.Year); len(inMonth) != len(events) {
		writeError(w, http.StatusBadRequest, "Invalid events",
			fmt.Errorf("%d event(s) dated outside %d-%02d", len(events)-len(inMonth), req.Year, req.Month))
		return
	}
	opts, err := parseOptions(req.OptionsDTO)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	result := h.Engine.SettlePayroll(profile, events, month, req.Year, opts)
	writeJSON(w, http.StatusOK, SettlementDTO{
		Month:   req.Month,
		Year:    req.Year,
		Options: req.OptionsDTO,
		Result:  factory.ResultToJSON(result),
	})
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees with a compensation profile.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.Store.ListProfiles(r.Context())
	if err != nil {
		h.writeStoreError(w, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(profiles))
	for i, p := range profiles {
		dtos[i] = EmployeeDTO{ID: p.EmployeeID, Profile: factory.ProfileToJSON(p.Profile), UpdatedAt: p.UpdatedAt}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// PutProfile creates or replaces an employee's compensation profile.
func (h *Handler) PutProfile(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "id")

	var pj factory.ProfileJSON
	if err := json.NewDecoder(r.Body).Decode(&pj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return
	}
	profile, err := factory.ProfileFromJSON(pj)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid profile", err)
		return
	}

	rec := store.ProfileRecord{EmployeeID: employeeID, Profile: profile, UpdatedAt: time.Now().UTC()}
	if err := h.Store.SaveProfile(r.Context(), rec); err != nil {
		h.writeStoreError(w, "Failed to save profile", err)
		return
	}
	writeJSON(w, http.StatusOK, EmployeeDTO{ID: employeeID, Profile: factory.ProfileToJSON(profile), UpdatedAt: rec.UpdatedAt})
}

// GetProfile returns an employee's compensation profile.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "id")

	rec, err := h.Store.GetProfile(r.Context(), employeeID)
	if err != nil {
		h.writeStoreError(w, "Profile not found", err)
		return
	}
	writeJSON(w, http.StatusOK, EmployeeDTO{ID: rec.EmployeeID, Profile: factory.ProfileToJSON(rec.Profile), UpdatedAt: rec.UpdatedAt})
}

// =============================================================================
// EVENT HANDLERS
// =============================================================================

// CreateEvent records one monthly event for an employee.
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "id")

	var ej factory.EventJSON
	if err := json.NewDecoder(r.Body).Decode(&ej); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return
	}
	ev, err := factory.EventFromJSON(ej)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid event", err)
		return
	}

	rec := store.EventRecord{
		ID:         uuid.NewString(),
		EmployeeID: employeeID,
		Event:      ev,
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.Store.AppendEvent(r.Context(), rec); err != nil {
		h.writeStoreError(w, "Failed to save event", err)
		return
	}
	writeJSON(w, http.StatusCreated, eventToDTO(rec))
}

// ListEvents returns an employee's events for ?month=&year=.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "id")

	month, year, err := parsePeriodQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period", err)
		return
	}

	records, err := h.Store.ListEvents(r.Context(), employeeID, month, year)
	if err != nil {
		h.writeStoreError(w, "Failed to list events", err)
		return
	}
	dtos := make([]EventDTO, len(records))
	for i, rec := range records {
		dtos[i] = eventToDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// DeleteEvent removes an event. Settlements already stored are unchanged.
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.Store.DeleteEvent(r.Context(), id); err != nil {
		h.writeStoreError(w, "Event not found", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// SETTLEMENT HANDLERS
// =============================================================================

// CreateSettlement settles a stored employee for one month and stores it.
func (h *Handler) CreateSettlement(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "id")

	var req SettleRequest
	if !h.decode(w, r, &req) {
		return
	}
	opts, err := parseOptions(req.OptionsDTO)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	rec, err := h.Settler.Settle(r.Context(), employeeID, time.Month(req.Month), req.Year, opts, req.Replace)
	if err != nil {
		h.writeStoreError(w, "Failed to settle", err)
		return
	}
	writeJSON(w, http.StatusCreated, settlementToDTO(rec))
}

// ListSettlements returns an employee's settlements, newest first.
func (h *Handler) ListSettlements(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "id")

	records, err := h.Store.ListSettlements(r.Context(), employeeID)
	if err != nil {
		h.writeStoreError(w, "Failed to list settlements", err)
		return
	}
	dtos := make([]SettlementDTO, len(records))
	for i, rec := range records {
		dtos[i] = settlementToDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetSettlement returns one stored settlement.
func (h *Handler) GetSettlement(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Store.GetSettlement(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeStoreError(w, "Settlement not found", err)
		return
	}
	writeJSON(w, http.StatusOK, settlementToDTO(rec))
}

// =============================================================================
// RUN HANDLERS
// =============================================================================

// CreateRun batch-settles every employee for a month.
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if !h.decode(w, r, &req) {
		return
	}

	run, err := h.Settler.RunBatch(r.Context(), time.Month(req.Month), req.Year, "api")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Batch run failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, runToDTO(run))
}

// ListRuns returns batch run history.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Store.ListRuns(r.Context())
	if err != nil {
		h.writeStoreError(w, "Failed to list runs", err)
		return
	}
	dtos := make([]RunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = runToDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetRates returns the rate tables and solver constants in force.
func (h *Handler) GetRates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, factory.RatesFromEngine(h.Engine))
}

// =============================================================================
// HELPERS
// =============================================================================

// decode reads and validates a JSON body, writing a 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", validationError(err))
		return false
	}
	return true
}

func validationError(err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return err
	}
	e := errs[0]
	switch e.Tag() {
	case "required":
		return fmt.Errorf("%s is required", e.Field())
	case "min":
		return fmt.Errorf("%s must be at least %s", e.Field(), e.Param())
	case "max":
		return fmt.Errorf("%s must be at most %s", e.Field(), e.Param())
	default:
		return fmt.Errorf("%s is invalid", e.Field())
	}
}

func parseOptions(o OptionsDTO) (payroll.Options, error) {
	if o.AdvanceTax != nil && o.AdvanceTax.IsNegative() {
		return payroll.Options{}, errors.New("advance_tax must not be negative")
	}
	return o.toOptions(), nil
}

func parsePeriodQuery(r *http.Request) (time.Month, int, error) {
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil || month < 1 || month > 12 {
		return 0, 0, errors.New("month must be 1-12")
	}
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year < 1900 || year > 9999 {
		return 0, 0, errors.New("year must be 1900-9999")
	}
	return time.Month(month), year, nil
}

// writeStoreError maps store and validation errors to a status code.
func (h *Handler) writeStoreError(w http.ResponseWriter, message string, err error) {
	switch {
	case factory.IsValidationError(err):
		writeError(w, http.StatusBadRequest, message, err)
	case store.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, store.ErrDuplicateSettlement):
		writeError(w, http.StatusConflict, message, err)
	default:
		h.Logger.Error(message, zap.Error(err))
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
