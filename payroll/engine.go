/*
engine.go - The settlement pipeline

PURPOSE:
  Orchestrates one settlement run for one employee and one month.

STAGES (straight line, no stage is re-entered):
  determine_pactated_net    monthly net, or daily rate x days in month
  solve_nominal             gross that reproduces the pactated net
  apply_absences            absence deduction -> base salary
  apply_overtime            explicit amounts win over hours x price
  apply_meal_subsidy        (days - absence days) x daily allowance
  recompute_legal_and_tax   on base salary + overtime (not meal subsidy)
  apply_general_deductions  advances and manual deductions
  finalize_and_round        net rounded to a whole unit

TWO PASSES:
  Legal deductions and tax are computed inside the solver against the
  nominal, and again against what was actually earned this month. The
  second pass is authoritative for the result; the first only seeds the
  nominal. Both passes are kept.

CONCURRENCY:
  An Engine is an immutable value. SettlePayroll only reads its
  arguments and allocates its own result, so concurrent calls for
  different employees need no coordination.

SEE ALSO:
  - solver.go: First pass
  - deductions.go, tax.go: Shared by both passes
*/
package payroll

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ENGINE - Configurable constants
// =============================================================================

// Engine bundles the rate tables and solver constants of a run.
type Engine struct {
	Rates    DeductionRates
	Schedule TaxSchedule
	Solver   SolverConfig
}

var defaultEngine = NewEngine()

// NewEngine returns an engine with the statutory defaults.
func NewEngine() Engine {
	return Engine{
		Rates:    DefaultDeductionRates(),
		Schedule: DefaultTaxSchedule(),
		Solver:   DefaultSolverConfig(),
	}
}

// Validate checks every table of the engine.
func (e Engine) Validate() error {
	rates := []struct {
		name string
		rate decimal.Decimal
	}{
		{"pension", e.Rates.Pension},
		{"labor_risk_fund", e.Rates.LaborRiskFund},
		{"health_insurance", e.Rates.HealthInsurance},
		{"national_health_fund", e.Rates.NationalHealthFund},
	}
	for _, r := range rates {
		if r.rate.IsNegative() {
			return fmt.Errorf("%w: %s is negative", ErrInvalidRates, r.name)
		}
	}
	if e.Rates.Combined().GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: combined rate must stay below 100%%", ErrInvalidRates)
	}
	if err := e.Schedule.Validate(); err != nil {
		return err
	}
	return e.Solver.Validate()
}

// =============================================================================
// STAGES
// =============================================================================

type Stage string

const (
	StageDeterminePactatedNet   Stage = "determine_pactated_net"
	StageSolveNominal           Stage = "solve_nominal"
	StageApplyAbsences          Stage = "apply_absences"
	StageApplyOvertime          Stage = "apply_overtime"
	StageApplyMealSubsidy       Stage = "apply_meal_subsidy"
	StageRecomputeLegalAndTax   Stage = "recompute_legal_and_tax"
	StageApplyGeneralDeductions Stage = "apply_general_deductions"
	StageFinalizeAndRound       Stage = "finalize_and_round"
)

// Stages lists the pipeline in execution order.
func Stages() []Stage {
	out := make([]Stage, len(pipeline))
	for i, s := range pipeline {
		out[i] = s.stage
	}
	return out
}

type step struct {
	stage Stage
	run   func(*run)
}

var pipeline = []step{
	{StageDeterminePactatedNet, (*run).determinePactatedNet},
	{StageSolveNominal, (*run).solveNominal},
	{StageApplyAbsences, (*run).applyAbsences},
	{StageApplyOvertime, (*run).applyOvertime},
	{StageApplyMealSubsidy, (*run).applyMealSubsidy},
	{StageRecomputeLegalAndTax, (*run).recomputeLegalAndTax},
	{StageApplyGeneralDeductions, (*run).applyGeneralDeductions},
	{StageFinalizeAndRound, (*run).finalize},
}

// run is the working state of one settlement. Each stage reads what
// earlier stages wrote.
type run struct {
	engine  Engine
	profile CompensationProfile
	events  []Event
	opts    Options
	days    decimal.Decimal
	res     SettlementResult
}

// =============================================================================
// SETTLE PAYROLL
// =============================================================================

// SettlePayroll computes the settlement of profile for month/year given
// that month's events.
func (e Engine) SettlePayroll(profile CompensationProfile, events []Event, month time.Month, year int, opts Options) SettlementResult {
	days := DaysInMonth(month, year)
	r := &run{
		engine:  e,
		profile: profile,
		events:  events,
		opts:    opts,
		days:    decimal.NewFromInt(int64(days)),
		res: SettlementResult{
			Month:       month,
			Year:        year,
			DaysInMonth: days,
		},
	}
	for _, s := range pipeline {
		s.run(r)
	}
	return r.res
}

// SettlePayroll uses the default engine.
func SettlePayroll(profile CompensationProfile, events []Event, month time.Month, year int, opts Options) SettlementResult {
	return defaultEngine.SettlePayroll(profile, events, month, year, opts)
}

func (r *run) warn(code WarningCode, stage Stage, format string, args ...any) {
	r.res.Warnings = append(r.res.Warnings, Warning{
		Code:    code,
		Stage:   stage,
		Message: fmt.Sprintf(format, args...),
	})
}

func (r *run) determinePactatedNet() {
	switch r.profile.Type {
	case CompensationDailyRate:
		r.res.Totals.PactatedNet = valueOr(r.profile.DailyRate, decimal.Zero).Mul(r.days)
	default:
		r.res.Totals.PactatedNet = valueOr(r.profile.PactatedMonthlyNet, decimal.Zero)
	}
}

func (r *run) solveNominal() {
	sr := r.engine.SolveGrossFromNet(r.res.Totals.PactatedNet)
	r.res.Solver = sr
	r.res.Earnings.NominalComputed = sr.Nominal
	if !sr.Converged {
		r.warn(WarnSolverNotConverged, StageSolveNominal,
			"nominal for net %s did not converge after %d iterations (residual %s)",
			r.res.Totals.PactatedNet, sr.Iterations, sr.Residual.StringFixed(2))
	}
}

func (r *run) applyAbsences() {
	absenceDays := decimal.Zero
	for _, ev := range r.events {
		if a, ok := ev.(Absence); ok {
			absenceDays = absenceDays.Add(a.Days)
		}
	}
	r.res.AbsenceDays = absenceDays

	nominal := r.res.Earnings.NominalComputed
	var deduction decimal.Decimal
	switch r.profile.Type {
	case CompensationDailyRate:
		daily := r.engine.SolveGrossFromNet(valueOr(r.profile.DailyRate, decimal.Zero))
		if !daily.Converged {
			r.warn(WarnSolverNotConverged, StageApplyAbsences,
				"daily nominal did not converge after %d iterations", daily.Iterations)
		}
		r.res.DailyNominal = daily.Nominal
		deduction = absenceDays.Mul(daily.Nominal)
	default:
		deduction = nominal.Div(r.days).Mul(absenceDays)
	}
	deduction = clampZero(deduction)

	if deduction.GreaterThan(nominal) {
		r.warn(WarnAbsenceExceedsBase, StageApplyAbsences,
			"absence deduction %s capped at nominal %s", deduction.StringFixed(2), nominal.StringFixed(2))
		deduction = nominal
	}
	r.res.Earnings.AbsenceDeduction = deduction
	r.res.Earnings.BaseSalary = clampZero(nominal.Sub(deduction))
}

func (r *run) applyOvertime() {
	hours := decimal.Zero
	amount := decimal.Zero
	fallback := valueOr(r.profile.OvertimeHourRate, decimal.Zero)
	for _, ev := range r.events {
		ot, ok := ev.(Overtime)
		if !ok {
			continue
		}
		hours = hours.Add(ot.Hours)
		if ot.Amount != nil {
			amount = amount.Add(*ot.Amount)
			continue
		}
		amount = amount.Add(ot.Hours.Mul(valueOr(ot.UnitPrice, fallback)))
	}
	r.res.OvertimeHours = hours
	r.res.Earnings.OvertimeAmount = amount
}

func (r *run) applyMealSubsidy() {
	r.res.TicketDays = decimal.Zero
	r.res.Earnings.MealSubsidy = decimal.Zero
	if !r.profile.MealSubsidyEnabled {
		return
	}
	ticketDays := clampZero(r.days.Sub(r.res.AbsenceDays))
	r.res.TicketDays = ticketDays
	r.res.Earnings.MealSubsidy = ticketDays.Mul(valueOr(r.profile.DailyMealAllowance, decimal.Zero))
}

func (r *run) recomputeLegalAndTax() {
	e := &r.res.Earnings
	e.TotalTaxable = e.BaseSalary.Add(e.OvertimeAmount)

	legal := r.engine.Rates.Compute(e.TotalTaxable)
	taxBase := e.TotalTaxable.Sub(legal.Total)

	tax := decimal.Zero
	if !r.opts.taxWaived() {
		tax = r.engine.Schedule.Compute(taxBase)
		if r.opts.AdvanceTax != nil {
			credited := tax.Sub(*r.opts.AdvanceTax)
			if credited.IsNegative() {
				r.warn(WarnAdvanceTaxExceeds, StageRecomputeLegalAndTax,
					"advance tax %s exceeds computed tax %s", r.opts.AdvanceTax.StringFixed(2), tax.StringFixed(2))
			}
			tax = clampZero(credited)
		}
	}

	r.res.Legal = LegalSection{
		LegalDeductions: legal,
		TaxBase:         taxBase,
		TaxAmount:       tax,
		LegalTotal:      legal.Total.Add(tax),
	}
}

func (r *run) applyGeneralDeductions() {
	g := GeneralDeductions{
		CashAdvances:        decimal.Zero,
		ConsumptionAdvances: decimal.Zero,
		ManualDeductions:    decimal.Zero,
	}
	for _, ev := range r.events {
		switch v := ev.(type) {
		case CashAdvance:
			g.CashAdvances = g.CashAdvances.Add(v.Amount)
		case ConsumptionAdvance:
			g.ConsumptionAdvances = g.ConsumptionAdvances.Add(v.Amount)
		case ManualDeduction:
			g.ManualDeductions = g.ManualDeductions.Add(v.Amount)
		}
	}
	g.Total = g.CashAdvances.Add(g.ConsumptionAdvances).Add(g.ManualDeductions)
	r.res.GeneralDeductions = g
}

func (r *run) finalize() {
	e := &r.res.Earnings
	t := &r.res.Totals

	e.TotalEarnings = e.BaseSalary.Add(e.OvertimeAmount).Add(e.MealSubsidy)
	t.TotalDeductions = r.res.Legal.LegalTotal.Add(r.res.GeneralDeductions.Total)
	t.NetPayableRaw = e.TotalEarnings.Sub(t.TotalDeductions)
	t.NetPayable = roundUnit(t.NetPayableRaw)
	t.RoundingRemainder = t.NetPayable.Sub(t.NetPayableRaw)
	t.Variance = t.NetPayable.Sub(t.PactatedNet)
}
