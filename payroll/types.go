/*
Package payroll provides the settlement engine.

PURPOSE:
  Converts a pactated NET wage into the gross (nominal) wage that
  reproduces it, applies statutory deductions and progressive income tax,
  and folds one month of pay events into a final net payable amount.

KEY CONCEPTS IN THIS FILE (types.go):
  - CompensationProfile: How an employee is paid (monthly net or daily rate)
  - Event: Closed set of monthly pay events (overtime, absence, advances...)
  - SettlementResult: The itemized outcome of one settlement run
  - Options: Policy toggles (advance tax withheld, months without tax)

DESIGN PRINCIPLES:
  1. Purity: No I/O, no logging, no shared mutable state
  2. Precision: All money is decimal.Decimal, rounded at fixed points
  3. Reproducibility: Same inputs produce the same result, always
  4. No errors: Numeric edge cases clamp to zero instead of failing

USAGE:
  net := decimal.NewFromInt(50000)
  profile := payroll.CompensationProfile{
      Type:               payroll.CompensationMonthly,
      PactatedMonthlyNet: &net,
  }
  result := payroll.SettlePayroll(profile, events, time.June, 2025, payroll.Options{})

SEE ALSO:
  - deductions.go: Statutory withholdings
  - tax.go: Progressive bracket table
  - solver.go: Gross-from-net fixed-point iteration
  - engine.go: The settlement pipeline
*/
package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// COMPENSATION PROFILE - How an employee is paid
// =============================================================================

type CompensationType string

const (
	CompensationMonthly   CompensationType = "monthly"
	CompensationDailyRate CompensationType = "daily_rate"
)

// CompensationProfile is the per-employee input of a run.
// Monetary figures are NET amounts. Shape validation (a monthly profile
// must carry PactatedMonthlyNet) belongs to the caller; the engine reads
// a missing figure as zero.
type CompensationProfile struct {
	Type               CompensationType
	PactatedMonthlyNet *decimal.Decimal
	DailyRate          *decimal.Decimal
	NormalHourRate     *decimal.Decimal
	OvertimeHourRate   *decimal.Decimal
	MealSubsidyEnabled bool
	DailyMealAllowance *decimal.Decimal
}

// =============================================================================
// MONTHLY EVENTS - Closed sum type
// =============================================================================

type EventType string

const (
	EventOvertime           EventType = "overtime"
	EventAbsence            EventType = "absence"
	EventCashAdvance        EventType = "cash_advance"
	EventConsumptionAdvance EventType = "consumption_advance"
	EventManualDeduction    EventType = "manual_deduction"
)

// Event is one recorded occurrence in the settlement month.
// The set of implementations is closed: only the five types below
// satisfy it.
type Event interface {
	Type() EventType
	OccurredOn() time.Time
	isEvent()
}

// Overtime records extra hours. When Amount is set it wins over
// Hours * UnitPrice.
type Overtime struct {
	Date      time.Time
	Hours     decimal.Decimal
	UnitPrice *decimal.Decimal
	Amount    *decimal.Decimal
}

// Absence records unpaid days off.
type Absence struct {
	Date time.Time
	Days decimal.Decimal
}

// CashAdvance is money paid ahead of the settlement.
type CashAdvance struct {
	Date   time.Time
	Amount decimal.Decimal
}

// ConsumptionAdvance is goods or services taken on credit against pay.
type ConsumptionAdvance struct {
	Date   time.Time
	Amount decimal.Decimal
}

// ManualDeduction is any other non-statutory withholding.
type ManualDeduction struct {
	Date   time.Time
	Amount decimal.Decimal
}

func (Overtime) Type() EventType           { return EventOvertime }
func (Absence) Type() EventType            { return EventAbsence }
func (CashAdvance) Type() EventType        { return EventCashAdvance }
func (ConsumptionAdvance) Type() EventType { return EventConsumptionAdvance }
func (ManualDeduction) Type() EventType    { return EventManualDeduction }

func (e Overtime) OccurredOn() time.Time           { return e.Date }
func (e Absence) OccurredOn() time.Time            { return e.Date }
func (e CashAdvance) OccurredOn() time.Time        { return e.Date }
func (e ConsumptionAdvance) OccurredOn() time.Time { return e.Date }
func (e ManualDeduction) OccurredOn() time.Time    { return e.Date }

func (Overtime) isEvent()           {}
func (Absence) isEvent()            {}
func (CashAdvance) isEvent()        {}
func (ConsumptionAdvance) isEvent() {}
func (ManualDeduction) isEvent()    {}

var (
	_ Event = Overtime{}
	_ Event = Absence{}
	_ Event = CashAdvance{}
	_ Event = ConsumptionAdvance{}
	_ Event = ManualDeduction{}
)

// =============================================================================
// OPTIONS - Policy toggles for a single run
// =============================================================================

// Options carries the tax overrides of a run. Both are explicit policy
// inputs and are never inferred from other state.
type Options struct {
	// AdvanceTax is income tax already withheld; it is credited against
	// the computed tax.
	AdvanceTax *decimal.Decimal

	// MonthsWithoutTax > 0 waives income tax for this run.
	MonthsWithoutTax *int
}

func (o Options) taxWaived() bool {
	return o.MonthsWithoutTax != nil && *o.MonthsWithoutTax > 0
}

// =============================================================================
// SETTLEMENT RESULT - Output of one run
// =============================================================================

// LegalDeductions are the four statutory withholdings.
type LegalDeductions struct {
	Pension            decimal.Decimal
	LaborRiskFund      decimal.Decimal
	HealthInsurance    decimal.Decimal
	NationalHealthFund decimal.Decimal
	Total              decimal.Decimal
}

type Earnings struct {
	NominalComputed  decimal.Decimal
	BaseSalary       decimal.Decimal
	AbsenceDeduction decimal.Decimal
	OvertimeAmount   decimal.Decimal
	MealSubsidy      decimal.Decimal
	TotalEarnings    decimal.Decimal
	TotalTaxable     decimal.Decimal
}

type LegalSection struct {
	LegalDeductions
	TaxBase   decimal.Decimal
	TaxAmount decimal.Decimal
	// LegalTotal is the statutory withholdings plus income tax.
	LegalTotal decimal.Decimal
}

type GeneralDeductions struct {
	CashAdvances        decimal.Decimal
	ConsumptionAdvances decimal.Decimal
	ManualDeductions    decimal.Decimal
	Total               decimal.Decimal
}

type Totals struct {
	TotalDeductions   decimal.Decimal
	NetPayableRaw     decimal.Decimal
	NetPayable        decimal.Decimal
	PactatedNet       decimal.Decimal
	Variance          decimal.Decimal
	RoundingRemainder decimal.Decimal
}

// SettlementResult is the itemized settlement for one employee and month.
// It is never mutated after SettlePayroll returns.
type SettlementResult struct {
	Month time.Month
	Year  int

	Earnings          Earnings
	Legal             LegalSection
	GeneralDeductions GeneralDeductions
	Totals            Totals

	// Run facts
	DaysInMonth   int
	AbsenceDays   decimal.Decimal
	OvertimeHours decimal.Decimal
	TicketDays    decimal.Decimal
	DailyNominal  decimal.Decimal // daily-rate profiles only
	Solver        SolveResult

	Warnings []Warning
}

// HasRoundingRemainder reports whether rounding the net moved it.
func (r SettlementResult) HasRoundingRemainder() bool {
	return !r.Totals.RoundingRemainder.IsZero()
}
