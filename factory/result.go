package factory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// RESULT JSON - Stored and returned form of a settlement
// =============================================================================
//
// Decimals marshal as JSON strings, so a result written by one process and
// read by another compares equal line for line.

type ResultJSON struct {
	Month             int                   `json:"month"`
	Year              int                   `json:"year"`
	Earnings          EarningsJSON          `json:"earnings"`
	Legal             LegalJSON             `json:"legal"`
	GeneralDeductions GeneralDeductionsJSON `json:"general_deductions"`
	Totals            TotalsJSON            `json:"totals"`
	DaysInMonth       int                   `json:"days_in_month"`
	AbsenceDays       decimal.Decimal       `json:"absence_days"`
	OvertimeHours     decimal.Decimal       `json:"overtime_hours"`
	TicketDays        decimal.Decimal       `json:"ticket_days"`
	DailyNominal      decimal.Decimal       `json:"daily_nominal"`
	Solver            SolverJSON            `json:"solver"`
	Warnings          []WarningJSON         `json:"warnings"`
}

type EarningsJSON struct {
	NominalComputed  decimal.Decimal `json:"nominal_computed"`
	BaseSalary       decimal.Decimal `json:"base_salary"`
	AbsenceDeduction decimal.Decimal `json:"absence_deduction"`
	OvertimeAmount   decimal.Decimal `json:"overtime_amount"`
	MealSubsidy      decimal.Decimal `json:"meal_subsidy"`
	TotalEarnings    decimal.Decimal `json:"total_earnings"`
	TotalTaxable     decimal.Decimal `json:"total_taxable"`
}

type LegalDeductionsJSON struct {
	Pension            decimal.Decimal `json:"pension"`
	LaborRiskFund      decimal.Decimal `json:"labor_risk_fund"`
	HealthInsurance    decimal.Decimal `json:"health_insurance"`
	NationalHealthFund decimal.Decimal `json:"national_health_fund"`
	Total              decimal.Decimal `json:"total"`
}

type LegalJSON struct {
	LegalDeductionsJSON
	TaxBase    decimal.Decimal `json:"tax_base"`
	TaxAmount  decimal.Decimal `json:"tax_amount"`
	LegalTotal decimal.Decimal `json:"legal_total"`
}

type GeneralDeductionsJSON struct {
	CashAdvances        decimal.Decimal `json:"cash_advances"`
	ConsumptionAdvances decimal.Decimal `json:"consumption_advances"`
	ManualDeductions    decimal.Decimal `json:"manual_deductions"`
	Total               decimal.Decimal `json:"total"`
}

type TotalsJSON struct {
	TotalDeductions   decimal.Decimal `json:"total_deductions"`
	NetPayableRaw     decimal.Decimal `json:"net_payable_raw"`
	NetPayable        decimal.Decimal `json:"net_payable"`
	PactatedNet       decimal.Decimal `json:"pactated_net"`
	Variance          decimal.Decimal `json:"variance"`
	RoundingRemainder *decimal.Decimal `json:"rounding_remainder,omitempty"`
}

type SolverJSON struct {
	Nominal    decimal.Decimal `json:"nominal"`
	Iterations int             `json:"iterations"`
	Converged  bool            `json:"converged"`
	Residual   decimal.Decimal `json:"residual"`
}

type WarningJSON struct {
	Code    string `json:"code"`
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// ResultToJSON converts a settlement to its JSON form.
func ResultToJSON(r payroll.SettlementResult) ResultJSON {
	warnings := make([]WarningJSON, 0, len(r.Warnings))
	for _, w := range r.Warnings {
		warnings = append(warnings, WarningJSON{Code: string(w.Code), Stage: string(w.Stage), Message: w.Message})
	}
	return ResultJSON{
		Month: int(r.Month),
		Year:  r.Year,
		Earnings: EarningsJSON{
			NominalComputed:  r.Earnings.NominalComputed,
			BaseSalary:       r.Earnings.BaseSalary,
			AbsenceDeduction: r.Earnings.AbsenceDeduction,
			OvertimeAmount:   r.Earnings.OvertimeAmount,
			MealSubsidy:      r.Earnings.MealSubsidy,
			TotalEarnings:    r.Earnings.TotalEarnings,
			TotalTaxable:     r.Earnings.TotalTaxable,
		},
		Legal: LegalJSON{
			LegalDeductionsJSON: LegalDeductionsToJSON(r.Legal.LegalDeductions),
			TaxBase:             r.Legal.TaxBase,
			TaxAmount:           r.Legal.TaxAmount,
			LegalTotal:          r.Legal.LegalTotal,
		},
		GeneralDeductions: GeneralDeductionsJSON{
			CashAdvances:        r.GeneralDeductions.CashAdvances,
			ConsumptionAdvances: r.GeneralDeductions.ConsumptionAdvances,
			ManualDeductions:    r.GeneralDeductions.ManualDeductions,
			Total:               r.GeneralDeductions.Total,
		},
		Totals: TotalsJSON{
			TotalDeductions:   r.Totals.TotalDeductions,
			NetPayableRaw:     r.Totals.NetPayableRaw,
			NetPayable:        r.Totals.NetPayable,
			PactatedNet:       r.Totals.PactatedNet,
			Variance:          r.Totals.Variance,
			RoundingRemainder: roundingRemainderJSON(r),
		},
		DaysInMonth:   r.DaysInMonth,
		AbsenceDays:   r.AbsenceDays,
		OvertimeHours: r.OvertimeHours,
		TicketDays:    r.TicketDays,
		DailyNominal:  r.DailyNominal,
		Solver: SolverJSON{
			Nominal:    r.Solver.Nominal,
			Iterations: r.Solver.Iterations,
			Converged:  r.Solver.Converged,
			Residual:   r.Solver.Residual,
		},
		Warnings: warnings,
	}
}

// ResultFromJSON is the inverse of ResultToJSON.
func ResultFromJSON(rj ResultJSON) payroll.SettlementResult {
	var warnings []payroll.Warning
	for _, w := range rj.Warnings {
		warnings = append(warnings, payroll.Warning{
			Code:    payroll.WarningCode(w.Code),
			Stage:   payroll.Stage(w.Stage),
			Message: w.Message,
		})
	}
	return payroll.SettlementResult{
		Month: time.Month(rj.Month),
		Year:  rj.Year,
		Earnings: payroll.Earnings{
			NominalComputed:  rj.Earnings.NominalComputed,
			BaseSalary:       rj.Earnings.BaseSalary,
			AbsenceDeduction: rj.Earnings.AbsenceDeduction,
			OvertimeAmount:   rj.Earnings.OvertimeAmount,
			MealSubsidy:      rj.Earnings.MealSubsidy,
			TotalEarnings:    rj.Earnings.TotalEarnings,
			TotalTaxable:     rj.Earnings.TotalTaxable,
		},
		Legal: payroll.LegalSection{
			LegalDeductions: payroll.LegalDeductions{
				Pension:            rj.Legal.Pension,
				LaborRiskFund:      rj.Legal.LaborRiskFund,
				HealthInsurance:    rj.Legal.HealthInsurance,
				NationalHealthFund: rj.Legal.NationalHealthFund,
				Total:              rj.Legal.Total,
			},
			TaxBase:    rj.Legal.TaxBase,
			TaxAmount:  rj.Legal.TaxAmount,
			LegalTotal: rj.Legal.LegalTotal,
		},
		GeneralDeductions: payroll.GeneralDeductions{
			CashAdvances:        rj.GeneralDeductions.CashAdvances,
			ConsumptionAdvances: rj.GeneralDeductions.ConsumptionAdvances,
			ManualDeductions:    rj.GeneralDeductions.ManualDeductions,
			Total:               rj.GeneralDeductions.Total,
		},
		Totals: payroll.Totals{
			TotalDeductions:   rj.Totals.TotalDeductions,
			NetPayableRaw:     rj.Totals.NetPayableRaw,
			NetPayable:        rj.Totals.NetPayable,
			PactatedNet:       rj.Totals.PactatedNet,
			Variance:          rj.Totals.Variance,
			RoundingRemainder: remainderFromJSON(rj.Totals.RoundingRemainder),
		},
		DaysInMonth:   rj.DaysInMonth,
		AbsenceDays:   rj.AbsenceDays,
		OvertimeHours: rj.OvertimeHours,
		TicketDays:    rj.TicketDays,
		DailyNominal:  rj.DailyNominal,
		Solver: payroll.SolveResult{
			Nominal:    rj.Solver.Nominal,
			Iterations: rj.Solver.Iterations,
			Converged:  rj.Solver.Converged,
			Residual:   rj.Solver.Residual,
		},
		Warnings: warnings,
	}
}

// roundingRemainderJSON is nil when rounding left the net unchanged, so the
// key is omitted.
func roundingRemainderJSON(r payroll.SettlementResult) *decimal.Decimal {
	if !r.HasRoundingRemainder() {
		return nil
	}
	rem := r.Totals.RoundingRemainder
	return &rem
}

func remainderFromJSON(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

func LegalDeductionsToJSON(l payroll.LegalDeductions) LegalDeductionsJSON {
	return LegalDeductionsJSON{
		Pension:            l.Pension,
		LaborRiskFund:      l.LaborRiskFund,
		HealthInsurance:    l.HealthInsurance,
		NationalHealthFund: l.NationalHealthFund,
		Total:              l.Total,
	}
}

// MarshalResult encodes a settlement for storage.
func MarshalResult(r payroll.SettlementResult) ([]byte, error) {
	return json.Marshal(ResultToJSON(r))
}

// UnmarshalResult decodes a stored settlement.
func UnmarshalResult(data []byte) (payroll.SettlementResult, error) {
	var rj ResultJSON
	if err := json.Unmarshal(data, &rj); err != nil {
		return payroll.SettlementResult{}, fmt.Errorf("failed to decode settlement result: %w", err)
	}
	return ResultFromJSON(rj), nil
}
