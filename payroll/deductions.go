package payroll

import "github.com/shopspring/decimal"

// =============================================================================
// LEGAL DEDUCTIONS - Statutory withholdings on a taxable nominal
// =============================================================================

// DeductionRates are the four statutory contribution rates.
type DeductionRates struct {
	Pension            decimal.Decimal
	LaborRiskFund      decimal.Decimal
	HealthInsurance    decimal.Decimal
	NationalHealthFund decimal.Decimal
}

// DefaultDeductionRates: 15% + 0.1% + 3% + 1.5% = 19.6%.
func DefaultDeductionRates() DeductionRates {
	return DeductionRates{
		Pension:            Percent("15"),
		LaborRiskFund:      Percent("0.1"),
		HealthInsurance:    Percent("3"),
		NationalHealthFund: Percent("1.5"),
	}
}

// Combined returns the sum of the four rates.
func (r DeductionRates) Combined() decimal.Decimal {
	return r.Pension.Add(r.LaborRiskFund).Add(r.HealthInsurance).Add(r.NationalHealthFund)
}

// Compute applies the rates to nominal. Each line is rounded to cents
// before summing, and the sum is rounded again. Negative input is not
// rejected.
func (r DeductionRates) Compute(nominal decimal.Decimal) LegalDeductions {
	ld := LegalDeductions{
		Pension:            round2(nominal.Mul(r.Pension)),
		LaborRiskFund:      round2(nominal.Mul(r.LaborRiskFund)),
		HealthInsurance:    round2(nominal.Mul(r.HealthInsurance)),
		NationalHealthFund: round2(nominal.Mul(r.NationalHealthFund)),
	}
	ld.Total = round2(ld.Pension.Add(ld.LaborRiskFund).Add(ld.HealthInsurance).Add(ld.NationalHealthFund))
	return ld
}

// ComputeLegalDeductions uses the default rates.
func ComputeLegalDeductions(nominal decimal.Decimal) LegalDeductions {
	return DefaultDeductionRates().Compute(nominal)
}
