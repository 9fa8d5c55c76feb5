package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ROUNDING - Fixed rounding points shared by every computation
// =============================================================================

//
// Amounts are rounded only inside legal deductions, tax and the solver
// (cents) and once on the net payable (whole unit). Every intermediate
// product stays exact.

var (
	hundred = decimal.NewFromInt(100)
	half    = decimal.New(5, -1)
)

// roundHalfUp rounds to places decimals with ties toward +infinity, so
// -2.5 becomes -2 and 2.5 becomes 3.
func roundHalfUp(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Shift(places).Add(half).Floor().Shift(-places)
}

// round2 rounds half-up to cents.
func round2(d decimal.Decimal) decimal.Decimal { return roundHalfUp(d, 2) }

// roundUnit rounds half-up to a whole currency unit.
func roundUnit(d decimal.Decimal) decimal.Decimal { return roundHalfUp(d, 0) }

func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func valueOr(d *decimal.Decimal, fallback decimal.Decimal) decimal.Decimal {
	if d == nil {
		return fallback
	}
	return *d
}

// Percent builds a rate from a percentage, e.g. Percent("1.5") == 0.015.
func Percent(s string) decimal.Decimal {
	return MustParseDecimal(s).Div(hundred)
}

// MustParseDecimal parses s or returns zero.
func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// DaysInMonth returns the number of calendar days of month in year.
func DaysInMonth(month time.Month, year int) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
