package payroll

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PROGRESSIVE INCOME TAX - Marginal bracket accumulation
// =============================================================================

// Bracket taxes the slice (Lower, Upper] at Rate. A nil Upper marks the
// open top bracket.
type Bracket struct {
	Lower decimal.Decimal
	Upper *decimal.Decimal
	Rate  decimal.Decimal
}

// TaxSchedule is an ordered, gapless bracket table starting at zero.
type TaxSchedule struct {
	Brackets []Bracket
}

// DefaultTaxSchedule is the current annual table. The thresholds are
// policy constants, revised by decree, not derived.
func DefaultTaxSchedule() TaxSchedule {
	upper := func(v int64) *decimal.Decimal {
		d := decimal.NewFromInt(v)
		return &d
	}
	return TaxSchedule{Brackets: []Bracket{
		{Lower: decimal.Zero, Upper: upper(119315), Rate: decimal.Zero},
		{Lower: decimal.NewFromInt(119315), Upper: upper(170450), Rate: Percent("10")},
		{Lower: decimal.NewFromInt(170450), Upper: upper(298287), Rate: Percent("15")},
		{Lower: decimal.NewFromInt(298287), Upper: nil, Rate: Percent("20")},
	}}
}

// Accumulate returns the unrounded tax on base.
func (s TaxSchedule) Accumulate(base decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, b := range s.Brackets {
		if !b.Lower.LessThan(base) {
			break
		}
		top := base
		if b.Upper != nil {
			top = decimal.Min(base, *b.Upper)
		}
		total = total.Add(top.Sub(b.Lower).Mul(b.Rate))
	}
	return total
}

// Compute returns the tax on base rounded once to cents.
func (s TaxSchedule) Compute(base decimal.Decimal) decimal.Decimal {
	return round2(s.Accumulate(base))
}

// Validate checks that brackets start at zero, are contiguous, have
// non-negative rates and that only the last one is open.
func (s TaxSchedule) Validate() error {
	if len(s.Brackets) == 0 {
		return &ScheduleError{Index: -1, Reason: "no brackets"}
	}
	if !s.Brackets[0].Lower.IsZero() {
		return &ScheduleError{Index: 0, Reason: "first bracket must start at 0"}
	}
	for i, b := range s.Brackets {
		if b.Rate.IsNegative() {
			return &ScheduleError{Index: i, Reason: "negative rate"}
		}
		last := i == len(s.Brackets)-1
		if b.Upper == nil {
			if !last {
				return &ScheduleError{Index: i, Reason: "only the last bracket may be open"}
			}
			continue
		}
		if !b.Upper.GreaterThan(b.Lower) {
			return &ScheduleError{Index: i, Reason: fmt.Sprintf("upper %s not above lower %s", b.Upper, b.Lower)}
		}
		if !last && !s.Brackets[i+1].Lower.Equal(*b.Upper) {
			return &ScheduleError{Index: i + 1, Reason: "gap or overlap with previous bracket"}
		}
	}
	return nil
}

// ExemptThreshold returns the upper bound of the leading zero-rate
// brackets.
func (s TaxSchedule) ExemptThreshold() decimal.Decimal {
	threshold := decimal.Zero
	for _, b := range s.Brackets {
		if !b.Rate.IsZero() || b.Upper == nil {
			break
		}
		threshold = *b.Upper
	}
	return threshold
}

// ComputeProgressiveTax uses the default schedule.
func ComputeProgressiveTax(taxableBase decimal.Decimal) decimal.Decimal {
	return DefaultTaxSchedule().Compute(taxableBase)
}
