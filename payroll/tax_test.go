package payroll_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/payroll"
)

func TestProgressiveTax_ExemptUpToThreshold(t *testing.T) {
	for _, s := range []string{"0", "1", "50000", "100000", "119314.99", "119315"} {
		assertDecimal(t, "0", payroll.ComputeProgressiveTax(d(s)), "base %s", s)
	}
}

func TestProgressiveTax_JustAboveThreshold(t *testing.T) {
	// GIVEN: One cent above the exempt threshold
	// THEN: The unrounded tax is 0.001; rounded to cents it is 0.00

	schedule := payroll.DefaultTaxSchedule()
	assertDecimal(t, "0.001", schedule.Accumulate(d("119315.01")))
	assertDecimal(t, "0", payroll.ComputeProgressiveTax(d("119315.01")))
}

func TestProgressiveTax_BracketBoundaries(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"170450", "5113.50"},    // 51135 * 10%
		{"200000", "9546.00"},    // 5113.50 + 29550 * 15%
		{"298287", "24289.05"},   // 5113.50 + 127837 * 15%
		{"400000", "44631.65"},   // 24289.05 + 101713 * 20%
		{"1000000", "164631.65"}, // 24289.05 + 701713 * 20%
	}
	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			assertDecimal(t, tt.want, payroll.ComputeProgressiveTax(d(tt.base)))
		})
	}
}

func TestProgressiveTax_ContinuousAtBoundaries(t *testing.T) {
	// GIVEN: Each bracket boundary
	// WHEN: Stepping one cent either side
	// THEN: The tax moves by at most one cent times the top rate

	schedule := payroll.DefaultTaxSchedule()
	cent := d("0.01")
	maxJump := cent.Mul(d("0.20"))

	for _, boundary := range []string{"119315", "170450", "298287"} {
		b := d(boundary)
		below := schedule.Accumulate(b.Sub(cent))
		at := schedule.Accumulate(b)
		above := schedule.Accumulate(b.Add(cent))

		assert.True(t, at.Sub(below).LessThanOrEqual(maxJump), "jump below %s", boundary)
		assert.True(t, above.Sub(at).LessThanOrEqual(maxJump), "jump above %s", boundary)
	}
}

func TestProgressiveTax_NonDecreasing(t *testing.T) {
	prev := decimal.Zero
	step := decimal.NewFromInt(997)
	for base := decimal.Zero; base.LessThan(decimal.NewFromInt(500000)); base = base.Add(step) {
		tax := payroll.ComputeProgressiveTax(base)
		require.True(t, tax.GreaterThanOrEqual(prev), "tax decreased at %s", base)
		prev = tax
	}
}

func TestTaxSchedule_Validate(t *testing.T) {
	assert.NoError(t, payroll.DefaultTaxSchedule().Validate())

	upper := d("100")
	tests := []struct {
		name     string
		schedule payroll.TaxSchedule
		index    int
	}{
		{"empty", payroll.TaxSchedule{}, -1},
		{"not starting at zero", payroll.TaxSchedule{Brackets: []payroll.Bracket{
			{Lower: d("10"), Rate: decimal.Zero},
		}}, 0},
		{"gap", payroll.TaxSchedule{Brackets: []payroll.Bracket{
			{Lower: decimal.Zero, Upper: &upper, Rate: decimal.Zero},
			{Lower: d("150"), Rate: d("0.1")},
		}}, 1},
		{"open bracket not last", payroll.TaxSchedule{Brackets: []payroll.Bracket{
			{Lower: decimal.Zero, Rate: decimal.Zero},
			{Lower: d("100"), Rate: d("0.1")},
		}}, 0},
		{"negative rate", payroll.TaxSchedule{Brackets: []payroll.Bracket{
			{Lower: decimal.Zero, Rate: d("-0.1")},
		}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schedule.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, payroll.ErrInvalidSchedule))

			var se *payroll.ScheduleError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.index, se.Index)
		})
	}
}

func TestTaxSchedule_ExemptThreshold(t *testing.T) {
	assertDecimal(t, "119315", payroll.DefaultTaxSchedule().ExemptThreshold())
}
