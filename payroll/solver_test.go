package payroll_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/payroll"
)

func netOf(nominal decimal.Decimal) decimal.Decimal {
	legal := payroll.ComputeLegalDeductions(nominal)
	taxBase := nominal.Sub(legal.Total)
	return nominal.Sub(legal.Total).Sub(payroll.ComputeProgressiveTax(taxBase))
}

func TestSolver_TaxFreeConvergesOnSeed(t *testing.T) {
	// GIVEN: A net of 50000 (well under the tax threshold)
	// WHEN: Solving for the gross
	// THEN: The 0.804 seed is already within one unit

	res := payroll.SolveGrossFromNet(d("50000"))

	assertDecimal(t, "62189.05", res.Nominal)
	assert.Equal(t, 1, res.Iterations)
	assert.True(t, res.Converged)
	assert.True(t, res.Residual.Abs().LessThan(decimal.NewFromInt(1)))
}

func TestSolver_NonPositiveTarget(t *testing.T) {
	for _, s := range []string{"0", "-1", "-50000"} {
		res := payroll.SolveGrossFromNet(d(s))
		assert.True(t, res.Nominal.IsZero(), "target %s", s)
		assert.Equal(t, 0, res.Iterations, "target %s", s)
	}
}

func TestSolver_RoundTrip(t *testing.T) {
	// GIVEN: Targets in every bracket
	// WHEN: Solving and recomputing the net from the returned gross
	// THEN: The net is within one unit of the target (plus cents lost to
	//       the final rounding of the gross)

	slack := d("1.05")
	for _, s := range []string{"1000", "2000", "50000", "100000", "150000", "200000", "350000", "1000000"} {
		t.Run(s, func(t *testing.T) {
			target := d(s)
			res := payroll.SolveGrossFromNet(target)
			require.True(t, res.Converged)
			assert.LessOrEqual(t, res.Iterations, 10)

			diff := netOf(res.Nominal).Sub(target).Abs()
			assert.True(t, diff.LessThan(slack), "net off by %s", diff)
		})
	}
}

func TestSolver_TaxedTargetNeedsSeveralIterations(t *testing.T) {
	res := payroll.SolveGrossFromNet(d("200000"))
	assert.Greater(t, res.Iterations, 1)
	assert.True(t, res.Nominal.GreaterThan(d("200000").Div(d("0.804"))))
}

func TestSolver_IterationBudgetExhausted(t *testing.T) {
	// GIVEN: An engine limited to one iteration
	// WHEN: Solving a taxed target
	// THEN: The result is reported as not converged but still returned

	engine := payroll.NewEngine()
	engine.Solver.MaxIterations = 1

	res := engine.SolveGrossFromNet(d("200000"))
	assert.False(t, res.Converged)
	assert.Equal(t, 1, res.Iterations)
	assert.True(t, res.Nominal.IsPositive())
	assert.True(t, res.Residual.GreaterThan(decimal.NewFromInt(1)))
}

func TestSolver_Deterministic(t *testing.T) {
	a := payroll.SolveGrossFromNet(d("173456.78"))
	b := payroll.SolveGrossFromNet(d("173456.78"))
	assert.True(t, a.Nominal.Equal(b.Nominal))
	assert.Equal(t, a.Iterations, b.Iterations)
}

func TestSolverConfig_Validate(t *testing.T) {
	assert.NoError(t, payroll.DefaultSolverConfig().Validate())

	bad := []payroll.SolverConfig{
		{MaxIterations: 0, Tolerance: d("1"), CorrectionFactor: d("0.804")},
		{MaxIterations: 10, Tolerance: d("0"), CorrectionFactor: d("0.804")},
		{MaxIterations: 10, Tolerance: d("1"), CorrectionFactor: d("-1")},
	}
	for _, cfg := range bad {
		err := cfg.Validate()
		assert.True(t, errors.Is(err, payroll.ErrInvalidSolverConfig), "config %+v", cfg)
	}
}
