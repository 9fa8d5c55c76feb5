/*
solver.go - Gross-from-net fixed-point iteration

PURPOSE:
  Finds the nominal (gross) amount whose net, after legal deductions and
  income tax, reproduces a target net:

    nominal - legal(nominal).Total - tax(nominal - legal(nominal).Total) ~= target

ALGORITHM:
  Tax is piecewise, so bracket membership can change while converging and
  there is no closed form. Instead:

  1. target <= 0          -> 0, no iteration
  2. seed                 -> target / 0.804   (tax-free guess, 1 - 19.6%)
  3. up to 10 times:
       net  = nominal - legal - tax
       diff = target - net
       |diff| < 1         -> stop
       nominal += diff / 0.804
  4. round to cents

CONSTANTS:
  The iteration cap, the one-unit tolerance and the 0.804 step factor are
  reproduced exactly. Changing any of them moves historical settlements
  by fractions of a unit, so they are configurable per Engine but never
  altered by default.
*/
package payroll

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// SolverConfig holds the iteration constants.
type SolverConfig struct {
	MaxIterations    int
	Tolerance        decimal.Decimal
	CorrectionFactor decimal.Decimal
}

func DefaultSolverConfig() SolverConfig {
	return SolverConfig{
		MaxIterations:    10,
		Tolerance:        decimal.NewFromInt(1),
		CorrectionFactor: MustParseDecimal("0.804"),
	}
}

func (c SolverConfig) Validate() error {
	if c.MaxIterations <= 0 {
		return fmt.Errorf("%w: max iterations must be positive, got %d", ErrInvalidSolverConfig, c.MaxIterations)
	}
	if !c.Tolerance.IsPositive() {
		return fmt.Errorf("%w: tolerance must be positive", ErrInvalidSolverConfig)
	}
	if !c.CorrectionFactor.IsPositive() {
		return fmt.Errorf("%w: correction factor must be positive", ErrInvalidSolverConfig)
	}
	return nil
}

// SolveResult is the solver outcome plus its convergence facts.
type SolveResult struct {
	Nominal    decimal.Decimal
	Iterations int
	Converged  bool
	// Residual is target minus computed net at the last evaluation.
	Residual decimal.Decimal
}

// SolveGrossFromNet runs the iteration with the engine's rates, schedule
// and solver constants.
func (e Engine) SolveGrossFromNet(targetNet decimal.Decimal) SolveResult {
	if !targetNet.IsPositive() {
		return SolveResult{Nominal: decimal.Zero, Converged: true, Residual: decimal.Zero}
	}

	cfg := e.Solver
	nominal := targetNet.Div(cfg.CorrectionFactor)
	res := SolveResult{}

	for i := 0; i < cfg.MaxIterations; i++ {
		legal := e.Rates.Compute(nominal)
		taxBase := nominal.Sub(legal.Total)
		tax := e.Schedule.Compute(taxBase)
		computedNet := nominal.Sub(legal.Total).Sub(tax)
		diff := targetNet.Sub(computedNet)

		res.Iterations = i + 1
		res.Residual = diff
		if diff.Abs().LessThan(cfg.Tolerance) {
			res.Converged = true
			break
		}
		nominal = nominal.Add(diff.Div(cfg.CorrectionFactor))
	}

	res.Nominal = round2(nominal)
	return res
}

// GrossFromNet returns only the solved nominal.
func (e Engine) GrossFromNet(targetNet decimal.Decimal) decimal.Decimal {
	return e.SolveGrossFromNet(targetNet).Nominal
}

// SolveGrossFromNet uses the default engine.
func SolveGrossFromNet(targetNet decimal.Decimal) SolveResult {
	return defaultEngine.SolveGrossFromNet(targetNet)
}
