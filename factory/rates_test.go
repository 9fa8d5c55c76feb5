package factory_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/payroll"
	"gopkg.in/yaml.v3"
)

const statutoryYAML = `
legal_deductions:
  pension: "15"
  labor_risk_fund: "0.1"
  health_insurance: "3"
  national_health_fund: "1.5"
tax_brackets:
  - {lower: "0", upper: "119315", rate: "0"}
  - {lower: "119315", upper: "170450", rate: "10"}
  - {lower: "170450", upper: "298287", rate: "15"}
  - {lower: "298287", rate: "20"}
solver:
  max_iterations: 10
  tolerance: "1"
  correction_factor: "0.804"
`

func TestParseRates_StatutoryMatchesDefaults(t *testing.T) {
	// GIVEN: A rates file spelling out the statutory tables
	// WHEN: Settling with the engine it builds
	// THEN: Results match the default engine exactly

	engine, err := factory.ParseRates([]byte(statutoryYAML))
	require.NoError(t, err)

	base := decimal.NewFromInt(250000)
	assert.True(t, engine.Schedule.Compute(base).Equal(payroll.ComputeProgressiveTax(base)))
	assert.True(t, engine.Rates.Compute(base).Total.Equal(payroll.ComputeLegalDeductions(base).Total))
	assert.Equal(t, 10, engine.Solver.MaxIterations)
	assert.True(t, engine.Solver.CorrectionFactor.Equal(decimal.RequireFromString("0.804")))
}

func TestParseRates_PartialFileKeepsDefaults(t *testing.T) {
	engine, err := factory.ParseRates([]byte("solver:\n  max_iterations: 25\n"))
	require.NoError(t, err)

	assert.Equal(t, 25, engine.Solver.MaxIterations)
	assert.True(t, engine.Solver.Tolerance.Equal(decimal.NewFromInt(1)))
	assert.Len(t, engine.Schedule.Brackets, 4)
	assert.True(t, engine.Rates.Combined().Equal(decimal.RequireFromString("0.196")))
}

func TestParseRates_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"not yaml", "legal_deductions: [unclosed"},
		{"bad number", "legal_deductions:\n  pension: abc\n  labor_risk_fund: 0\n  health_insurance: 0\n  national_health_fund: 0\n"},
		{"gapped brackets", "tax_brackets:\n  - {lower: \"0\", upper: \"100\", rate: \"0\"}\n  - {lower: \"200\", rate: \"10\"}\n"},
		{"bad solver", "solver:\n  tolerance: \"-1\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := factory.ParseRates([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, errors.Is(err, factory.ErrInvalidRates))
		})
	}
}

func TestParseRates_ScheduleErrorStillVisible(t *testing.T) {
	_, err := factory.ParseRates([]byte("tax_brackets:\n  - {lower: \"5\", rate: \"10\"}\n"))
	assert.True(t, errors.Is(err, payroll.ErrInvalidSchedule))
}

func TestLoadRates(t *testing.T) {
	engine, err := factory.LoadRates("")
	require.NoError(t, err)
	assert.Equal(t, payroll.NewEngine().Solver.MaxIterations, engine.Solver.MaxIterations)

	path := filepath.Join(t.TempDir(), "rates.yaml")
	require.NoError(t, os.WriteFile(path, []byte(statutoryYAML), 0o600))
	_, err = factory.LoadRates(path)
	assert.NoError(t, err)

	_, err = factory.LoadRates(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRatesFromEngine_RoundTrip(t *testing.T) {
	out, err := yaml.Marshal(factory.RatesFromEngine(payroll.NewEngine()))
	require.NoError(t, err)

	engine, err := factory.ParseRates(out)
	require.NoError(t, err)
	base := decimal.NewFromInt(400000)
	assert.True(t, engine.Schedule.Compute(base).Equal(payroll.ComputeProgressiveTax(base)))
	assert.Nil(t, engine.Schedule.Brackets[3].Upper)
}
