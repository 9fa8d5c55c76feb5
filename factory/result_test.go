package factory_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/payroll"
)

func TestMarshalResult_StableAcrossReload(t *testing.T) {
	// GIVEN: A settlement with absences and a rounding remainder
	net := decimal.NewFromInt(50000)
	profile := payroll.CompensationProfile{Type: payroll.CompensationMonthly, PactatedMonthlyNet: &net}
	events := []payroll.Event{
		payroll.Absence{Date: time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC), Days: decimal.NewFromInt(2)},
	}
	result := payroll.SettlePayroll(profile, events, time.June, 2025, payroll.Options{})

	// WHEN: Stored and read back
	data, err := factory.MarshalResult(result)
	require.NoError(t, err)
	back, err := factory.UnmarshalResult(data)
	require.NoError(t, err)

	// THEN: Every line matches and re-encoding gives the same bytes
	assert.True(t, back.Totals.NetPayable.Equal(result.Totals.NetPayable))
	assert.True(t, back.Earnings.AbsenceDeduction.Equal(result.Earnings.AbsenceDeduction))
	assert.True(t, back.Legal.Pension.Equal(result.Legal.Pension))
	assert.True(t, back.Totals.RoundingRemainder.Equal(result.Totals.RoundingRemainder))
	assert.Equal(t, result.Month, back.Month)
	assert.Equal(t, result.Solver.Iterations, back.Solver.Iterations)

	again, err := factory.MarshalResult(back)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(again))
	assert.Contains(t, string(data), `"net_payable":"46667"`)
}

func TestResultToJSON_Warnings(t *testing.T) {
	result := payroll.SettlementResult{
		Warnings: []payroll.Warning{{
			Code:    payroll.WarnSolverNotConverged,
			Stage:   payroll.StageSolveNominal,
			Message: "residual 3.2",
		}},
	}
	rj := factory.ResultToJSON(result)
	require.Len(t, rj.Warnings, 1)
	assert.Equal(t, "solver_not_converged", rj.Warnings[0].Code)
	assert.Equal(t, "solve_nominal", rj.Warnings[0].Stage)

	assert.Equal(t, result.Warnings, factory.ResultFromJSON(rj).Warnings)
}

func TestMarshalResult_RoundingRemainderOnlyWhenNonZero(t *testing.T) {
	monthly := func(amount int64) payroll.CompensationProfile {
		net := decimal.NewFromInt(amount)
		return payroll.CompensationProfile{Type: payroll.CompensationMonthly, PactatedMonthlyNet: &net}
	}

	t.Run("net moved by rounding", func(t *testing.T) {
		// 49999.99 rounds to 50000
		result := payroll.SettlePayroll(monthly(50000), nil, time.June, 2025, payroll.Options{})
		require.True(t, result.HasRoundingRemainder())

		data, err := factory.MarshalResult(result)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"rounding_remainder":"0.01"`)

		back, err := factory.UnmarshalResult(data)
		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString("0.01").Equal(back.Totals.RoundingRemainder))
	})

	t.Run("net already whole", func(t *testing.T) {
		result := payroll.SettlePayroll(monthly(0), nil, time.June, 2025, payroll.Options{})
		require.False(t, result.HasRoundingRemainder())

		data, err := factory.MarshalResult(result)
		require.NoError(t, err)
		assert.NotContains(t, string(data), "rounding_remainder")
		assert.Nil(t, factory.ResultToJSON(result).Totals.RoundingRemainder)

		back, err := factory.UnmarshalResult(data)
		require.NoError(t, err)
		assert.True(t, back.Totals.RoundingRemainder.IsZero())
		assert.False(t, back.HasRoundingRemainder())
	})
}

func TestUnmarshalResult_Malformed(t *testing.T) {
	_, err := factory.UnmarshalResult([]byte("{"))
	assert.Error(t, err)
}
