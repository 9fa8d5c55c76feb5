// Package storetest runs the same behavioral checks against any store.Store.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/store"
)

// Run exercises newStore against the store.Store contract. newStore must
// return an empty store each call.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("profiles", func(t *testing.T) { testProfiles(t, newStore(t)) })
	t.Run("events", func(t *testing.T) { testEvents(t, newStore(t)) })
	t.Run("settlements", func(t *testing.T) { testSettlements(t, newStore(t)) })
	t.Run("runs", func(t *testing.T) { testRuns(t, newStore(t)) })
	t.Run("reset", func(t *testing.T) { testReset(t, newStore(t)) })
}

func dec(s string) *decimal.Decimal {
	v := decimal.RequireFromString(s)
	return &v
}

func day(month time.Month, d int) time.Time {
	return time.Date(2025, month, d, 0, 0, 0, 0, time.UTC)
}

func monthly(net string) payroll.CompensationProfile {
	return payroll.CompensationProfile{Type: payroll.CompensationMonthly, PactatedMonthlyNet: dec(net)}
}

func testProfiles(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.GetProfile(ctx, "emp-1")
	assert.True(t, store.IsNotFound(err))

	require.NoError(t, s.SaveProfile(ctx, store.ProfileRecord{EmployeeID: "emp-2", Profile: monthly("40000")}))
	require.NoError(t, s.SaveProfile(ctx, store.ProfileRecord{EmployeeID: "emp-1", Profile: monthly("50000")}))

	// Saving again replaces
	daily := payroll.CompensationProfile{
		Type:               payroll.CompensationDailyRate,
		DailyRate:          dec("2000"),
		MealSubsidyEnabled: true,
		DailyMealAllowance: dec("100"),
	}
	require.NoError(t, s.SaveProfile(ctx, store.ProfileRecord{EmployeeID: "emp-1", Profile: daily}))

	got, err := s.GetProfile(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, payroll.CompensationDailyRate, got.Profile.Type)
	assert.True(t, got.Profile.DailyRate.Equal(decimal.NewFromInt(2000)))
	assert.True(t, got.Profile.MealSubsidyEnabled)
	assert.Nil(t, got.Profile.PactatedMonthlyNet)

	all, err := s.ListProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "emp-1", all[0].EmployeeID)
	assert.Equal(t, "emp-2", all[1].EmployeeID)
}

func testEvents(t *testing.T, s store.Store) {
	ctx := context.Background()

	records := []store.EventRecord{
		{ID: uuid.NewString(), EmployeeID: "emp-1", Event: payroll.CashAdvance{Date: day(time.June, 20), Amount: decimal.NewFromInt(3000)}},
		{ID: uuid.NewString(), EmployeeID: "emp-1", Event: payroll.Absence{Date: day(time.June, 3), Days: decimal.NewFromInt(1)}},
		{ID: uuid.NewString(), EmployeeID: "emp-1", Event: payroll.Overtime{Date: day(time.July, 1), Hours: decimal.NewFromInt(2)}},
		{ID: uuid.NewString(), EmployeeID: "emp-2", Event: payroll.Absence{Date: day(time.June, 4), Days: decimal.NewFromInt(1)}},
	}
	for _, rec := range records {
		require.NoError(t, s.AppendEvent(ctx, rec))
	}

	// GIVEN: Events across two months and two employees
	// WHEN: Listing June for emp-1
	// THEN: Only June events of emp-1, ordered by date
	june, err := s.ListEvents(ctx, "emp-1", time.June, 2025)
	require.NoError(t, err)
	require.Len(t, june, 2)
	assert.IsType(t, payroll.Absence{}, june[0].Event)
	assert.IsType(t, payroll.CashAdvance{}, june[1].Event)
	assert.Equal(t, records[1].ID, june[0].ID)
	assert.True(t, june[1].Event.(payroll.CashAdvance).Amount.Equal(decimal.NewFromInt(3000)))

	require.NoError(t, s.DeleteEvent(ctx, records[0].ID))
	june, err = s.ListEvents(ctx, "emp-1", time.June, 2025)
	require.NoError(t, err)
	assert.Len(t, june, 1)

	assert.True(t, store.IsNotFound(s.DeleteEvent(ctx, "missing")))
}

func testSettlements(t *testing.T, s store.Store) {
	ctx := context.Background()

	profile := monthly("50000")
	first := payroll.SettlePayroll(profile, nil, time.June, 2025, payroll.Options{})
	rec := store.SettlementRecord{
		ID:         uuid.NewString(),
		EmployeeID: "emp-1",
		Month:      time.June,
		Year:       2025,
		Options:    payroll.Options{AdvanceTax: dec("120.50")},
		Result:     first,
	}
	require.NoError(t, s.SaveSettlement(ctx, rec))

	has, err := s.HasSettlement(ctx, "emp-1", time.June, 2025)
	require.NoError(t, err)
	assert.True(t, has)

	// Second settlement for the same month is refused
	dup := rec
	dup.ID = uuid.NewString()
	assert.ErrorIs(t, s.SaveSettlement(ctx, dup), store.ErrDuplicateSettlement)

	got, err := s.GetSettlement(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, time.June, got.Month)
	assert.True(t, got.Result.Totals.NetPayable.Equal(first.Totals.NetPayable))
	assert.True(t, got.Result.Totals.RoundingRemainder.Equal(first.Totals.RoundingRemainder))
	assert.True(t, got.Result.Legal.TaxBase.Equal(first.Legal.TaxBase))
	require.NotNil(t, got.Options.AdvanceTax)
	assert.True(t, got.Options.AdvanceTax.Equal(decimal.RequireFromString("120.5")))

	// Replace swaps the month's settlement
	absence := []payroll.Event{payroll.Absence{Date: day(time.June, 10), Days: decimal.NewFromInt(2)}}
	replaced := store.SettlementRecord{
		ID:         uuid.NewString(),
		EmployeeID: "emp-1",
		Month:      time.June,
		Year:       2025,
		Result:     payroll.SettlePayroll(profile, absence, time.June, 2025, payroll.Options{}),
	}
	require.NoError(t, s.ReplaceSettlement(ctx, replaced))

	_, err = s.GetSettlement(ctx, rec.ID)
	assert.True(t, store.IsNotFound(err))

	require.NoError(t, s.SaveSettlement(ctx, store.SettlementRecord{
		ID: uuid.NewString(), EmployeeID: "emp-1", Month: time.May, Year: 2025,
		Result: payroll.SettlePayroll(profile, nil, time.May, 2025, payroll.Options{}),
	}))

	list, err := s.ListSettlements(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, time.June, list[0].Month)
	assert.Equal(t, replaced.ID, list[0].ID)
	// Exact sub-cent amounts survive storage
	assert.True(t, list[0].Result.Earnings.AbsenceDeduction.Equal(replaced.Result.Earnings.AbsenceDeduction))
	assert.True(t, list[0].Result.Totals.NetPayableRaw.Equal(replaced.Result.Totals.NetPayableRaw))
	assert.Equal(t, time.May, list[1].Month)

	other, err := s.ListSettlements(ctx, "emp-2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func testRuns(t *testing.T, s store.Store) {
	ctx := context.Background()

	started := time.Now().UTC().Truncate(time.Second)
	run := store.RunRecord{
		ID:        uuid.NewString(),
		Month:     time.June,
		Year:      2025,
		Trigger:   "api",
		Status:    store.RunRunning,
		StartedAt: started,
	}
	require.NoError(t, s.SaveRun(ctx, run))

	done := started.Add(2 * time.Second)
	run.Status = store.RunCompleted
	run.Settled = 3
	run.Failed = 1
	run.Errors = []string{"emp-9: no profile"}
	run.CompletedAt = &done
	require.NoError(t, s.SaveRun(ctx, run))

	older := store.RunRecord{
		ID: uuid.NewString(), Month: time.May, Year: 2025, Trigger: "scheduler",
		Status: store.RunCompleted, StartedAt: started.Add(-time.Hour),
	}
	require.NoError(t, s.SaveRun(ctx, older))

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, run.ID, runs[0].ID)
	assert.Equal(t, store.RunCompleted, runs[0].Status)
	assert.Equal(t, 3, runs[0].Settled)
	assert.Equal(t, []string{"emp-9: no profile"}, runs[0].Errors)
	require.NotNil(t, runs[0].CompletedAt)
	assert.Equal(t, older.ID, runs[1].ID)
}

func testReset(t *testing.T, s store.Store) {
	ctx := context.Background()

	require.NoError(t, s.SaveProfile(ctx, store.ProfileRecord{EmployeeID: "emp-1", Profile: monthly("50000")}))
	require.NoError(t, s.Reset(ctx))

	all, err := s.ListProfiles(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
