package factory_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// PROFILE TESTS
// =============================================================================

func TestParseProfile_Monthly(t *testing.T) {
	profile, err := factory.ParseProfile(`{
		"type": "monthly",
		"pactated_monthly_net": "50000",
		"overtime_hour_rate": 450,
		"meal_subsidy_enabled": true,
		"daily_meal_allowance": "100"
	}`)
	require.NoError(t, err)

	assert.Equal(t, payroll.CompensationMonthly, profile.Type)
	require.NotNil(t, profile.PactatedMonthlyNet)
	assert.True(t, profile.PactatedMonthlyNet.Equal(decimal.NewFromInt(50000)))
	assert.True(t, profile.OvertimeHourRate.Equal(decimal.NewFromInt(450)))
	assert.True(t, profile.MealSubsidyEnabled)
	assert.Nil(t, profile.DailyRate)
}

func TestParseProfile_ShapeErrors(t *testing.T) {
	tests := []struct {
		name  string
		json  string
		field string
	}{
		{"monthly without net", `{"type":"monthly"}`, "pactated_monthly_net"},
		{"daily without rate", `{"type":"daily_rate","pactated_monthly_net":"1"}`, "daily_rate"},
		{"unknown type", `{"type":"hourly"}`, "type"},
		{"meal without allowance", `{"type":"monthly","pactated_monthly_net":"1","meal_subsidy_enabled":true}`, "daily_meal_allowance"},
		{"negative net", `{"type":"monthly","pactated_monthly_net":"-5"}`, "pactated_monthly_net"},
		{"negative overtime rate", `{"type":"daily_rate","daily_rate":"100","overtime_hour_rate":"-1"}`, "overtime_hour_rate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := factory.ParseProfile(tt.json)
			require.Error(t, err)
			assert.True(t, errors.Is(err, factory.ErrInvalidProfile))
			assert.True(t, factory.IsValidationError(err))

			var fe *factory.FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.field, fe.Field)
		})
	}
}

func TestParseProfile_MalformedJSON(t *testing.T) {
	_, err := factory.ParseProfile(`{"type":`)
	require.Error(t, err)
	assert.False(t, factory.IsValidationError(err))
}

func TestProfileToJSON_RoundTrip(t *testing.T) {
	net := decimal.NewFromInt(50000)
	profile := payroll.CompensationProfile{Type: payroll.CompensationMonthly, PactatedMonthlyNet: &net}

	back, err := factory.ProfileFromJSON(factory.ProfileToJSON(profile))
	require.NoError(t, err)
	assert.True(t, back.PactatedMonthlyNet.Equal(net))

	// The copy does not alias the input
	*back.PactatedMonthlyNet = decimal.Zero
	assert.True(t, profile.PactatedMonthlyNet.Equal(decimal.NewFromInt(50000)))
}

// =============================================================================
// EVENT TESTS
// =============================================================================

func TestParseEvents_AllVariants(t *testing.T) {
	events, err := factory.ParseEvents(`[
		{"type": "overtime", "date": "2025-06-12", "hours": 4, "unit_price": "450"},
		{"type": "overtime", "date": "2025-06-13", "hours": 2, "amount": "1500"},
		{"type": "absence", "date": "2025-06-10", "days": 1},
		{"type": "cash_advance", "date": "2025-06-15", "amount": "3000"},
		{"type": "consumption_advance", "date": "2025-06-16", "amount": 800},
		{"type": "manual_deduction", "date": "2025-06-20", "amount": "250.50"}
	]`)
	require.NoError(t, err)
	require.Len(t, events, 6)

	ot, ok := events[0].(payroll.Overtime)
	require.True(t, ok)
	assert.True(t, ot.Hours.Equal(decimal.NewFromInt(4)))
	assert.Nil(t, ot.Amount)
	assert.True(t, ot.UnitPrice.Equal(decimal.NewFromInt(450)))

	ot2 := events[1].(payroll.Overtime)
	assert.True(t, ot2.Amount.Equal(decimal.NewFromInt(1500)))

	assert.IsType(t, payroll.Absence{}, events[2])
	assert.IsType(t, payroll.CashAdvance{}, events[3])
	assert.IsType(t, payroll.ConsumptionAdvance{}, events[4])
	md := events[5].(payroll.ManualDeduction)
	assert.True(t, md.Amount.Equal(decimal.RequireFromString("250.50")))
	assert.Equal(t, time.Date(2025, time.June, 20, 0, 0, 0, 0, time.UTC), md.Date)
}

func TestParseEvents_ReportsIndex(t *testing.T) {
	_, err := factory.ParseEvents(`[
		{"type": "absence", "date": "2025-06-10", "days": 1},
		{"type": "absence", "date": "2025-06-11", "days": 0}
	]`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, factory.ErrInvalidEvent))

	var fe *factory.FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 1, fe.Index)
	assert.Equal(t, "days", fe.Field)
}

func TestEventFromJSON_ShapeErrors(t *testing.T) {
	tests := []struct {
		name  string
		ej    factory.EventJSON
		field string
	}{
		{"missing date", factory.EventJSON{Type: "absence"}, "date"},
		{"bad date", factory.EventJSON{Type: "absence", Date: "12/06/2025"}, "date"},
		{"unknown type", factory.EventJSON{Type: "bonus", Date: "2025-06-01"}, "type"},
		{"overtime without quantity", factory.EventJSON{Type: "overtime", Date: "2025-06-01"}, "hours"},
		{"advance without amount", factory.EventJSON{Type: "cash_advance", Date: "2025-06-01"}, "amount"},
		{"negative deduction", factory.EventJSON{Type: "manual_deduction", Date: "2025-06-01", Amount: ptr("-3")}, "amount"},
		{"negative hours", factory.EventJSON{Type: "overtime", Date: "2025-06-01", Hours: ptr("-1")}, "hours"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := factory.EventFromJSON(tt.ej)
			var fe *factory.FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.field, fe.Field)
			assert.Equal(t, -1, fe.Index)
		})
	}
}

func TestEventToJSON_RoundTrip(t *testing.T) {
	amount := decimal.NewFromInt(1500)
	in := payroll.Overtime{
		Date:   time.Date(2025, time.June, 3, 0, 0, 0, 0, time.UTC),
		Hours:  decimal.NewFromInt(3),
		Amount: &amount,
	}
	ej := factory.EventToJSON(in)
	assert.Equal(t, "overtime", ej.Type)
	assert.Equal(t, "2025-06-03", ej.Date)

	out, err := factory.EventFromJSON(ej)
	require.NoError(t, err)
	assert.True(t, out.(payroll.Overtime).Amount.Equal(amount))
}

func TestEventsInMonth(t *testing.T) {
	events := []payroll.Event{
		payroll.Absence{Date: time.Date(2025, time.May, 31, 0, 0, 0, 0, time.UTC), Days: decimal.NewFromInt(1)},
		payroll.Absence{Date: time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC), Days: decimal.NewFromInt(1)},
		payroll.Absence{Date: time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC), Days: decimal.NewFromInt(1)},
	}
	got := factory.EventsInMonth(events, time.June, 2025)
	require.Len(t, got, 1)
	assert.Equal(t, 2025, got[0].OccurredOn().Year())
}

func ptr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}
