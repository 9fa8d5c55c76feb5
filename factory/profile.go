/*
Package factory provides JSON to Go conversion for engine inputs.

PURPOSE:
  Converts JSON compensation profiles and monthly events into payroll
  types, and validates their SHAPE on the way in. The engine itself never
  validates: a monthly profile without a net figure simply settles to
  zero. Rejecting such a profile is the calling layer's job, and this is
  that layer.

JSON SCHEMA (profile):
  {
    "type": "monthly",                 // or "daily_rate"
    "pactated_monthly_net": "50000",   // required when monthly
    "daily_rate": "2000",              // required when daily_rate
    "normal_hour_rate": "300",
    "overtime_hour_rate": "450",
    "meal_subsidy_enabled": true,
    "daily_meal_allowance": "100"      // required when meal subsidy enabled
  }

JSON SCHEMA (event):
  {"type": "overtime", "date": "2025-06-12", "hours": 4, "unit_price": "450"}
  {"type": "overtime", "date": "2025-06-13", "hours": 2, "amount": "1500"}
  {"type": "absence", "date": "2025-06-10", "days": 1}
  {"type": "cash_advance", "date": "2025-06-15", "amount": "3000"}
  {"type": "consumption_advance", "date": "2025-06-16", "amount": "800"}
  {"type": "manual_deduction", "date": "2025-06-20", "amount": "250"}

  Decimals may be JSON strings or numbers.

USAGE:
  profile, err := factory.ParseProfile(jsonString)
  events, err := factory.ParseEvents(jsonArray)
  result := payroll.SettlePayroll(profile, events, time.June, 2025, payroll.Options{})

SEE ALSO:
  - payroll/types.go: Target types
  - rates.go: Rate tables from YAML
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ProfileJSON is the JSON representation of a compensation profile.
type ProfileJSON struct {
	Type               string           `json:"type" yaml:"type"`
	PactatedMonthlyNet *decimal.Decimal `json:"pactated_monthly_net,omitempty" yaml:"pactated_monthly_net,omitempty"`
	DailyRate          *decimal.Decimal `json:"daily_rate,omitempty" yaml:"daily_rate,omitempty"`
	NormalHourRate     *decimal.Decimal `json:"normal_hour_rate,omitempty" yaml:"normal_hour_rate,omitempty"`
	OvertimeHourRate   *decimal.Decimal `json:"overtime_hour_rate,omitempty" yaml:"overtime_hour_rate,omitempty"`
	MealSubsidyEnabled bool             `json:"meal_subsidy_enabled,omitempty" yaml:"meal_subsidy_enabled,omitempty"`
	DailyMealAllowance *decimal.Decimal `json:"daily_meal_allowance,omitempty" yaml:"daily_meal_allowance,omitempty"`
}

// =============================================================================
// PROFILE CONVERSION
// =============================================================================

// ParseProfile parses and validates a JSON profile.
func ParseProfile(jsonStr string) (payroll.CompensationProfile, error) {
	var pj ProfileJSON
	if err := json.Unmarshal([]byte(jsonStr), &pj); err != nil {
		return payroll.CompensationProfile{}, fmt.Errorf("failed to parse profile JSON: %w", err)
	}
	return ProfileFromJSON(pj)
}

// ProfileFromJSON validates pj and converts it.
func ProfileFromJSON(pj ProfileJSON) (payroll.CompensationProfile, error) {
	profile := payroll.CompensationProfile{
		Type:               payroll.CompensationType(pj.Type),
		PactatedMonthlyNet: copyDecimal(pj.PactatedMonthlyNet),
		DailyRate:          copyDecimal(pj.DailyRate),
		NormalHourRate:     copyDecimal(pj.NormalHourRate),
		OvertimeHourRate:   copyDecimal(pj.OvertimeHourRate),
		MealSubsidyEnabled: pj.MealSubsidyEnabled,
		DailyMealAllowance: copyDecimal(pj.DailyMealAllowance),
	}
	if err := ValidateProfile(profile); err != nil {
		return payroll.CompensationProfile{}, err
	}
	return profile, nil
}

// ProfileToJSON converts a profile back to its JSON form.
func ProfileToJSON(p payroll.CompensationProfile) ProfileJSON {
	return ProfileJSON{
		Type:               string(p.Type),
		PactatedMonthlyNet: copyDecimal(p.PactatedMonthlyNet),
		DailyRate:          copyDecimal(p.DailyRate),
		NormalHourRate:     copyDecimal(p.NormalHourRate),
		OvertimeHourRate:   copyDecimal(p.OvertimeHourRate),
		MealSubsidyEnabled: p.MealSubsidyEnabled,
		DailyMealAllowance: copyDecimal(p.DailyMealAllowance),
	}
}

// ValidateProfile checks that the figures required by the compensation
// type are present and that no amount is negative.
func ValidateProfile(p payroll.CompensationProfile) error {
	switch p.Type {
	case payroll.CompensationMonthly:
		if p.PactatedMonthlyNet == nil {
			return profileError("pactated_monthly_net", "required for monthly compensation")
		}
	case payroll.CompensationDailyRate:
		if p.DailyRate == nil {
			return profileError("daily_rate", "required for daily_rate compensation")
		}
	default:
		return profileError("type", fmt.Sprintf("unknown compensation type %q", p.Type))
	}

	if p.MealSubsidyEnabled && p.DailyMealAllowance == nil {
		return profileError("daily_meal_allowance", "required when meal subsidy is enabled")
	}

	amounts := []struct {
		field string
		value *decimal.Decimal
	}{
		{"pactated_monthly_net", p.PactatedMonthlyNet},
		{"daily_rate", p.DailyRate},
		{"normal_hour_rate", p.NormalHourRate},
		{"overtime_hour_rate", p.OvertimeHourRate},
		{"daily_meal_allowance", p.DailyMealAllowance},
	}
	for _, a := range amounts {
		if a.value != nil && a.value.IsNegative() {
			return profileError(a.field, "must not be negative")
		}
	}
	return nil
}

func copyDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}
