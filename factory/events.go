package factory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/payroll"
)

const DateLayout = "2006-01-02"

// EventJSON is the JSON representation of one monthly event. Which
// quantity fields apply depends on Type.
type EventJSON struct {
	ID        string           `json:"id,omitempty"`
	Type      string           `json:"type"`
	Date      string           `json:"date"`
	Hours     *decimal.Decimal `json:"hours,omitempty"`
	Days      *decimal.Decimal `json:"days,omitempty"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
	Amount    *decimal.Decimal `json:"amount,omitempty"`
}

// ParseEvents parses a JSON array of events.
func ParseEvents(jsonStr string) ([]payroll.Event, error) {
	var ejs []EventJSON
	if err := json.Unmarshal([]byte(jsonStr), &ejs); err != nil {
		return nil, fmt.Errorf("failed to parse events JSON: %w", err)
	}
	return EventsFromJSON(ejs)
}

// EventsFromJSON converts a batch, reporting the index of the first bad
// event.
func EventsFromJSON(ejs []EventJSON) ([]payroll.Event, error) {
	events := make([]payroll.Event, 0, len(ejs))
	for i, ej := range ejs {
		ev, err := EventFromJSON(ej)
		if err != nil {
			if fe, ok := err.(*FieldError); ok {
				fe.Index = i
			}
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

// EventFromJSON validates ej and converts it to its payroll variant.
func EventFromJSON(ej EventJSON) (payroll.Event, error) {
	if ej.Date == "" {
		return nil, eventError("date", "required")
	}
	date, err := time.Parse(DateLayout, ej.Date)
	if err != nil {
		return nil, eventError("date", "use YYYY-MM-DD")
	}

	switch payroll.EventType(ej.Type) {
	case payroll.EventOvertime:
		if ej.Hours == nil && ej.Amount == nil {
			return nil, eventError("hours", "overtime needs hours or amount")
		}
		if err := nonNegative("hours", ej.Hours); err != nil {
			return nil, err
		}
		if err := nonNegative("unit_price", ej.UnitPrice); err != nil {
			return nil, err
		}
		if err := nonNegative("amount", ej.Amount); err != nil {
			return nil, err
		}
		ot := payroll.Overtime{
			Date:      date,
			Hours:     decimal.Zero,
			UnitPrice: copyDecimal(ej.UnitPrice),
			Amount:    copyDecimal(ej.Amount),
		}
		if ej.Hours != nil {
			ot.Hours = *ej.Hours
		}
		return ot, nil

	case payroll.EventAbsence:
		if ej.Days == nil || !ej.Days.IsPositive() {
			return nil, eventError("days", "absence needs a positive number of days")
		}
		return payroll.Absence{Date: date, Days: *ej.Days}, nil

	case payroll.EventCashAdvance, payroll.EventConsumptionAdvance, payroll.EventManualDeduction:
		if ej.Amount == nil {
			return nil, eventError("amount", "required")
		}
		if err := nonNegative("amount", ej.Amount); err != nil {
			return nil, err
		}
		switch payroll.EventType(ej.Type) {
		case payroll.EventCashAdvance:
			return payroll.CashAdvance{Date: date, Amount: *ej.Amount}, nil
		case payroll.EventConsumptionAdvance:
			return payroll.ConsumptionAdvance{Date: date, Amount: *ej.Amount}, nil
		default:
			return payroll.ManualDeduction{Date: date, Amount: *ej.Amount}, nil
		}

	default:
		return nil, eventError("type", fmt.Sprintf("unknown event type %q", ej.Type))
	}
}

// EventToJSON converts an event back to its JSON form.
func EventToJSON(ev payroll.Event) EventJSON {
	ej := EventJSON{
		Type: string(ev.Type()),
		Date: ev.OccurredOn().Format(DateLayout),
	}
	switch v := ev.(type) {
	case payroll.Overtime:
		ej.Hours = copyDecimal(&v.Hours)
		ej.UnitPrice = copyDecimal(v.UnitPrice)
		ej.Amount = copyDecimal(v.Amount)
	case payroll.Absence:
		ej.Days = copyDecimal(&v.Days)
	case payroll.CashAdvance:
		ej.Amount = copyDecimal(&v.Amount)
	case payroll.ConsumptionAdvance:
		ej.Amount = copyDecimal(&v.Amount)
	case payroll.ManualDeduction:
		ej.Amount = copyDecimal(&v.Amount)
	}
	return ej
}

// EventsInMonth keeps the events dated in month/year.
func EventsInMonth(events []payroll.Event, month time.Month, year int) []payroll.Event {
	var out []payroll.Event
	for _, ev := range events {
		at := ev.OccurredOn()
		if at.Year() == year && at.Month() == month {
			out = append(out, ev)
		}
	}
	return out
}

func nonNegative(field string, d *decimal.Decimal) error {
	if d != nil && d.IsNegative() {
		return eventError(field, "must not be negative")
	}
	return nil
}
