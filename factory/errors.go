package factory

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidProfile is returned when a profile fails shape validation.
	ErrInvalidProfile = errors.New("invalid compensation profile")

	// ErrInvalidEvent is returned when an event fails shape validation.
	ErrInvalidEvent = errors.New("invalid monthly event")

	// ErrInvalidRates is returned when a rates file cannot be used.
	ErrInvalidRates = errors.New("invalid rates file")
)

// FieldError names the offending field.
type FieldError struct {
	Field  string
	Reason string
	Index  int // event position in a batch, -1 otherwise
	kind   error
}

func (e *FieldError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("%v: [%d].%s: %s", e.kind, e.Index, e.Field, e.Reason)
	}
	return fmt.Sprintf("%v: %s: %s", e.kind, e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error {
	return e.kind
}

func profileError(field, reason string) error {
	return &FieldError{Field: field, Reason: reason, Index: -1, kind: ErrInvalidProfile}
}

func eventError(field, reason string) *FieldError {
	return &FieldError{Field: field, Reason: reason, Index: -1, kind: ErrInvalidEvent}
}

// IsValidationError reports whether err came from shape validation.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidProfile) || errors.Is(err, ErrInvalidEvent)
}
