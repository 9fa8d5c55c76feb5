package payroll

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRoundHalfUp(t *testing.T) {
	tests := []struct {
		in     string
		places int32
		want   string
	}{
		{"2.5", 0, "3"},
		{"-2.5", 0, "-2"},
		{"-2.51", 0, "-3"},
		{"46666.6633", 0, "46667"},
		{"0.015", 2, "0.02"},
		{"-0.015", 2, "-0.01"},
		{"-0.0151", 2, "-0.02"},
		{"1234.564999", 2, "1234.56"},
		{"0", 2, "0"},
	}
	for _, tt := range tests {
		got := roundHalfUp(decimal.RequireFromString(tt.in), tt.places)
		assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "round(%s, %d): want %s, got %s", tt.in, tt.places, tt.want, got)
	}
}
