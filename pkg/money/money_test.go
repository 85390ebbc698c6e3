package money

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
		{"12345.675", 0, "12346"},
		{"12345.5", 0, "12346"},
		{"12345.4999", 0, "12345"},
		{"-2.5", 0, "-2"},
		{"-2.51", 0, "-3"},
		{"0.125", 2, "0.13"},
		{"100000", 0, "100000"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := RoundHalfUp(decimal.RequireFromString(tt.in), tt.places)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestGroup(t *testing.T) {
	assert.Equal(t, "100,000", Group(decimal.NewFromInt(100000)))
	assert.Equal(t, "1,000,000,000,000", Group(decimal.NewFromInt(1_000_000_000_000)))
	assert.Equal(t, "-1,234", Group(decimal.NewFromInt(-1234)))
	assert.Equal(t, "999", Group(decimal.NewFromInt(999)))
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "10.00", Percent(decimal.RequireFromString("0.1")))
	assert.Equal(t, "12.35", Percent(decimal.RequireFromString("0.12345")))
}
