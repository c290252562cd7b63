package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "two places", input: "250.50", want: "250.50"},
		{name: "one place", input: "0.5", want: "0.50"},
		{name: "integer", input: "1000", want: "1000.00"},
		{name: "surrounding spaces", input: " 12.34 ", want: "12.34"},
		{name: "three places", input: "1.005", wantErr: true},
		{name: "exponent", input: "1e3", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "garbage", input: "ten", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, Format(got))
		})
	}
}

func TestRound_HalfUp(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"5.555", "5.56"},
		{"5.554", "5.55"},
		{"2.345", "2.35"},
		{"0.005", "0.01"},
		{"10", "10.00"},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, Format(Round(decimal.RequireFromString(tc.in))))
		})
	}
}

func TestHasValidScale(t *testing.T) {
	assert.True(t, HasValidScale(decimal.RequireFromString("999999.99")))
	assert.True(t, HasValidScale(decimal.RequireFromString("1.10")))
	assert.False(t, HasValidScale(decimal.RequireFromString("0.001")))
}
