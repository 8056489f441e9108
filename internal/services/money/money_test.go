package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{name: "whole units", input: "125", want: 12500},
		{name: "two decimals", input: "125.50", want: 12550},
		{name: "one decimal", input: "5.5", want: 550},
		{name: "zero", input: "0", want: 0},
		{name: "cents only", input: "0.99", want: 99},
		{name: "leading dot", input: ".75", want: 75},
		{name: "surrounding spaces", input: " 10.00 ", want: 1000},
		{name: "negative rejected", input: "-1.00", wantErr: true},
		{name: "explicit plus rejected", input: "+1.00", wantErr: true},
		{name: "empty rejected", input: "", wantErr: true},
		{name: "three decimals rejected", input: "1.005", wantErr: true},
		{name: "not a number", input: "abc", wantErr: true},
		{name: "NaN rejected", input: "NaN", wantErr: true},
		{name: "Inf rejected", input: "Inf", wantErr: true},
		{name: "scientific notation rejected", input: "1e3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToMinorUnits(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidAmount)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToDisplay(t *testing.T) {
	assert.Equal(t, "125.50", ToDisplay(12550))
	assert.Equal(t, "0.05", ToDisplay(5))
	assert.Equal(t, "0.00", ToDisplay(0))
	assert.Equal(t, "100.00", ToDisplay(10000))
	assert.Equal(t, "-3.25", ToDisplay(-325))
}

func TestRoundTrip(t *testing.T) {
	for _, v := range []int64{0, 1, 99, 100, 12550, 999999999} {
		got, err := ToMinorUnits(ToDisplay(v))
		assert.NoError(t, err)
		assert.Equal(t, v, got)
	}
}
