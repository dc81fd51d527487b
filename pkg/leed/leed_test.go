package leed

import (
	"math"
	"testing"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name           string
		productionKWh  float64
		consumptionKWh float64
		want           float64
	}{
		{"half of consumption", 25000, 50000, 50},
		{"net zero", 50000, 50000, 100},
		{"over-production", 75000, 50000, 150},
		{"small share rounds to one decimal", 4567, 50000, 9.1},
		{"zero production", 0, 50000, 0},
		{"zero consumption guards division", 10000, 0, 0},
		{"negative consumption guards division", 10000, -5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.productionKWh, tt.consumptionKWh); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Score(%v, %v) = %v, want %v", tt.productionKWh, tt.consumptionKWh, got, tt.want)
			}
		})
	}
}

func TestRating(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{150, "Excellent - Net-zero energy potential"},
		{100, "Excellent - Net-zero energy potential"},
		{99.9, "Strong solar candidate"},
		{50, "Strong solar candidate"},
		{49.9, "Moderate solar potential"},
		{10, "Moderate solar potential"},
		{9.9, "Limited solar potential"},
		{0, "Limited solar potential"},
	}

	for _, tt := range tests {
		if got := Rating(tt.score); got != tt.want {
			t.Errorf("Rating(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestMeetsRenewableCredit(t *testing.T) {
	if !MeetsRenewableCredit(50) {
		t.Error("MeetsRenewableCredit(50) = false, want true")
	}
	if MeetsRenewableCredit(49.99) {
		t.Error("MeetsRenewableCredit(49.99) = true, want false")
	}
}
