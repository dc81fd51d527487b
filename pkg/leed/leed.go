// Package leed scores a building's estimated rooftop solar production
// against its estimated consumption, loosely following the LEED renewable
// energy credit methodology: the score is the percentage of annual
// consumption that on-site production could cover.
package leed

import "math"

// CreditThreshold is the score at or above which a building would qualify
// for a renewable-energy credit under the 50%-offset rule.
const CreditThreshold = 50.0

// Score returns production as a percentage of consumption, rounded to one
// decimal place. A non-positive consumption yields 0.
func Score(productionKWh, consumptionKWh float64) float64 {
	if consumptionKWh <= 0 {
		return 0
	}
	return math.Round(productionKWh/consumptionKWh*1000) / 10
}

// Rating classifies a score into the coarse bands used in reports.
func Rating(score float64) string {
	switch {
	case score >= 100:
		return "Excellent - Net-zero energy potential"
	case score >= 50:
		return "Strong solar candidate"
	case score >= 10:
		return "Moderate solar potential"
	default:
		return "Limited solar potential"
	}
}

// MeetsRenewableCredit reports whether a score clears CreditThreshold.
func MeetsRenewableCredit(score float64) bool {
	return score >= CreditThreshold
}
