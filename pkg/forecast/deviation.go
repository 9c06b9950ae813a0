package forecast

import (
	"math"

	"github.com/raterudder/pvcast/pkg/types"
)

const (
	// RiskThreshold is the deviation percentage at which the model is
	// flagged for recalibration.
	RiskThreshold = 15.0

	// minMeaningfulKW is the power below which a value is treated as zero
	// when computing deviation.
	minMeaningfulKW = 1.0
)

// Deviation returns the percentage gap between actual and forecast. A
// meaningful actual against a near-zero forecast is full disagreement (100);
// both near zero is no deviation.
func Deviation(actual, forecast float64) float64 {
	switch {
	case forecast > minMeaningfulKW:
		return math.Abs(actual-forecast) / forecast * 100
	case actual > minMeaningfulKW:
		return 100.0
	default:
		return 0.0
	}
}

// Classify returns StatusRisk when pct reaches RiskThreshold.
func Classify(pct float64) types.Status {
	if pct >= RiskThreshold {
		return types.StatusRisk
	}
	return types.StatusHealthy
}

// Monitor compares actual power with the forecast for the current slot.
func Monitor(actual, forecast float64) types.DeviationReport {
	pct := Deviation(actual, forecast)
	return types.DeviationReport{
		ActualKW:     actual,
		ForecastKW:   forecast,
		DeviationPct: pct,
		Status:       Classify(pct),
	}
}
