package forecast

import (
	"context"
	"math"
	"time"
)

// NoSplit applies the factor to every slot of a generated series.
const NoSplit = -1

// smoothingAmplitude is the relative amplitude of the deterministic per-slot
// perturbation applied to generated values.
const smoothingAmplitude = 0.002

// Generate produces the 288-slot forecast from base. Slots before split keep
// factor 1.0 so earlier predictions are never rewritten by a later
// calibration; slots at or after split use factor. Pass NoSplit to apply
// factor everywhere.
func Generate(base [SlotsPerDay]float64, factor float64, split int) []float64 {
	series := make([]float64, SlotsPerDay)
	for slot, v := range base {
		active := factor
		if slot < split {
			active = 1.0
		}
		val := v * active * smoothing(slot)
		if val < 0 {
			val = 0
		}
		series[slot] = round(val, 2)
	}
	return series
}

// smoothing is a bounded periodic term of the slot index. It is the same for
// the same slot on every call.
func smoothing(slot int) float64 {
	return 1 + math.Sin(float64(slot))*smoothingAmplitude
}

// Forecast generates the series for the day of asOf using the history
// window ending at asOf.
func (e *Engine) Forecast(ctx context.Context, asOf time.Time, factor float64, split int) []float64 {
	return Generate(BaseSeries(e.History(ctx, asOf), e.curve), factor, split)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
