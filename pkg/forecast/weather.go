package forecast

import (
	"context"
	"time"

	"github.com/raterudder/pvcast/pkg/types"
)

var weatherFactors = map[types.Weather]float64{
	types.WeatherSunny:  1.15,
	types.WeatherCloudy: 0.65,
	types.WeatherRainy:  0.25,
}

// WeatherFactor returns the factor of a weather scenario and whether tag is
// a known scenario.
func WeatherFactor(tag string) (float64, bool) {
	f, ok := weatherFactors[types.Weather(tag)]
	return f, ok
}

// Simulate previews a full day under a weather scenario. The scenario factor
// applies to every slot regardless of the time of day. An unknown or empty
// tag previews the day with the live correction factor instead.
func (e *Engine) Simulate(ctx context.Context, asOf time.Time, tag string) []float64 {
	factor, ok := WeatherFactor(tag)
	if !ok {
		factor = e.factor.Get()
	}
	return e.Forecast(ctx, asOf, factor, NoSplit)
}
