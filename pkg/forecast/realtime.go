package forecast

import (
	"context"
	"log/slog"
	"time"

	"github.com/raterudder/pvcast/pkg/log"
	"github.com/raterudder/pvcast/pkg/types"
)

// co2KgPerKWH is the CO2 avoided per kWh generated.
const co2KgPerKWH = 0.997

// CurrentPower sums the instantaneous power of every device whose latest
// reading is younger than the staleness cutoff at asOf. A device that stopped
// reporting contributes zero.
func (e *Engine) CurrentPower(ctx context.Context, asOf time.Time, devices []types.Device) float64 {
	var total float64
	for _, dev := range devices {
		last, err := e.store.LatestReading(ctx, dev.ID)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to get latest reading", slog.String("deviceID", dev.ID), slog.Any("error", err))
			continue
		}
		if last == nil {
			continue
		}
		if asOf.Sub(last.Timestamp) >= e.staleAfter {
			log.Ctx(ctx).DebugContext(ctx, "ignoring stale reading", slog.String("deviceID", dev.ID), slog.Time("timestamp", last.Timestamp))
			continue
		}
		if !usable(*last) {
			log.Ctx(ctx).WarnContext(ctx, "ignoring invalid reading", slog.String("deviceID", dev.ID), slog.Any("error", last.Validate()))
			continue
		}
		total += last.PowerKW()
	}
	return total
}

// ActualSeries builds today's actual-power series at asOf from readings.
// Each known slot is the mean reading power times deviceCount. Unknown slots
// up to the current slot are 0, the current slot is live, and later slots
// are nil.
func ActualSeries(readings []types.Reading, deviceCount int, asOf time.Time, live float64) []*float64 {
	day := StartOfDay(asOf)
	means := slotMeans(readings, asOf.Location(), func(ts time.Time) bool {
		return !ts.Before(day) && !ts.After(asOf)
	})
	scale := float64(max(deviceCount, 1))

	series := make([]*float64, SlotsPerDay)
	for slot, v := range means {
		series[slot] = ptr(round(v*scale, 2))
	}

	current := SlotOf(asOf)
	for slot := 0; slot <= current; slot++ {
		if series[slot] == nil {
			series[slot] = ptr(0.0)
		}
	}
	series[current] = ptr(round(live, 2))
	return series
}

// DailyEnergy sums the generated energy of the readings on asOf's day up to
// asOf.
func DailyEnergy(readings []types.Reading, asOf time.Time) float64 {
	day := StartOfDay(asOf)
	var total float64
	for _, r := range readings {
		if r.Timestamp.Before(day) || r.Timestamp.After(asOf) || !usable(r) {
			continue
		}
		total += r.GenKWH
	}
	return total
}

// Realtime computes the live snapshot for asOf. Every part uses the same
// current slot.
func (e *Engine) Realtime(ctx context.Context, asOf time.Time) types.Realtime {
	rt, _ := e.realtime(ctx, asOf)
	return rt
}

// realtime also returns the unrounded deviation report.
func (e *Engine) realtime(ctx context.Context, asOf time.Time) (types.Realtime, types.DeviationReport) {
	asOf = asOf.In(e.location)
	slot := SlotOf(asOf)

	devices := e.devices(ctx)
	live := e.CurrentPower(ctx, asOf, devices)

	today, err := e.store.ReadingsSince(ctx, StartOfDay(asOf))
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to get today's readings", slog.Any("error", err))
	}

	forecast := e.Forecast(ctx, asOf, e.factor.Get(), slot)
	report := Monitor(live, forecast[slot])
	energy := DailyEnergy(today, asOf)
	// status is classified from the displayed rate
	rate := round(report.DeviationPct, 1)

	return types.Realtime{
		CurrentPower:   round(live, 2),
		DailyEnergy:    round(energy, 1),
		CO2Reduce:      round(energy*co2KgPerKWH/1000, 3),
		DeviationRate:  rate,
		ChartSeries:    ActualSeries(today, len(devices), asOf, live),
		ForecastSeries: forecast,
		Status:         Classify(rate),
	}, report
}

// devices lists the known devices. A store failure is logged and treated as
// an empty device set.
func (e *Engine) devices(ctx context.Context) []types.Device {
	devices, err := e.store.ListDevices(ctx)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to list devices", slog.Any("error", err))
		return nil
	}
	return devices
}

func ptr(v float64) *float64 {
	return &v
}
