package forecast

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/raterudder/pvcast/pkg/log"
	"github.com/raterudder/pvcast/pkg/types"
)

// History maps slots to the average aggregate power observed in that slot
// over the trailing window. Slots without readings are absent.
//
// Err is set when the store could not be read. The history is then empty and
// forecasts fall back to the baseline curve, but callers can still tell a
// store failure apart from a window with no readings.
type History struct {
	slots map[int]float64
	Err   error
}

// NewHistory returns a History backed by slots.
func NewHistory(slots map[int]float64) History {
	return History{slots: slots}
}

// Get returns the historical value for slot and whether one exists.
func (h History) Get(slot int) (float64, bool) {
	v, ok := h.slots[slot]
	return v, ok
}

// Len returns the number of slots that have history.
func (h History) Len() int {
	return len(h.slots)
}

// History extracts the per-slot historical feature for the window ending at
// asOf. It never fails: store errors are logged and returned in History.Err
// alongside an empty history.
func (e *Engine) History(ctx context.Context, asOf time.Time) History {
	asOf = asOf.In(e.location)
	since := asOf.Add(-e.historyWindow)

	readings, err := e.store.ReadingsSince(ctx, since)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to read history readings, falling back to baseline", slog.Any("error", err))
		return History{Err: fmt.Errorf("failed to get readings since %s: %w", since.Format(time.RFC3339), err)}
	}
	count, err := e.store.DeviceCount(ctx)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to count devices, falling back to baseline", slog.Any("error", err))
		return History{Err: fmt.Errorf("failed to count devices: %w", err)}
	}

	slots := slotMeans(readings, e.location, func(ts time.Time) bool {
		return !ts.Before(since) && !ts.After(asOf)
	})
	scale := float64(max(count, 1))
	for slot, v := range slots {
		slots[slot] = v * scale
	}

	log.Ctx(ctx).DebugContext(
		ctx,
		"extracted history",
		slog.Int("readings", len(readings)),
		slog.Int("slots", len(slots)),
		slog.Int("devices", count),
	)
	return History{slots: slots}
}

// slotMeans averages the power of the readings accepted by keep, per slot of
// their timestamp in loc.
func slotMeans(readings []types.Reading, loc *time.Location, keep func(time.Time) bool) map[int]float64 {
	sums := make(map[int]float64)
	counts := make(map[int]int)
	for _, r := range readings {
		ts := r.Timestamp.In(loc)
		if !keep(ts) || !usable(r) {
			continue
		}
		slot := SlotOf(ts)
		sums[slot] += r.PowerKW()
		counts[slot]++
	}
	for slot, n := range counts {
		sums[slot] /= float64(n)
	}
	return sums
}

// usable reports whether r can be aggregated. Rows stored before validation
// existed may not be.
func usable(r types.Reading) bool {
	return r.Validate() == nil
}
