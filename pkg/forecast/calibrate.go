package forecast

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/raterudder/pvcast/pkg/log"
)

// minCalibrationBaseKW is the smallest base forecast that actual power can
// be divided by.
const minCalibrationBaseKW = 5.0

var (
	// ErrPowerTooLow is returned by Optimize when the base forecast for the
	// current slot is too small to derive a factor from.
	ErrPowerTooLow = errors.New("power too low")

	// ErrCalibrationConflict is returned by Optimize when the factor was
	// changed by someone else while a calibration was in progress.
	ErrCalibrationConflict = errors.New("correction factor changed during calibration")
)

// Optimize recalibrates the correction factor so the forecast for the
// current slot matches the live power at asOf. Only slots from the current
// one onward are affected by the new factor. Calibrations are serialized.
func (e *Engine) Optimize(ctx context.Context, asOf time.Time) (float64, error) {
	e.calibrateMu.Lock()
	defer e.calibrateMu.Unlock()

	asOf = asOf.In(e.location)
	slot := SlotOf(asOf)

	prev := e.factor.Get()
	base := Blend(e.History(ctx, asOf), e.curve, slot)
	actual := e.CurrentPower(ctx, asOf, e.devices(ctx))

	if base <= minCalibrationBaseKW {
		log.Ctx(ctx).InfoContext(ctx, "skipping calibration, base forecast too low", slog.Int("slot", slot), slog.Float64("base", base))
		return 0, ErrPowerTooLow
	}

	next := round(Clamp(actual/base), 4)
	if !e.factor.CompareAndSet(prev, next) {
		return 0, ErrCalibrationConflict
	}

	log.Ctx(ctx).InfoContext(
		ctx,
		"recalibrated correction factor",
		slog.Int("slot", slot),
		slog.Float64("base", base),
		slog.Float64("actual", actual),
		slog.Float64("previous", prev),
		slog.Float64("factor", next),
	)
	return next, nil
}
