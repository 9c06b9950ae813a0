package forecast

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/raterudder/pvcast/pkg/log"
	"github.com/raterudder/pvcast/pkg/types"
)

// ModelVersion identifies the forecasting model reported by ModelStatus.
const ModelVersion = "v2.2-segmented"

const (
	defaultHistoryWindow = 7 * 24 * time.Hour
	defaultStaleAfter    = 60 * time.Second
	auditHistoryLimit    = 2
)

// Store is the telemetry the engine reads from.
type Store interface {
	LatestReading(ctx context.Context, deviceID string) (*types.Reading, error)
	ReadingsSince(ctx context.Context, since time.Time) ([]types.Reading, error)
	ListDevices(ctx context.Context) ([]types.Device, error)
	DeviceCount(ctx context.Context) (int, error)
	ForecastHistory(ctx context.Context, before time.Time, limit int) ([]types.ForecastRecord, error)
	UpsertForecastRecord(ctx context.Context, record types.ForecastRecord) error
}

// Engine forecasts photovoltaic generation for a single day and calibrates
// the forecast against live telemetry.
//
// All read operations take an explicit asOf time so that the current slot is
// computed once per request and shared by every part of the response.
type Engine struct {
	store  Store
	factor *Factor
	curve  Curve

	historyWindow time.Duration
	staleAfter    time.Duration
	location      *time.Location

	calibrateMu sync.Mutex
}

// New creates an Engine with the default curve and settings.
func New(store Store, factor *Factor) *Engine {
	return &Engine{
		store:         store,
		factor:        factor,
		curve:         DefaultCurve,
		historyWindow: defaultHistoryWindow,
		staleAfter:    defaultStaleAfter,
		location:      time.Local,
	}
}

// Configured creates an Engine and registers its flags with lflag.
func Configured(store Store, factor *Factor) *Engine {
	e := New(store, factor)

	historyWindow := lflag.Duration("history-window", defaultHistoryWindow, "Trailing window of readings used to build the historical forecast feature")
	staleAfter := lflag.Duration("stale-after", defaultStaleAfter, "Age after which a device's latest reading no longer counts toward live power")
	timezone := lflag.String("timezone", "Local", "IANA timezone of the plant, used to place readings into slots")

	lflag.Do(func() {
		if *historyWindow <= 0 {
			panic(fmt.Sprintf("history-window must be positive: %s", *historyWindow))
		}
		if *staleAfter <= 0 {
			panic(fmt.Sprintf("stale-after must be positive: %s", *staleAfter))
		}
		loc, err := time.LoadLocation(*timezone)
		if err != nil {
			panic(fmt.Errorf("failed to load timezone %q: %w", *timezone, err))
		}
		e.historyWindow = *historyWindow
		e.staleAfter = *staleAfter
		e.location = loc
	})

	return e
}

// Now returns the current time in the plant's timezone.
func (e *Engine) Now() time.Time {
	return time.Now().In(e.location)
}

// Factor returns the live correction factor.
func (e *Engine) Factor() float64 {
	return e.factor.Get()
}

// ModelStatus reports today's live deviation followed by the most recent
// persisted audit records before today.
func (e *Engine) ModelStatus(ctx context.Context, asOf time.Time) types.ModelStatus {
	asOf = asOf.In(e.location)
	rt := e.Realtime(ctx, asOf)

	status := types.ModelStatus{
		Status: rt.Status,
		History: []types.ModelHistoryEntry{{
			Date:      "today (live)",
			Deviation: rt.DeviationRate,
			Status:    rt.Status,
		}},
		ModelVersion: ModelVersion,
	}

	records, err := e.store.ForecastHistory(ctx, StartOfDay(asOf), auditHistoryLimit)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to get forecast history", slog.Any("error", err))
		return status
	}
	for _, r := range records {
		dev := round(r.DeviationPct, 1)
		status.History = append(status.History, types.ModelHistoryEntry{
			Date:      r.Date.In(e.location).Format("01-02"),
			Deviation: dev,
			Status:    Classify(dev),
		})
	}
	return status
}

// RecordAudit persists the live deviation at asOf as the audit record of
// asOf's day, replacing any earlier record for that day.
func (e *Engine) RecordAudit(ctx context.Context, asOf time.Time) (types.ForecastRecord, error) {
	asOf = asOf.In(e.location)
	_, report := e.realtime(ctx, asOf)

	record := types.ForecastRecord{
		Date:         StartOfDay(asOf),
		DeviationPct: round(report.DeviationPct, 2),
	}
	if err := e.store.UpsertForecastRecord(ctx, record); err != nil {
		return types.ForecastRecord{}, fmt.Errorf("failed to save forecast record: %w", err)
	}
	if report.Status == types.StatusRisk {
		log.Ctx(ctx).WarnContext(ctx, "forecast deviation above threshold, recalibration suggested", slog.Float64("deviationPct", record.DeviationPct))
	}
	return record, nil
}
