package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/levenlabs/go-lflag"
	"github.com/raterudder/pvcast/pkg/forecast"
	"github.com/raterudder/pvcast/pkg/log"
	"github.com/raterudder/pvcast/pkg/storage"
	"github.com/raterudder/pvcast/pkg/types"
)

func main() {
	_ = godotenv.Load()

	s := storage.Configured()
	e := forecast.Configured(s, forecast.NewFactor())
	window := lflag.Duration("seed-window", 7*24*time.Hour, "How far back to seed readings")
	deviceIDs := lflag.String("seed-devices", "1,2,3", "comma-delimited list of device IDs to seed")
	lflag.Configure()

	ctx := context.Background()
	defer s.Close()

	ids := strings.Split(*deviceIDs, ",")
	log.Ctx(ctx).InfoContext(ctx, "seeding mock data", slog.Duration("window", *window), slog.Int("devices", len(ids)))

	// Use a new random source
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	devices := make([]types.Device, len(ids))
	for i, id := range ids {
		id = strings.TrimSpace(id)
		devices[i] = types.Device{
			ID:   id,
			Name: "String Inverter " + id,
		}
		if err := s.UpsertDevice(ctx, devices[i]); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to seed device", slog.Any("error", err))
			os.Exit(1)
		}
	}

	now := e.Now()
	since := now.Add(-*window)
	readings := seedReadings(rng, devices, since, now)
	for _, reading := range readings {
		if err := s.InsertReading(ctx, reading); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to seed reading", slog.Any("error", err))
			os.Exit(1)
		}
	}

	today := forecast.StartOfDay(now)
	for day := forecast.StartOfDay(since); day.Before(today); day = day.AddDate(0, 0, 1) {
		record := types.ForecastRecord{
			Date:         day,
			DeviationPct: 2 + rng.Float64()*18,
		}
		if err := s.UpsertForecastRecord(ctx, record); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to seed forecast record", slog.Any("error", err))
			os.Exit(1)
		}
		fmt.Printf("Seeded forecast record for %s\n", day.Format("2006-01-02"))
	}

	log.Ctx(ctx).InfoContext(ctx, "seeded mock data successfully", slog.Int("readings", len(readings)))
}

// seedReadings generates a reading per device for every generating slot that
// starts within [start, end].
func seedReadings(rng *rand.Rand, devices []types.Device, start, end time.Time) []types.Reading {
	var readings []types.Reading
	for day := forecast.StartOfDay(start); !day.After(end); day = day.AddDate(0, 0, 1) {
		for slot := 0; slot < forecast.SlotsPerDay; slot++ {
			ts := forecast.SlotStart(day, slot)
			if ts.Before(start) {
				continue
			}
			if ts.After(end) {
				break
			}
			plantKW := forecast.DefaultCurve.Rule(slot)
			if plantKW <= 0 {
				continue
			}
			// afternoon clouds
			if ts.Hour() == 14 {
				plantKW *= 0.6 + rng.Float64()*0.2
			}
			for i, dev := range devices {
				kw := plantKW / float64(len(devices)) * (0.95 + rng.Float64()*0.1)
				// the second string is partially shaded
				if i == 1 {
					kw *= 0.85
				}
				volts := 650 + (rng.Float64()*20 - 10)
				readings = append(readings, types.Reading{
					DeviceID:       dev.ID,
					Timestamp:      ts,
					VoltageV:       volts,
					CurrentA:       kw * 1000 / volts,
					GenKWH:         kw / forecast.SlotsPerHour,
					InverterEffPct: 98.5,
				})
			}
		}
	}
	return readings
}
