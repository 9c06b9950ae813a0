package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/levenlabs/go-lflag"
	"github.com/raterudder/pvcast/pkg/common"
	"github.com/raterudder/pvcast/pkg/forecast"
	"github.com/raterudder/pvcast/pkg/log"
)

// simCurve is the per-device generation shape (kW) the simulated strings
// follow. It differs from forecast.DefaultCurve.
var simCurve = forecast.Curve{
	0, 0, 0, 0, 0, 0,
	10, 80, 180, 320, 450, 500, // 06:00 - 11:00
	510, 480, 380, 250, 150, 60, // 12:00 - 17:00
	10, 0, 0, 0, 0, 0,
}

type upload struct {
	DeviceID       string  `json:"device_id"`
	StringVoltageV float64 `json:"string_voltage_v"`
	StringCurrentA float64 `json:"string_current_a"`
	InverterEffPct float64 `json:"inverter_eff_pct"`
	GenKWH         float64 `json:"gen_kwh"`
}

func main() {
	_ = godotenv.Load()

	target := lflag.String("target", "http://localhost:8080/upload", "URL readings are posted to")
	interval := lflag.Duration("interval", 5*time.Second, "Time between uploads")
	scaling := map[string]float64{"1": 1.0, "2": 0.85, "3": 1.15}
	lflag.JSON(&scaling, "devices", scaling, "JSON map of device ID to output scaling")
	simFactorStr := lflag.String("sim-factor", "1.1", "Multiplier applied to the whole simulated curve")

	var simFactor float64
	lflag.Do(func() {
		var err error
		simFactor, err = strconv.ParseFloat(*simFactorStr, 64)
		if err != nil {
			panic(fmt.Errorf("invalid sim-factor %q: %w", *simFactorStr, err))
		}
		if *interval <= 0 {
			panic(fmt.Sprintf("interval must be positive: %s", *interval))
		}
		if err := simCurve.Validate(); err != nil {
			panic(err)
		}
	})
	lflag.Configure()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	deviceIDs := make([]string, 0, len(scaling))
	for id := range scaling {
		deviceIDs = append(deviceIDs, id)
	}
	sort.Strings(deviceIDs)

	client := common.HTTPClient(10 * time.Second)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	log.Ctx(ctx).InfoContext(ctx, "starting simulator", slog.String("target", *target), slog.Any("devices", deviceIDs))

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		now := time.Now()
		base := simCurve.Interpolate(now.Hour(), float64(now.Minute())/60) * simFactor
		for _, id := range deviceIDs {
			u := simulate(rng, id, base*scaling[id], *interval)
			if err := common.PostJSON(ctx, client, *target, u); err != nil {
				log.Ctx(ctx).WarnContext(ctx, "failed to upload reading", slog.String("deviceID", id), slog.Any("error", err))
				continue
			}
			log.Ctx(ctx).DebugContext(ctx, "uploaded reading", slog.String("deviceID", id), slog.Float64("kw", u.StringVoltageV*u.StringCurrentA/1000))
		}

		select {
		case <-ctx.Done():
			log.Ctx(ctx).InfoContext(ctx, "simulator stopped")
			return
		case <-ticker.C:
		}
	}
}

// simulate builds one noisy reading of a device expected to produce kw.
func simulate(rng *rand.Rand, deviceID string, kw float64, interval time.Duration) upload {
	if kw > 0 {
		kw = kw*(0.98+rng.Float64()*0.04) + (rng.Float64()*4 - 2)
	}
	if kw < 0 {
		kw = 0
	}
	volts := 650 + (rng.Float64()*10 - 5)
	return upload{
		DeviceID:       deviceID,
		StringVoltageV: volts,
		StringCurrentA: kw * 1000 / volts,
		InverterEffPct: 98.5,
		GenKWH:         kw * interval.Hours(),
	}
}
