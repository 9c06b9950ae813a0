package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/raterudder/pvcast/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresProviderValidate(t *testing.T) {
	assert.Error(t, (&PostgresProvider{}).Validate())
	assert.NoError(t, (&PostgresProvider{databaseURL: "postgres://localhost/pvcast"}).Validate())
}

func TestPostgresProvider(t *testing.T) {
	url := os.Getenv("PVCAST_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("PVCAST_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	p := &PostgresProvider{databaseURL: url}
	require.NoError(t, p.Init(ctx))
	defer p.Close()

	_, err := p.pool.Exec(ctx, `TRUNCATE pv_generation_data, pv_forecast_data, pv_device`)
	require.NoError(t, err)

	t.Run("Devices", func(t *testing.T) {
		require.NoError(t, p.UpsertDevice(ctx, types.Device{ID: "inv-2", Name: "Inverter 2"}))
		require.NoError(t, p.UpsertDevice(ctx, types.Device{ID: "inv-1", Name: "Inverter 1"}))
		require.NoError(t, p.UpsertDevice(ctx, types.Device{ID: "inv-1", Name: "Inverter 1A"}))

		devices, err := p.ListDevices(ctx)
		require.NoError(t, err)
		assert.Equal(t, []types.Device{{ID: "inv-1", Name: "Inverter 1A"}, {ID: "inv-2", Name: "Inverter 2"}}, devices)

		n, err := p.DeviceCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("Readings", func(t *testing.T) {
		base := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
		for i := 0; i < 3; i++ {
			r := types.Reading{
				DeviceID:  "inv-1",
				Timestamp: base.Add(time.Duration(i) * time.Minute),
				VoltageV:  650,
				CurrentA:  float64(i + 1),
				GenKWH:    0.5,
			}
			require.NoError(t, p.InsertReading(ctx, r))
			// duplicates are ignored
			require.NoError(t, p.InsertReading(ctx, r))
		}

		latest, err := p.LatestReading(ctx, "inv-1")
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.True(t, base.Add(2*time.Minute).Equal(latest.Timestamp))

		none, err := p.LatestReading(ctx, "inv-2")
		require.NoError(t, err)
		assert.Nil(t, none)

		since, err := p.ReadingsSince(ctx, base.Add(30*time.Second))
		require.NoError(t, err)
		assert.Len(t, since, 2)
	})

	t.Run("Reading Registers Device", func(t *testing.T) {
		require.NoError(t, p.InsertReading(ctx, types.Reading{DeviceID: "inv-3", Timestamp: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC), VoltageV: 650, CurrentA: 1}))

		devices, err := p.ListDevices(ctx)
		require.NoError(t, err)
		require.Len(t, devices, 3)
		assert.Equal(t, "inv-1", devices[0].ID)
		assert.Equal(t, "Inverter 1A", devices[0].Name)
		assert.Equal(t, "inv-3", devices[2].ID)
	})

	t.Run("Forecast History", func(t *testing.T) {
		for i, dev := range []float64{5, 18.5, 9, 30} {
			require.NoError(t, p.UpsertForecastRecord(ctx, types.ForecastRecord{
				Date:         time.Date(2026, 5, 28+i, 0, 0, 0, 0, time.UTC),
				DeviationPct: dev,
			}))
		}
		require.NoError(t, p.UpsertForecastRecord(ctx, types.ForecastRecord{
			Date:         time.Date(2026, 5, 30, 0, 0, 0, 0, time.UTC),
			DeviationPct: 11,
		}))

		records, err := p.ForecastHistory(ctx, time.Date(2026, 5, 31, 0, 0, 0, 0, time.UTC), 2)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, time.Date(2026, 5, 30, 0, 0, 0, 0, time.UTC), records[0].Date)
		assert.Equal(t, 11.0, records[0].DeviationPct)
		assert.Equal(t, 18.5, records[1].DeviationPct)
	})
}
