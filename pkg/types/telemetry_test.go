package types

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadingPowerKW(t *testing.T) {
	assert.InDelta(t, 6.5, Reading{VoltageV: 650, CurrentA: 10}.PowerKW(), 1e-9)
	assert.Equal(t, 0.0, Reading{VoltageV: 650}.PowerKW())
}

func TestRealtimeJSON(t *testing.T) {
	v := 1.5
	rt := Realtime{
		ChartSeries:    []*float64{&v, nil},
		ForecastSeries: []float64{2, 3},
		Status:         StatusRisk,
	}
	b, err := json.Marshal(rt)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"current_power": 0,
		"daily_energy": 0,
		"co2_reduce": 0,
		"deviation_rate": 0,
		"chart_series": [1.5, null],
		"forecast_series": [2, 3],
		"status": "risk"
	}`, string(b))
}

func TestReadingValidate(t *testing.T) {
	valid := Reading{VoltageV: 650, CurrentA: 800, GenKWH: 0.5, InverterEffPct: 98.5}
	require.NoError(t, valid.Validate())
	require.NoError(t, Reading{}.Validate())

	t.Run("Rejects Non Finite", func(t *testing.T) {
		for _, r := range []Reading{
			{VoltageV: math.NaN()},
			{CurrentA: math.Inf(1)},
			{GenKWH: math.Inf(1)},
			{InverterEffPct: math.NaN()},
		} {
			err := r.Validate()
			assert.ErrorIs(t, err, ErrInvalidReading)
			assert.Contains(t, err.Error(), "not finite")
		}
	})

	t.Run("Rejects Out Of Range", func(t *testing.T) {
		for _, r := range []Reading{
			{VoltageV: -1},
			{CurrentA: -0.1},
			{GenKWH: -2},
			{VoltageV: 1e200, CurrentA: 1e200},
			{VoltageV: MaxVoltageV + 1},
			{CurrentA: MaxCurrentA + 1},
			{InverterEffPct: 101},
		} {
			assert.ErrorIs(t, r.Validate(), ErrInvalidReading, "%+v", r)
		}
	})

	t.Run("Bounds Keep Power Finite", func(t *testing.T) {
		r := Reading{VoltageV: MaxVoltageV, CurrentA: MaxCurrentA}
		require.NoError(t, r.Validate())
		assert.False(t, math.IsInf(r.PowerKW(), 0))
	})
}
