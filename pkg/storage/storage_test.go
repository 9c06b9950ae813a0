package storage

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raterudder/pvcast/pkg/types"
)

func TestValidateReading(t *testing.T) {
	ts := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Valid", func(t *testing.T) {
		require.NoError(t, validateReading(types.Reading{DeviceID: "inv-1", Timestamp: ts, VoltageV: 650, CurrentA: 10, InverterEffPct: 98.5}))
	})

	t.Run("Missing Device", func(t *testing.T) {
		assert.ErrorIs(t, validateReading(types.Reading{Timestamp: ts}), ErrMissingDeviceID)
	})

	t.Run("Missing Timestamp", func(t *testing.T) {
		err := validateReading(types.Reading{DeviceID: "inv-1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing timestamp")
	})

	t.Run("Overflowing Measurements", func(t *testing.T) {
		err := validateReading(types.Reading{DeviceID: "inv-1", Timestamp: ts, VoltageV: 1e200, CurrentA: 1e200})
		assert.ErrorIs(t, err, types.ErrInvalidReading)
		assert.Contains(t, err.Error(), "inv-1")
	})

	t.Run("Non Finite Energy", func(t *testing.T) {
		err := validateReading(types.Reading{DeviceID: "inv-1", Timestamp: ts, GenKWH: math.NaN()})
		assert.ErrorIs(t, err, types.ErrInvalidReading)
	})
}
