package types

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Device is a photovoltaic generation device (string inverter) that reports
// telemetry.
type Device struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Reading is a single telemetry sample collected from a device. Readings are
// never modified once written.
type Reading struct {
	DeviceID       string    `json:"deviceID"`
	Timestamp      time.Time `json:"timestamp"`
	VoltageV       float64   `json:"voltageV"`
	CurrentA       float64   `json:"currentA"`
	GenKWH         float64   `json:"genKWH"`
	InverterEffPct float64   `json:"inverterEffPct,omitempty"`
}

// Physical bounds of a single string inverter reading.
const (
	MaxVoltageV = 1500.0
	MaxCurrentA = 10000.0
	MaxGenKWH   = 1e6
)

// ErrInvalidReading is wrapped by Reading.Validate.
var ErrInvalidReading = errors.New("invalid reading")

// Validate returns an error wrapping ErrInvalidReading when a measurement is
// not finite, is negative or is beyond the physical bounds of an inverter.
func (r Reading) Validate() error {
	for _, m := range []struct {
		name  string
		value float64
		max   float64
	}{
		{"voltage", r.VoltageV, MaxVoltageV},
		{"current", r.CurrentA, MaxCurrentA},
		{"generated energy", r.GenKWH, MaxGenKWH},
		{"inverter efficiency", r.InverterEffPct, 100},
	} {
		if math.IsNaN(m.value) || math.IsInf(m.value, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalidReading, m.name)
		}
		if m.value < 0 || m.value > m.max {
			return fmt.Errorf("%w: %s %v out of range [0, %v]", ErrInvalidReading, m.name, m.value, m.max)
		}
	}
	return nil
}

// PowerKW returns the instantaneous power of the reading in kW.
func (r Reading) PowerKW() float64 {
	return r.VoltageV * r.CurrentA / 1000.0
}

// ForecastRecord is a persisted daily forecast audit entry.
type ForecastRecord struct {
	Date         time.Time `json:"date"`
	DeviationPct float64   `json:"deviationPct"`
}
