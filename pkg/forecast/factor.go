package forecast

import (
	"math"
	"sync/atomic"
)

const (
	// MinFactor and MaxFactor bound the correction factor.
	MinFactor = 0.1
	MaxFactor = 2.5
)

// Factor holds the process-wide correction factor. It starts at 1.0 and every
// write is clamped to [MinFactor, MaxFactor]. The value is not persisted, so
// a restart resets calibration.
type Factor struct {
	bits atomic.Uint64
}

// NewFactor returns a Factor initialized to 1.0.
func NewFactor() *Factor {
	f := &Factor{}
	f.bits.Store(math.Float64bits(1.0))
	return f
}

// Get returns the current factor.
func (f *Factor) Get() float64 {
	return math.Float64frombits(f.bits.Load())
}

// Set replaces the factor with the clamped value of v.
func (f *Factor) Set(v float64) {
	f.bits.Store(math.Float64bits(Clamp(v)))
}

// CompareAndSet replaces the factor with the clamped value of next only if it
// still equals prev. It reports whether the swap happened.
func (f *Factor) CompareAndSet(prev, next float64) bool {
	return f.bits.CompareAndSwap(math.Float64bits(prev), math.Float64bits(Clamp(next)))
}

// Clamp bounds v to [MinFactor, MaxFactor]. NaN clamps to MinFactor.
func Clamp(v float64) float64 {
	if math.IsNaN(v) || v < MinFactor {
		return MinFactor
	}
	if v > MaxFactor {
		return MaxFactor
	}
	return v
}
