package forecast

import (
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFactor(t *testing.T) {
	f := NewFactor()
	assert.Equal(t, 1.0, f.Get())

	f.Set(0.01)
	assert.Equal(t, MinFactor, f.Get())
	f.Set(9)
	assert.Equal(t, MaxFactor, f.Get())
	f.Set(math.NaN())
	assert.Equal(t, MinFactor, f.Get())

	f.Set(1.0)
	assert.True(t, f.CompareAndSet(1.0, 0.5))
	assert.Equal(t, 0.5, f.Get())
	assert.False(t, f.CompareAndSet(1.0, 0.7), "stale previous value must not win")
	assert.Equal(t, 0.5, f.Get())
	assert.True(t, f.CompareAndSet(0.5, 100))
	assert.Equal(t, MaxFactor, f.Get())
}

func TestFactorConcurrent(t *testing.T) {
	f := NewFactor()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for j := 0; j < 500; j++ {
				prev := f.Get()
				f.CompareAndSet(prev, rng.Float64()*10-2)
				v := f.Get()
				assert.GreaterOrEqual(t, v, MinFactor)
				assert.LessOrEqual(t, v, MaxFactor)
			}
		}(int64(i))
	}
	wg.Wait()
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.1, Clamp(-3))
	assert.Equal(t, 0.1, Clamp(0.1))
	assert.Equal(t, 1.3, Clamp(1.3))
	assert.Equal(t, 2.5, Clamp(2.5))
	assert.Equal(t, 2.5, Clamp(math.Inf(1)))
}
