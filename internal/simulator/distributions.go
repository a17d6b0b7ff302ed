package simulator

import (
	"math/rand"
	"sync"
	"time"
)

// uniformRideTimer draws each ride's length from [min, max). Car drivers
// call it concurrently, so the shared source is guarded.
type uniformRideTimer struct {
	mu  sync.Mutex
	rng *rand.Rand
	min time.Duration
	max time.Duration
}

func newUniformRideTimer(seed int64, min, max time.Duration) *uniformRideTimer {
	return &uniformRideTimer{
		rng: rand.New(rand.NewSource(seed)),
		min: min,
		max: max,
	}
}

func (t *uniformRideTimer) RideDuration(carID int) time.Duration {
	if t.max <= t.min {
		return t.min
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.min + time.Duration(t.rng.Int63n(int64(t.max-t.min)))
}

// arrivalDelays spaces passenger arrivals uniformly in [0, jitter).
func arrivalDelays(rng *rand.Rand, count int, jitter time.Duration) []time.Duration {
	delays := make([]time.Duration, count)
	if jitter <= 0 {
		return delays
	}
	for i := range delays {
		delays[i] = time.Duration(rng.Int63n(int64(jitter)))
	}
	return delays
}
