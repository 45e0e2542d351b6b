package checks

import (
	"sync"
	"time"
)

const ROUNDTRIP_CAPACITY = 20

// RoundTripper keeps the durations of the most recent checks.
type RoundTripper struct {
	mu                sync.RWMutex
	roundtrips        []time.Duration
	roundtripIdx      int // current index to populate
	count             int
	roundtripCapacity int
}

func NewRoundtripper() *RoundTripper {
	return &RoundTripper{
		mu:                sync.RWMutex{},
		roundtrips:        make([]time.Duration, ROUNDTRIP_CAPACITY),
		roundtripCapacity: ROUNDTRIP_CAPACITY,
	}
}

// Time runs check and records how long it took.
func (rt *RoundTripper) Time(check Checker) (time.Duration, error) {
	start := time.Now()
	err := check.Check()
	took := time.Since(start)

	rt.mu.Lock()
	defer rt.mu.Unlock()

	rt.roundtrips[rt.roundtripIdx] = took
	rt.roundtripIdx = (rt.roundtripIdx + 1) % rt.roundtripCapacity
	if rt.count < rt.roundtripCapacity {
		rt.count++
	}

	return took, err
}

func (rt *RoundTripper) AverageRoundtripTime() time.Duration {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	if rt.count == 0 {
		return time.Duration(0)
	}

	var sum time.Duration
	for _, trip := range rt.roundtrips {
		sum += trip
	}

	return sum / time.Duration(rt.count)
}
