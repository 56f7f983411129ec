// Package clock provides the microsecond tick source used to time method calls.
package clock

import (
	"sync/atomic"
	"time"
)

// Tick is a point in time measured in microseconds from an arbitrary origin.
type Tick int64

// Duration converts a tick delta to a time.Duration.
func (t Tick) Duration() time.Duration {
	return time.Duration(t) * time.Microsecond
}

// Seconds converts a tick delta to seconds.
func (t Tick) Seconds() float64 {
	return float64(t) / 1e6
}

// Clock returns monotonic ticks.
type Clock interface {
	Now() Tick
}

// Monotonic reads the Go runtime's monotonic clock.
type Monotonic struct {
	start time.Time
}

// NewMonotonic returns a clock whose origin is the moment of the call.
func NewMonotonic() *Monotonic {
	return &Monotonic{start: time.Now()}
}

// Now returns microseconds elapsed since the clock was created.
func (m *Monotonic) Now() Tick {
	return Tick(time.Since(m.start).Microseconds())
}

// Manual is a clock that only moves when told to. Replayed traces and tests use it
// to make timing deterministic.
type Manual struct {
	now atomic.Int64
}

// NewManual returns a manual clock positioned at start.
func NewManual(start Tick) *Manual {
	m := &Manual{}
	m.now.Store(int64(start))
	return m
}

// Now returns the current manual tick.
func (m *Manual) Now() Tick {
	return Tick(m.now.Load())
}

// Set moves the clock to t. Moving backwards is ignored.
func (m *Manual) Set(t Tick) {
	for {
		cur := m.now.Load()
		if int64(t) <= cur {
			return
		}
		if m.now.CompareAndSwap(cur, int64(t)) {
			return
		}
	}
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	m.now.Add(d.Microseconds())
}
