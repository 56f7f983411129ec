package sample

import (
	"github.com/danpilch/mprof/pkg/clock"
	"github.com/danpilch/mprof/pkg/ident"
	"github.com/danpilch/mprof/pkg/signature"
)

// Handle addresses a Method inside its registry.
type Handle int32

// NoParent marks a top-level method.
const NoParent Handle = -1

// Method aggregates every call of one call path on one thread.
type Method struct {
	Name      string
	Thread    ident.Thread
	Signature signature.Signature
	Parent    Handle
	Depth     int

	CallCount      uint64
	TotalTime      clock.Tick
	AllocatedBytes uint64

	entryTick clock.Tick
	inFlight  bool
	lastSeen  uint64

	allocs     []Allocation
	allocIndex map[string]int
}

// InFlight reports whether the method has been entered but not yet left.
func (m *Method) InFlight() bool {
	return m.inFlight
}

// AverageTime returns TotalTime divided by CallCount.
func (m *Method) AverageTime() clock.Tick {
	if m.CallCount == 0 {
		return 0
	}
	return m.TotalTime / clock.Tick(m.CallCount)
}

// AllocatedDelta returns the bytes allocated since the previous call and moves
// the watermark forward.
func (m *Method) AllocatedDelta() uint64 {
	d := m.AllocatedBytes - m.lastSeen
	m.lastSeen = m.AllocatedBytes
	return d
}
