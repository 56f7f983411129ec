package profiler

import (
	"github.com/sirupsen/logrus"

	"github.com/danpilch/mprof/pkg/callstack"
	"github.com/danpilch/mprof/pkg/host"
	"github.com/danpilch/mprof/pkg/ident"
	"github.com/danpilch/mprof/pkg/sample"
)

// OnMethodEnter implements host.Hooks.
func (p *Profiler) OnMethodEnter(thread ident.Thread, frame string) {
	if !p.live.Load() {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.Enters++

	f := p.tracker.Enter(thread, frame)
	if p.paused.Load() {
		return
	}
	h := p.sampleFor(thread, f)
	p.registry.Enter(h, p.opts.clock.Now())
	p.tracker.Bind(thread, h, true)
}

// OnMethodLeave implements host.Hooks.
func (p *Profiler) OnMethodLeave(thread ident.Thread, frame string) {
	if !p.live.Load() {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	f, ok := p.tracker.Leave(thread, frame)
	if !ok {
		p.stats.StrayLeaves++
		return
	}
	p.stats.Leaves++
	// Only a call whose enter was counted may add time.
	if p.paused.Load() || !f.Entered {
		return
	}
	p.registry.Leave(f.Sample, p.opts.clock.Now())
}

// OnAllocation implements host.Hooks. The allocation is attributed to the
// innermost frame of thread.
func (p *Profiler) OnAllocation(thread ident.Thread, class string, size uint64) {
	if !p.live.Load() || p.paused.Load() {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.paused.Load() {
		return
	}
	p.stats.Allocations++

	top, ok := p.tracker.Top(thread)
	if !ok {
		p.stats.DroppedAllocations++
		return
	}
	h := top.Sample
	if h == sample.NoParent {
		h = p.sampleFor(thread, top)
		p.tracker.Bind(thread, h, false)
	}
	p.registry.RecordAllocation(h, class, size)
}

// OnGCEvent implements host.Hooks.
func (p *Profiler) OnGCEvent(event host.GCEvent, generation int) {
	if !p.live.Load() {
		return
	}

	p.mu.Lock()
	p.stats.GCEvents++
	p.stats.LastGCEvent = event
	p.mu.Unlock()

	p.logger.WithFields(logrus.Fields{
		"event":      event,
		"generation": generation,
	}).Debug("gc event")
}

// OnGCResize implements host.Hooks.
func (p *Profiler) OnGCResize(newSize int64) {
	if !p.live.Load() {
		return
	}

	p.mu.Lock()
	p.stats.Resizes++
	p.stats.HeapSize = newSize
	p.mu.Unlock()

	p.logger.WithField("size", newSize).Debug("gc resize")
}

// sampleFor returns the sample of the active frame f, linking it to the
// caller's sample when the caller has one.
func (p *Profiler) sampleFor(thread ident.Thread, f callstack.Frame) sample.Handle {
	if f.Sample != sample.NoParent {
		return f.Sample
	}
	return p.registry.GetOrCreate(thread, f.Signature, f.Name, f.Depth, f.ParentSample)
}
