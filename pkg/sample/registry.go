// Package sample stores the aggregated method and allocation samples.
//
// Methods live in an arena and refer to their caller through a Handle, so the
// call tree survives arena growth. Samples are kept per (thread, signature);
// merging across threads is left to the report builder.
package sample

import (
	"github.com/danpilch/mprof/pkg/clock"
	"github.com/danpilch/mprof/pkg/ident"
	"github.com/danpilch/mprof/pkg/signature"
)

type key struct {
	thread ident.Thread
	sig    signature.Signature
}

// Registry maps (thread, signature) to Method samples. It is not safe for
// concurrent use.
type Registry struct {
	methods    []Method
	index      map[key]Handle
	epoch      uint64
	collisions uint64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		index: make(map[key]Handle),
	}
}

// GetOrCreate returns the method for the call path, creating it on first sight.
//
// A stored entry only matches when its name and depth agree and its parent does
// not contradict parent. Anything else is a signature collision: the next
// signature slot is probed until a match or a free slot is found.
func (r *Registry) GetOrCreate(thread ident.Thread, sig signature.Signature, name string, depth int, parent Handle) Handle {
	if parent != NoParent && !r.validParent(parent, depth) {
		parent = NoParent
	}

	h, probe, ok := r.lookup(thread, sig, name, depth, parent)
	if ok {
		m := &r.methods[h]
		if m.Parent == NoParent {
			// The caller was not sampled when this path was first seen.
			m.Parent = parent
		}
		return h
	}

	if probe != sig {
		r.collisions++
	}
	h = Handle(len(r.methods))
	r.methods = append(r.methods, Method{
		Name:      name,
		Thread:    thread,
		Signature: sig,
		Parent:    parent,
		Depth:     depth,
	})
	r.index[key{thread, probe}] = h
	return h
}

// Find looks up an existing method without creating one, using the same
// identity rules as GetOrCreate. parent may be NoParent when unknown.
func (r *Registry) Find(thread ident.Thread, sig signature.Signature, name string, depth int, parent Handle) (Handle, bool) {
	h, _, ok := r.lookup(thread, sig, name, depth, parent)
	return h, ok
}

// lookup probes from sig for a matching entry. When none matches it returns
// the first free slot.
func (r *Registry) lookup(thread ident.Thread, sig signature.Signature, name string, depth int, parent Handle) (Handle, signature.Signature, bool) {
	for probe := sig; ; probe++ {
		h, ok := r.index[key{thread, probe}]
		if !ok {
			return NoParent, probe, false
		}
		m := &r.methods[h]
		if m.Name != name || m.Depth != depth {
			continue
		}
		if parent == NoParent || m.Parent == NoParent || m.Parent == parent {
			return h, probe, true
		}
	}
}

func (r *Registry) validParent(parent Handle, depth int) bool {
	return parent >= 0 && int(parent) < len(r.methods) && r.methods[parent].Depth == depth-1
}

// Enter starts timing a call of h.
func (r *Registry) Enter(h Handle, now clock.Tick) {
	m := &r.methods[h]
	m.entryTick = now
	m.inFlight = true
	m.CallCount++
}

// Leave stops timing the in-flight call of h and reports whether one existed.
func (r *Registry) Leave(h Handle, now clock.Tick) bool {
	m := &r.methods[h]
	if !m.inFlight {
		return false
	}
	if d := now - m.entryTick; d > 0 {
		m.TotalTime += d
	}
	m.inFlight = false
	return true
}

// Get returns the method stored at h. The pointer is only valid until the
// registry is next modified.
func (r *Registry) Get(h Handle) *Method {
	if h < 0 || int(h) >= len(r.methods) {
		return nil
	}
	return &r.methods[h]
}

// Len returns the number of methods.
func (r *Registry) Len() int {
	return len(r.methods)
}

// Each calls fn for every method in creation order until fn returns false.
func (r *Registry) Each(fn func(Handle, *Method) bool) {
	for i := range r.methods {
		if !fn(Handle(i), &r.methods[i]) {
			return
		}
	}
}

// Ancestors returns the parent chain of h, nearest caller first.
func (r *Registry) Ancestors(h Handle) []Handle {
	var chain []Handle
	m := r.Get(h)
	for m != nil && m.Parent != NoParent && len(chain) < len(r.methods) {
		chain = append(chain, m.Parent)
		m = r.Get(m.Parent)
	}
	return chain
}

// Epoch increments every time the registry is reset.
func (r *Registry) Epoch() uint64 {
	return r.epoch
}

// Collisions returns how many signatures needed probing since the last reset.
func (r *Registry) Collisions() uint64 {
	return r.collisions
}

// Reset drops every sample and starts a new epoch.
func (r *Registry) Reset() {
	r.methods = nil
	r.index = make(map[key]Handle)
	r.collisions = 0
	r.epoch++
}
