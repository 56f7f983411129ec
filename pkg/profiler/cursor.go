package profiler

import (
	"strings"
	"time"

	"github.com/danpilch/mprof/pkg/ident"
	"github.com/danpilch/mprof/pkg/sample"
)

// Cursor walks the live samples in creation order, and the allocations of the
// current sample. Every positioning call pauses collection. Accessors return a
// zero value when the cursor is not on a sample.
//
// A cursor becomes stale when the profiler is cleared or re-initialised; a
// stale cursor behaves as if End had been called.
type Cursor struct {
	p *Profiler

	active bool
	epoch  uint64
	pos    int

	objActive bool
	objMethod int
	objPos    int
}

func (c *Cursor) invalidate() {
	c.active = false
	c.objActive = false
}

// valid reports whether the cursor is active on the current registry epoch.
// Must be called with the profiler lock held.
func (c *Cursor) valid() bool {
	if !c.active {
		return false
	}
	if c.epoch != c.p.registry.Epoch() {
		c.p.logger.WithError(ErrStaleCursor).Debug("cursor used after clear")
		c.invalidate()
		return false
	}
	return true
}

func (c *Cursor) current() *sample.Method {
	if !c.valid() {
		return nil
	}
	return c.p.registry.Get(sample.Handle(c.pos))
}

// Begin positions the cursor on the first sample. It has no effect on an
// active cursor.
func (c *Cursor) Begin() {
	c.p.mu.Lock()
	defer c.p.mu.Unlock()
	c.p.paused.Store(true)
	if c.valid() {
		return
	}
	c.active = true
	c.epoch = c.p.registry.Epoch()
	c.pos = 0
	c.objActive = false
}

// Next advances to the next sample and reports whether there is one.
func (c *Cursor) Next() bool {
	c.p.mu.Lock()
	defer c.p.mu.Unlock()
	if !c.valid() {
		return false
	}
	c.p.paused.Store(true)
	c.objActive = false

	n := c.p.registry.Len()
	if c.pos < n {
		c.pos++
	}
	return c.pos < n
}

// End closes the cursor.
func (c *Cursor) End() {
	c.p.mu.Lock()
	defer c.p.mu.Unlock()
	if !c.active {
		return
	}
	c.p.paused.Store(true)
	c.pos = c.p.registry.Len()
	c.invalidate()
}

// Active reports whether the cursor is open and not stale.
func (c *Cursor) Active() bool {
	c.p.mu.Lock()
	defer c.p.mu.Unlock()
	return c.valid()
}

// MethodName returns the frame name of the current sample.
func (c *Cursor) MethodName() string {
	c.p.mu.Lock()
	defer c.p.mu.Unlock()
	if m := c.current(); m != nil {
		return m.Name
	}
	return ""
}

// CallStack returns the names of the current sample's callers, outermost
// first, followed by the sample itself, one per line.
func (c *Cursor) CallStack() string {
	c.p.mu.Lock()
	defer c.p.mu.Unlock()
	m := c.current()
	if m == nil {
		return ""
	}

	chain := c.p.registry.Ancestors(sample.Handle(c.pos))
	names := make([]string, 0, len(chain)+1)
	for i := len(chain) - 1; i >= 0; i-- {
		names = append(names, c.p.registry.Get(chain[i]).Name)
	}
	names = append(names, m.Name)
	return strings.Join(names, "\n")
}

// AllocatedBytes returns the bytes allocated by the current sample.
func (c *Cursor) AllocatedBytes() uint64 {
	c.p.mu.Lock()
	defer c.p.mu.Unlock()
	if m := c.current(); m != nil {
		return m.AllocatedBytes
	}
	return 0
}

// AllocatedBytesDelta returns the bytes allocated by the current sample since
// the previous call for that sample.
func (c *Cursor) AllocatedBytesDelta() uint64 {
	c.p.mu.Lock()
	defer c.p.mu.Unlock()
	if m := c.current(); m != nil {
		return m.AllocatedDelta()
	}
	return 0
}

// CallCount returns the number of calls of the current sample.
func (c *Cursor) CallCount() uint64 {
	c.p.mu.Lock()
	defer c.p.mu.Unlock()
	if m := c.current(); m != nil {
		return m.CallCount
	}
	return 0
}

// TotalTime returns the time spent in completed calls of the current sample.
func (c *Cursor) TotalTime() time.Duration {
	c.p.mu.Lock()
	defer c.p.mu.Unlock()
	if m := c.current(); m != nil {
		return m.TotalTime.Duration()
	}
	return 0
}

// Thread returns the thread of the current sample.
func (c *Cursor) Thread() ident.Thread {
	c.p.mu.Lock()
	defer c.p.mu.Unlock()
	if m := c.current(); m != nil {
		return m.Thread
	}
	return 0
}

// BeginObjects opens the allocation cursor on the current sample. It has no
// effect when already open on this sample.
func (c *Cursor) BeginObjects() {
	c.p.mu.Lock()
	defer c.p.mu.Unlock()
	if c.current() == nil {
		return
	}
	if c.objActive && c.objMethod == c.pos {
		return
	}
	c.p.paused.Store(true)
	c.objActive = true
	c.objMethod = c.pos
	c.objPos = 0
}

func (c *Cursor) objectsValid() *sample.Method {
	m := c.current()
	if m == nil || !c.objActive || c.objMethod != c.pos {
		return nil
	}
	return m
}

// NextObject advances the allocation cursor and reports whether an entry remains.
func (c *Cursor) NextObject() bool {
	c.p.mu.Lock()
	defer c.p.mu.Unlock()
	m := c.objectsValid()
	if m == nil {
		return false
	}
	c.p.paused.Store(true)

	n := m.NumAllocations()
	if c.objPos < n {
		c.objPos++
	}
	return c.objPos < n
}

// EndObjects closes the allocation cursor.
func (c *Cursor) EndObjects() {
	c.p.mu.Lock()
	defer c.p.mu.Unlock()
	if !c.objActive {
		return
	}
	c.p.paused.Store(true)
	c.objActive = false
}

func (c *Cursor) object() (sample.Allocation, bool) {
	m := c.objectsValid()
	if m == nil {
		return sample.Allocation{}, false
	}
	return m.Allocation(c.objPos)
}

// ObjectName returns the class of the current allocation entry.
func (c *Cursor) ObjectName() string {
	c.p.mu.Lock()
	defer c.p.mu.Unlock()
	if a, ok := c.object(); ok {
		return a.Class
	}
	return ""
}

// ObjectBytes returns the bytes of the current allocation entry.
func (c *Cursor) ObjectBytes() uint64 {
	c.p.mu.Lock()
	defer c.p.mu.Unlock()
	if a, ok := c.object(); ok {
		return a.Bytes
	}
	return 0
}

// ObjectCount returns the instance count of the current allocation entry.
func (c *Cursor) ObjectCount() uint64 {
	c.p.mu.Lock()
	defer c.p.mu.Unlock()
	if a, ok := c.object(); ok {
		return a.Count
	}
	return 0
}
