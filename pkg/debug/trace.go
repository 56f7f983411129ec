package debug

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"github.com/danpilch/mprof/pkg/clock"
	"github.com/danpilch/mprof/pkg/host"
	"github.com/danpilch/mprof/pkg/ident"
)

// Recorder wraps host.Hooks and writes every event in the trace grammar read
// by host.Replay. With a clock attached, the time elapsed between events is
// written as tick lines so a replay reproduces the timing.
type Recorder struct {
	inner host.Hooks
	clock clock.Clock

	mu   sync.Mutex
	w    *bufio.Writer
	last clock.Tick
	err  error
}

// NewRecorder creates a recorder writing to w. inner may be nil to record only.
func NewRecorder(w io.Writer, inner host.Hooks, c clock.Clock) *Recorder {
	r := &Recorder{inner: inner, clock: c, w: bufio.NewWriter(w)}
	if c != nil {
		r.last = c.Now()
	}
	return r
}

func (r *Recorder) write(e host.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return
	}
	if r.clock != nil {
		now := r.clock.Now()
		if d := now - r.last; d > 0 {
			_, r.err = fmt.Fprintf(r.w, "%s\n", host.Event{Kind: host.KindTick, Value: int64(d)})
		}
		r.last = now
	}
	if r.err == nil {
		_, r.err = fmt.Fprintf(r.w, "%s\n", e)
	}
}

// Comment writes a "#" line.
func (r *Recorder) Comment(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err == nil {
		_, r.err = fmt.Fprintf(r.w, "# %s\n", text)
	}
}

// Flush writes any buffered events and returns the first write error.
func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	return r.w.Flush()
}

func (r *Recorder) OnMethodEnter(thread ident.Thread, frame string) {
	r.write(host.Event{Kind: host.KindEnter, Thread: thread, Name: frame})
	if r.inner != nil {
		r.inner.OnMethodEnter(thread, frame)
	}
}

func (r *Recorder) OnMethodLeave(thread ident.Thread, frame string) {
	r.write(host.Event{Kind: host.KindLeave, Thread: thread, Name: frame})
	if r.inner != nil {
		r.inner.OnMethodLeave(thread, frame)
	}
}

func (r *Recorder) OnAllocation(thread ident.Thread, class string, size uint64) {
	r.write(host.Event{Kind: host.KindAlloc, Thread: thread, Name: class, Bytes: size})
	if r.inner != nil {
		r.inner.OnAllocation(thread, class, size)
	}
}

func (r *Recorder) OnGCEvent(event host.GCEvent, generation int) {
	r.write(host.Event{Kind: host.KindGC, GC: event, Generation: generation})
	if r.inner != nil {
		r.inner.OnGCEvent(event, generation)
	}
}

func (r *Recorder) OnGCResize(newSize int64) {
	r.write(host.Event{Kind: host.KindResize, Value: newSize})
	if r.inner != nil {
		r.inner.OnGCResize(newSize)
	}
}
