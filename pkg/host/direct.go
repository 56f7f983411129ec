package host

import (
	"fmt"
	"sync/atomic"

	"github.com/danpilch/mprof/pkg/ident"
)

type installed struct {
	hooks Hooks
}

// Direct is an in-process Source for instrumenting Go code by hand:
//
//	defer src.Enter("pkg::Type::Method")()
//
// Calls made before Install, or after Uninstall, are dropped.
type Direct struct {
	hooks    atomic.Pointer[installed]
	threadID func() ident.Thread
}

// DirectOption configures a Direct source.
type DirectOption func(*Direct)

// WithThreadID sets the function identifying the calling thread. The default
// is GoroutineID.
func WithThreadID(fn func() ident.Thread) DirectOption {
	return func(d *Direct) {
		if fn != nil {
			d.threadID = fn
		}
	}
}

// NewDirect creates a direct source.
func NewDirect(opts ...DirectOption) *Direct {
	d := &Direct{threadID: GoroutineID}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Install implements Source.
func (d *Direct) Install(h Hooks) error {
	if h == nil {
		return fmt.Errorf("cannot install nil hooks")
	}
	d.hooks.Store(&installed{hooks: h})
	return nil
}

// Uninstall implements Uninstaller.
func (d *Direct) Uninstall() error {
	d.hooks.Store(nil)
	return nil
}

func (d *Direct) load() Hooks {
	if in := d.hooks.Load(); in != nil {
		return in.hooks
	}
	return nil
}

// Enter reports entry into frame and returns the matching leave.
func (d *Direct) Enter(frame string) func() {
	h := d.load()
	if h == nil {
		return func() {}
	}
	thread := d.threadID()
	h.OnMethodEnter(thread, frame)
	return func() {
		if h := d.load(); h != nil {
			h.OnMethodLeave(thread, frame)
		}
	}
}

// EnterMethod is Enter for the frame ident.Method(namespace, typeName, method).
func (d *Direct) EnterMethod(namespace, typeName, method string) func() {
	return d.Enter(ident.Method(namespace, typeName, method))
}

// AllocObject is Alloc for the class ident.Class(namespace, className).
func (d *Direct) AllocObject(namespace, className string, size uint64) {
	d.Alloc(ident.Class(namespace, className), size)
}

// Alloc reports an allocation of size bytes of class on the calling thread.
func (d *Direct) Alloc(class string, size uint64) {
	if h := d.load(); h != nil {
		h.OnAllocation(d.threadID(), class, size)
	}
}

// GC reports a garbage collection phase.
func (d *Direct) GC(event GCEvent, generation int) {
	if h := d.load(); h != nil {
		h.OnGCEvent(event, generation)
	}
}

// Resize reports a new heap size.
func (d *Direct) Resize(newSize int64) {
	if h := d.load(); h != nil {
		h.OnGCResize(newSize)
	}
}
