// Package host connects the profiler to whatever produces runtime events: an
// embedding runtime's instrumentation callbacks, direct calls from Go code, or a
// recorded trace.
package host

import (
	"fmt"

	"github.com/danpilch/mprof/pkg/ident"
)

// Hooks receives runtime events. Implementations must be safe for concurrent use.
type Hooks interface {
	OnMethodEnter(thread ident.Thread, frame string)
	OnMethodLeave(thread ident.Thread, frame string)
	OnAllocation(thread ident.Thread, class string, size uint64)
	OnGCEvent(event GCEvent, generation int)
	OnGCResize(newSize int64)
}

// Source installs Hooks into an event producer.
type Source interface {
	Install(h Hooks) error
}

// Uninstaller is implemented by sources that can detach their hooks.
type Uninstaller interface {
	Uninstall() error
}

// GCEvent is a garbage collection phase reported by the runtime.
type GCEvent int

const (
	GCStart GCEvent = iota
	GCMarkStart
	GCMarkEnd
	GCReclaimStart
	GCReclaimEnd
	GCEnd
	GCPreStopWorld
	GCPostStopWorld
	GCPreStartWorld
	GCPostStartWorld
)

var gcEventNames = [...]string{
	GCStart:          "start",
	GCMarkStart:      "mark-start",
	GCMarkEnd:        "mark-end",
	GCReclaimStart:   "reclaim-start",
	GCReclaimEnd:     "reclaim-end",
	GCEnd:            "end",
	GCPreStopWorld:   "pre-stop-world",
	GCPostStopWorld:  "post-stop-world",
	GCPreStartWorld:  "pre-start-world",
	GCPostStartWorld: "post-start-world",
}

func (e GCEvent) String() string {
	if e >= 0 && int(e) < len(gcEventNames) {
		return gcEventNames[e]
	}
	return fmt.Sprintf("gc-event(%d)", int(e))
}

// ParseGCEvent accepts the names produced by GCEvent.String.
func ParseGCEvent(s string) (GCEvent, error) {
	for i, name := range gcEventNames {
		if name == s {
			return GCEvent(i), nil
		}
	}
	return 0, fmt.Errorf("unknown gc event %q", s)
}
