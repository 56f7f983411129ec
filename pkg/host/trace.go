package host

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/danpilch/mprof/pkg/ident"
)

// Kind is the type of a trace event.
type Kind int

const (
	KindEnter Kind = iota
	KindLeave
	KindAlloc
	KindGC
	KindResize
	KindTick
)

var kindNames = [...]string{
	KindEnter:  "enter",
	KindLeave:  "leave",
	KindAlloc:  "alloc",
	KindGC:     "gc",
	KindResize: "resize",
	KindTick:   "tick",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Event is one line of a trace:
//
//	enter <tid> <frame>
//	leave <tid> <frame>
//	alloc <tid> <class> <bytes>
//	gc <event> <generation>
//	resize <bytes>
//	tick <micros>
type Event struct {
	Kind       Kind
	Thread     ident.Thread
	Name       string
	Bytes      uint64
	GC         GCEvent
	Generation int
	// Value holds the new heap size for resize and the clock advance for tick.
	Value int64
}

// ParseEvent parses one trace line. Frame and class names run to the end of the
// line (for alloc, up to the size) and keep their inner whitespace verbatim;
// only leading and trailing whitespace is dropped.
func ParseEvent(line string) (Event, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Event{}, fmt.Errorf("empty event")
	}

	var e Event
	switch fields[0] {
	case "enter", "leave":
		if len(fields) < 3 {
			return e, fmt.Errorf("%s: want thread and frame", fields[0])
		}
		e.Kind = KindEnter
		if fields[0] == "leave" {
			e.Kind = KindLeave
		}
		tid, err := parseThread(fields[1])
		if err != nil {
			return e, err
		}
		e.Thread = tid
		e.Name = remainder(line, 2)

	case "alloc":
		if len(fields) < 4 {
			return e, fmt.Errorf("alloc: want thread, class and bytes")
		}
		e.Kind = KindAlloc
		tid, err := parseThread(fields[1])
		if err != nil {
			return e, err
		}
		e.Thread = tid
		rest := remainder(line, 2)
		e.Name = strings.TrimRightFunc(rest[:strings.LastIndexFunc(rest, unicode.IsSpace)], unicode.IsSpace)
		n, err := strconv.ParseUint(fields[len(fields)-1], 10, 64)
		if err != nil {
			return e, fmt.Errorf("alloc: invalid size %q: %w", fields[len(fields)-1], err)
		}
		e.Bytes = n

	case "gc":
		if len(fields) != 3 {
			return e, fmt.Errorf("gc: want event and generation")
		}
		e.Kind = KindGC
		ev, err := ParseGCEvent(fields[1])
		if err != nil {
			return e, err
		}
		e.GC = ev
		gen, err := strconv.Atoi(fields[2])
		if err != nil {
			return e, fmt.Errorf("gc: invalid generation %q: %w", fields[2], err)
		}
		e.Generation = gen

	case "resize", "tick":
		if len(fields) != 2 {
			return e, fmt.Errorf("%s: want one value", fields[0])
		}
		e.Kind = KindResize
		if fields[0] == "tick" {
			e.Kind = KindTick
		}
		v, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return e, fmt.Errorf("%s: invalid value %q: %w", fields[0], fields[1], err)
		}
		if e.Kind == KindTick && v < 0 {
			return e, fmt.Errorf("tick: negative advance %d", v)
		}
		e.Value = v

	default:
		return e, fmt.Errorf("unknown event %q", fields[0])
	}
	return e, nil
}

// remainder returns line without its first n whitespace-separated fields,
// trimmed at both ends.
func remainder(line string, n int) string {
	rest := strings.TrimSpace(line)
	for i := 0; i < n; i++ {
		end := strings.IndexFunc(rest, unicode.IsSpace)
		if end < 0 {
			return ""
		}
		rest = strings.TrimLeftFunc(rest[end:], unicode.IsSpace)
	}
	return rest
}

func parseThread(s string) (ident.Thread, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid thread id %q: %w", s, err)
	}
	return ident.Thread(n), nil
}

// String formats e in the trace grammar accepted by ParseEvent.
func (e Event) String() string {
	switch e.Kind {
	case KindEnter, KindLeave:
		return fmt.Sprintf("%s %d %s", e.Kind, e.Thread, e.Name)
	case KindAlloc:
		return fmt.Sprintf("alloc %d %s %d", e.Thread, e.Name, e.Bytes)
	case KindGC:
		return fmt.Sprintf("gc %s %d", e.GC, e.Generation)
	case KindResize, KindTick:
		return fmt.Sprintf("%s %d", e.Kind, e.Value)
	}
	return e.Kind.String()
}

// Deliver passes e to h. Tick events carry no hook and are ignored.
func Deliver(h Hooks, e Event) {
	switch e.Kind {
	case KindEnter:
		h.OnMethodEnter(e.Thread, e.Name)
	case KindLeave:
		h.OnMethodLeave(e.Thread, e.Name)
	case KindAlloc:
		h.OnAllocation(e.Thread, e.Name, e.Bytes)
	case KindGC:
		h.OnGCEvent(e.GC, e.Generation)
	case KindResize:
		h.OnGCResize(e.Value)
	}
}
