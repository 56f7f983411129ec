// Package debug provides instrumentation for mprof itself: hook timing, event
// recording, raw sample dumps and an HTTP debug server.
package debug

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/danpilch/mprof/pkg/host"
	"github.com/danpilch/mprof/pkg/ident"
)

var (
	debugTitle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	debugHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")).Padding(0, 1)
	debugDim    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// HookTiming accumulates the time spent inside one kind of hook.
type HookTiming struct {
	Kind  host.Kind
	Calls uint64
	Total time.Duration
	Max   time.Duration
}

// Mean returns the average time per call.
func (h HookTiming) Mean() time.Duration {
	if h.Calls == 0 {
		return 0
	}
	return h.Total / time.Duration(h.Calls)
}

// TimedHooks wraps host.Hooks and records how long each event takes to handle.
type TimedHooks struct {
	inner host.Hooks

	mu      sync.Mutex
	timings map[host.Kind]*HookTiming
}

// NewTimedHooks wraps h with timing instrumentation.
func NewTimedHooks(h host.Hooks) *TimedHooks {
	return &TimedHooks{
		inner:   h,
		timings: make(map[host.Kind]*HookTiming),
	}
}

func (t *TimedHooks) record(kind host.Kind, start time.Time) {
	d := time.Since(start)
	t.mu.Lock()
	defer t.mu.Unlock()
	ht, ok := t.timings[kind]
	if !ok {
		ht = &HookTiming{Kind: kind}
		t.timings[kind] = ht
	}
	ht.Calls++
	ht.Total += d
	if d > ht.Max {
		ht.Max = d
	}
}

func (t *TimedHooks) OnMethodEnter(thread ident.Thread, frame string) {
	defer t.record(host.KindEnter, time.Now())
	t.inner.OnMethodEnter(thread, frame)
}

func (t *TimedHooks) OnMethodLeave(thread ident.Thread, frame string) {
	defer t.record(host.KindLeave, time.Now())
	t.inner.OnMethodLeave(thread, frame)
}

func (t *TimedHooks) OnAllocation(thread ident.Thread, class string, size uint64) {
	defer t.record(host.KindAlloc, time.Now())
	t.inner.OnAllocation(thread, class, size)
}

func (t *TimedHooks) OnGCEvent(event host.GCEvent, generation int) {
	defer t.record(host.KindGC, time.Now())
	t.inner.OnGCEvent(event, generation)
}

func (t *TimedHooks) OnGCResize(newSize int64) {
	defer t.record(host.KindResize, time.Now())
	t.inner.OnGCResize(newSize)
}

// Timings returns the recorded timings ordered by event kind.
func (t *TimedHooks) Timings() []HookTiming {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]HookTiming, 0, len(t.timings))
	for _, ht := range t.timings {
		out = append(out, *ht)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

// TimingReport prints a styled timing summary.
func TimingReport(w io.Writer, timings []HookTiming) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, debugTitle.Render("Hook Timing Report"))
	fmt.Fprintln(w, debugDim.Render(strings.Repeat("═", 56)))
	fmt.Fprintf(w, "  %s  %s  %s  %s\n",
		debugHeader.Render("HOOK      "),
		debugHeader.Render("CALLS     "),
		debugHeader.Render("MEAN      "),
		debugHeader.Render("MAX       "))
	fmt.Fprintln(w, "  "+debugDim.Render(strings.Repeat("─", 56)))

	var total time.Duration
	var calls uint64
	for _, t := range timings {
		fmt.Fprintf(w, "  %-12s %-12d %-12v %v\n", t.Kind, t.Calls, t.Mean(), t.Max)
		total += t.Total
		calls += t.Calls
	}
	fmt.Fprintln(w, "  "+debugDim.Render(strings.Repeat("─", 56)))
	fmt.Fprintf(w, "  %-12s %-12d %v\n",
		lipgloss.NewStyle().Bold(true).Render("TOTAL"), calls, total)
}
