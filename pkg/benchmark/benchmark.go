// Package benchmark measures the per-event overhead of the profiler hooks.
package benchmark

import (
	"fmt"
	"io"
	"math"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/danpilch/mprof/pkg/host"
	"github.com/danpilch/mprof/pkg/ident"
)

// Options configures a benchmark run.
type Options struct {
	Iterations int
	Warmup     int
	// Depth is the number of nested frames entered per iteration.
	Depth int
	// Thread is the thread id the synthetic workload runs as.
	Thread ident.Thread
}

// DefaultOptions returns sensible benchmark defaults.
func DefaultOptions() Options {
	return Options{
		Iterations: 1000,
		Warmup:     50,
		Depth:      8,
		Thread:     1,
	}
}

// Result holds the latency distribution of one event kind.
type Result struct {
	Event     host.Kind
	Latencies []time.Duration
	P50       time.Duration
	P95       time.Duration
	P99       time.Duration
	StdDev    time.Duration
}

// Overhead holds the Go runtime's allocation counters accumulated during a run.
type Overhead struct {
	AllocBytes uint64
	AllocCount uint64
	GCPauses   uint32
}

var (
	bmTitle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	bmHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")).Padding(0, 1)
	bmDim    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Frame returns the synthetic frame name used at depth i.
func Frame(i int) string {
	return ident.Method("", "Bench", fmt.Sprintf("Level%d", i))
}

// Workload drives one iteration of the synthetic call tree into h: Depth
// nested enters, one allocation in the innermost frame, then the leaves.
// Each event's latency is passed to observe.
func Workload(h host.Hooks, opts Options, observe func(host.Kind, time.Duration)) {
	if observe == nil {
		observe = func(host.Kind, time.Duration) {}
	}
	for i := 0; i < opts.Depth; i++ {
		start := time.Now()
		h.OnMethodEnter(opts.Thread, Frame(i))
		observe(host.KindEnter, time.Since(start))
	}

	start := time.Now()
	h.OnAllocation(opts.Thread, ident.Class("Bench", "Object"), 32)
	observe(host.KindAlloc, time.Since(start))

	for i := opts.Depth - 1; i >= 0; i-- {
		start := time.Now()
		h.OnMethodLeave(opts.Thread, Frame(i))
		observe(host.KindLeave, time.Since(start))
	}
}

// Run benchmarks enter, leave and allocation events against h.
func Run(h host.Hooks, opts Options) []Result {
	for i := 0; i < opts.Warmup; i++ {
		Workload(h, opts, nil)
	}

	latencies := make(map[host.Kind][]time.Duration)
	for i := 0; i < opts.Iterations; i++ {
		Workload(h, opts, func(k host.Kind, d time.Duration) {
			latencies[k] = append(latencies[k], d)
		})
	}

	var results []Result
	for _, kind := range []host.Kind{host.KindEnter, host.KindLeave, host.KindAlloc} {
		l := latencies[kind]
		// Sort latencies for percentile calculation
		sort.Slice(l, func(i, j int) bool {
			return l[i] < l[j]
		})
		results = append(results, Result{
			Event:     kind,
			Latencies: l,
			P50:       percentile(l, 0.50),
			P95:       percentile(l, 0.95),
			P99:       percentile(l, 0.99),
			StdDev:    stddev(l),
		})
	}
	return results
}

// MeasureOverhead returns the runtime's allocation counters.
func MeasureOverhead() Overhead {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return Overhead{
		AllocBytes: m.TotalAlloc,
		AllocCount: m.Mallocs,
		GCPauses:   m.NumGC,
	}
}

// Sub returns the counters accumulated between before and o.
func (o Overhead) Sub(before Overhead) Overhead {
	return Overhead{
		AllocBytes: o.AllocBytes - before.AllocBytes,
		AllocCount: o.AllocCount - before.AllocCount,
		GCPauses:   o.GCPauses - before.GCPauses,
	}
}

// RenderResults outputs styled benchmark results.
func RenderResults(w io.Writer, results []Result, overhead Overhead) {
	fmt.Fprintln(w, bmTitle.Render("Self-Benchmark Results"))
	fmt.Fprintln(w, bmDim.Render(strings.Repeat("═", 70)))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s %s %s %s %s\n",
		bmHeader.Render("EVENT     "),
		bmHeader.Render("P50        "),
		bmHeader.Render("P95        "),
		bmHeader.Render("P99        "),
		bmHeader.Render("STDDEV     "))
	fmt.Fprintln(w, "  "+bmDim.Render(strings.Repeat("─", 70)))

	for _, r := range results {
		fmt.Fprintf(w, "  %-12s %-12v %-12v %-12v %v\n",
			r.Event, r.P50, r.P95, r.P99, r.StdDev)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, bmTitle.Render("Run Overhead"))
	fmt.Fprintln(w, bmDim.Render(strings.Repeat("─", 40)))
	fmt.Fprintf(w, "  Memory allocated: %s\n", lipgloss.NewStyle().Bold(true).Render(humanize.IBytes(overhead.AllocBytes)))
	fmt.Fprintf(w, "  Allocations:      %s\n", lipgloss.NewStyle().Bold(true).Render(humanize.Comma(int64(overhead.AllocCount))))
	fmt.Fprintf(w, "  GC pauses:        %s\n", lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("%d", overhead.GCPauses)))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func stddev(values []time.Duration) time.Duration {
	if len(values) < 2 {
		return 0
	}
	var sum, sumSq float64
	for _, v := range values {
		f := float64(v)
		sum += f
		sumSq += f * f
	}
	n := float64(len(values))
	mean := sum / n
	variance := (sumSq / n) - (mean * mean)
	if variance < 0 {
		variance = 0
	}
	return time.Duration(math.Sqrt(variance))
}
