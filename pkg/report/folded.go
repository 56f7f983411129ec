package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Metric selects the value written per folded stack.
type Metric int

const (
	// MetricBytes uses the bytes allocated directly by the innermost frame.
	MetricBytes Metric = iota
	// MetricTime uses self time in microseconds: total time minus the total
	// time of the node's callees.
	MetricTime
	// MetricCalls uses the call count.
	MetricCalls
)

var metricNames = [...]string{
	MetricBytes: "bytes",
	MetricTime:  "time",
	MetricCalls: "calls",
}

func (m Metric) String() string {
	if m >= 0 && int(m) < len(metricNames) {
		return metricNames[m]
	}
	return fmt.Sprintf("metric(%d)", int(m))
}

// ParseMetric resolves a metric by name.
func ParseMetric(s string) (Metric, error) {
	for i, name := range metricNames {
		if strings.EqualFold(s, name) {
			return Metric(i), nil
		}
	}
	return 0, fmt.Errorf("unknown metric %q (want bytes, time or calls)", s)
}

// WriteFolded writes rep as folded stacks ("outer;inner value"), one line per
// call path with a non-zero value, sorted by path.
func WriteFolded(w io.Writer, rep *Report, metric Metric) error {
	stacks := make(map[string]uint64, len(rep.nodes))

	var childTime []int64
	if metric == MetricTime {
		childTime = make([]int64, len(rep.nodes))
		for _, n := range rep.nodes {
			if n.Parent >= 0 {
				childTime[n.Parent] += int64(n.TotalTime)
			}
		}
	}

	for i, n := range rep.nodes {
		var v uint64
		switch metric {
		case MetricBytes:
			v = n.Bytes
		case MetricCalls:
			v = n.Calls
		case MetricTime:
			if self := int64(n.TotalTime) - childTime[i]; self > 0 {
				v = uint64(self)
			}
		}
		if v == 0 {
			continue
		}
		stacks[strings.Join(n.Path, ";")] += v
	}
	return writeCollapsed(w, stacks)
}

func writeCollapsed(w io.Writer, stacks map[string]uint64) error {
	keys := make([]string, 0, len(stacks))
	for k := range stacks {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if _, err := fmt.Fprintf(w, "%s %d\n", k, stacks[k]); err != nil {
			return err
		}
	}
	return nil
}
