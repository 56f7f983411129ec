package output

import (
	"sort"
	"strings"
	"sync"
)

// SparklineTracker keeps a rolling window of per-method allocation deltas,
// one value per cursor poll.
type SparklineTracker struct {
	mu     sync.Mutex
	data   map[string][]uint64
	maxLen int
}

// NewSparklineTracker creates a tracker with a fixed window size.
func NewSparklineTracker(maxLen int) *SparklineTracker {
	if maxLen < 1 {
		maxLen = 20
	}
	return &SparklineTracker{
		data:   make(map[string][]uint64),
		maxLen: maxLen,
	}
}

// Record appends the bytes a method allocated since the previous poll.
func (s *SparklineTracker) Record(method string, delta uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	vals := append(s.data[method], delta)
	if len(vals) > s.maxLen {
		vals = vals[len(vals)-s.maxLen:]
	}
	s.data[method] = vals
}

// Methods returns the tracked method names, sorted.
func (s *SparklineTracker) Methods() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.data))
	for name := range s.data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sparkline returns the trend of a method, or "" if it was never recorded.
func (s *SparklineTracker) Sparkline(method string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return renderSparkline(s.data[method])
}

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// renderSparkline scales against zero, so a steady non-zero rate draws as a
// flat line at its height and idle polls draw at the bottom.
func renderSparkline(values []uint64) string {
	var peak uint64
	for _, v := range values {
		peak = max(peak, v)
	}

	var b strings.Builder
	top := uint64(len(sparkBlocks) - 1)
	for _, v := range values {
		idx := uint64(0)
		if peak > 0 {
			idx = v * top / peak
		}
		b.WriteRune(sparkBlocks[idx])
	}
	return b.String()
}
