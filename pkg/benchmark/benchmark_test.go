package benchmark

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpilch/mprof/pkg/host"
	"github.com/danpilch/mprof/pkg/profiler"
)

func TestRun(t *testing.T) {
	p := profiler.New()
	require.NoError(t, p.Init(nil))

	opts := Options{Iterations: 20, Warmup: 2, Depth: 3, Thread: 1}
	results := Run(p, opts)

	require.Len(t, results, 3)
	assert.Equal(t, host.KindEnter, results[0].Event)
	assert.Len(t, results[0].Latencies, 60)
	assert.Len(t, results[1].Latencies, 60)
	assert.Len(t, results[2].Latencies, 20)
	for _, r := range results {
		assert.LessOrEqual(t, r.P50, r.P95)
		assert.LessOrEqual(t, r.P95, r.P99)
	}

	s := p.Stats()
	assert.EqualValues(t, 22*3, s.Enters)
	assert.Zero(t, s.Threads)
	assert.Equal(t, 3, s.Samples)

	nodes := p.Snapshot(false).Nodes()
	require.Len(t, nodes, 3)
	assert.Equal(t, []string{Frame(0), Frame(1), Frame(2)}, nodes[2].Path)
	assert.EqualValues(t, 22*32, nodes[2].Bytes)
}

func TestPercentile(t *testing.T) {
	var l []time.Duration
	for i := 1; i <= 100; i++ {
		l = append(l, time.Duration(i))
	}
	assert.Equal(t, time.Duration(50), percentile(l, 0.50))
	assert.Equal(t, time.Duration(95), percentile(l, 0.95))
	assert.Equal(t, time.Duration(99), percentile(l, 0.99))
	assert.Zero(t, percentile(nil, 0.5))
}

func TestStdDev(t *testing.T) {
	assert.Zero(t, stddev([]time.Duration{5}))
	assert.Equal(t, time.Duration(2), stddev([]time.Duration{2, 4, 4, 4, 5, 5, 7, 9}))
}

func TestRenderResults(t *testing.T) {
	var buf bytes.Buffer
	before := MeasureOverhead()
	RenderResults(&buf, []Result{{Event: host.KindAlloc, P50: time.Microsecond}}, MeasureOverhead().Sub(before))
	assert.Contains(t, buf.String(), "alloc")
	assert.Contains(t, buf.String(), "Run Overhead")
}
