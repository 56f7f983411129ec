package debug

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpilch/mprof/pkg/clock"
	"github.com/danpilch/mprof/pkg/host"
	"github.com/danpilch/mprof/pkg/profiler"
	"github.com/danpilch/mprof/pkg/report"
)

func fooBar(h host.Hooks, c *clock.Manual) {
	h.OnMethodEnter(1, "A::Foo")
	c.Advance(10 * time.Microsecond)
	h.OnMethodEnter(1, "B::Bar")
	h.OnAllocation(1, "C::Obj", 24)
	c.Advance(5 * time.Microsecond)
	h.OnMethodLeave(1, "B::Bar")
	h.OnMethodLeave(1, "A::Foo")
	h.OnGCEvent(host.GCStart, 0)
	h.OnGCResize(4096)
}

func TestRecorderRoundTrip(t *testing.T) {
	c := clock.NewManual(0)
	live := profiler.New(profiler.WithClock(c))
	require.NoError(t, live.Init(nil))

	var trace bytes.Buffer
	rec := NewRecorder(&trace, live, c)
	rec.Comment("recorded")
	fooBar(rec, c)
	require.NoError(t, rec.Flush())

	assert.Equal(t, `# recorded
enter 1 A::Foo
tick 10
enter 1 B::Bar
alloc 1 C::Obj 24
tick 5
leave 1 B::Bar
leave 1 A::Foo
gc start 0
resize 4096
`, trace.String())

	rc := clock.NewManual(0)
	replayed := profiler.New(profiler.WithClock(rc))
	src := host.NewReplay(rc, nil)
	require.NoError(t, replayed.Init(src))
	_, err := src.Run(context.Background(), &trace)
	require.NoError(t, err)

	assert.Equal(t, live.Snapshot(true), replayed.Snapshot(true))
}

func TestTimedHooks(t *testing.T) {
	c := clock.NewManual(0)
	p := profiler.New(profiler.WithClock(c))
	require.NoError(t, p.Init(nil))

	timed := NewTimedHooks(p)
	fooBar(timed, c)

	timings := timed.Timings()
	require.Len(t, timings, 5)
	assert.Equal(t, host.KindEnter, timings[0].Kind)
	assert.EqualValues(t, 2, timings[0].Calls)
	assert.EqualValues(t, 2, timings[1].Calls)
	assert.EqualValues(t, 1, timings[2].Calls)
	assert.GreaterOrEqual(t, timings[0].Max, timings[0].Mean())

	var buf bytes.Buffer
	TimingReport(&buf, timings)
	assert.Contains(t, buf.String(), "enter")
	assert.Contains(t, buf.String(), "TOTAL")

	assert.EqualValues(t, 24, p.Snapshot(false).Memory.Methods[0].TotalSize)
}

func TestDumpRawSamples(t *testing.T) {
	c := clock.NewManual(0)
	p := profiler.New(profiler.WithClock(c))
	require.NoError(t, p.Init(nil))
	fooBar(p, c)

	var buf bytes.Buffer
	DumpRawSamples(&buf, p.RawSamples())
	out := buf.String()
	assert.Contains(t, out, "A::Foo")
	assert.Contains(t, out, "B::Bar")
	assert.Contains(t, out, "24 B")
}

func TestHandler(t *testing.T) {
	c := clock.NewManual(0)
	p := profiler.New(profiler.WithClock(c))
	require.NoError(t, p.Init(nil))
	fooBar(p, c)

	srv := httptest.NewServer(Handler(p))
	defer srv.Close()

	tests := []struct {
		query       string
		status      int
		contentType string
		body        string
	}{
		{"", http.StatusOK, "application/xml", `<Method name="B::Bar" total_size="24"`},
		{"?format=tsv", http.StatusOK, "text/plain; charset=utf-8", "B::Bar\t24"},
		{"?format=json&details=true", http.StatusOK, "application/json", `"C::Obj"`},
		{"?format=folded", http.StatusOK, "text/plain; charset=utf-8", "A::Foo;B::Bar 24"},
		{"?format=folded&metric=time", http.StatusOK, "text/plain; charset=utf-8", "A::Foo 10\nA::Foo;B::Bar 5\n"},
		{"?format=folded&metric=cpu", http.StatusBadRequest, "", "unknown metric"},
		{"?format=svg", http.StatusBadRequest, "", "unknown report format"},
		{"?details=perhaps", http.StatusBadRequest, "", "invalid details"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp, err := http.Get(srv.URL + "/debug/mprof/report" + tt.query)
			require.NoError(t, err)
			defer resp.Body.Close()

			var body bytes.Buffer
			_, err = body.ReadFrom(resp.Body)
			require.NoError(t, err)

			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.contentType != "" {
				assert.Equal(t, tt.contentType, resp.Header.Get("Content-Type"))
			}
			assert.Contains(t, body.String(), tt.body)
		})
	}
}

func TestHandlerServesPprof(t *testing.T) {
	p := profiler.New()
	srv := httptest.NewServer(Handler(p))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/debug/pprof/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStartServer(t *testing.T) {
	p := profiler.New()
	stop, err := StartServer("127.0.0.1:0", p, nil)
	require.NoError(t, err)
	stop()

	_, err = StartServer("bad-address", p, nil)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "debug server failed"))
}

var _ Snapshotter = (*profiler.Profiler)(nil)

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/octet-stream", contentType(report.FormatPprof))
}
