package baseline

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpilch/mprof/pkg/clock"
	"github.com/danpilch/mprof/pkg/report"
	"github.com/danpilch/mprof/pkg/sample"
)

// build returns a report with A::Foo taking fooTime µs and B::Bar allocating barBytes.
func build(fooTime clock.Tick, barBytes uint64) *report.Report {
	reg := sample.NewRegistry()
	foo := reg.GetOrCreate(1, 1, "A::Foo", 1, sample.NoParent)
	bar := reg.GetOrCreate(1, 2, "B::Bar", 2, foo)
	reg.Enter(foo, 0)
	reg.Enter(bar, 0)
	reg.RecordAllocation(bar, "C::Obj", barBytes)
	reg.Leave(bar, 1)
	reg.Leave(foo, fooTime)
	return report.Build(reg, report.Options{Details: true})
}

func TestSaveLoadList(t *testing.T) {
	fs := afero.NewMemMapFs()

	names, err := List(fs, "/baselines")
	require.NoError(t, err)
	assert.Empty(t, names)

	b := NewBaseline("before", build(100, 24))
	b.Metadata = map[string]string{"trace": "game.trace"}
	require.NoError(t, b.Save(fs, "/baselines"))

	names, err = List(fs, "/baselines")
	require.NoError(t, err)
	assert.Equal(t, []string{"before"}, names)

	loaded, err := Load(fs, "before", "/baselines")
	require.NoError(t, err)
	assert.Equal(t, "before", loaded.Name)
	assert.Equal(t, "game.trace", loaded.Metadata["trace"])
	require.Len(t, loaded.Report.Memory.Methods, 2)
	assert.Equal(t, "B::Bar", loaded.Report.Memory.Methods[0].Name)
	assert.EqualValues(t, 24, loaded.Report.Memory.Methods[0].TotalSize)

	_, err = Load(fs, "missing", "/baselines")
	assert.Error(t, err)
}

func TestCompare(t *testing.T) {
	base := NewBaseline("before", build(100, 100))

	comparisons := Compare(base, build(200, 110))
	byKey := make(map[string]Comparison)
	for _, c := range comparisons {
		byKey[c.Method+"/"+string(c.Metric)] = c
	}

	foo := byKey["A::Foo/time"]
	assert.InDelta(t, 100, foo.DeltaPct, 1e-9)
	assert.Equal(t, SeverityRegress, foo.Severity)

	bar := byKey["B::Bar/bytes"]
	assert.InDelta(t, 10, bar.DeltaPct, 1e-9)
	assert.Equal(t, SeverityMinor, bar.Severity)

	zero := byKey["A::Foo/bytes"]
	assert.Zero(t, zero.DeltaPct)
	assert.Equal(t, SeverityNone, zero.Severity)
}

func TestCompareSkipsUnknownMethods(t *testing.T) {
	base := NewBaseline("empty", &report.Report{})
	assert.Empty(t, Compare(base, build(100, 24)))
}

func TestClassifySeverity(t *testing.T) {
	tests := []struct {
		delta float64
		want  Severity
	}{
		{0, SeverityNone},
		{-4.9, SeverityNone},
		{10, SeverityMinor},
		{-20, SeverityModerate},
		{45, SeverityRegress},
		{-45, SeverityMajor},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classifySeverity(tt.delta), "delta %v", tt.delta)
	}
}

func TestRenderComparison(t *testing.T) {
	base := NewBaseline("before", build(100, 100))
	var buf bytes.Buffer
	RenderComparison(&buf, base, Compare(base, build(200, 100)))
	out := buf.String()
	assert.Contains(t, out, "A::Foo")
	assert.Contains(t, out, "1 potential regressions detected.")
}
