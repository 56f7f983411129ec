package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fooBarTrace = `# two nested frames
enter 1 A::Foo
enter 1 B::Bar
alloc 1 C::Obj 24
tick 10
leave 1 B::Bar
leave 1 A::Foo
`

func newFs(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/foobar.trace", []byte(fooBarTrace), 0o644))
	return fs
}

func run(t *testing.T, fs afero.Fs, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(fs)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestReplayView(t *testing.T) {
	fs := newFs(t)

	out, err := run(t, fs, "replay", "/foobar.trace", "--view", "tsv")
	require.NoError(t, err)
	assert.Equal(t, "A::Foo\t0\nB::Bar\t24\n", out)

	out, err = run(t, fs, "replay", "/foobar.trace", "--view", "tree")
	require.NoError(t, err)
	assert.Contains(t, out, "B::Bar  10µs total, 1 calls, 24 B")
}

func TestReplayWritesReport(t *testing.T) {
	fs := newFs(t)

	out, err := run(t, fs, "replay", "/foobar.trace", "--out", "/report.xml", "--details")
	require.NoError(t, err)
	assert.Empty(t, out, "no view without --view when writing a file")

	data, err := afero.ReadFile(fs, "/report.xml")
	require.NoError(t, err)
	assert.Contains(t, string(data), `<Method name="B::Bar" total_size="24" calls="1">`)
	assert.Contains(t, string(data), `<Object name="C::Obj" size="24" count="1">`)
}

func TestReplayUsesConfiguredFormat(t *testing.T) {
	fs := newFs(t)
	require.NoError(t, afero.WriteFile(fs, "/mprof.yaml", []byte("report:\n  format: tsv\n  path: /mprof.json\n"), 0o644))

	_, err := run(t, fs, "--config", "/mprof.yaml", "replay", "/foobar.trace", "--out", "/report.tsv")
	require.NoError(t, err)
	data, err := afero.ReadFile(fs, "/report.tsv")
	require.NoError(t, err)
	assert.Equal(t, "A::Foo\t0\nB::Bar\t24\n", string(data))

	_, err = run(t, fs, "--config", "/mprof.yaml", "replay", "/foobar.trace", "--dump", "--format", "json")
	require.NoError(t, err)
	data, err = afero.ReadFile(fs, "/mprof.json")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"total_size": 24`)
}

func TestReplayDiagnostics(t *testing.T) {
	fs := newFs(t)

	out, err := run(t, fs, "replay", "/foobar.trace", "--view", "tsv", "--raw", "--timing", "--check")
	require.NoError(t, err)
	assert.Contains(t, out, "Raw Samples Dump")
	assert.Contains(t, out, "Hook Timing Report")
	assert.Contains(t, out, "Cross-Check Validation Report")
	assert.Contains(t, out, "sanity checks passed")

	out, err = run(t, fs, "replay", "/foobar.trace", "--view", "tsv", "--check-json")
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "valid"`)
}

func TestReplayBaselines(t *testing.T) {
	fs := newFs(t)

	out, err := run(t, fs, "replay", "/foobar.trace", "--view", "tsv",
		"--save-baseline", "before", "--baseline-dir", "/baselines")
	require.NoError(t, err)
	assert.Contains(t, out, `Baseline "before" saved`)

	exists, err := afero.Exists(fs, "/baselines/before.json")
	require.NoError(t, err)
	assert.True(t, exists)

	out, err = run(t, fs, "replay", "/foobar.trace", "--view", "tsv",
		"--baseline", "before", "--baseline-dir", "/baselines")
	require.NoError(t, err)
	assert.Contains(t, out, "Baseline Comparison")
	assert.Contains(t, out, "No significant regressions detected.")

	out, err = run(t, fs, "baselines", "--baseline-dir", "/baselines")
	require.NoError(t, err)
	assert.Equal(t, "before\n", out)

	out, err = run(t, fs, "baselines", "--baseline-dir", "/none")
	require.NoError(t, err)
	assert.Contains(t, out, "No baselines in /none")
}

func TestReplayErrors(t *testing.T) {
	fs := newFs(t)
	require.NoError(t, afero.WriteFile(fs, "/bad.trace", []byte("enter 1 A::Foo\njump 1\n"), 0o644))

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing trace", []string{"replay", "/nope.trace"}, "cannot open trace"},
		{"bad trace", []string{"replay", "/bad.trace"}, "trace line 2"},
		{"bad format", []string{"replay", "/foobar.trace", "--out", "/r", "--format", "yaml"}, "yaml"},
		{"bad view", []string{"replay", "/foobar.trace", "--view", "chart"}, "unknown view"},
		{"bad log level", []string{"--log-level", "loud", "replay", "/foobar.trace"}, "invalid configuration"},
		{"no args", []string{"replay"}, "accepts 1 arg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, fs, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestWalk(t *testing.T) {
	fs := newFs(t)

	out, err := run(t, fs, "walk", "/foobar.trace")
	require.NoError(t, err)
	assert.Contains(t, out, "  A::Foo")
	assert.Contains(t, out, "    B::Bar")
	assert.Contains(t, out, "1 calls, 10µs, 24 B (+24 B)")
	assert.Contains(t, out, "* C::Obj 24 B x1")
	assert.NotContains(t, out, "Allocation trend")

	out, err = run(t, fs, "walk", "/foobar.trace", "--polls", "3", "--objects=false")
	require.NoError(t, err)
	assert.Contains(t, out, "Poll 3/3")
	assert.Contains(t, out, "3 calls, 30µs, 72 B (+24 B)")
	assert.NotContains(t, out, "C::Obj")
	assert.Contains(t, out, "Allocation trend")
	assert.Contains(t, out, "███")

	_, err = run(t, fs, "walk", "/foobar.trace", "--polls", "0")
	assert.Error(t, err)
}

func TestBench(t *testing.T) {
	fs := newFs(t)

	out, err := run(t, fs, "bench", "--iterations", "5", "--warmup", "1", "--depth", "2", "--record", "/bench.trace")
	require.NoError(t, err)
	assert.Contains(t, out, "Self-Benchmark Results")

	data, err := afero.ReadFile(fs, "/bench.trace")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# mprof bench: 5 iterations, depth 2"))
	assert.Contains(t, string(data), "enter 1 Bench::Level1")

	out, err = run(t, fs, "replay", "/bench.trace", "--view", "tsv")
	require.NoError(t, err)
	assert.Contains(t, out, "Bench::Level0\t0\n")

	_, err = run(t, fs, "bench", "--depth", "0")
	assert.Error(t, err)
}
