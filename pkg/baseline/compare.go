package baseline

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/danpilch/mprof/pkg/report"
)

// Severity indicates the magnitude of a metric drift.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityMinor    Severity = "minor"
	SeverityModerate Severity = "moderate"
	SeverityMajor    Severity = "major"
	SeverityRegress  Severity = "regression"
)

// Metric names a compared quantity.
type Metric string

const (
	MetricTime  Metric = "time"
	MetricBytes Metric = "bytes"
)

// Comparison holds the drift of one method metric.
type Comparison struct {
	Method      string
	Metric      Metric
	BaselineVal float64
	CurrentVal  float64
	DeltaPct    float64
	Severity    Severity
}

var (
	blTitle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	blHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")).Padding(0, 1)
	blDim    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	blOK     = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	blWarn   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	blErr    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	blMinor  = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
)

type totals struct {
	order []string
	vals  map[string]float64
}

func (t *totals) add(name string, v float64) {
	if t.vals == nil {
		t.vals = make(map[string]float64)
	}
	if _, ok := t.vals[name]; !ok {
		t.order = append(t.order, name)
	}
	t.vals[name] += v
}

// byName sums each view per method name, since one name can appear under
// several call paths.
func byName(rep *report.Report) (timeTotals, byteTotals totals) {
	for _, m := range rep.Time.Methods {
		timeTotals.add(m.Name, m.TotalTime)
	}
	for _, m := range rep.Memory.Methods {
		byteTotals.add(m.Name, float64(m.TotalSize))
	}
	return timeTotals, byteTotals
}

// Compare matches methods by name and calculates time and byte drift. Methods
// missing from either side are skipped.
func Compare(baseline *Baseline, current *report.Report) []Comparison {
	baseTime, baseBytes := byName(baseline.Report)
	curTime, curBytes := byName(current)

	var comparisons []Comparison
	for _, pair := range []struct {
		metric    Metric
		base, cur totals
	}{
		{MetricTime, baseTime, curTime},
		{MetricBytes, baseBytes, curBytes},
	} {
		for _, name := range pair.cur.order {
			base, ok := pair.base.vals[name]
			if !ok {
				continue
			}
			cur := pair.cur.vals[name]

			var deltaPct float64
			if base != 0 {
				deltaPct = ((cur - base) / math.Abs(base)) * 100
			} else if cur != 0 {
				deltaPct = 100
			}

			comparisons = append(comparisons, Comparison{
				Method:      name,
				Metric:      pair.metric,
				BaselineVal: base,
				CurrentVal:  cur,
				DeltaPct:    deltaPct,
				Severity:    classifySeverity(deltaPct),
			})
		}
	}

	return comparisons
}

func classifySeverity(deltaPct float64) Severity {
	absDelta := math.Abs(deltaPct)
	if absDelta < 5 {
		return SeverityNone
	}
	if absDelta < 15 {
		return SeverityMinor
	}
	if absDelta < 30 {
		return SeverityModerate
	}
	if deltaPct > 0 {
		return SeverityRegress
	}
	return SeverityMajor
}

func formatValue(m Metric, v float64) string {
	if m == MetricBytes {
		return humanize.IBytes(uint64(v))
	}
	return fmt.Sprintf("%.6fs", v)
}

// RenderComparison outputs a styled comparison table.
func RenderComparison(w io.Writer, baseline *Baseline, comparisons []Comparison) {
	fmt.Fprintln(w, blTitle.Render("Baseline Comparison"))
	fmt.Fprintln(w, blDim.Render(strings.Repeat("═", 90)))
	fmt.Fprintf(w, "Comparing against %s (from %s)\n\n",
		lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("%q", baseline.Name)),
		blDim.Render(baseline.Timestamp.Format("2006-01-02 15:04:05")))

	fmt.Fprintf(w, "  %s %s %s %s %s %s\n",
		blHeader.Render("METHOD                  "),
		blHeader.Render("METRIC"),
		blHeader.Render("BASELINE    "),
		blHeader.Render("CURRENT     "),
		blHeader.Render("DELTA    "),
		blHeader.Render("SEVERITY  "))
	fmt.Fprintln(w, "  "+blDim.Render(strings.Repeat("─", 90)))

	regressions := 0
	for _, c := range comparisons {
		deltaStr := fmt.Sprintf("%+.1f%%", c.DeltaPct)
		var sevStr string
		switch c.Severity {
		case SeverityRegress:
			sevStr = blErr.Render("REGRESSION")
			regressions++
		case SeverityMajor:
			sevStr = blErr.Render("MAJOR")
			regressions++
		case SeverityModerate:
			sevStr = blWarn.Render("moderate")
		case SeverityMinor:
			sevStr = blMinor.Render("minor")
		default:
			sevStr = blOK.Render("none")
		}

		fmt.Fprintf(w, "  %-25s %-8s %-14s %-14s %-10s %s\n",
			c.Method, c.Metric, formatValue(c.Metric, c.BaselineVal), formatValue(c.Metric, c.CurrentVal), deltaStr, sevStr)
	}

	fmt.Fprintln(w)
	if regressions > 0 {
		fmt.Fprintf(w, "  %s\n", blErr.Render(fmt.Sprintf("%d potential regressions detected.", regressions)))
	} else {
		fmt.Fprintf(w, "  %s\n", blOK.Render("No significant regressions detected."))
	}
}
