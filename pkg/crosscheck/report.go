package crosscheck

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/danpilch/mprof/pkg/profiler"
	"github.com/danpilch/mprof/pkg/report"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")).Padding(0, 1)
	validStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	suspectStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	conflictStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	passStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	failStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Sources derives the cross-checked quantities from the merged report, the
// unmerged samples and the profiler's event counters.
func Sources(rep *report.Report, raw []report.RawSample, stats profiler.Stats) map[string][]Source {
	var memBytes, memCalls, objCount float64
	for _, m := range rep.Memory.Methods {
		memBytes += float64(m.TotalSize)
		memCalls += float64(m.Calls)
	}
	var timeCalls float64
	for _, m := range rep.Time.Methods {
		timeCalls += float64(m.Calls)
	}
	for _, n := range rep.Nodes() {
		for _, o := range n.Objects {
			objCount += float64(o.Count)
		}
	}
	var rawBytes, rawCalls float64
	for _, s := range raw {
		rawBytes += float64(s.Bytes)
		rawCalls += float64(s.Calls)
	}

	return map[string][]Source{
		"Allocated Bytes": {
			{Name: "memory view", Value: memBytes},
			{Name: "raw samples", Value: rawBytes},
		},
		"Method Calls": {
			{Name: "time view", Value: timeCalls},
			{Name: "memory view", Value: memCalls},
			{Name: "raw samples", Value: rawCalls},
		},
		"Allocated Objects": {
			{Name: "object counts", Value: objCount},
			{Name: "event counter", Value: float64(stats.Allocations - stats.DroppedAllocations)},
		},
	}
}

// RunCrossChecks performs the full validation of a profile.
func RunCrossChecks(rep *report.Report, raw []report.RawSample, stats profiler.Stats) ([]ValidationResult, []SanityResult) {
	validator := NewValidator()
	sources := Sources(rep, raw, stats)

	var validations []ValidationResult
	for _, metric := range []string{"Allocated Bytes", "Method Calls", "Allocated Objects"} {
		validations = append(validations, validator.CrossCheck(metric, sources[metric]))
	}

	return validations, RunSanityChecks(rep)
}

// Report outputs cross-check validation results and sanity checks as a styled table.
func Report(w io.Writer, validations []ValidationResult, sanity []SanityResult) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render("Cross-Check Validation Report"))
	fmt.Fprintln(w, dimStyle.Render(strings.Repeat("═", 60)))

	if len(validations) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, titleStyle.Render("Profile Cross-Checks"))
		fmt.Fprintf(w, "  %-25s %-12s %-12s %-10s %s\n",
			headerStyle.Render("QUANTITY"), headerStyle.Render("CONSENSUS"),
			headerStyle.Render("MAX DEV"), headerStyle.Render("STATUS"),
			headerStyle.Render("SOURCES"))
		fmt.Fprintln(w, "  "+dimStyle.Render(strings.Repeat("─", 80)))

		for _, v := range validations {
			sourceNames := make([]string, len(v.Sources))
			for i, s := range v.Sources {
				sourceNames[i] = fmt.Sprintf("%s=%.0f", s.Name, s.Value)
			}
			var statusStr string
			switch v.Status {
			case StatusConflict:
				statusStr = conflictStyle.Render("CONFLICT")
			case StatusSuspect:
				statusStr = suspectStyle.Render("SUSPECT")
			default:
				statusStr = validStyle.Render("VALID")
			}
			fmt.Fprintf(w, "  %-25s %-12.0f %-12.1f%% %-10s %s\n",
				v.Metric, v.Consensus, v.MaxDeviation, statusStr,
				dimStyle.Render(strings.Join(sourceNames, ", ")))
		}
	}

	if len(sanity) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, titleStyle.Render("Sanity Checks"))
		failed := 0
		for _, s := range sanity {
			var icon string
			if s.Passed {
				icon = passStyle.Render("PASS")
			} else {
				icon = failStyle.Render("FAIL")
				failed++
			}
			fmt.Fprintf(w, "  [%s] %-40s %s\n", icon, s.Check, dimStyle.Render(s.Details))
		}
		fmt.Fprintln(w)
		if failed == 0 {
			fmt.Fprintf(w, "  %s\n", passStyle.Render(fmt.Sprintf("All %d sanity checks passed.", len(sanity))))
		} else {
			fmt.Fprintf(w, "  %s\n", failStyle.Render(fmt.Sprintf("%d of %d sanity checks failed.", failed, len(sanity))))
		}
	}
}

// ReportJSON outputs cross-check results as JSON.
func ReportJSON(w io.Writer, validations []ValidationResult, sanity []SanityResult) error {
	output := struct {
		Validations []ValidationResult `json:"validations"`
		Sanity      []SanityResult     `json:"sanity"`
	}{
		Validations: validations,
		Sanity:      sanity,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}
