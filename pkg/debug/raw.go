package debug

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/danpilch/mprof/pkg/report"
)

// DumpRawSamples prints every per-thread sample before cross-thread merging.
func DumpRawSamples(w io.Writer, samples []report.RawSample) {
	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	header := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")).Padding(0, 1)
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	fmt.Fprintln(w)
	fmt.Fprintln(w, title.Render("Raw Samples Dump"))
	fmt.Fprintln(w, dim.Render(strings.Repeat("═", 95)))
	fmt.Fprintf(w, "  %s %s %s %s %s %s\n",
		header.Render("THREAD  "),
		header.Render("METHOD                  "),
		header.Render("DEPTH"),
		header.Render("CALLS   "),
		header.Render("TIME      "),
		header.Render("ALLOCATED   "))
	fmt.Fprintln(w, "  "+dim.Render(strings.Repeat("─", 95)))

	for _, s := range samples {
		fmt.Fprintf(w, "  %-10d %-26s %-7d %-10d %-12v %-12s %s\n",
			s.Thread, s.Name, s.Depth, s.Calls, s.TotalTime.Duration(),
			humanize.IBytes(s.Bytes), dim.Render(fmt.Sprintf("%016x", uint64(s.Signature))))
	}
}
