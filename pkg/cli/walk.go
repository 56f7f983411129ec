package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/danpilch/mprof/pkg/output"
	"github.com/danpilch/mprof/pkg/profiler"
)

var (
	pollStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func newWalkCmd(a *app) *cobra.Command {
	var (
		polls   int
		objects bool
	)

	cmd := &cobra.Command{
		Use:   "walk TRACE",
		Short: "Replay a trace and walk the live samples with the cursor",
		Long: `Replay a trace, then walk every per-thread sample through the live
cursor, printing its call stack, totals and allocated objects.

With --polls N the trace is replayed N times into the same profiler and the
samples are walked after every pass. The bytes each method allocated between
walks are shown as a trend at the end.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if polls < 1 {
				return fmt.Errorf("--polls must be at least 1, got %d", polls)
			}

			s, err := a.newSession(false)
			if err != nil {
				return err
			}
			defer s.profiler.Teardown()

			w := cmd.OutOrStdout()
			tracker := output.NewSparklineTracker(polls)
			for i := 1; i <= polls; i++ {
				s.profiler.Resume()
				if err := a.play(cmd.Context(), s, args[0]); err != nil {
					return err
				}
				if polls > 1 {
					fmt.Fprintln(w, pollStyle.Render(fmt.Sprintf("Poll %d/%d", i, polls)))
				}
				deltas := walk(w, s.profiler, objects)
				for _, name := range tracker.Methods() {
					if _, ok := deltas[name]; !ok {
						deltas[name] = 0
					}
				}
				for name, d := range deltas {
					tracker.Record(name, d)
				}
			}

			if polls > 1 {
				fmt.Fprintln(w, pollStyle.Render("Allocation trend"))
				for _, name := range tracker.Methods() {
					fmt.Fprintf(w, "  %-30s %s\n", name, tracker.Sparkline(name))
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&polls, "polls", 1, "number of replay and walk passes")
	cmd.Flags().BoolVar(&objects, "objects", true, "list allocated objects under each method")
	return cmd
}

// walk prints every sample and returns the bytes allocated per method name
// since the previous walk.
func walk(w io.Writer, p *profiler.Profiler, objects bool) map[string]uint64 {
	deltas := make(map[string]uint64)
	if p.Stats().Samples == 0 {
		fmt.Fprintln(w, dimStyle.Render("  no samples"))
		return deltas
	}

	c := p.Cursor()
	c.Begin()
	defer c.End()

	for more := true; more; more = c.Next() {
		stack := strings.Split(c.CallStack(), "\n")
		indent := strings.Repeat("  ", len(stack))
		name := c.MethodName()
		delta := c.AllocatedBytesDelta()
		deltas[name] += delta

		fmt.Fprintf(w, "%s%s %s\n", indent, name, dimStyle.Render(fmt.Sprintf(
			"[thread %d] %d calls, %s, %s (+%s)",
			c.Thread(), c.CallCount(), c.TotalTime(),
			humanize.IBytes(c.AllocatedBytes()), humanize.IBytes(delta))))

		if !objects {
			continue
		}
		c.BeginObjects()
		for more := c.ObjectName() != ""; more; more = c.NextObject() {
			fmt.Fprintf(w, "%s  * %s %s x%d\n", indent, c.ObjectName(),
				humanize.IBytes(c.ObjectBytes()), c.ObjectCount())
		}
		c.EndObjects()
	}
	return deltas
}
