package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/danpilch/mprof/pkg/baseline"
	"github.com/danpilch/mprof/pkg/crosscheck"
	"github.com/danpilch/mprof/pkg/debug"
	"github.com/danpilch/mprof/pkg/output"
	"github.com/danpilch/mprof/pkg/report"
)

type replayOptions struct {
	out          string
	dump         bool
	format       string
	details      bool
	view         string
	limit        int
	raw          bool
	timing       bool
	check        bool
	checkJSON    bool
	saveBaseline string
	baseline     string
	baselineDir  string
}

func newReplayCmd(a *app) *cobra.Command {
	var o replayOptions

	cmd := &cobra.Command{
		Use:   "replay TRACE",
		Short: "Replay a trace and report the profile",
		Long: `Replay a recorded event trace into a fresh profiler and report the result.

With --out the report is written atomically in --format (defaults to the
configured report format). A terminal view is printed unless --out is given
without --view.`,
		Example: `  mprof replay game.trace
  mprof replay game.trace --out profile.xml --details
  mprof replay game.trace --view tree --check
  mprof replay game.trace --save-baseline before
  mprof replay game.trace --baseline before`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("format") {
				o.format = a.cfg.Report.Format
			}
			if !cmd.Flags().Changed("details") {
				o.details = a.cfg.Report.Details
			}
			if o.dump && o.out == "" {
				o.out = a.cfg.Report.Path
			}
			printView := o.out == "" || cmd.Flags().Changed("view")
			return a.runReplay(cmd, args[0], o, printView)
		},
	}

	cmd.Flags().StringVarP(&o.out, "out", "o", "", "write the report to this path")
	cmd.Flags().BoolVar(&o.dump, "dump", false, "write the report to the configured report.path")
	cmd.Flags().StringVar(&o.format, "format", "", "report file format: xml, tsv, json, pprof or folded")
	cmd.Flags().BoolVar(&o.details, "details", false, "include call stacks and per-class allocations")
	cmd.Flags().StringVar(&o.view, "view", string(output.FormatTable), "terminal view: table, tree, ai, tsv or json")
	cmd.Flags().IntVar(&o.limit, "limit", output.DefaultLimit, "rows per view (0 for all)")
	cmd.Flags().BoolVar(&o.raw, "raw", false, "print the unmerged per-thread samples")
	cmd.Flags().BoolVar(&o.timing, "timing", false, "print per-event hook latency")
	cmd.Flags().BoolVar(&o.check, "check", false, "cross-check the profile for lost or inconsistent events")
	cmd.Flags().BoolVar(&o.checkJSON, "check-json", false, "print cross-check results as JSON")
	cmd.Flags().StringVar(&o.saveBaseline, "save-baseline", "", "save the report as a named baseline")
	cmd.Flags().StringVar(&o.baseline, "baseline", "", "compare the report against a named baseline")
	cmd.Flags().StringVar(&o.baselineDir, "baseline-dir", baseline.DefaultDir(), "baseline directory")

	return cmd
}

func (a *app) runReplay(cmd *cobra.Command, trace string, o replayOptions, printView bool) error {
	format, err := report.ParseFormat(o.format)
	if err != nil {
		return err
	}
	view, err := output.ParseFormat(o.view)
	if err != nil {
		return err
	}

	s, err := a.newSession(o.timing)
	if err != nil {
		return err
	}
	defer s.profiler.Teardown()

	if err := a.play(cmd.Context(), s, trace); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if o.out != "" {
		if err := s.profiler.DumpFormat(o.out, o.details, format); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Report written to %s\n", o.out)
	}

	rep := s.profiler.Snapshot(true)
	if printView {
		f := output.NewFormatter(view, w)
		f.SetLimit(o.limit)
		if err := f.Render(rep); err != nil {
			return err
		}
	}

	if o.raw {
		fmt.Fprintln(w)
		debug.DumpRawSamples(w, s.profiler.RawSamples())
	}
	if o.timing && s.timed != nil {
		fmt.Fprintln(w)
		debug.TimingReport(w, s.timed.Timings())
	}
	if o.check || o.checkJSON {
		if err := checkProfile(w, s, rep, o.checkJSON); err != nil {
			return err
		}
	}
	return a.baselines(w, rep, trace, o)
}

func checkProfile(w io.Writer, s *session, rep *report.Report, asJSON bool) error {
	validations, sanity := crosscheck.RunCrossChecks(rep, s.profiler.RawSamples(), s.profiler.Stats())
	if asJSON {
		return crosscheck.ReportJSON(w, validations, sanity)
	}
	crosscheck.Report(w, validations, sanity)
	return nil
}

func (a *app) baselines(w io.Writer, rep *report.Report, trace string, o replayOptions) error {
	if o.baseline != "" {
		b, err := baseline.Load(a.fs, o.baseline, o.baselineDir)
		if err != nil {
			return err
		}
		fmt.Fprintln(w)
		baseline.RenderComparison(w, b, baseline.Compare(b, rep))
	}

	if o.saveBaseline != "" {
		b := baseline.NewBaseline(o.saveBaseline, rep)
		b.Metadata = map[string]string{"trace": trace}
		if err := b.Save(a.fs, o.baselineDir); err != nil {
			return err
		}
		a.logger.WithField("baseline", o.saveBaseline).Info("baseline saved")
		fmt.Fprintf(w, "Baseline %q saved to %s\n", o.saveBaseline, o.baselineDir)
	}
	return nil
}
