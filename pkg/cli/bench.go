package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danpilch/mprof/pkg/benchmark"
	"github.com/danpilch/mprof/pkg/clock"
	"github.com/danpilch/mprof/pkg/debug"
	"github.com/danpilch/mprof/pkg/host"
	"github.com/danpilch/mprof/pkg/profiler"
)

func newBenchCmd(a *app) *cobra.Command {
	opts := benchmark.DefaultOptions()
	var record string

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure the per-event cost of the profiler",
		Long: `Drive a synthetic call tree through a live profiler and report the latency
distribution of method enter, method leave and allocation events, along with
the Go allocations the run caused.

With --record the synthetic workload is also written as a replayable trace.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Iterations < 1 || opts.Depth < 1 {
				return fmt.Errorf("--iterations and --depth must be positive")
			}

			popts, err := profiler.FromConfig(a.cfg)
			if err != nil {
				return err
			}
			clk := clock.NewMonotonic()
			p := profiler.New(append(popts,
				profiler.WithLogger(a.logger),
				profiler.WithClock(clk),
				profiler.WithFs(a.fs),
			)...)
			if err := p.Init(host.NewDirect()); err != nil {
				return err
			}
			defer p.Teardown()

			var hooks host.Hooks = p
			var rec *debug.Recorder
			if record != "" {
				f, err := a.fs.Create(record)
				if err != nil {
					return fmt.Errorf("cannot create trace: %w", err)
				}
				defer f.Close()
				rec = debug.NewRecorder(f, p, clk)
				rec.Comment(fmt.Sprintf("mprof bench: %d iterations, depth %d", opts.Iterations, opts.Depth))
				hooks = rec
			}

			before := benchmark.MeasureOverhead()
			results := benchmark.Run(hooks, opts)
			overhead := benchmark.MeasureOverhead().Sub(before)

			if rec != nil {
				if err := rec.Flush(); err != nil {
					return fmt.Errorf("cannot write trace: %w", err)
				}
				a.logger.WithField("trace", record).Info("workload recorded")
			}

			benchmark.RenderResults(cmd.OutOrStdout(), results, overhead)
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.Iterations, "iterations", opts.Iterations, "measured iterations")
	cmd.Flags().IntVar(&opts.Warmup, "warmup", opts.Warmup, "unmeasured warmup iterations")
	cmd.Flags().IntVar(&opts.Depth, "depth", opts.Depth, "nested frames per iteration")
	cmd.Flags().StringVar(&record, "record", "", "write the workload as a trace file")
	return cmd
}
