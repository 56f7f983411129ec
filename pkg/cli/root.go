// Package cli implements the mprof command line.
package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/danpilch/mprof/pkg/config"
	"github.com/danpilch/mprof/pkg/logging"
)

// app carries the state shared by every subcommand once the root command
// has loaded the configuration.
type app struct {
	fs         afero.Fs
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *logrus.Logger
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.LoadFs(a.fs, a.configPath)
	if err != nil {
		return err
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	logger.WithFields(logrus.Fields{
		"config": a.configPath,
		"hash":   cfg.Profiler.Hash,
		"format": cfg.Report.Format,
	}).Debug("configuration loaded")
	return nil
}

// NewRootCmd builds the mprof command tree over the OS filesystem.
func NewRootCmd() *cobra.Command {
	return newRootCmd(afero.NewOsFs())
}

func newRootCmd(fsys afero.Fs) *cobra.Command {
	a := &app{fs: fsys}

	root := &cobra.Command{
		Use:   "mprof",
		Short: "mprof - method timing and allocation profiler",
		Long: `Aggregate method timings and object allocations from a stream of
instrumentation events into per-call-path samples.

Events come from recorded traces, one event per line:
  enter THREAD FRAME
  leave THREAD FRAME
  alloc THREAD CLASS SIZE
  gc EVENT GENERATION
  resize BYTES
  tick MICROSECONDS

Reports are written as XML (default), TSV, JSON, pprof or folded stacks.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to a YAML configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (overrides config and "+config.EnvLogLevel+")")

	root.AddCommand(
		newReplayCmd(a),
		newWalkCmd(a),
		newBenchCmd(a),
		newServeCmd(a),
		newBaselinesCmd(a),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
