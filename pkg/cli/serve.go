package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/danpilch/mprof/pkg/debug"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve TRACE",
		Short: "Replay a trace and serve the profile over HTTP",
		Long: `Replay a trace, then serve the profile until interrupted:

  /debug/mprof/report?format=xml|tsv|json|pprof|folded&details=true&metric=bytes|time|calls
  /debug/pprof/   the Go runtime profiles of mprof itself`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.newSession(false)
			if err != nil {
				return err
			}
			defer s.profiler.Teardown()

			if err := a.play(cmd.Context(), s, args[0]); err != nil {
				return err
			}

			stop, err := debug.StartServer(addr, s.profiler, a.logger)
			if err != nil {
				return err
			}
			defer stop()
			fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on http://%s/debug/mprof/report\n", args[0], addr)

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "localhost:6060", "listen address")
	return cmd
}
