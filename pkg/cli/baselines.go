package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danpilch/mprof/pkg/baseline"
)

func newBaselinesCmd(a *app) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "baselines",
		Short: "List saved report baselines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := baseline.List(a.fs, dir)
			if err != nil {
				return fmt.Errorf("cannot list baselines: %w", err)
			}
			w := cmd.OutOrStdout()
			if len(names) == 0 {
				fmt.Fprintf(w, "No baselines in %s\n", dir)
				return nil
			}
			for _, n := range names {
				fmt.Fprintln(w, n)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "baseline-dir", baseline.DefaultDir(), "baseline directory")
	return cmd
}
