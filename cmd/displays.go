// File: cmd/displays.go
package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/loopautoma/internal/backend"
	"github.com/xkilldash9x/loopautoma/internal/observability"
)

func newDisplaysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "displays",
		Short: "List the displays of the configured backend",
		Long: `Lists every display the configured backend can capture, with its origin in
virtual-desktop coordinates. Region rectangles in profiles use the same space.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}

			set, err := backend.Open(ctx, cfg.Backend(), logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := set.Close(); err != nil {
					logger.Warn("Failed to close backend cleanly", zap.Error(err))
				}
			}()

			displays, err := set.Capture.ListDisplays(ctx)
			if err != nil {
				return fmt.Errorf("failed to list displays: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tORIGIN\tSIZE\tSCALE\tPRIMARY")
			for _, d := range displays {
				fmt.Fprintf(w, "%d\t%s\t%d,%d\t%dx%d\t%.2f\t%t\n",
					d.ID, d.Name, d.X, d.Y, d.Width, d.Height, d.ScaleFactor, d.Primary)
			}
			return w.Flush()
		},
	}
}
