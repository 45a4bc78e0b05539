package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func NewHistoryCommand() *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:     "history",
		GroupID: gAdvanced,
		Short:   "Show recent battery samples recorded by the daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			samples, err := apiClient().GetHistory(count)
			if err != nil {
				return fmt.Errorf("failed to get history: %w", err)
			}

			if len(samples) == 0 {
				cmd.Println("No samples recorded yet.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tCHARGE\tSTATE\tAC\tPOWER\tVOLTAGE")
			for _, s := range samples {
				ac := "no"
				if s.ACOnline {
					ac = "yes"
				}
				fmt.Fprintf(w, "%s\t%d%%\t%s\t%s\t%.1f W\t%.2f V\n",
					s.TakenAt.Local().Format(time.DateTime),
					s.CapacityPct, s.Status, ac, s.PowerW, s.VoltageV)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 20, "number of samples to show, newest first")

	return cmd
}
