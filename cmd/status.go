package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/packdim/trust-cli/internal/monitoring"
)

var statusLookback int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show catalog trust health",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		snap, err := monitoring.NewCollector(st).Collect(ctx, statusLookback)
		if err != nil {
			return eris.Wrap(err, "status")
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintf(w, "products\t%d\n", snap.ProductsTotal)
		_, _ = fmt.Fprintf(w, "avg confidence\t%.1f\n", snap.AvgConfidence)
		_, _ = fmt.Fprintf(w, "disputes open\t%d\n", snap.DisputesOpen)
		_, _ = fmt.Fprintf(w, "disputes in review\t%d\n", snap.DisputesInReview)
		_, _ = fmt.Fprintf(w, "disputes resolved\t%d\n", snap.DisputesResolved)
		_, _ = fmt.Fprintf(w, "disputes rejected\t%d\n", snap.DisputesRejected)
		_, _ = fmt.Fprintf(w, "votes (last %dh)\t%d\n", snap.LookbackHours, snap.VotesInWindow)
		return w.Flush()
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusLookback, "lookback", 24, "vote lookback window in hours")
	rootCmd.AddCommand(statusCmd)
}
