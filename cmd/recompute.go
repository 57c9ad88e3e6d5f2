package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var recomputeAll bool

var recomputeCmd = &cobra.Command{
	Use:   "recompute [product-id]",
	Short: "Recompute confidence scores",
	Long:  "Recomputes the confidence score for one product, or for the whole catalog with --all.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if recomputeAll == (len(args) == 1) {
			return eris.New("pass exactly one of a product id or --all")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		svc := initService(st)

		if recomputeAll {
			n, err := svc.RecomputeAll(ctx, cfg.Recompute.Workers, cfg.Recompute.PerSecond)
			if err != nil {
				return eris.Wrap(err, "recompute all")
			}
			zap.L().Info("recompute complete", zap.Int("products", n))
			return nil
		}

		factors, err := svc.RecomputeConfidence(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "recompute")
		}

		fmt.Fprintf(os.Stdout, "product %s\n", args[0])
		fmt.Fprintf(os.Stdout, "  base        %d\n", factors.BaseConfidence)
		fmt.Fprintf(os.Stdout, "  likes       %+d\n", factors.LikesScore)
		fmt.Fprintf(os.Stdout, "  views       %+d\n", factors.ViewsScore)
		fmt.Fprintf(os.Stdout, "  edits       %+d\n", factors.EditsScore)
		fmt.Fprintf(os.Stdout, "  disputes    %+d\n", factors.DisputesScore)
		fmt.Fprintf(os.Stdout, "  age         %+d\n", factors.AgeScore)
		fmt.Fprintf(os.Stdout, "  total       %d\n", factors.TotalScore)
		return nil
	},
}

func init() {
	recomputeCmd.Flags().BoolVar(&recomputeAll, "all", false, "recompute every product in the catalog")
	rootCmd.AddCommand(recomputeCmd)
}
