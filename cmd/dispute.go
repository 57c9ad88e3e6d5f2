package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/packdim/trust-cli/internal/identity"
	"github.com/packdim/trust-cli/internal/model"
	"github.com/packdim/trust-cli/internal/store"
)

var disputeCmd = &cobra.Command{
	Use:   "dispute",
	Short: "Inspect and administer disputes",
}

var (
	disputeListProduct string
	disputeListStatus  string
	disputeListLimit   int
)

var disputeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List disputes",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		svc := initService(st)
		disputes, err := svc.ListDisputes(ctx, store.DisputeFilter{
			ProductID: disputeListProduct,
			Status:    model.DisputeStatus(disputeListStatus),
			Limit:     disputeListLimit,
		})
		if err != nil {
			return eris.Wrap(err, "dispute list")
		}

		if len(disputes) == 0 {
			zap.L().Info("no disputes match the filter")
			return nil
		}

		formatDisputes(os.Stdout, disputes)
		return nil
	},
}

var (
	setStatusAdmin  string
	setStatusReason string
)

var disputeSetStatusCmd = &cobra.Command{
	Use:   "set-status <dispute-id> <status>",
	Short: "Set a dispute's status as an admin",
	Long:  "Moves a dispute to any status, bypassing the normal lifecycle guards. The acting user must carry the admin capability (trust.admin_users).",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		svc := initService(st)
		resolver := identity.NewResolver(cfg.Trust.AdminUsers)

		d, err := svc.AdminSetStatus(ctx, args[0], model.DisputeStatus(args[1]), resolver.Resolve(setStatusAdmin), setStatusReason)
		if err != nil {
			return eris.Wrap(err, "dispute set-status")
		}

		zap.L().Info("dispute status updated",
			zap.String("dispute_id", d.ID),
			zap.String("status", string(d.Status)),
		)
		return nil
	},
}

func init() {
	disputeListCmd.Flags().StringVar(&disputeListProduct, "product", "", "filter by product id")
	disputeListCmd.Flags().StringVar(&disputeListStatus, "status", "", "filter by status (open|in_review|resolved|rejected)")
	disputeListCmd.Flags().IntVar(&disputeListLimit, "limit", 50, "max disputes to list")

	disputeSetStatusCmd.Flags().StringVar(&setStatusAdmin, "as", "", "acting admin user id (required)")
	disputeSetStatusCmd.Flags().StringVar(&setStatusReason, "reason", "", "reason recorded on the resolution")
	_ = disputeSetStatusCmd.MarkFlagRequired("as")

	disputeCmd.AddCommand(disputeListCmd)
	disputeCmd.AddCommand(disputeSetStatusCmd)
	rootCmd.AddCommand(disputeCmd)
}

// formatDisputes writes a tabular representation of disputes to w.
func formatDisputes(out io.Writer, disputes []model.Dispute) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tPRODUCT\tTYPE\tSTATUS\tNET\tCREATED\tDESCRIPTION")
	_, _ = fmt.Fprintln(w, "--\t-------\t----\t------\t---\t-------\t-----------")

	for _, d := range disputes {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%+d\t%s\t%s\n",
			d.ID,
			d.ProductID,
			d.Type,
			d.Status,
			d.NetVotes(),
			d.CreatedAt.Format("2006-01-02 15:04"),
			truncate(d.Description, 48),
		)
	}
	_ = w.Flush()
}

// truncate shortens s to max characters. Descriptions are user text,
// so the cut lands on a rune boundary, never mid-codepoint.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
