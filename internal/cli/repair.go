package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var repairLimit int

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Recompute aggregates for stored invoices with suspicious financials",
	Long: `repair finds stored invoices whose gross profit equals their total
amount (the signature of missing cost data) and recomputes their aggregates
from the stored line items. Records that still look suspicious afterwards
are picked up by the next live-sync run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		rt, err := buildRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.close()

		suspicious, err := rt.invoices.ListSuspiciousInvoices(ctx, repairLimit)
		if err != nil {
			return fmt.Errorf("failed to list suspicious invoices: %w", err)
		}

		var repaired int
		for _, record := range suspicious {
			updated, err := rt.reconciler.RepairAggregates(ctx, record.NaturalKey)
			if err != nil {
				fmt.Printf("%s: repair failed: %v\n", record.NaturalKey, err)
				continue
			}
			if !updated.SuspiciousProfit() {
				repaired++
			}
		}

		fmt.Printf("checked %d suspicious invoices, repaired %d\n", len(suspicious), repaired)
		return nil
	},
}

func init() {
	repairCmd.Flags().IntVar(&repairLimit, "limit", 500, "Maximum number of invoices to check")
	rootCmd.AddCommand(repairCmd)
}
