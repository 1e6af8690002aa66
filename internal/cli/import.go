package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/treadline/invoice-ingest-service/internal/domain"
	"github.com/treadline/invoice-ingest-service/internal/reconcile"
)

var importCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Import one or more Invoice Detail Report export files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		rt, err := buildRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.close()

		importer := reconcile.NewImportService(rt.reconciler, rt.batches, rt.emitter)
		batches := importer.ImportFiles(ctx, args)

		var failed bool
		for i, batch := range batches {
			if batch == nil {
				failed = true
				continue
			}
			fmt.Printf("%s: %d invoices, %d ok, %d failed (batch %s)\n",
				args[i], batch.TotalRecords, batch.SuccessfulRecords, batch.FailedRecords, batch.ID)
			if batch.Status == domain.BatchFailed || batch.FailedRecords > 0 {
				failed = true
			}
		}
		if failed {
			return fmt.Errorf("one or more imports did not complete cleanly")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
