package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/treadline/invoice-ingest-service/internal/possync"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one live-sync pass against the POS bridge",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		rt, err := buildRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.close()

		client := possync.NewHTTPClient(rt.cfg.POSBridgeURL, rt.cfg.POSBridgeKey, rt.cfg.POSTimeout)
		orchestrator := possync.NewOrchestrator(client, rt.reconciler, rt.batches, rt.emitter, possync.Options{
			PageSize:   rt.cfg.SyncPageSize,
			MaxWorkers: rt.cfg.SyncMaxWorkers,
			RetryDelay: rt.cfg.SyncRetryDelay,
			MaxRetries: rt.cfg.SyncMaxRetries,
		})

		batch, err := orchestrator.Run(ctx)
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}

		fmt.Printf("sync complete: %d records, %d ok, %d failed (batch %s)\n",
			batch.TotalRecords, batch.SuccessfulRecords, batch.FailedRecords, batch.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
