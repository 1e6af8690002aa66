package cli

import (
	"context"
	"log"

	"github.com/spf13/cobra"
	"github.com/treadline/invoice-ingest-service/internal/handler"
	"github.com/treadline/invoice-ingest-service/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve batch progress and health endpoints for the dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		rt, err := buildRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.close()

		batchHandler := handler.NewBatchHandler(rt.batches)
		appServer := server.NewServer(rt.cfg, batchHandler)

		log.Printf("Starting server on port %d...", rt.cfg.Port)
		return appServer.Start()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
