package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/yungbote/ferag-backend/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API. With PIPELINE_QUEUE=local the pipeline workers run in
the same process; otherwise cycles are submitted to Temporal.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(context.Background())
		defer stop()

		a, err := app.New(ctx, app.ComponentAPI)
		if err != nil {
			return err
		}
		defer a.Close()
		return a.Serve(ctx)
	},
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the Temporal pipeline worker",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(context.Background())
		defer stop()

		a, err := app.New(ctx, app.ComponentWorker)
		if err != nil {
			return err
		}
		defer a.Close()
		return a.RunWorker(ctx)
	},
}
