package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	enrichBatchSize   int
	enrichDestination string
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Fill content gaps on POI records via web search extraction",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		defer st.Close()

		svc, err := initEnrichService(st)
		if err != nil {
			return err
		}

		result, err := svc.EnrichBatch(ctx, enrichOptions(enrichBatchSize, enrichDestination))
		if err != nil {
			return eris.Wrap(err, "enrich batch")
		}

		zap.L().Info("enrichment batch complete",
			zap.Int("processed", result.Processed),
			zap.Int("succeeded", result.Succeeded),
			zap.Int("failed", result.Failed),
			zap.Int("skipped", result.Skipped),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	enrichCmd.Flags().IntVar(&enrichBatchSize, "batch-size", 0, "records per batch")
	enrichCmd.Flags().StringVar(&enrichDestination, "destination", "", "only enrich records in this destination")
	rootCmd.AddCommand(enrichCmd)
}
