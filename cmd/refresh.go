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

var refreshBatchSize int

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Re-enrich POI records whose refresh clock has expired",
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

		result, err := svc.RefreshBatch(ctx, enrichOptions(refreshBatchSize, ""))
		if err != nil {
			return eris.Wrap(err, "refresh batch")
		}

		zap.L().Info("refresh batch complete",
			zap.Int("processed", result.Processed),
			zap.Int("succeeded", result.Succeeded),
			zap.Int("failed", result.Failed),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	refreshCmd.Flags().IntVar(&refreshBatchSize, "batch-size", 0, "records per batch")
	rootCmd.AddCommand(refreshCmd)
}
