package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/voyago/curator-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "curator-cli",
	Short: "POI knowledge curation engine",
	Long:  "Retrieves and ranks travel points of interest from the graph and draft stores, and runs provenance-tracked enrichment and refresh jobs against them.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
