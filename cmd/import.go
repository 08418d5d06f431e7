package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/voyago/curator-cli/internal/model"
)

var importFile string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import extracted draft POIs from a JSON file",
	Long:  "Reads a JSON array of draft POIs and upserts them keyed on (source, source_id), so re-importing the same extraction batch is safe.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		data, err := os.ReadFile(importFile)
		if err != nil {
			return eris.Wrapf(err, "read %s", importFile)
		}

		var drafts []model.DraftPOI
		if err := json.Unmarshal(data, &drafts); err != nil {
			return eris.Wrapf(err, "parse %s", importFile)
		}
		for i, d := range drafts {
			if d.Source == "" || d.SourceID == "" || d.Name == "" {
				return eris.Errorf("draft %d: source, source_id and name are required", i)
			}
		}

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		defer st.Close()

		inserted, updated, err := st.UpsertDrafts(ctx, drafts)
		if err != nil {
			return err
		}

		zap.L().Info("drafts imported",
			zap.String("file", importFile),
			zap.Int64("inserted", inserted),
			zap.Int64("updated", updated),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importFile, "file", "", "JSON file of draft POIs (required)")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
