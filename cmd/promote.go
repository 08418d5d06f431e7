package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var promoteCmd = &cobra.Command{
	Use:   "promote",
	Short: "Promote human-verified drafts into POI records",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		defer st.Close()

		n, err := st.PromoteVerifiedDrafts(ctx, time.Now().UTC())
		if err != nil {
			return err
		}

		zap.L().Info("drafts promoted", zap.Int("count", n))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(promoteCmd)
}
