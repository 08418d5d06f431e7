package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/voyago/curator-cli/internal/graph"
	"github.com/voyago/curator-cli/internal/retrieval"
)

var (
	retrieveDestination string
	retrieveThemes      []string
	retrieveLimit       int
	retrieveNoDrafts    bool
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve",
	Short: "Retrieve ranked POI candidates for a destination",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		querier, err := initGraph(ctx)
		if err != nil {
			// A graph outage degrades to draft-only retrieval; the adapter
			// handles the failing querier the same as a failing query.
			zap.L().Warn("graph store unavailable, retrieving from drafts only", zap.Error(err))
			querier = graph.Unavailable(err)
		}
		defer querier.Close(ctx) //nolint:errcheck

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		defer st.Close()

		svc := retrieval.NewService(
			retrieval.NewGraphAdapter(querier),
			retrieval.NewDraftAdapter(st),
		)

		includeDrafts := !retrieveNoDrafts
		result, err := svc.Retrieve(ctx, retrieval.Input{
			Destination:   retrieveDestination,
			Themes:        retrieveThemes,
			Limit:         retrieveLimit,
			IncludeDrafts: &includeDrafts,
		})
		if err != nil {
			return err
		}

		zap.L().Info("retrieval complete",
			zap.String("destination", result.Destination),
			zap.Int("returned", result.Counts.Returned),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	retrieveCmd.Flags().StringVar(&retrieveDestination, "destination", "", "destination to search (required)")
	retrieveCmd.Flags().StringSliceVar(&retrieveThemes, "theme", nil, "theme filter (repeatable)")
	retrieveCmd.Flags().IntVar(&retrieveLimit, "limit", 0, "max candidates to return (1-50, default 20)")
	retrieveCmd.Flags().BoolVar(&retrieveNoDrafts, "no-drafts", false, "exclude draft POIs from results")
	_ = retrieveCmd.MarkFlagRequired("destination")
	rootCmd.AddCommand(retrieveCmd)
}
