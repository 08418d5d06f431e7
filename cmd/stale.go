package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/voyago/curator-cli/internal/model"
)

var staleLimit int

// staleRow is the compact listing printed per stale record.
type staleRow struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	Destination         string     `json:"destination,omitempty"`
	DaysSinceEnrichment int        `json:"days_since_enrichment"`
	LastEnriched        *time.Time `json:"last_enriched_at"`
	NextRefreshAt       *time.Time `json:"next_refresh_at"`
}

// daysSinceEnrichment counts whole days since the record was last enriched,
// falling back to its creation time when it has never been enriched.
func daysSinceEnrichment(rec *model.EnrichableRecord, now time.Time) int {
	basis := rec.CreatedAt
	if rec.LastEnrichedAt != nil {
		basis = *rec.LastEnrichedAt
	}
	days := int(now.Sub(basis).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

var staleCmd = &cobra.Command{
	Use:   "stale",
	Short: "List POI records due for a refresh, oldest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		defer st.Close()

		now := time.Now().UTC()
		records, err := st.FindStalePOIs(ctx, now, staleLimit)
		if err != nil {
			return err
		}

		rows := make([]staleRow, 0, len(records))
		for _, r := range records {
			rows = append(rows, staleRow{
				ID:                  r.ID,
				Name:                r.Name,
				Destination:         r.Destination,
				DaysSinceEnrichment: daysSinceEnrichment(&r, now),
				LastEnriched:        r.LastEnrichedAt,
				NextRefreshAt:       r.NextRefreshAt,
			})
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	},
}

func init() {
	staleCmd.Flags().IntVar(&staleLimit, "limit", 50, "max records to list")
	rootCmd.AddCommand(staleCmd)
}
