package store

import (
	"context"
	"time"

	"github.com/voyago/curator-cli/internal/model"
)

// Store defines the persistence interface for draft POIs and enrichable
// POI records.
type Store interface {
	// Draft intake
	UpsertDrafts(ctx context.Context, drafts []model.DraftPOI) (inserted, updated int64, err error)
	ListDraftCandidates(ctx context.Context, destination, theme string, limit int) ([]model.DraftPOI, error)
	PromoteVerifiedDrafts(ctx context.Context, now time.Time) (int, error)

	// POI records
	CreateRecord(ctx context.Context, rec *model.EnrichableRecord) error
	GetRecord(ctx context.Context, id string) (*model.EnrichableRecord, error)
	UpdateRecord(ctx context.Context, rec *model.EnrichableRecord) error
	FindEnrichable(ctx context.Context, destination string, limit int) ([]model.EnrichableRecord, error)
	FindStalePOIs(ctx context.Context, now time.Time, limit int) ([]model.EnrichableRecord, error)
	MarkEnriched(ctx context.Context, id string, refreshDays int, now time.Time) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
