package model

import "time"

// AttemptLedger is per-agent enrichment attempt bookkeeping. Each enrichment
// agent (gap-filler, scheduled refresher) writes only its own ledger under
// its namespace key, so independent agents never clobber each other's
// attempt history.
type AttemptLedger struct {
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`
	AttemptCount  int        `json:"attempt_count,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
	LastQuery     string     `json:"last_query,omitempty"`
	SourcesUsed   int        `json:"sources_used,omitempty"`
}

// EnrichableRecord is the persisted POI record that automated enrichment is
// allowed to mutate, subject to the merge policies in internal/enrich.
//
// Verified and LuxuryScoreVerified are settable only by a human action and
// are never written by automated code.
type EnrichableRecord struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Destination string `json:"destination,omitempty"`

	Description         string   `json:"description,omitempty"`
	Category            string   `json:"category,omitempty"`
	LuxuryScore         *float64 `json:"luxury_score,omitempty"`
	LuxuryScoreVerified bool     `json:"luxury_score_verified"`
	ConfidenceScore     *float64 `json:"confidence_score,omitempty"`
	Keywords            []string `json:"keywords"`
	Themes              []string `json:"themes"`
	WebsiteURL          string   `json:"website_url,omitempty"`
	BookingInfo         string   `json:"booking_info,omitempty"`
	BestTime            string   `json:"best_time,omitempty"`
	Verified            bool     `json:"verified"`

	SourceRefs []SourceRef              `json:"source_refs"`
	Citations  []Citation               `json:"citations"`
	Enrichment map[string]AttemptLedger `json:"enrichment"`

	LastEnrichedAt *time.Time `json:"last_enriched_at,omitempty"`
	NextRefreshAt  *time.Time `json:"next_refresh_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DraftPOI is a machine-extracted POI awaiting human review, stored apart
// from the trusted graph. Drafts leave the retrieval pool once promoted.
type DraftPOI struct {
	ID              string     `json:"id"`
	Source          string     `json:"source"`
	SourceID        string     `json:"source_id"`
	Name            string     `json:"name"`
	Description     string     `json:"description,omitempty"`
	Category        string     `json:"category,omitempty"`
	Destination     *string    `json:"destination"`
	LuxuryScore     *float64   `json:"luxury_score,omitempty"`
	ConfidenceScore *float64   `json:"confidence_score,omitempty"`
	Verified        bool       `json:"verified"`
	PromotedAt      *time.Time `json:"promoted_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
