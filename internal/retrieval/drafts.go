package retrieval

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/voyago/curator-cli/internal/model"
	"github.com/voyago/curator-cli/internal/rank"
)

const (
	// draftRowCap bounds how many draft rows are considered per retrieval.
	draftRowCap = 50

	// draftThemeFit is the flat theme fit granted to a draft that passed the
	// fuzzy keyword match. Drafts carry no theme edges, so this is the only
	// theme signal they can earn.
	draftThemeFit = 0.1
)

// DraftLister is the slice of the record store the draft adapter needs.
type DraftLister interface {
	ListDraftCandidates(ctx context.Context, destination, theme string, limit int) ([]model.DraftPOI, error)
}

// DraftAdapter retrieves non-promoted draft POIs from the relational store.
type DraftAdapter struct {
	store DraftLister
	log   *zap.Logger
}

// NewDraftAdapter creates a DraftAdapter.
func NewDraftAdapter(store DraftLister) *DraftAdapter {
	return &DraftAdapter{store: store, log: zap.L().Named("draft_adapter")}
}

// Fetch queries the draft store for candidates matching the destination,
// optionally requiring a fuzzy text match on the theme keyword. A query
// failure degrades to an empty result; it never aborts the retrieval.
func (a *DraftAdapter) Fetch(ctx context.Context, destination, theme string, now time.Time) []model.Candidate {
	drafts, err := a.store.ListDraftCandidates(ctx, destination, theme, draftRowCap)
	if err != nil {
		a.log.Warn("draft query failed, continuing without draft candidates",
			zap.String("destination", destination), zap.Error(err))
		return nil
	}

	candidates := make([]model.Candidate, 0, len(drafts))
	for _, d := range drafts {
		c, err := candidateFromDraft(d, theme, now)
		if err != nil {
			a.log.Debug("skipping malformed draft row", zap.String("id", d.ID), zap.Error(err))
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates
}

// candidateFromDraft normalizes one draft row into a Candidate.
func candidateFromDraft(d model.DraftPOI, theme string, now time.Time) (model.Candidate, error) {
	label := model.LabelUnapprovedDraft
	if d.Verified {
		label = model.LabelVerifiedDraft
	}

	var confidence, luxury float64
	if d.ConfidenceScore != nil {
		confidence = rank.NormalizeConfidence(*d.ConfidenceScore)
	}
	if d.LuxuryScore != nil {
		luxury = rank.NormalizeLuxury(*d.LuxuryScore)
	}

	// Rows returned under a theme filter already passed the fuzzy match.
	var themeFit float64
	if theme != "" {
		themeFit = draftThemeFit
	}

	updatedAt := d.UpdatedAt
	c := model.Candidate{
		Source:       model.SourceDraft,
		Approved:     false,
		Label:        label,
		Name:         d.Name,
		Type:         d.Category,
		Destination:  d.Destination,
		Confidence:   confidence,
		Luxury:       luxury,
		ThemeFit:     themeFit,
		RecencyScore: rank.RecencyScore(&updatedAt, now),
		SourceID:     d.SourceID,
		SourceKind:   d.Source,
		UpdatedAt:    &updatedAt,
	}
	return model.NewCandidate(c)
}
