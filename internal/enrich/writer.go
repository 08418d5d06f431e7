package enrich

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/voyago/curator-cli/internal/model"
	"github.com/voyago/curator-cli/internal/provenance"
)

// Policy selects how extracted fields merge into an existing record.
type Policy int

const (
	// FillMissing writes a field only when the record's value is empty.
	// It never overwrites a human- or prior-enrichment-authored value.
	FillMissing Policy = iota
	// OverwriteOnRefresh overwrites content fields the extraction supports;
	// used by the scheduled refresh pass where newer evidence wins.
	OverwriteOnRefresh
)

// refreshConfidenceFloor is the minimum confidence_score persisted by a
// refresh: refreshed data is asserted recent and thus minimally trustworthy.
const refreshConfidenceFloor = 70.0

// ApplyExtraction merges a validated extraction into the record under the
// given policy, then appends the captured evidence through the provenance
// ledger and stamps updated_at. Verified and LuxuryScoreVerified are never
// touched here — those bits belong to humans.
func ApplyExtraction(rec *model.EnrichableRecord, ext *Extraction, refs []model.SourceRef, policy Policy, now time.Time) error {
	switch policy {
	case FillMissing:
		applyFillMissing(rec, ext)
	case OverwriteOnRefresh:
		applyOverwrite(rec, ext)
	default:
		return eris.Errorf("enrich: unknown merge policy %d", policy)
	}

	if err := provenance.Append(rec, refs, ext.citationsForLedger()); err != nil {
		return err
	}

	rec.UpdatedAt = now
	return nil
}

func applyFillMissing(rec *model.EnrichableRecord, ext *Extraction) {
	if strings.TrimSpace(rec.Description) == "" && ext.Description != "" {
		rec.Description = ext.Description
	}
	if strings.TrimSpace(rec.Category) == "" && ext.Category != "" {
		rec.Category = ext.Category
	}
	if rec.LuxuryScore == nil && ext.LuxuryScore != nil {
		v := *ext.LuxuryScore
		rec.LuxuryScore = &v
	}
	if rec.ConfidenceScore == nil && ext.ConfidenceScore != nil {
		v := *ext.ConfidenceScore
		rec.ConfidenceScore = &v
	}
	if len(rec.Keywords) == 0 && len(ext.Keywords) > 0 {
		rec.Keywords = ext.Keywords
	}
	if len(rec.Themes) == 0 && len(ext.Themes) > 0 {
		rec.Themes = ext.Themes
	}
	if strings.TrimSpace(rec.WebsiteURL) == "" && ext.WebsiteURL != "" {
		rec.WebsiteURL = ext.WebsiteURL
	}
	if strings.TrimSpace(rec.BookingInfo) == "" && ext.BookingInfo != "" {
		rec.BookingInfo = ext.BookingInfo
	}
	if strings.TrimSpace(rec.BestTime) == "" && ext.BestTime != "" {
		rec.BestTime = ext.BestTime
	}
}

func applyOverwrite(rec *model.EnrichableRecord, ext *Extraction) {
	if ext.Description != "" {
		rec.Description = ext.Description
	}
	if ext.LuxuryScore != nil {
		v := *ext.LuxuryScore
		rec.LuxuryScore = &v
	}
	if len(ext.Keywords) > 0 {
		rec.Keywords = ext.Keywords
	}
	if len(ext.Themes) > 0 {
		rec.Themes = ext.Themes
	}
	if ext.WebsiteURL != "" {
		rec.WebsiteURL = ext.WebsiteURL
	}
	if ext.BookingInfo != "" {
		rec.BookingInfo = ext.BookingInfo
	}
	if ext.BestTime != "" {
		rec.BestTime = ext.BestTime
	}

	// Refresh asserts the data is current; clamp confidence to the floor.
	conf := refreshConfidenceFloor
	if ext.ConfidenceScore != nil && *ext.ConfidenceScore > refreshConfidenceFloor {
		conf = *ext.ConfidenceScore
	}
	rec.ConfidenceScore = &conf
}
