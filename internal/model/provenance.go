package model

import "time"

// SourceRef records one captured evidence source for a POI record. Refs are
// append-only: enrichment may add refs but never remove or reorder them,
// since citations address them by index.
type SourceRef struct {
	SourceType  string            `json:"source_type"`
	SourceID    string            `json:"source_id"`
	SourceURL   string            `json:"source_url,omitempty"`
	CapturedAt  time.Time         `json:"captured_at"`
	ExternalIDs map[string]string `json:"external_ids,omitempty"`
	License     string            `json:"license,omitempty"`
}

// Citation ties a machine-asserted fact back to one SourceRef on the same
// record. QuoteSnippet is asserted verbatim from the cited source by the
// extraction contract; downstream consumers rely on that without re-checking.
type Citation struct {
	SourceRefIndex int    `json:"source_ref_index"`
	Anchor         string `json:"anchor"`
	QuoteSnippet   string `json:"quote_snippet"`
}
