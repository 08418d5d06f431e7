package enrich

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/voyago/curator-cli/internal/model"
	"github.com/voyago/curator-cli/internal/provenance"
)

// extractionPrompt instructs the model to fill the extraction schema from
// the numbered sources only, citing every asserted field.
const extractionPrompt = `You are extracting facts about a travel point of interest from web search results. Use ONLY the numbered sources provided. Do not invent facts.

For every non-null field you output, include at least one citation whose quote_snippet is copied VERBATIM from the source it cites. source_index refers to the SOURCE_<n> numbering of the provided sources. Keep each quote_snippet under 500 characters.

luxury_score and confidence_score are integers on a 0-100 scale. Leave a field null when the sources do not support it.

Respond with ONLY valid JSON, no other text:
{
  "description": "string or null",
  "category": "string or null",
  "luxury_score": 0,
  "confidence_score": 0,
  "keywords": ["string"],
  "themes": ["string"],
  "website_url": "string or null",
  "booking_info": "string or null",
  "best_time": "string or null",
  "citations": [{"source_index": 0, "anchor": "string or null", "quote_snippet": "string"}]
}`

// Extraction is the validated result of one LLM extraction call. Raw model
// output is untyped text; it becomes an Extraction only after parsing and
// schema validation, or it is rejected outright — there is no partial trust.
type Extraction struct {
	Description     string              `json:"description"`
	Category        string              `json:"category"`
	LuxuryScore     *float64            `json:"luxury_score"`
	ConfidenceScore *float64            `json:"confidence_score"`
	Keywords        []string            `json:"keywords"`
	Themes          []string            `json:"themes"`
	WebsiteURL      string              `json:"website_url"`
	BookingInfo     string              `json:"booking_info"`
	BestTime        string              `json:"best_time"`
	Citations       []ExtractedCitation `json:"citations"`
}

// ExtractedCitation is a citation as emitted by the extractor, indexing the
// sources it was just given (local 0-based numbering).
type ExtractedCitation struct {
	SourceIndex  int    `json:"source_index"`
	Anchor       string `json:"anchor"`
	QuoteSnippet string `json:"quote_snippet"`
}

// ParseExtraction parses raw model output into a validated Extraction.
// sourceCount is how many sources the extractor was shown; citations must
// index into that range. Any parse or validation failure rejects the whole
// payload.
func ParseExtraction(raw string, sourceCount int) (*Extraction, error) {
	// The model may wrap the JSON in prose despite instructions; take the
	// outermost object.
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, eris.New("enrich: no JSON object in extraction output")
	}

	var ext Extraction
	if err := json.Unmarshal([]byte(raw[start:end+1]), &ext); err != nil {
		return nil, eris.Wrap(err, "enrich: parse extraction JSON")
	}

	if err := ext.validate(sourceCount); err != nil {
		return nil, err
	}
	return &ext, nil
}

func (e *Extraction) validate(sourceCount int) error {
	if e.LuxuryScore != nil && (*e.LuxuryScore < 0 || *e.LuxuryScore > 100) {
		return eris.Errorf("enrich: luxury_score %v outside 0-100", *e.LuxuryScore)
	}
	if e.ConfidenceScore != nil && (*e.ConfidenceScore < 0 || *e.ConfidenceScore > 100) {
		return eris.Errorf("enrich: confidence_score %v outside 0-100", *e.ConfidenceScore)
	}

	for i, c := range e.Citations {
		if c.SourceIndex < 0 || c.SourceIndex >= sourceCount {
			return eris.Errorf("enrich: citation %d cites source %d, only %d sources given", i, c.SourceIndex, sourceCount)
		}
		if strings.TrimSpace(c.QuoteSnippet) == "" {
			return eris.Errorf("enrich: citation %d missing quote_snippet", i)
		}
		if len(c.QuoteSnippet) > provenance.MaxQuoteSnippet {
			return eris.Errorf("enrich: citation %d quote_snippet exceeds %d chars", i, provenance.MaxQuoteSnippet)
		}
	}
	return nil
}

// citationsForLedger converts extractor citations into model citations still
// carrying their local indices; the provenance ledger shifts them on append.
func (e *Extraction) citationsForLedger() []model.Citation {
	out := make([]model.Citation, 0, len(e.Citations))
	for _, c := range e.Citations {
		out = append(out, model.Citation{
			SourceRefIndex: c.SourceIndex,
			Anchor:         c.Anchor,
			QuoteSnippet:   c.QuoteSnippet,
		})
	}
	return out
}
