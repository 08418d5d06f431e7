package enrich

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validExtractionJSON = `{
	"description": "A landmark hotel.",
	"category": "hotel",
	"luxury_score": 85,
	"confidence_score": 90,
	"keywords": ["palace"],
	"themes": ["luxury"],
	"citations": [{"source_index": 0, "quote_snippet": "landmark hotel"}]
}`

func TestParseExtraction(t *testing.T) {
	t.Run("clean JSON", func(t *testing.T) {
		ext, err := ParseExtraction(validExtractionJSON, 1)
		require.NoError(t, err)
		assert.Equal(t, "A landmark hotel.", ext.Description)
		require.NotNil(t, ext.LuxuryScore)
		assert.InDelta(t, 85.0, *ext.LuxuryScore, 1e-9)
		require.Len(t, ext.Citations, 1)
	})

	t.Run("JSON wrapped in prose", func(t *testing.T) {
		raw := "Here is the extraction you asked for:\n" + validExtractionJSON + "\nLet me know if you need more."
		ext, err := ParseExtraction(raw, 1)
		require.NoError(t, err)
		assert.Equal(t, "hotel", ext.Category)
	})

	t.Run("no JSON object", func(t *testing.T) {
		_, err := ParseExtraction("I could not find any information.", 1)
		assert.Error(t, err)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		_, err := ParseExtraction(`{"description": "unterminated`, 1)
		assert.Error(t, err)
	})

	t.Run("null scores are allowed", func(t *testing.T) {
		ext, err := ParseExtraction(`{"description": "d", "luxury_score": null, "citations": [{"source_index": 0, "quote_snippet": "d"}]}`, 1)
		require.NoError(t, err)
		assert.Nil(t, ext.LuxuryScore)
	})
}

func TestParseExtractionValidation(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		sourceCount int
	}{
		{
			name:        "luxury score above 100",
			raw:         `{"luxury_score": 120, "citations": []}`,
			sourceCount: 1,
		},
		{
			name:        "negative confidence score",
			raw:         `{"confidence_score": -5, "citations": []}`,
			sourceCount: 1,
		},
		{
			name:        "citation index out of range",
			raw:         `{"citations": [{"source_index": 3, "quote_snippet": "x"}]}`,
			sourceCount: 3,
		},
		{
			name:        "negative citation index",
			raw:         `{"citations": [{"source_index": -1, "quote_snippet": "x"}]}`,
			sourceCount: 3,
		},
		{
			name:        "blank quote snippet",
			raw:         `{"citations": [{"source_index": 0, "quote_snippet": "  "}]}`,
			sourceCount: 1,
		},
		{
			name:        "oversized quote snippet",
			raw:         `{"citations": [{"source_index": 0, "quote_snippet": "` + strings.Repeat("a", 501) + `"}]}`,
			sourceCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseExtraction(tt.raw, tt.sourceCount)
			assert.Error(t, err)
		})
	}
}

func TestCitationsForLedger(t *testing.T) {
	ext := &Extraction{
		Citations: []ExtractedCitation{
			{SourceIndex: 2, Anchor: "custom", QuoteSnippet: "quoted text"},
		},
	}
	cits := ext.citationsForLedger()
	require.Len(t, cits, 1)
	assert.Equal(t, 2, cits[0].SourceRefIndex)
	assert.Equal(t, "custom", cits[0].Anchor)
	assert.Equal(t, "quoted text", cits[0].QuoteSnippet)
}
