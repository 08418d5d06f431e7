package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/voyago/curator-cli/internal/model"
)

func TestDaysSinceEnrichment(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	t.Run("counts from last enrichment", func(t *testing.T) {
		enriched := now.AddDate(0, 0, -95)
		rec := model.EnrichableRecord{
			CreatedAt:      now.AddDate(0, 0, -400),
			LastEnrichedAt: &enriched,
		}
		assert.Equal(t, 95, daysSinceEnrichment(&rec, now))
	})

	t.Run("never enriched counts from creation", func(t *testing.T) {
		rec := model.EnrichableRecord{CreatedAt: now.AddDate(0, 0, -10)}
		assert.Equal(t, 10, daysSinceEnrichment(&rec, now))
	})

	t.Run("same day is zero", func(t *testing.T) {
		enriched := now.Add(-2 * time.Hour)
		rec := model.EnrichableRecord{CreatedAt: now, LastEnrichedAt: &enriched}
		assert.Zero(t, daysSinceEnrichment(&rec, now))
	})

	t.Run("future timestamp clamps to zero", func(t *testing.T) {
		enriched := now.Add(time.Hour)
		rec := model.EnrichableRecord{CreatedAt: now, LastEnrichedAt: &enriched}
		assert.Zero(t, daysSinceEnrichment(&rec, now))
	})
}
