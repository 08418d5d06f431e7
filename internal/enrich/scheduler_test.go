package enrich

import (
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyago/curator-cli/internal/model"
)

func gapRecord() *model.EnrichableRecord {
	return &model.EnrichableRecord{
		ID:   "poi_1",
		Name: "Hotel de Paris",
	}
}

func TestNeedsEnrichment(t *testing.T) {
	rec := gapRecord()
	assert.True(t, NeedsEnrichment(rec), "empty record has gaps")

	lux := 9.0
	rec.Description = "A landmark hotel."
	rec.LuxuryScore = &lux
	rec.Keywords = []string{"hotel"}
	rec.Themes = []string{"luxury"}
	assert.False(t, NeedsEnrichment(rec), "fully populated record has no gaps")

	rec.Themes = nil
	assert.True(t, NeedsEnrichment(rec), "one missing field is enough")
}

func TestTooSoon(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("no prior attempt is never blocked", func(t *testing.T) {
		assert.False(t, TooSoon(gapRecord(), AgentGapFill, now))
	})

	t.Run("attempt inside the window blocks", func(t *testing.T) {
		rec := gapRecord()
		RecordAttempt(rec, AgentGapFill, "q", 3, nil, now.Add(-CooldownWindow+time.Minute))
		assert.True(t, TooSoon(rec, AgentGapFill, now))
	})

	t.Run("attempt outside the window does not block", func(t *testing.T) {
		rec := gapRecord()
		RecordAttempt(rec, AgentGapFill, "q", 3, nil, now.Add(-CooldownWindow-time.Minute))
		assert.False(t, TooSoon(rec, AgentGapFill, now))
	})

	t.Run("failed attempts count against the cooldown", func(t *testing.T) {
		rec := gapRecord()
		RecordAttempt(rec, AgentGapFill, "q", 0, eris.New("boom"), now.Add(-time.Hour))
		assert.True(t, TooSoon(rec, AgentGapFill, now))
	})

	t.Run("cooldown is per agent", func(t *testing.T) {
		rec := gapRecord()
		RecordAttempt(rec, AgentGapFill, "q", 3, nil, now)
		assert.True(t, TooSoon(rec, AgentGapFill, now))
		assert.False(t, TooSoon(rec, AgentRefresh, now))
	})
}

func TestRecordAttempt(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("tracks count, query, and sources", func(t *testing.T) {
		rec := gapRecord()
		RecordAttempt(rec, AgentGapFill, "monaco hotel", 5, nil, now)
		RecordAttempt(rec, AgentGapFill, "monaco hotel again", 2, nil, now.Add(time.Hour))

		ledger := rec.Enrichment[AgentGapFill]
		assert.Equal(t, 2, ledger.AttemptCount)
		assert.Equal(t, "monaco hotel again", ledger.LastQuery)
		assert.Equal(t, 2, ledger.SourcesUsed)
		require.NotNil(t, ledger.LastAttemptAt)
		assert.Equal(t, now.Add(time.Hour), *ledger.LastAttemptAt)
	})

	t.Run("error is recorded then cleared by success", func(t *testing.T) {
		rec := gapRecord()
		RecordAttempt(rec, AgentGapFill, "q", 0, eris.New("search down"), now)
		assert.Contains(t, rec.Enrichment[AgentGapFill].LastError, "search down")

		RecordAttempt(rec, AgentGapFill, "q", 4, nil, now.Add(time.Hour))
		assert.Empty(t, rec.Enrichment[AgentGapFill].LastError)
	})

	t.Run("agents get separate namespaces", func(t *testing.T) {
		rec := gapRecord()
		RecordAttempt(rec, AgentGapFill, "gap query", 3, nil, now)
		RecordAttempt(rec, AgentRefresh, "refresh query", 5, nil, now)

		assert.Equal(t, "gap query", rec.Enrichment[AgentGapFill].LastQuery)
		assert.Equal(t, "refresh query", rec.Enrichment[AgentRefresh].LastQuery)
	})
}

func TestEligible(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rec := gapRecord()
	assert.True(t, Eligible(rec, AgentGapFill, now))

	RecordAttempt(rec, AgentGapFill, "q", 3, nil, now)
	assert.False(t, Eligible(rec, AgentGapFill, now), "cooldown suppresses eligibility")

	full := gapRecord()
	lux := 8.0
	full.Description = "d"
	full.LuxuryScore = &lux
	full.Keywords = []string{"k"}
	full.Themes = []string{"t"}
	assert.False(t, Eligible(full, AgentGapFill, now), "no gaps means not eligible")
}
