package enrich

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/voyago/curator-cli/internal/model"
	"github.com/voyago/curator-cli/pkg/anthropic"
	"github.com/voyago/curator-cli/pkg/tavily"
)

type fakeStore struct {
	enrichable []model.EnrichableRecord
	stale      []model.EnrichableRecord
	findErr    error
	updateErr  error

	updated []model.EnrichableRecord
	marked  []string
}

func (s *fakeStore) FindEnrichable(ctx context.Context, destination string, limit int) ([]model.EnrichableRecord, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.enrichable, nil
}

func (s *fakeStore) FindStalePOIs(ctx context.Context, now time.Time, limit int) ([]model.EnrichableRecord, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.stale, nil
}

func (s *fakeStore) UpdateRecord(ctx context.Context, rec *model.EnrichableRecord) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updated = append(s.updated, *rec)
	return nil
}

func (s *fakeStore) MarkEnriched(ctx context.Context, id string, refreshDays int, now time.Time) error {
	s.marked = append(s.marked, id)
	return nil
}

type fakeSearch struct {
	resp    *tavily.SearchResponse
	err     error
	perName map[string]*tavily.SearchResponse
	queries []string
}

func (f *fakeSearch) Search(ctx context.Context, query string, opts ...tavily.SearchOption) (*tavily.SearchResponse, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	for name, resp := range f.perName {
		if len(query) >= len(name) && query[:len(name)] == name {
			return resp, nil
		}
	}
	return f.resp, nil
}

type fakeAI struct {
	text  string
	err   error
	calls int
}

func (f *fakeAI) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: f.text}},
	}, nil
}

func searchFixture() *tavily.SearchResponse {
	return &tavily.SearchResponse{
		Results: []tavily.SearchResult{
			{Title: "Guide", URL: "https://example.com/guide", Content: "A landmark hotel on Casino Square."},
		},
	}
}

func newTestService(st *fakeStore, se tavily.Client, ai anthropic.Client) *Service {
	return NewService(st, se, ai, "claude-haiku-4-5-20251001", zap.NewNop())
}

func TestEnrichBatch(t *testing.T) {
	t.Run("fills gaps and persists", func(t *testing.T) {
		st := &fakeStore{
			enrichable: []model.EnrichableRecord{{ID: "poi_1", Name: "Hotel de Paris", Destination: "Monaco"}},
		}
		se := &fakeSearch{resp: searchFixture()}
		ai := &fakeAI{text: validExtractionJSON}

		result, err := newTestService(st, se, ai).EnrichBatch(context.Background(), Options{})
		require.NoError(t, err)

		assert.Equal(t, 1, result.Processed)
		assert.Equal(t, 1, result.Succeeded)
		assert.Zero(t, result.Failed)

		require.Len(t, st.updated, 1)
		rec := st.updated[0]
		assert.Equal(t, "A landmark hotel.", rec.Description)
		require.Len(t, rec.SourceRefs, 1)
		assert.Equal(t, "tavily", rec.SourceRefs[0].SourceType)
		require.Len(t, rec.Citations, 1)
		assert.Equal(t, 1, rec.Enrichment[AgentGapFill].AttemptCount)
		assert.Equal(t, 1, rec.Enrichment[AgentGapFill].SourcesUsed)

		require.Len(t, se.queries, 1)
		assert.Equal(t, "Hotel de Paris Monaco travel guide", se.queries[0])
	})

	t.Run("one failing record does not abort the batch", func(t *testing.T) {
		st := &fakeStore{
			enrichable: []model.EnrichableRecord{
				{ID: "poi_bad", Name: "Bad POI"},
				{ID: "poi_good", Name: "Good POI"},
			},
		}
		se := &fakeSearch{
			resp: searchFixture(),
			perName: map[string]*tavily.SearchResponse{
				"Bad POI": {Results: nil},
			},
		}
		ai := &fakeAI{text: validExtractionJSON}

		result, err := newTestService(st, se, ai).EnrichBatch(context.Background(), Options{})
		require.NoError(t, err)

		assert.Equal(t, 2, result.Processed)
		assert.Equal(t, 1, result.Succeeded)
		assert.Equal(t, 1, result.Failed)

		require.Len(t, result.Results, 2)
		assert.False(t, result.Results[0].OK)
		assert.Contains(t, result.Results[0].Error, "no search results")
		assert.True(t, result.Results[1].OK)
	})

	t.Run("failed attempt bookkeeping is persisted", func(t *testing.T) {
		st := &fakeStore{
			enrichable: []model.EnrichableRecord{{ID: "poi_1", Name: "Hotel de Paris"}},
		}
		se := &fakeSearch{err: eris.New("search provider down")}
		ai := &fakeAI{}

		result, err := newTestService(st, se, ai).EnrichBatch(context.Background(), Options{})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Failed)

		require.Len(t, st.updated, 1, "bookkeeping write happens even on failure")
		ledger := st.updated[0].Enrichment[AgentGapFill]
		assert.Equal(t, 1, ledger.AttemptCount)
		assert.Contains(t, ledger.LastError, "search provider down")
		assert.Zero(t, ai.calls, "no extraction without search results")
	})

	t.Run("invalid extraction fails the record", func(t *testing.T) {
		st := &fakeStore{
			enrichable: []model.EnrichableRecord{{ID: "poi_1", Name: "Hotel de Paris"}},
		}
		se := &fakeSearch{resp: searchFixture()}
		ai := &fakeAI{text: `{"citations": [{"source_index": 9, "quote_snippet": "x"}]}`}

		result, err := newTestService(st, se, ai).EnrichBatch(context.Background(), Options{})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Failed)
		assert.Empty(t, st.updated[0].Description, "rejected extraction writes nothing")
		assert.Equal(t, 1, st.updated[0].Enrichment[AgentGapFill].SourcesUsed)
	})

	t.Run("cooldown skips without an attempt", func(t *testing.T) {
		recent := time.Now().UTC().Add(-time.Hour)
		st := &fakeStore{
			enrichable: []model.EnrichableRecord{{
				ID: "poi_1", Name: "Hotel de Paris",
				Enrichment: map[string]model.AttemptLedger{
					AgentGapFill: {LastAttemptAt: &recent, AttemptCount: 1},
				},
			}},
		}
		se := &fakeSearch{resp: searchFixture()}
		ai := &fakeAI{text: validExtractionJSON}

		result, err := newTestService(st, se, ai).EnrichBatch(context.Background(), Options{})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Skipped)
		assert.Zero(t, result.Processed)
		assert.Empty(t, se.queries)
		assert.Empty(t, st.updated)
	})

	t.Run("store listing failure aborts", func(t *testing.T) {
		st := &fakeStore{findErr: eris.New("connection refused")}
		_, err := newTestService(st, &fakeSearch{}, &fakeAI{}).EnrichBatch(context.Background(), Options{})
		assert.Error(t, err)
	})
}

func TestRefreshBatch(t *testing.T) {
	t.Run("overwrites and resets the refresh clock", func(t *testing.T) {
		oldLux := 10.0
		st := &fakeStore{
			stale: []model.EnrichableRecord{{
				ID: "poi_1", Name: "Hotel de Paris",
				Description: "Outdated description.",
				LuxuryScore: &oldLux,
			}},
		}
		se := &fakeSearch{resp: searchFixture()}
		ai := &fakeAI{text: validExtractionJSON}

		result, err := newTestService(st, se, ai).RefreshBatch(context.Background(), Options{})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Succeeded)

		require.Len(t, st.updated, 1)
		rec := st.updated[0]
		assert.Equal(t, "A landmark hotel.", rec.Description, "refresh overwrites")
		assert.InDelta(t, 85.0, *rec.LuxuryScore, 1e-9)
		assert.Equal(t, 1, rec.Enrichment[AgentRefresh].AttemptCount)

		assert.Equal(t, []string{"poi_1"}, st.marked, "refresh clock reset")
	})

	t.Run("failed refresh does not reset the clock", func(t *testing.T) {
		st := &fakeStore{
			stale: []model.EnrichableRecord{{ID: "poi_1", Name: "Hotel de Paris"}},
		}
		se := &fakeSearch{err: eris.New("search provider down")}

		result, err := newTestService(st, se, &fakeAI{}).RefreshBatch(context.Background(), Options{})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Failed)
		assert.Empty(t, st.marked)
	})

	t.Run("refresh floor applies to low confidence", func(t *testing.T) {
		st := &fakeStore{
			stale: []model.EnrichableRecord{{ID: "poi_1", Name: "Hotel de Paris"}},
		}
		se := &fakeSearch{resp: searchFixture()}
		ai := &fakeAI{text: `{
			"description": "Refreshed.",
			"confidence_score": 40,
			"citations": [{"source_index": 0, "quote_snippet": "landmark"}]
		}`}

		_, err := newTestService(st, se, ai).RefreshBatch(context.Background(), Options{})
		require.NoError(t, err)
		require.Len(t, st.updated, 1)
		assert.InDelta(t, refreshConfidenceFloor, *st.updated[0].ConfidenceScore, 1e-9)
	})
}
