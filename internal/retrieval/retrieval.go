// Package retrieval merges and ranks POI candidates from the trusted graph
// store and the machine-extracted draft store.
package retrieval

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"

	"github.com/voyago/curator-cli/internal/model"
	"github.com/voyago/curator-cli/internal/rank"
)

// Input is a retrieval request. Destination is required; everything else
// has defaults.
type Input struct {
	Destination string   `json:"destination"`
	Theme       string   `json:"theme,omitempty"`
	Themes      []string `json:"themes,omitempty"`
	Limit       int      `json:"limit,omitempty"`
	// IncludeDrafts defaults to true when nil.
	IncludeDrafts *bool `json:"include_drafts,omitempty"`
}

// Counts reports how many candidates each source produced before truncation.
type Counts struct {
	Neo4j    int `json:"neo4j"`
	Drafts   int `json:"drafts"`
	Returned int `json:"returned"`
}

// Result is a ranked retrieval response.
type Result struct {
	Destination string            `json:"destination"`
	Theme       *string           `json:"theme"`
	UsedThemes  []string          `json:"usedThemes"`
	Candidates  []model.Candidate `json:"candidates"`
	Counts      Counts            `json:"counts"`
}

// Service runs retrieval requests against the two source adapters.
type Service struct {
	graph  *GraphAdapter
	drafts *DraftAdapter
	log    *zap.Logger
}

// NewService creates a retrieval Service.
func NewService(graph *GraphAdapter, drafts *DraftAdapter) *Service {
	return &Service{graph: graph, drafts: drafts, log: zap.L().Named("retrieval")}
}

// Retrieve fetches, scores, merges and truncates candidates for the request.
// The two adapters run concurrently; each degrades to an empty partial
// result on failure, so the worst case is a shorter list, never an error —
// except for malformed input, which fails fast.
func (s *Service) Retrieve(ctx context.Context, in Input) (*Result, error) {
	destination := strings.TrimSpace(in.Destination)
	if destination == "" {
		return nil, eris.New("retrieval: destination is required")
	}

	themes := normalizeThemes(in.Theme, in.Themes)
	limit := clampLimit(in.Limit)
	includeDrafts := in.IncludeDrafts == nil || *in.IncludeDrafts
	now := time.Now().UTC()

	var graphRows, draftRows []model.Candidate
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		graphRows = s.graph.Fetch(gctx, destination, themes, now)
		return nil
	})
	if includeDrafts {
		g.Go(func() error {
			draftRows = s.drafts.Fetch(gctx, destination, firstTheme(themes), now)
			return nil
		})
	}
	// Adapters swallow their own failures; Wait only propagates ctx errors.
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "retrieval: adapter fan-out")
	}

	scoreCandidates(graphRows)
	scoreCandidates(draftRows)

	merged := mergeCandidates(limit, graphRows, draftRows)

	s.log.Info("retrieval complete",
		zap.String("destination", destination),
		zap.Strings("themes", themes),
		zap.Int("graph", len(graphRows)),
		zap.Int("drafts", len(draftRows)),
		zap.Int("returned", len(merged)),
	)

	res := &Result{
		Destination: destination,
		UsedThemes:  themes,
		Candidates:  merged,
		Counts: Counts{
			Neo4j:    len(graphRows),
			Drafts:   len(draftRows),
			Returned: len(merged),
		},
	}
	if t := firstTheme(themes); t != "" {
		res.Theme = &t
	}
	return res, nil
}

// scoreCandidates runs the rank scorer over every candidate in place. Score
// is set here and nowhere else.
func scoreCandidates(candidates []model.Candidate) {
	for i := range candidates {
		c := &candidates[i]
		trusted := c.Approved || c.Label == model.LabelVerifiedDraft
		c.Score = rank.Score(rank.Dimensions{
			ApprovedBoost: rank.ApprovedBoost(c.Source, trusted),
			Confidence:    c.Confidence,
			ThemeFit:      c.ThemeFit,
			Luxury:        c.Luxury,
			Recency:       c.RecencyScore,
		})
	}
}

// normalizeThemes folds, trims and dedupes the single theme plus the theme
// list into one canonical lowercase slice.
func normalizeThemes(theme string, themes []string) []string {
	folder := cases.Fold()

	seen := make(map[string]bool)
	var out []string
	for _, t := range append([]string{theme}, themes...) {
		t = strings.TrimSpace(folder.String(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func firstTheme(themes []string) string {
	if len(themes) == 0 {
		return ""
	}
	return themes[0]
}
