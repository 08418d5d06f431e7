package retrieval

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/voyago/curator-cli/internal/graph"
	"github.com/voyago/curator-cli/internal/model"
	"github.com/voyago/curator-cli/internal/rank"
)

// trustedOrigins lists the source kinds whose graph POIs count as approved:
// records that entered the graph through the vetted extraction pipeline or
// were entered by hand.
var trustedOrigins = map[string]bool{
	"agent_extraction": true,
	"manual_entry":     true,
}

// graphCandidateQuery matches POIs located in the requested destination and
// derives a theme fit from two independent relationship signals: the weight
// of a direct featured-in-theme edge and the confidence of a has-theme edge.
// Either signal alone is sufficient evidence of fit, so the query takes the
// max rather than an average. The ORDER BY is a cheap pre-filter on raw
// values; the real ranking happens in the rank scorer.
const graphCandidateQuery = `
MATCH (p:POI)-[:LOCATED_IN]->(d:Destination)
WHERE toLower(d.name) CONTAINS toLower($destination)
OPTIONAL MATCH (p)-[f:FEATURED_IN]->(ft:Theme)
WHERE size($themes) > 0 AND toLower(ft.slug) IN $themes
OPTIONAL MATCH (p)-[h:HAS_THEME]->(ht:Theme)
WHERE size($themes) > 0 AND toLower(ht.slug) IN $themes
WITH p, d,
	coalesce(max(f.weight), 0.0) AS featured,
	coalesce(max(h.confidence), 0.0) AS hasTheme
WITH p, d,
	CASE WHEN featured > hasTheme THEN featured ELSE hasTheme END AS themeFit
RETURN
	p.uid AS uid,
	p.name AS name,
	p.category AS category,
	d.name AS destination,
	coalesce(p.luxury_score, 0.0) AS luxury,
	coalesce(p.confidence_score, 0.0) AS confidence,
	coalesce(p.source_kind, '') AS source_kind,
	p.updated_at AS updated_at,
	themeFit AS theme_fit
ORDER BY luxury * confidence * (0.2 + themeFit) DESC
LIMIT 50`

// GraphAdapter retrieves POI candidates from the trusted graph store.
type GraphAdapter struct {
	querier graph.Querier
	log     *zap.Logger
}

// NewGraphAdapter creates a GraphAdapter.
func NewGraphAdapter(querier graph.Querier) *GraphAdapter {
	return &GraphAdapter{querier: querier, log: zap.L().Named("graph_adapter")}
}

// Fetch queries the graph for candidates in the destination, optionally
// filtered to the given themes (lowercase slugs). A query failure degrades
// to an empty result so the other adapter and the merge step still run.
func (a *GraphAdapter) Fetch(ctx context.Context, destination string, themes []string, now time.Time) []model.Candidate {
	if themes == nil {
		themes = []string{}
	}
	rows, err := a.querier.Query(ctx, graphCandidateQuery, map[string]any{
		"destination": destination,
		"themes":      themes,
	})
	if err != nil {
		a.log.Warn("graph query failed, continuing without graph candidates",
			zap.String("destination", destination), zap.Error(err))
		return nil
	}

	candidates := make([]model.Candidate, 0, len(rows))
	for _, row := range rows {
		c, err := candidateFromGraphRow(row, now)
		if err != nil {
			a.log.Debug("skipping malformed graph row", zap.Error(err))
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates
}

// candidateFromGraphRow normalizes one raw graph row into a Candidate.
func candidateFromGraphRow(row graph.Record, now time.Time) (model.Candidate, error) {
	sourceKind := asString(row["source_kind"])
	approved := trustedOrigins[sourceKind]

	label := model.LabelUnapprovedDraft
	if approved {
		label = model.LabelApproved
	}

	updatedAt := asTime(row["updated_at"])
	dest := asString(row["destination"])

	c := model.Candidate{
		Source:       model.SourceGraph,
		Approved:     approved,
		Label:        label,
		Name:         asString(row["name"]),
		Type:         asString(row["category"]),
		Confidence:   rank.NormalizeConfidence(asFloat(row["confidence"])),
		Luxury:       rank.NormalizeLuxury(asFloat(row["luxury"])),
		ThemeFit:     rank.Clamp01(asFloat(row["theme_fit"])),
		RecencyScore: rank.RecencyScore(updatedAt, now),
		POIUID:       asString(row["uid"]),
		SourceKind:   sourceKind,
		UpdatedAt:    updatedAt,
	}
	if dest != "" {
		c.Destination = &dest
	}
	return model.NewCandidate(c)
}

// Graph rows come back loosely typed; these helpers coerce the common cases
// and fall back to zero values rather than propagating nulls into ranking.

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	}
	return 0
}

func asTime(v any) *time.Time {
	switch t := v.(type) {
	case time.Time:
		return &t
	case *time.Time:
		return t
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return nil
		}
		return &parsed
	}
	return nil
}
