package retrieval

import (
	"sort"

	"github.com/voyago/curator-cli/internal/model"
)

// Limit bounds for a retrieval call.
const (
	minLimit     = 1
	maxLimit     = 50
	defaultLimit = 20
)

// clampLimit applies the 1..50 bounds with a default of 20.
func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit < minLimit {
		return minLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

// mergeCandidates concatenates the adapters' scored outputs, orders them by
// score descending and truncates to limit. The sort is stable so ties keep
// their adapter order (graph before drafts).
func mergeCandidates(limit int, sets ...[]model.Candidate) []model.Candidate {
	var all []model.Candidate
	for _, set := range sets {
		all = append(all, set...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Score > all[j].Score
	})

	if len(all) > limit {
		all = all[:limit]
	}
	return all
}
