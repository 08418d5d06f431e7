package rank

import "github.com/voyago/curator-cli/internal/model"

// Weights of the blended relevance score. Fixed and summing to 1.0 so any
// ranking can be explained to a reviewer field by field; this is deliberately
// a linear model, not a learned ranker.
const (
	weightApproved   = 0.35
	weightConfidence = 0.25
	weightThemeFit   = 0.20
	weightLuxury     = 0.10
	weightRecency    = 0.10
)

// Trust boost per source/verification combination. This table is the single
// place where "how much do we trust this source" is encoded.
const (
	boostGraphApproved   = 1.0
	boostGraphUnapproved = 0.5
	boostDraftVerified   = 0.8
	boostDraftUnverified = 0.2
)

// ApprovedBoost looks up the trust boost for a candidate's source and
// approval/verification state.
func ApprovedBoost(source model.CandidateSource, trusted bool) float64 {
	switch source {
	case model.SourceGraph:
		if trusted {
			return boostGraphApproved
		}
		return boostGraphUnapproved
	case model.SourceDraft:
		if trusted {
			return boostDraftVerified
		}
		return boostDraftUnverified
	}
	return boostDraftUnverified
}

// Dimensions holds the normalized inputs to the rank score, each in [0,1].
type Dimensions struct {
	ApprovedBoost float64
	Confidence    float64
	ThemeFit      float64
	Luxury        float64
	Recency       float64
}

// Score blends the dimensions with the fixed weights and clamps to [0,1].
func Score(d Dimensions) float64 {
	return Clamp01(weightApproved*d.ApprovedBoost +
		weightConfidence*d.Confidence +
		weightThemeFit*d.ThemeFit +
		weightLuxury*d.Luxury +
		weightRecency*d.Recency)
}
