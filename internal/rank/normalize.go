// Package rank normalizes heterogeneous raw POI scores and blends them into
// a single explainable relevance score.
package rank

import (
	"math"
	"time"
)

const (
	// recencyHalfLife is the age at which a record's recency contribution
	// decays to roughly 0.5.
	recencyHalfLife = 90.0 // days

	// neutralRecency is returned when a timestamp is missing, unparsable or
	// in the future (clock skew).
	neutralRecency = 0.2
)

// Clamp01 clamps x into [0,1]. Non-finite inputs map to 0.
func Clamp01(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// NormalizeLuxury maps a raw luxury value onto [0,1]. The backing stores mix
// a 0-10 scale with a 0-100 scale and do not record which one a given value
// is on; values above 10 are assumed to be percentages. Legitimate 0-100
// values at or below 10 are misread as 0-10 — a known limitation, kept in
// this single function instead of re-guessed at call sites.
func NormalizeLuxury(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	if x > 10 {
		return Clamp01(x / 100)
	}
	return Clamp01(x / 10)
}

// NormalizeConfidence maps a raw confidence value onto [0,1]. Same dual-scale
// heuristic as NormalizeLuxury, thresholded at 1: values above 1 are assumed
// to be 0-100 percentages.
func NormalizeConfidence(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	if x > 1 {
		return Clamp01(x / 100)
	}
	return Clamp01(x)
}

// RecencyScore scores how recently a record was touched: same-day is 1.0,
// 90 days old is ~0.5, 180 days ~0.33. A nil or zero timestamp, or one ahead
// of now, yields the neutral default rather than an extreme value.
func RecencyScore(ts *time.Time, now time.Time) float64 {
	if ts == nil || ts.IsZero() {
		return neutralRecency
	}
	days := now.Sub(*ts).Hours() / 24
	if days < 0 {
		return neutralRecency
	}
	return Clamp01(1 / (1 + days/recencyHalfLife))
}
