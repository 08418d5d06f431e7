package model

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// CandidateSource identifies which backing store produced a candidate.
type CandidateSource string

const (
	// SourceGraph marks candidates read from the trusted graph store.
	SourceGraph CandidateSource = "graph"
	// SourceDraft marks candidates read from the machine-extracted draft store.
	SourceDraft CandidateSource = "draft"
)

// CandidateLabel is the trust classification shown alongside a candidate.
type CandidateLabel string

const (
	LabelApproved        CandidateLabel = "APPROVED"
	LabelUnapprovedDraft CandidateLabel = "UNAPPROVED_DRAFT"
	LabelVerifiedDraft   CandidateLabel = "VERIFIED_DRAFT"
)

// Candidate is a single ranked retrieval row. Candidates are built fresh on
// every retrieval call and discarded with the response; they are never
// persisted.
type Candidate struct {
	Source   CandidateSource `json:"source"`
	Approved bool            `json:"approved"`
	Label    CandidateLabel  `json:"label"`

	Name        string  `json:"name"`
	Type        string  `json:"type,omitempty"`
	Destination *string `json:"destination"`

	// Normalized scoring dimensions, all in [0,1]. Score is always computed
	// by the rank scorer, never set directly.
	Confidence   float64 `json:"confidence"`
	Luxury       float64 `json:"luxury"`
	ThemeFit     float64 `json:"theme_fit"`
	RecencyScore float64 `json:"recency_score"`
	Score        float64 `json:"score"`

	POIUID     string     `json:"poi_uid,omitempty"`
	SourceID   string     `json:"source_id,omitempty"`
	SourceKind string     `json:"source_kind,omitempty"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

// NewCandidate validates a raw candidate built by a source adapter. Rows from
// either backing store can be partially malformed; construction fails closed
// so the adapter can skip the row instead of pushing nulls into ranking.
func NewCandidate(c Candidate) (Candidate, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return Candidate{}, eris.New("model: candidate missing name")
	}

	switch c.Source {
	case SourceGraph, SourceDraft:
	default:
		return Candidate{}, eris.Errorf("model: unknown candidate source %q", c.Source)
	}

	// Drafts are never approved, regardless of what the row claims.
	if c.Source == SourceDraft && c.Approved {
		return Candidate{}, eris.New("model: draft candidate cannot be approved")
	}

	switch c.Label {
	case LabelApproved, LabelUnapprovedDraft, LabelVerifiedDraft:
	default:
		return Candidate{}, eris.Errorf("model: unknown candidate label %q", c.Label)
	}

	return c, nil
}
