package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/voyago/curator-cli/internal/model"
)

func scored(name string, score float64, source model.CandidateSource) model.Candidate {
	return model.Candidate{Name: name, Score: score, Source: source}
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{"zero uses default", 0, 20},
		{"negative uses default", -3, 20},
		{"within bounds", 7, 7},
		{"at max", 50, 50},
		{"above max", 200, 50},
		{"one", 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, clampLimit(tt.in))
		})
	}
}

func TestMergeCandidates_SortsDescending(t *testing.T) {
	merged := mergeCandidates(10,
		[]model.Candidate{
			scored("a", 0.4, model.SourceGraph),
			scored("b", 0.9, model.SourceGraph),
		},
		[]model.Candidate{
			scored("c", 0.7, model.SourceDraft),
		},
	)

	assert.Equal(t, []string{"b", "c", "a"}, []string{merged[0].Name, merged[1].Name, merged[2].Name})
}

func TestMergeCandidates_Truncates(t *testing.T) {
	var set []model.Candidate
	for i := 0; i < 40; i++ {
		set = append(set, scored("x", float64(i)/40, model.SourceGraph))
	}

	merged := mergeCandidates(5, set)
	assert.Len(t, merged, 5)
}

func TestMergeCandidates_StableOnTies(t *testing.T) {
	merged := mergeCandidates(10,
		[]model.Candidate{scored("graph", 0.5, model.SourceGraph)},
		[]model.Candidate{scored("draft", 0.5, model.SourceDraft)},
	)

	// Equal scores keep concatenation order: graph set first.
	assert.Equal(t, "graph", merged[0].Name)
	assert.Equal(t, "draft", merged[1].Name)
}

func TestMergeCandidates_Empty(t *testing.T) {
	assert.Empty(t, mergeCandidates(10, nil, nil))
}
