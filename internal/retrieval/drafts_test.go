package retrieval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyago/curator-cli/internal/model"
)

func TestCandidateFromDraft(t *testing.T) {
	now := time.Now().UTC()

	t.Run("unverified draft", func(t *testing.T) {
		c, err := candidateFromDraft(monacoDraft("Blue Bay"), "", now)
		require.NoError(t, err)
		assert.Equal(t, model.SourceDraft, c.Source)
		assert.False(t, c.Approved)
		assert.Equal(t, model.LabelUnapprovedDraft, c.Label)
		assert.InDelta(t, 0.85, c.Confidence, 1e-9)
		assert.InDelta(t, 0.7, c.Luxury, 1e-9)
		assert.Zero(t, c.ThemeFit)
	})

	t.Run("verified draft label", func(t *testing.T) {
		d := monacoDraft("Blue Bay")
		d.Verified = true
		c, err := candidateFromDraft(d, "", now)
		require.NoError(t, err)
		assert.Equal(t, model.LabelVerifiedDraft, c.Label)
		assert.False(t, c.Approved, "drafts are never approved, verified or not")
	})

	t.Run("theme match grants flat theme fit", func(t *testing.T) {
		c, err := candidateFromDraft(monacoDraft("Blue Bay"), "gastronomy", now)
		require.NoError(t, err)
		assert.Equal(t, draftThemeFit, c.ThemeFit)
	})

	t.Run("nil scores default to zero", func(t *testing.T) {
		d := monacoDraft("Blue Bay")
		d.ConfidenceScore = nil
		d.LuxuryScore = nil
		c, err := candidateFromDraft(d, "", now)
		require.NoError(t, err)
		assert.Zero(t, c.Confidence)
		assert.Zero(t, c.Luxury)
	})

	t.Run("missing name fails closed", func(t *testing.T) {
		d := monacoDraft("Blue Bay")
		d.Name = "  "
		_, err := candidateFromDraft(d, "", now)
		assert.Error(t, err)
	})
}
