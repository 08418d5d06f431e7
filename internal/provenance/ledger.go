// Package provenance validates and appends the SourceRef/Citation evidence
// that proves where every machine-asserted POI fact came from.
package provenance

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/voyago/curator-cli/internal/model"
)

// MaxQuoteSnippet is the longest quote a citation may carry.
const MaxQuoteSnippet = 500

// SourceID derives a stable, deterministic id for an evidence source, so
// re-running enrichment against the same URL yields the same id and refs can
// later be deduplicated by identity. Evidence without a URL falls back to a
// hash of the record id and the source's ordinal within this capture.
func SourceID(sourceURL, recordID string, ordinal int) string {
	if u := canonicalURL(sourceURL); u != "" {
		return hashID(u)
	}
	return hashID(fmt.Sprintf("%s#%d", recordID, ordinal))
}

func hashID(s string) string {
	sum := sha256.Sum256([]byte(s))
	return "src_" + hex.EncodeToString(sum[:])[:16]
}

// canonicalURL lowercases the scheme and host and strips fragments and
// trailing slashes, so trivially different spellings of the same URL hash to
// the same source id.
func canonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	return u.String()
}

// ValidateRef checks a SourceRef against its schema before it may be
// appended to a record.
func ValidateRef(ref model.SourceRef) error {
	if strings.TrimSpace(ref.SourceType) == "" {
		return eris.New("provenance: source ref missing source_type")
	}
	if strings.TrimSpace(ref.SourceID) == "" {
		return eris.New("provenance: source ref missing source_id")
	}
	if ref.CapturedAt.IsZero() {
		return eris.New("provenance: source ref missing captured_at")
	}
	return nil
}

// ValidateCitation checks a citation whose source_ref_index is local to a
// batch of refCount freshly captured refs.
func ValidateCitation(c model.Citation, refCount int) error {
	if c.SourceRefIndex < 0 || c.SourceRefIndex >= refCount {
		return eris.Errorf("provenance: citation index %d out of range (have %d refs)", c.SourceRefIndex, refCount)
	}
	if strings.TrimSpace(c.QuoteSnippet) == "" {
		return eris.New("provenance: citation missing quote_snippet")
	}
	if len(c.QuoteSnippet) > MaxQuoteSnippet {
		return eris.Errorf("provenance: quote_snippet exceeds %d chars", MaxQuoteSnippet)
	}
	return nil
}

// Append merges freshly captured evidence into a record. Incoming citations
// address the new refs by local index (0..len(refs)); every index is shifted
// by the record's current ref count so it stays addressable after repeated
// enrichment passes. Citations without an anchor get a default one built
// from the ref's source type and global index. Existing entries are never
// removed or reordered.
//
// Validation happens before any mutation, so a bad batch leaves the record
// untouched.
func Append(rec *model.EnrichableRecord, refs []model.SourceRef, citations []model.Citation) error {
	for i, ref := range refs {
		if err := ValidateRef(ref); err != nil {
			return eris.Wrapf(err, "provenance: ref %d", i)
		}
	}
	for i, c := range citations {
		if err := ValidateCitation(c, len(refs)); err != nil {
			return eris.Wrapf(err, "provenance: citation %d", i)
		}
	}

	base := len(rec.SourceRefs)
	rec.SourceRefs = append(rec.SourceRefs, refs...)

	for _, c := range citations {
		local := c.SourceRefIndex
		c.SourceRefIndex += base
		if strings.TrimSpace(c.Anchor) == "" {
			c.Anchor = fmt.Sprintf("%s:SOURCE_%d", refs[local].SourceType, c.SourceRefIndex)
		}
		rec.Citations = append(rec.Citations, c)
	}

	return nil
}
