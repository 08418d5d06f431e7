// Package enrich fills content gaps on POI records and refreshes aging ones,
// under the provenance and merge-policy rules that keep automated writes
// auditable and reversible.
package enrich

import (
	"strings"
	"time"

	"github.com/voyago/curator-cli/internal/model"
)

const (
	// CooldownWindow is the minimum wait between gap-filling attempts on one
	// record. It is the only retry mechanism: a failed attempt is simply
	// retried on a later scheduled run once the window has passed. This also
	// stops thrashing on records that legitimately have no evidence to find.
	CooldownWindow = 12 * time.Hour

	// DefaultRefreshDays is how long a refreshed record stays fresh before
	// the expiry clock makes it refresh-eligible again.
	DefaultRefreshDays = 90
)

// Bookkeeping namespaces. Each agent reads and writes only its own key in a
// record's enrichment map.
const (
	AgentGapFill = "agent_auto_enrich"
	AgentRefresh = "agent_scheduled_refresh"
)

// NeedsEnrichment reports whether the record still has content gaps worth a
// gap-filling pass.
func NeedsEnrichment(rec *model.EnrichableRecord) bool {
	return strings.TrimSpace(rec.Description) == "" ||
		rec.LuxuryScore == nil ||
		len(rec.Keywords) == 0 ||
		len(rec.Themes) == 0
}

// TooSoon reports whether the agent already attempted this record within the
// cooldown window. A record with no prior attempt is never blocked.
func TooSoon(rec *model.EnrichableRecord, agent string, now time.Time) bool {
	ledger, ok := rec.Enrichment[agent]
	if !ok || ledger.LastAttemptAt == nil {
		return false
	}
	return now.Sub(*ledger.LastAttemptAt) < CooldownWindow
}

// Eligible reports whether the record may be gap-filled right now. The
// cooldown applies regardless of whether the previous attempt succeeded.
func Eligible(rec *model.EnrichableRecord, agent string, now time.Time) bool {
	return NeedsEnrichment(rec) && !TooSoon(rec, agent, now)
}

// RecordAttempt updates the agent's bookkeeping ledger in place. It touches
// only the given agent's namespace so concurrent agents never clobber each
// other's history. Called for failed attempts too: the cooldown clock runs
// on attempts, not successes.
func RecordAttempt(rec *model.EnrichableRecord, agent, query string, sourcesUsed int, attemptErr error, now time.Time) {
	if rec.Enrichment == nil {
		rec.Enrichment = make(map[string]model.AttemptLedger)
	}

	ledger := rec.Enrichment[agent]
	t := now
	ledger.LastAttemptAt = &t
	ledger.AttemptCount++
	ledger.LastQuery = query
	ledger.SourcesUsed = sourcesUsed
	ledger.LastError = ""
	if attemptErr != nil {
		ledger.LastError = attemptErr.Error()
	}
	rec.Enrichment[agent] = ledger
}
