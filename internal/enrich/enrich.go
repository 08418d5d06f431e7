package enrich

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/voyago/curator-cli/internal/model"
	"github.com/voyago/curator-cli/internal/provenance"
	"github.com/voyago/curator-cli/pkg/anthropic"
	"github.com/voyago/curator-cli/pkg/tavily"
)

// Store is the persistence surface the enrichment agents need.
type Store interface {
	FindEnrichable(ctx context.Context, destination string, limit int) ([]model.EnrichableRecord, error)
	FindStalePOIs(ctx context.Context, now time.Time, limit int) ([]model.EnrichableRecord, error)
	UpdateRecord(ctx context.Context, rec *model.EnrichableRecord) error
	MarkEnriched(ctx context.Context, id string, refreshDays int, now time.Time) error
}

// Options tunes a batch run.
type Options struct {
	BatchSize         int
	MaxResults        int
	SearchDepth       string
	DestinationFilter string
	RefreshDays       int
	Budget            time.Duration
}

const (
	defaultBatchSize  = 10
	defaultMaxResults = 5
	defaultBudget     = 10 * time.Minute

	maxExtractionTokens = 2048
)

func (o *Options) applyDefaults() {
	if o.BatchSize <= 0 {
		o.BatchSize = defaultBatchSize
	}
	if o.MaxResults <= 0 {
		o.MaxResults = defaultMaxResults
	}
	if o.RefreshDays <= 0 {
		o.RefreshDays = DefaultRefreshDays
	}
	if o.Budget <= 0 {
		o.Budget = defaultBudget
	}
}

// RecordResult is the outcome for one record in a batch.
type RecordResult struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// BatchResult summarizes a batch run.
type BatchResult struct {
	Processed int            `json:"processed"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Skipped   int            `json:"skipped"`
	Results   []RecordResult `json:"results"`
}

// Service runs the gap-filling and refresh agents.
type Service struct {
	store   Store
	search  tavily.Client
	ai      anthropic.Client
	model   string
	limiter *rate.Limiter
	log     *zap.Logger
}

// NewService wires an enrichment service. The limiter paces outbound search
// and extraction calls across the whole batch.
func NewService(store Store, search tavily.Client, ai anthropic.Client, aiModel string, log *zap.Logger) *Service {
	return &Service{
		store:   store,
		search:  search,
		ai:      ai,
		model:   aiModel,
		limiter: rate.NewLimiter(rate.Every(time.Second), 2),
		log:     log,
	}
}

// EnrichBatch runs one gap-filling pass: find records with content gaps,
// search the web for each, extract structured facts, and merge them under
// the fill-missing policy. Records are processed sequentially and failures
// are isolated per record; there is no in-batch retry — the attempt cooldown
// is the retry mechanism.
func (s *Service) EnrichBatch(ctx context.Context, opts Options) (*BatchResult, error) {
	opts.applyDefaults()

	ctx, cancel := context.WithTimeout(ctx, opts.Budget)
	defer cancel()

	records, err := s.store.FindEnrichable(ctx, opts.DestinationFilter, opts.BatchSize)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: find enrichable records")
	}

	result := &BatchResult{}
	now := time.Now().UTC()

	for i := range records {
		rec := &records[i]

		if err := ctx.Err(); err != nil {
			s.log.Warn("batch budget exhausted",
				zap.Int("processed", result.Processed),
				zap.Int("remaining", len(records)-i))
			break
		}

		if TooSoon(rec, AgentGapFill, now) {
			result.Skipped++
			s.log.Debug("skipping record in cooldown",
				zap.String("id", rec.ID),
				zap.String("name", rec.Name))
			continue
		}

		result.Processed++
		if err := s.enrichOne(ctx, rec, AgentGapFill, FillMissing, opts); err != nil {
			result.Failed++
			result.Results = append(result.Results, RecordResult{
				ID: rec.ID, Name: rec.Name, Error: err.Error(),
			})
			s.log.Warn("enrichment failed",
				zap.String("id", rec.ID),
				zap.String("name", rec.Name),
				zap.Error(err))
			continue
		}

		result.Succeeded++
		result.Results = append(result.Results, RecordResult{ID: rec.ID, Name: rec.Name, OK: true})
		s.log.Info("record enriched",
			zap.String("id", rec.ID),
			zap.String("name", rec.Name))
	}

	return result, nil
}

// RefreshBatch runs one scheduled refresh pass over expired records, oldest
// first. Refreshed fields are overwritten (newer evidence wins) and the
// record's refresh clock is reset even on partial extraction.
func (s *Service) RefreshBatch(ctx context.Context, opts Options) (*BatchResult, error) {
	opts.applyDefaults()

	ctx, cancel := context.WithTimeout(ctx, opts.Budget)
	defer cancel()

	now := time.Now().UTC()
	records, err := s.store.FindStalePOIs(ctx, now, opts.BatchSize)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: find stale records")
	}

	result := &BatchResult{}

	for i := range records {
		rec := &records[i]

		if err := ctx.Err(); err != nil {
			s.log.Warn("batch budget exhausted",
				zap.Int("processed", result.Processed),
				zap.Int("remaining", len(records)-i))
			break
		}

		result.Processed++
		if err := s.enrichOne(ctx, rec, AgentRefresh, OverwriteOnRefresh, opts); err != nil {
			result.Failed++
			result.Results = append(result.Results, RecordResult{
				ID: rec.ID, Name: rec.Name, Error: err.Error(),
			})
			s.log.Warn("refresh failed",
				zap.String("id", rec.ID),
				zap.String("name", rec.Name),
				zap.Error(err))
			continue
		}

		if err := s.store.MarkEnriched(ctx, rec.ID, opts.RefreshDays, time.Now().UTC()); err != nil {
			result.Failed++
			result.Results = append(result.Results, RecordResult{
				ID: rec.ID, Name: rec.Name, Error: err.Error(),
			})
			continue
		}

		result.Succeeded++
		result.Results = append(result.Results, RecordResult{ID: rec.ID, Name: rec.Name, OK: true})
		s.log.Info("record refreshed",
			zap.String("id", rec.ID),
			zap.String("name", rec.Name))
	}

	return result, nil
}

// enrichOne performs one search + one extraction for a single record and
// persists the outcome. Attempt bookkeeping is written and persisted even
// when the attempt fails, so the cooldown clock always advances.
func (s *Service) enrichOne(ctx context.Context, rec *model.EnrichableRecord, agent string, policy Policy, opts Options) error {
	query := searchQuery(rec)

	err := s.enrichFromWeb(ctx, rec, agent, policy, query, opts)

	// Persist bookkeeping regardless of outcome. RecordAttempt was already
	// called inside enrichFromWeb with the source count it reached.
	if storeErr := s.store.UpdateRecord(ctx, rec); storeErr != nil {
		if err != nil {
			return eris.Wrap(err, "enrich: attempt failed and bookkeeping not persisted")
		}
		return eris.Wrap(storeErr, "enrich: persist record")
	}
	return err
}

func (s *Service) enrichFromWeb(ctx context.Context, rec *model.EnrichableRecord, agent string, policy Policy, query string, opts Options) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "enrich: rate limit wait")
	}

	searchOpts := []tavily.SearchOption{tavily.WithMaxResults(opts.MaxResults)}
	if opts.SearchDepth != "" {
		searchOpts = append(searchOpts, tavily.WithSearchDepth(opts.SearchDepth))
	}

	resp, err := s.search.Search(ctx, query, searchOpts...)
	if err != nil {
		RecordAttempt(rec, agent, query, 0, err, time.Now().UTC())
		return eris.Wrap(err, "enrich: web search")
	}
	if len(resp.Results) == 0 {
		err := eris.Errorf("enrich: no search results for %q", query)
		RecordAttempt(rec, agent, query, 0, err, time.Now().UTC())
		return err
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "enrich: rate limit wait")
	}

	ext, err := s.extract(ctx, rec, resp.Results)
	if err != nil {
		RecordAttempt(rec, agent, query, len(resp.Results), err, time.Now().UTC())
		return err
	}

	now := time.Now().UTC()
	refs := buildSourceRefs(rec.ID, resp.Results, now)
	if err := ApplyExtraction(rec, ext, refs, policy, now); err != nil {
		RecordAttempt(rec, agent, query, len(resp.Results), err, now)
		return err
	}

	RecordAttempt(rec, agent, query, len(resp.Results), nil, now)
	return nil
}

func (s *Service) extract(ctx context.Context, rec *model.EnrichableRecord, results []tavily.SearchResult) (*Extraction, error) {
	resp, err := s.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     s.model,
		MaxTokens: maxExtractionTokens,
		System:    extractionPrompt,
		Messages: []anthropic.Message{
			{Role: "user", Content: extractionInput(rec, results)},
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "enrich: extraction call")
	}
	resp.Usage.LogCost(s.model, "extraction")

	ext, err := ParseExtraction(resp.Text(), len(results))
	if err != nil {
		return nil, err
	}
	return ext, nil
}

// searchQuery builds the web query for a record: name plus destination when
// known, scoped to travel context.
func searchQuery(rec *model.EnrichableRecord) string {
	var b strings.Builder
	b.WriteString(rec.Name)
	if rec.Destination != "" {
		b.WriteString(" ")
		b.WriteString(rec.Destination)
	}
	b.WriteString(" travel guide")
	return b.String()
}

// extractionInput renders the record context and the numbered sources the
// extractor is allowed to cite. SOURCE_<n> numbering is 0-based to match
// citation source_index values.
func extractionInput(rec *model.EnrichableRecord, results []tavily.SearchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Point of interest: %s\n", rec.Name)
	if rec.Destination != "" {
		fmt.Fprintf(&b, "Destination: %s\n", rec.Destination)
	}
	if rec.Category != "" {
		fmt.Fprintf(&b, "Category: %s\n", rec.Category)
	}
	b.WriteString("\nSources:\n")
	for i, r := range results {
		fmt.Fprintf(&b, "\nSOURCE_%d (%s)\nTitle: %s\n%s\n", i, r.URL, r.Title, r.Content)
	}
	return b.String()
}

// buildSourceRefs converts search results into ledger refs, in result order
// so citation indices line up.
func buildSourceRefs(recordID string, results []tavily.SearchResult, capturedAt time.Time) []model.SourceRef {
	refs := make([]model.SourceRef, 0, len(results))
	for i, r := range results {
		refs = append(refs, model.SourceRef{
			SourceType: "tavily",
			SourceID:   provenance.SourceID(r.URL, recordID, i),
			SourceURL:  r.URL,
			CapturedAt: capturedAt,
		})
	}
	return refs
}
