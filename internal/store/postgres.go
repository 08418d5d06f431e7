package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/voyago/curator-cli/internal/db"
	"github.com/voyago/curator-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool; used by tests.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS draft_pois (
	id               TEXT PRIMARY KEY,
	source           TEXT NOT NULL,
	source_id        TEXT NOT NULL,
	name             TEXT NOT NULL,
	description      TEXT,
	category         TEXT,
	destination      TEXT,
	luxury_score     DOUBLE PRECISION,
	confidence_score DOUBLE PRECISION,
	verified         BOOLEAN NOT NULL DEFAULT FALSE,
	promoted_at      TIMESTAMPTZ,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (source, source_id)
);

CREATE INDEX IF NOT EXISTS idx_draft_pois_destination ON draft_pois(destination);
CREATE INDEX IF NOT EXISTS idx_draft_pois_unpromoted ON draft_pois(promoted_at) WHERE promoted_at IS NULL;

CREATE TABLE IF NOT EXISTS poi_records (
	id                    TEXT PRIMARY KEY,
	name                  TEXT NOT NULL,
	destination           TEXT NOT NULL DEFAULT '',
	description           TEXT NOT NULL DEFAULT '',
	category              TEXT NOT NULL DEFAULT '',
	luxury_score          DOUBLE PRECISION,
	luxury_score_verified BOOLEAN NOT NULL DEFAULT FALSE,
	confidence_score      DOUBLE PRECISION,
	keywords              JSONB NOT NULL DEFAULT '[]',
	themes                JSONB NOT NULL DEFAULT '[]',
	website_url           TEXT NOT NULL DEFAULT '',
	booking_info          TEXT NOT NULL DEFAULT '',
	best_time             TEXT NOT NULL DEFAULT '',
	verified              BOOLEAN NOT NULL DEFAULT FALSE,
	source_refs           JSONB NOT NULL DEFAULT '[]',
	citations             JSONB NOT NULL DEFAULT '[]',
	enrichment            JSONB NOT NULL DEFAULT '{}',
	last_enriched_at      TIMESTAMPTZ,
	next_refresh_at       TIMESTAMPTZ,
	created_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at            TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_poi_records_destination ON poi_records(destination);
CREATE INDEX IF NOT EXISTS idx_poi_records_next_refresh ON poi_records(next_refresh_at ASC NULLS FIRST);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// draftUpsertCfg keys drafts on (source, source_id) so repeated intake of the
// same extraction batch converges instead of duplicating rows.
var draftUpsertCfg = db.UpsertConfig{
	Table: "draft_pois",
	Columns: []string{
		"id", "source", "source_id", "name", "description", "category",
		"destination", "luxury_score", "confidence_score", "verified",
		"created_at", "updated_at",
	},
	ConflictKeys: []string{"source", "source_id"},
	UpdateCols: []string{
		"name", "description", "category", "destination",
		"luxury_score", "confidence_score", "verified", "updated_at",
	},
}

func (s *PostgresStore) UpsertDrafts(ctx context.Context, drafts []model.DraftPOI) (int64, int64, error) {
	now := time.Now().UTC()
	rows := make([][]any, 0, len(drafts))
	for _, d := range drafts {
		id := d.ID
		if id == "" {
			id = uuid.New().String()
		}
		createdAt := d.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		rows = append(rows, []any{
			id, d.Source, d.SourceID, d.Name, d.Description, d.Category,
			d.Destination, d.LuxuryScore, d.ConfidenceScore, d.Verified,
			createdAt, now,
		})
	}
	return db.BulkUpsert(ctx, s.pool, draftUpsertCfg, rows)
}

const draftColumns = `id, source, source_id, name, COALESCE(description, ''), COALESCE(category, ''),
	destination, luxury_score, confidence_score, verified, promoted_at, created_at, updated_at`

func (s *PostgresStore) ListDraftCandidates(ctx context.Context, destination, theme string, limit int) ([]model.DraftPOI, error) {
	query := `SELECT ` + draftColumns + `
		FROM draft_pois
		WHERE promoted_at IS NULL
		  AND ($1 = '' OR destination ILIKE '%' || $1 || '%')
		  AND ($2 = '' OR name ILIKE '%' || $2 || '%'
		       OR description ILIKE '%' || $2 || '%'
		       OR category ILIKE '%' || $2 || '%')
		ORDER BY updated_at DESC
		LIMIT $3`

	rows, err := s.pool.Query(ctx, query, destination, theme, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list draft candidates")
	}
	defer rows.Close()

	var drafts []model.DraftPOI
	for rows.Next() {
		var d model.DraftPOI
		if err := rows.Scan(&d.ID, &d.Source, &d.SourceID, &d.Name, &d.Description, &d.Category,
			&d.Destination, &d.LuxuryScore, &d.ConfidenceScore, &d.Verified,
			&d.PromotedAt, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan draft")
		}
		drafts = append(drafts, d)
	}
	return drafts, eris.Wrap(rows.Err(), "postgres: list draft candidates iterate")
}

func (s *PostgresStore) PromoteVerifiedDrafts(ctx context.Context, now time.Time) (int, error) {
	// Promotion moves a verified draft out of the draft pool and seeds a POI
	// record in one statement, so a crash between the two cannot strand a
	// promoted draft without a record.
	tag, err := s.pool.Exec(ctx, `
		WITH promoted AS (
			UPDATE draft_pois
			SET promoted_at = $1, updated_at = $1
			WHERE verified AND promoted_at IS NULL
			RETURNING id, name, description, category, destination, luxury_score, confidence_score, created_at
		)
		INSERT INTO poi_records (id, name, destination, description, category,
			luxury_score, confidence_score, verified, created_at, updated_at)
		SELECT id, name, COALESCE(destination, ''), COALESCE(description, ''), COALESCE(category, ''),
			luxury_score, confidence_score, TRUE, created_at, $1
		FROM promoted
		ON CONFLICT (id) DO NOTHING`,
		now,
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: promote verified drafts")
	}
	return int(tag.RowsAffected()), nil
}

const recordColumns = `id, name, destination, description, category,
	luxury_score, luxury_score_verified, confidence_score, keywords, themes,
	website_url, booking_info, best_time, verified, source_refs, citations, enrichment,
	last_enriched_at, next_refresh_at, created_at, updated_at`

func (s *PostgresStore) CreateRecord(ctx context.Context, rec *model.EnrichableRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	keywords, themes, refs, citations, enrichment, err := marshalRecordJSON(rec)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO poi_records (`+recordColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
		rec.ID, rec.Name, rec.Destination, rec.Description, rec.Category,
		rec.LuxuryScore, rec.LuxuryScoreVerified, rec.ConfidenceScore, keywords, themes,
		rec.WebsiteURL, rec.BookingInfo, rec.BestTime, rec.Verified, refs, citations, enrichment,
		rec.LastEnrichedAt, rec.NextRefreshAt, rec.CreatedAt, rec.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: insert record %s", rec.ID)
}

func (s *PostgresStore) GetRecord(ctx context.Context, id string) (*model.EnrichableRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM poi_records WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("record not found: %s", id)
		}
		return nil, eris.Wrapf(err, "postgres: get record %s", id)
	}
	return rec, nil
}

func (s *PostgresStore) UpdateRecord(ctx context.Context, rec *model.EnrichableRecord) error {
	keywords, themes, refs, citations, enrichment, err := marshalRecordJSON(rec)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE poi_records SET
			name = $2, destination = $3, description = $4, category = $5,
			luxury_score = $6, confidence_score = $7, keywords = $8, themes = $9,
			website_url = $10, booking_info = $11, best_time = $12,
			source_refs = $13, citations = $14, enrichment = $15, updated_at = $16
		 WHERE id = $1`,
		rec.ID, rec.Name, rec.Destination, rec.Description, rec.Category,
		rec.LuxuryScore, rec.ConfidenceScore, keywords, themes,
		rec.WebsiteURL, rec.BookingInfo, rec.BestTime,
		refs, citations, enrichment, rec.UpdatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update record %s", rec.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("record not found: %s", rec.ID)
	}
	return nil
}

// enrichableGapPredicate selects records with at least one content gap the
// gap-filling agent can fill.
const enrichableGapPredicate = `(description = ''
	OR luxury_score IS NULL
	OR keywords = '[]'::jsonb
	OR themes = '[]'::jsonb)`

func (s *PostgresStore) FindEnrichable(ctx context.Context, destination string, limit int) ([]model.EnrichableRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+recordColumns+` FROM poi_records
		 WHERE `+enrichableGapPredicate+`
		   AND ($1 = '' OR destination ILIKE '%' || $1 || '%')
		 ORDER BY created_at ASC
		 LIMIT $2`,
		destination, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: find enrichable")
	}
	defer rows.Close()
	return collectRecords(rows, "postgres: find enrichable")
}

func (s *PostgresStore) FindStalePOIs(ctx context.Context, now time.Time, limit int) ([]model.EnrichableRecord, error) {
	// Never-refreshed records sort first, then the longest-expired.
	rows, err := s.pool.Query(ctx,
		`SELECT `+recordColumns+` FROM poi_records
		 WHERE next_refresh_at IS NULL OR next_refresh_at <= $1
		 ORDER BY next_refresh_at ASC NULLS FIRST
		 LIMIT $2`,
		now, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: find stale records")
	}
	defer rows.Close()
	return collectRecords(rows, "postgres: find stale records")
}

func (s *PostgresStore) MarkEnriched(ctx context.Context, id string, refreshDays int, now time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE poi_records
		 SET last_enriched_at = $2, next_refresh_at = $2 + make_interval(days => $3), updated_at = $2
		 WHERE id = $1`,
		id, now, refreshDays,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark enriched %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("record not found: %s", id)
	}
	return nil
}

// helpers

func marshalRecordJSON(rec *model.EnrichableRecord) (keywords, themes, refs, citations, enrichment []byte, err error) {
	if keywords, err = json.Marshal(emptySlice(rec.Keywords)); err != nil {
		return nil, nil, nil, nil, nil, eris.Wrap(err, "store: marshal keywords")
	}
	if themes, err = json.Marshal(emptySlice(rec.Themes)); err != nil {
		return nil, nil, nil, nil, nil, eris.Wrap(err, "store: marshal themes")
	}
	if refs, err = json.Marshal(emptyRefs(rec.SourceRefs)); err != nil {
		return nil, nil, nil, nil, nil, eris.Wrap(err, "store: marshal source refs")
	}
	if citations, err = json.Marshal(emptyCitations(rec.Citations)); err != nil {
		return nil, nil, nil, nil, nil, eris.Wrap(err, "store: marshal citations")
	}
	enrichmentMap := rec.Enrichment
	if enrichmentMap == nil {
		enrichmentMap = map[string]model.AttemptLedger{}
	}
	if enrichment, err = json.Marshal(enrichmentMap); err != nil {
		return nil, nil, nil, nil, nil, eris.Wrap(err, "store: marshal enrichment")
	}
	return keywords, themes, refs, citations, enrichment, nil
}

func emptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func emptyRefs(s []model.SourceRef) []model.SourceRef {
	if s == nil {
		return []model.SourceRef{}
	}
	return s
}

func emptyCitations(s []model.Citation) []model.Citation {
	if s == nil {
		return []model.Citation{}
	}
	return s
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRecord(row scannable) (*model.EnrichableRecord, error) {
	var rec model.EnrichableRecord
	var keywords, themes, refs, citations, enrichment []byte

	err := row.Scan(&rec.ID, &rec.Name, &rec.Destination, &rec.Description, &rec.Category,
		&rec.LuxuryScore, &rec.LuxuryScoreVerified, &rec.ConfidenceScore, &keywords, &themes,
		&rec.WebsiteURL, &rec.BookingInfo, &rec.BestTime, &rec.Verified, &refs, &citations, &enrichment,
		&rec.LastEnrichedAt, &rec.NextRefreshAt, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(keywords, &rec.Keywords); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal keywords")
	}
	if err := json.Unmarshal(themes, &rec.Themes); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal themes")
	}
	if err := json.Unmarshal(refs, &rec.SourceRefs); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal source refs")
	}
	if err := json.Unmarshal(citations, &rec.Citations); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal citations")
	}
	if err := json.Unmarshal(enrichment, &rec.Enrichment); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal enrichment")
	}
	return &rec, nil
}

func collectRecords(rows pgx.Rows, op string) ([]model.EnrichableRecord, error) {
	var records []model.EnrichableRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, eris.Wrap(err, op+" scan")
		}
		records = append(records, *rec)
	}
	return records, eris.Wrap(rows.Err(), op+" iterate")
}
