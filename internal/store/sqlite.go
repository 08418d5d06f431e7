package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/voyago/curator-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It backs local
// single-user workflows and tests; Postgres is the deployment store.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS draft_pois (
	id               TEXT PRIMARY KEY,
	source           TEXT NOT NULL,
	source_id        TEXT NOT NULL,
	name             TEXT NOT NULL,
	description      TEXT,
	category         TEXT,
	destination      TEXT,
	luxury_score     REAL,
	confidence_score REAL,
	verified         INTEGER NOT NULL DEFAULT 0,
	promoted_at      DATETIME,
	created_at       DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at       DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (source, source_id)
);

CREATE INDEX IF NOT EXISTS idx_draft_pois_destination ON draft_pois(destination);

CREATE TABLE IF NOT EXISTS poi_records (
	id                    TEXT PRIMARY KEY,
	name                  TEXT NOT NULL,
	destination           TEXT NOT NULL DEFAULT '',
	description           TEXT NOT NULL DEFAULT '',
	category              TEXT NOT NULL DEFAULT '',
	luxury_score          REAL,
	luxury_score_verified INTEGER NOT NULL DEFAULT 0,
	confidence_score      REAL,
	keywords              TEXT NOT NULL DEFAULT '[]',
	themes                TEXT NOT NULL DEFAULT '[]',
	website_url           TEXT NOT NULL DEFAULT '',
	booking_info          TEXT NOT NULL DEFAULT '',
	best_time             TEXT NOT NULL DEFAULT '',
	verified              INTEGER NOT NULL DEFAULT 0,
	source_refs           TEXT NOT NULL DEFAULT '[]',
	citations             TEXT NOT NULL DEFAULT '[]',
	enrichment            TEXT NOT NULL DEFAULT '{}',
	last_enriched_at      DATETIME,
	next_refresh_at       DATETIME,
	created_at            DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at            DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_poi_records_destination ON poi_records(destination);
CREATE INDEX IF NOT EXISTS idx_poi_records_next_refresh ON poi_records(next_refresh_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertDrafts(ctx context.Context, drafts []model.DraftPOI) (int64, int64, error) {
	if len(drafts) == 0 {
		return 0, 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, eris.Wrap(err, "sqlite: upsert drafts begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	var inserted, updated int64
	for _, d := range drafts {
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM draft_pois WHERE source = ? AND source_id = ?`,
			d.Source, d.SourceID,
		).Scan(&exists)
		if err != nil && err != sql.ErrNoRows {
			return 0, 0, eris.Wrap(err, "sqlite: upsert drafts probe")
		}

		id := d.ID
		if id == "" {
			id = uuid.New().String()
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO draft_pois (id, source, source_id, name, description, category,
				destination, luxury_score, confidence_score, verified, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (source, source_id) DO UPDATE SET
				name = excluded.name, description = excluded.description,
				category = excluded.category, destination = excluded.destination,
				luxury_score = excluded.luxury_score, confidence_score = excluded.confidence_score,
				verified = excluded.verified, updated_at = excluded.updated_at`,
			id, d.Source, d.SourceID, d.Name, d.Description, d.Category,
			d.Destination, d.LuxuryScore, d.ConfidenceScore, d.Verified, now, now,
		)
		if err != nil {
			return 0, 0, eris.Wrapf(err, "sqlite: upsert draft %s/%s", d.Source, d.SourceID)
		}
		if exists == 1 {
			updated++
		} else {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, eris.Wrap(err, "sqlite: upsert drafts commit")
	}
	return inserted, updated, nil
}

const sqliteDraftColumns = `id, source, source_id, name, COALESCE(description, ''), COALESCE(category, ''),
	destination, luxury_score, confidence_score, verified, promoted_at, created_at, updated_at`

func (s *SQLiteStore) ListDraftCandidates(ctx context.Context, destination, theme string, limit int) ([]model.DraftPOI, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteDraftColumns+`
		 FROM draft_pois
		 WHERE promoted_at IS NULL
		   AND (? = '' OR destination LIKE '%' || ? || '%')
		   AND (? = '' OR name LIKE '%' || ? || '%'
		        OR description LIKE '%' || ? || '%'
		        OR category LIKE '%' || ? || '%')
		 ORDER BY updated_at DESC
		 LIMIT ?`,
		destination, destination, theme, theme, theme, theme, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list draft candidates")
	}
	defer rows.Close()

	var drafts []model.DraftPOI
	for rows.Next() {
		var d model.DraftPOI
		if err := rows.Scan(&d.ID, &d.Source, &d.SourceID, &d.Name, &d.Description, &d.Category,
			&d.Destination, &d.LuxuryScore, &d.ConfidenceScore, &d.Verified,
			&d.PromotedAt, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan draft")
		}
		drafts = append(drafts, d)
	}
	return drafts, eris.Wrap(rows.Err(), "sqlite: list draft candidates iterate")
}

func (s *SQLiteStore) PromoteVerifiedDrafts(ctx context.Context, now time.Time) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: promote begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO poi_records (id, name, destination, description, category,
			luxury_score, confidence_score, verified, created_at, updated_at)
		 SELECT id, name, COALESCE(destination, ''), COALESCE(description, ''), COALESCE(category, ''),
			luxury_score, confidence_score, 1, created_at, ?
		 FROM draft_pois
		 WHERE verified AND promoted_at IS NULL`,
		now,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: promote insert records")
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE draft_pois SET promoted_at = ?, updated_at = ?
		 WHERE verified AND promoted_at IS NULL`,
		now, now,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: promote mark drafts")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: promote rows affected")
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: promote commit")
	}
	return int(n), nil
}

const sqliteRecordColumns = `id, name, destination, description, category,
	luxury_score, luxury_score_verified, confidence_score, keywords, themes,
	website_url, booking_info, best_time, verified, source_refs, citations, enrichment,
	last_enriched_at, next_refresh_at, created_at, updated_at`

func (s *SQLiteStore) CreateRecord(ctx context.Context, rec *model.EnrichableRecord) error {
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

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO poi_records (`+sqliteRecordColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Name, rec.Destination, rec.Description, rec.Category,
		rec.LuxuryScore, rec.LuxuryScoreVerified, rec.ConfidenceScore, string(keywords), string(themes),
		rec.WebsiteURL, rec.BookingInfo, rec.BestTime, rec.Verified, string(refs), string(citations), string(enrichment),
		rec.LastEnrichedAt, rec.NextRefreshAt, rec.CreatedAt, rec.UpdatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert record %s", rec.ID)
}

func (s *SQLiteStore) GetRecord(ctx context.Context, id string) (*model.EnrichableRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteRecordColumns+` FROM poi_records WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, eris.Errorf("record not found: %s", id)
		}
		return nil, eris.Wrapf(err, "sqlite: get record %s", id)
	}
	return rec, nil
}

func (s *SQLiteStore) UpdateRecord(ctx context.Context, rec *model.EnrichableRecord) error {
	keywords, themes, refs, citations, enrichment, err := marshalRecordJSON(rec)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE poi_records SET
			name = ?, destination = ?, description = ?, category = ?,
			luxury_score = ?, confidence_score = ?, keywords = ?, themes = ?,
			website_url = ?, booking_info = ?, best_time = ?,
			source_refs = ?, citations = ?, enrichment = ?, updated_at = ?
		 WHERE id = ?`,
		rec.Name, rec.Destination, rec.Description, rec.Category,
		rec.LuxuryScore, rec.ConfidenceScore, string(keywords), string(themes),
		rec.WebsiteURL, rec.BookingInfo, rec.BestTime,
		string(refs), string(citations), string(enrichment), rec.UpdatedAt,
		rec.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update record %s", rec.ID)
	}
	return checkRowsAffected(res, "record", rec.ID)
}

func (s *SQLiteStore) FindEnrichable(ctx context.Context, destination string, limit int) ([]model.EnrichableRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteRecordColumns+` FROM poi_records
		 WHERE (description = '' OR luxury_score IS NULL OR keywords = '[]' OR themes = '[]')
		   AND (? = '' OR destination LIKE '%' || ? || '%')
		 ORDER BY created_at ASC
		 LIMIT ?`,
		destination, destination, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: find enrichable")
	}
	defer rows.Close()
	return collectSQLiteRecords(rows, "sqlite: find enrichable")
}

func (s *SQLiteStore) FindStalePOIs(ctx context.Context, now time.Time, limit int) ([]model.EnrichableRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteRecordColumns+` FROM poi_records
		 WHERE next_refresh_at IS NULL OR next_refresh_at <= ?
		 ORDER BY next_refresh_at ASC NULLS FIRST
		 LIMIT ?`,
		now, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: find stale records")
	}
	defer rows.Close()
	return collectSQLiteRecords(rows, "sqlite: find stale records")
}

func (s *SQLiteStore) MarkEnriched(ctx context.Context, id string, refreshDays int, now time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE poi_records SET last_enriched_at = ?, next_refresh_at = ?, updated_at = ? WHERE id = ?`,
		now, now.AddDate(0, 0, refreshDays), now, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark enriched %s", id)
	}
	return checkRowsAffected(res, "record", id)
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func collectSQLiteRecords(rows *sql.Rows, op string) ([]model.EnrichableRecord, error) {
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
