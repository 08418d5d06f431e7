package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyago/curator-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresWithPool(mock), mock
}

func TestPostgresStore_GetRecord_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .+ FROM poi_records WHERE id = \$1`).
		WithArgs("missing-id").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRecord(context.Background(), "missing-id")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateRecord_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE poi_records SET`).
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateRecord(context.Background(), &model.EnrichableRecord{ID: "missing-id", Name: "X"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_MarkEnriched(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectExec(`UPDATE poi_records\s+SET last_enriched_at = \$2, next_refresh_at = \$2 \+ make_interval`).
		WithArgs("poi_1", now, 90).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.MarkEnriched(context.Background(), "poi_1", 90, now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindStalePOIs_OrdersOldestFirst(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`next_refresh_at IS NULL OR next_refresh_at <= \$1[\s\S]+ORDER BY next_refresh_at ASC NULLS FIRST`).
		WithArgs(now, 10).
		WillReturnRows(recordRows("poi_1", "poi_2"))

	records, err := s.FindStalePOIs(context.Background(), now, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "poi_1", records[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindEnrichable_FiltersDestination(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM poi_records[\s\S]+destination ILIKE`).
		WithArgs("Monaco", 5).
		WillReturnRows(recordRows("poi_1"))

	records, err := s.FindEnrichable(context.Background(), "Monaco", 5)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Hotel de Paris", records[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_PromoteVerifiedDrafts(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectExec(`WITH promoted AS`).
		WithArgs(now).
		WillReturnResult(pgxmock.NewResult("INSERT", 3))

	n, err := s.PromoteVerifiedDrafts(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListDraftCandidates_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM draft_pois\s+WHERE promoted_at IS NULL[\s\S]+ORDER BY updated_at DESC`).
		WithArgs("Monaco", "gastronomy", 20).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "source", "source_id", "name", "description", "category",
			"destination", "luxury_score", "confidence_score", "verified",
			"promoted_at", "created_at", "updated_at",
		}))

	drafts, err := s.ListDraftCandidates(context.Background(), "Monaco", "gastronomy", 20)
	require.NoError(t, err)
	assert.Empty(t, drafts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// recordRows builds a result set with one fully-defaulted row per id.
func recordRows(ids ...string) *pgxmock.Rows {
	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{
		"id", "name", "destination", "description", "category",
		"luxury_score", "luxury_score_verified", "confidence_score", "keywords", "themes",
		"website_url", "booking_info", "best_time", "verified", "source_refs", "citations", "enrichment",
		"last_enriched_at", "next_refresh_at", "created_at", "updated_at",
	})
	for _, id := range ids {
		rows.AddRow(
			id, "Hotel de Paris", "Monaco", "", "",
			nil, false, nil, []byte(`[]`), []byte(`[]`),
			"", "", "", false, []byte(`[]`), []byte(`[]`), []byte(`{}`),
			nil, nil, now, now,
		)
	}
	return rows
}
