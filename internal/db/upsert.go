package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// UpsertConfig defines the parameters for a bulk upsert operation.
type UpsertConfig struct {
	Table        string   // target table
	Columns      []string // all columns being inserted
	ConflictKeys []string // columns forming the natural key
	UpdateCols   []string // columns to update on conflict; nil = all non-key columns
}

// BulkUpsert performs a bulk upsert via a temp table and INSERT ... ON
// CONFLICT, keyed on the natural key so repeated or concurrent invocations
// converge on the same rows instead of duplicating them.
//  1. Creates a temp table with the target's structure
//  2. COPYs rows into the temp table
//  3. INSERT INTO target SELECT ... ON CONFLICT (keys) DO UPDATE SET ...
//     RETURNING whether each row was newly inserted
//
// The RETURNING clause replaces before/after COUNT comparisons, which are
// race-prone under concurrent writers.
func BulkUpsert(ctx context.Context, pool Pool, cfg UpsertConfig, rows [][]any) (inserted, updated int64, err error) {
	if len(rows) == 0 {
		return 0, 0, nil
	}

	if len(cfg.Columns) == 0 {
		return 0, 0, eris.New("db: upsert: no columns specified")
	}
	if len(cfg.ConflictKeys) == 0 {
		return 0, 0, eris.New("db: upsert: no conflict keys specified")
	}

	updateCols := cfg.UpdateCols
	if updateCols == nil {
		conflictSet := make(map[string]bool, len(cfg.ConflictKeys))
		for _, k := range cfg.ConflictKeys {
			conflictSet[k] = true
		}
		for _, c := range cfg.Columns {
			if !conflictSet[c] {
				updateCols = append(updateCols, c)
			}
		}
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, 0, eris.Wrap(err, "db: upsert: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tempTable := fmt.Sprintf("_tmp_upsert_%s", strings.ReplaceAll(cfg.Table, ".", "_"))

	createSQL := fmt.Sprintf(
		"CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		pgx.Identifier{tempTable}.Sanitize(),
		pgx.Identifier{cfg.Table}.Sanitize(),
	)
	if _, err := tx.Exec(ctx, createSQL); err != nil {
		return 0, 0, eris.Wrapf(err, "db: upsert: create temp table for %s", cfg.Table)
	}

	copySource := pgx.CopyFromRows(rows)
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{tempTable}, cfg.Columns, copySource); err != nil {
		return 0, 0, eris.Wrapf(err, "db: upsert: COPY into temp table for %s", cfg.Table)
	}

	colList := quoteAndJoin(cfg.Columns)
	conflictList := quoteAndJoin(cfg.ConflictKeys)

	setClauses := make([]string, 0, len(updateCols))
	for _, col := range updateCols {
		setClauses = append(setClauses, fmt.Sprintf("%s = EXCLUDED.%s",
			pgx.Identifier{col}.Sanitize(), pgx.Identifier{col}.Sanitize()))
	}

	// xmax = 0 only for freshly inserted rows.
	upsertSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) DO UPDATE SET %s RETURNING (xmax = 0) AS newly_inserted",
		pgx.Identifier{cfg.Table}.Sanitize(),
		colList,
		colList,
		pgx.Identifier{tempTable}.Sanitize(),
		conflictList,
		strings.Join(setClauses, ", "),
	)

	result, err := tx.Query(ctx, upsertSQL)
	if err != nil {
		return 0, 0, eris.Wrapf(err, "db: upsert: INSERT ON CONFLICT for %s", cfg.Table)
	}
	for result.Next() {
		var newlyInserted bool
		if err := result.Scan(&newlyInserted); err != nil {
			result.Close()
			return 0, 0, eris.Wrap(err, "db: upsert: scan insert flag")
		}
		if newlyInserted {
			inserted++
		} else {
			updated++
		}
	}
	result.Close()
	if err := result.Err(); err != nil {
		return 0, 0, eris.Wrapf(err, "db: upsert: read insert flags for %s", cfg.Table)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, eris.Wrap(err, "db: upsert: commit tx")
	}

	return inserted, updated, nil
}

// quoteAndJoin quotes each column name and joins with commas.
func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
