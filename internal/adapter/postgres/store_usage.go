package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Strob0t/missioncontrol/internal/domain"
	"github.com/Strob0t/missioncontrol/internal/domain/usage"
)

const usageColumns = `key, cost_cents, input_tokens, output_tokens, cache_read_tokens, cache_creation_tokens, fetched_at`

func usageTable(g usage.Granularity) (string, error) {
	switch g {
	case usage.Daily:
		return "usage_daily", nil
	case usage.Hourly:
		return "usage_hourly", nil
	default:
		return "", fmt.Errorf("%w: unknown granularity %q", domain.ErrValidation, g)
	}
}

func scanUsage(row scannable) (usage.Record, error) {
	var r usage.Record
	err := row.Scan(&r.Key, &r.CostCents, &r.Input, &r.Output, &r.CacheRead, &r.CacheCreation, &r.FetchedAt)
	return r, err
}

// UpsertUsage writes each bucket once, keyed by bucket key. A bucket whose
// cost or tokens are nil keeps the stored values for those columns, so a
// failed report never erases data written by an earlier run.
func (s *Store) UpsertUsage(ctx context.Context, g usage.Granularity, buckets []usage.Bucket) error {
	table, err := usageTable(g)
	if err != nil {
		return err
	}
	if len(buckets) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		INSERT INTO %[1]s (key, cost_cents, input_tokens, output_tokens, cache_read_tokens, cache_creation_tokens, fetched_at)
		VALUES ($1, COALESCE($2::bigint, 0), COALESCE($3::bigint, 0), COALESCE($4::bigint, 0),
			COALESCE($5::bigint, 0), COALESCE($6::bigint, 0), $7)
		ON CONFLICT (key) DO UPDATE SET
			cost_cents = COALESCE($2::bigint, %[1]s.cost_cents),
			input_tokens = COALESCE($3::bigint, %[1]s.input_tokens),
			output_tokens = COALESCE($4::bigint, %[1]s.output_tokens),
			cache_read_tokens = COALESCE($5::bigint, %[1]s.cache_read_tokens),
			cache_creation_tokens = COALESCE($6::bigint, %[1]s.cache_creation_tokens),
			fetched_at = EXCLUDED.fetched_at`, table)

	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for _, b := range buckets {
		var in, out, cacheRead, cacheCreate *int64
		if b.Tokens != nil {
			in, out, cacheRead, cacheCreate = &b.Tokens.Input, &b.Tokens.Output, &b.Tokens.CacheRead, &b.Tokens.CacheCreation
		}
		batch.Queue(query, b.Key, b.CostCents, in, out, cacheRead, cacheCreate, now)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer func() { _ = br.Close() }()
	for _, b := range buckets {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert %s usage %s: %w", g, b.Key, err)
		}
	}
	return nil
}

func (s *Store) GetUsage(ctx context.Context, g usage.Granularity, key string) (*usage.Record, error) {
	table, err := usageTable(g)
	if err != nil {
		return nil, err
	}
	row := s.pool.QueryRow(ctx, `SELECT `+usageColumns+` FROM `+table+` WHERE key = $1`, key)
	r, err := scanUsage(row)
	if err != nil {
		return nil, notFoundWrap(err, "get %s usage %s", g, key)
	}
	return &r, nil
}

// ListUsageSince returns records with key >= fromKey in key order. Keys sort
// chronologically for both granularities.
func (s *Store) ListUsageSince(ctx context.Context, g usage.Granularity, fromKey string) ([]usage.Record, error) {
	table, err := usageTable(g)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `SELECT `+usageColumns+` FROM `+table+` WHERE key >= $1 ORDER BY key`, fromKey)
	if err != nil {
		return nil, fmt.Errorf("list %s usage: %w", g, err)
	}
	defer rows.Close()

	var records []usage.Record
	for rows.Next() {
		r, err := scanUsage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		records = append(records, r)
	}
	return orEmpty(records), rows.Err()
}
