package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/janseva-labs/schemeharvest/internal/harvest"
	"github.com/janseva-labs/schemeharvest/internal/logging"
)

// upsertSchemeSQL refreshes an existing row matched on the natural key rather
// than inserting a duplicate, which makes repeated runs converge instead of
// accumulating copies.
//
// Assumed schema:
//
//	CREATE TABLE schemes (
//	    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
//	    name TEXT NOT NULL,
//	    region TEXT NOT NULL,
//	    link TEXT NOT NULL DEFAULT '',
//	    description_text TEXT,
//	    description_html TEXT,
//	    eligibility_text TEXT,
//	    eligibility_html TEXT,
//	    source_url TEXT,
//	    category TEXT,
//	    benefit_amount NUMERIC,
//	    scraped_at TIMESTAMPTZ NOT NULL,
//	    created_at TIMESTAMPTZ DEFAULT NOW(),
//	    UNIQUE (name, region, link)
//	);
const upsertSchemeSQL = `
	INSERT INTO schemes (
		name, region, link,
		description_text, description_html,
		eligibility_text, eligibility_html,
		source_url, category, benefit_amount, scraped_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (name, region, link) DO UPDATE SET
		description_text = EXCLUDED.description_text,
		description_html = EXCLUDED.description_html,
		eligibility_text = EXCLUDED.eligibility_text,
		eligibility_html = EXCLUDED.eligibility_html,
		source_url = EXCLUDED.source_url,
		category = EXCLUDED.category,
		benefit_amount = EXCLUDED.benefit_amount,
		scraped_at = EXCLUDED.scraped_at
`

// PgxPool is the subset of pgxpool.Pool the provider needs. pgxmock's pool
// interface satisfies it, which keeps the upsert paths testable without a
// live database.
type PgxPool interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Close()
}

// PostgresProvider implements Provider on PostgreSQL through pgx.
type PostgresProvider struct {
	pool PgxPool
}

// NewPostgresProviderWithPool wraps an existing pool, used by tests.
func NewPostgresProviderWithPool(pool PgxPool) *PostgresProvider {
	return &PostgresProvider{pool: pool}
}

// NewPostgresProvider connects to PostgreSQL and pings it to fail fast on a
// bad DSN.
func NewPostgresProvider(ctx context.Context, dsn string) (*PostgresProvider, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresProvider{pool: pool}, nil
}

// UpsertSchemes writes all records in one pipelined batch. A batch-level
// failure does not abort the run: the caller retries per record through
// UpsertScheme.
func (p *PostgresProvider) UpsertSchemes(ctx context.Context, records []harvest.SchemeRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(upsertSchemeSQL, upsertArgs(rec)...)
	}

	results := p.pool.SendBatch(ctx, batch)
	defer func() {
		if cerr := results.Close(); cerr != nil {
			logging.L.Warn("closing batch results", zap.Error(cerr))
		}
	}()

	written := 0
	for range records {
		if _, err := results.Exec(); err != nil {
			return written, fmt.Errorf("batch upsert after %d records: %w", written, err)
		}
		written++
	}
	return written, nil
}

// UpsertScheme writes one record.
func (p *PostgresProvider) UpsertScheme(ctx context.Context, rec harvest.SchemeRecord) error {
	if _, err := p.pool.Exec(ctx, upsertSchemeSQL, upsertArgs(rec)...); err != nil {
		return fmt.Errorf("upsert scheme %q: %w", rec.Name, err)
	}
	return nil
}

// Close shuts down the connection pool.
func (p *PostgresProvider) Close() error {
	p.pool.Close()
	return nil
}

func upsertArgs(rec harvest.SchemeRecord) []any {
	return []any{
		rec.Name,
		rec.Region,
		rec.Link,
		rec.DescriptionText,
		rec.DescriptionHTML,
		rec.EligibilityText,
		rec.EligibilityHTML,
		rec.SourceURL,
		rec.Category,
		rec.BenefitAmount,
		rec.ScrapedAt,
	}
}
