// Package postgres provides Postgres-backed persistence for processed
// filings and the dedup ledger.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/secpulse/secpulse/internal/filing"
)

// StoreConfig controls the Postgres connection pool.
type StoreConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store writes filing rows into Postgres.
type Store struct {
	pool querier
}

var _ filing.Store = (*Store)(nil)

// NewStore creates a Postgres-backed Store using the provided config.
func NewStore(ctx context.Context, cfg StoreConfig) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewStoreWithPool constructs a Store from an existing pool (primarily for
// testing).
func NewStoreWithPool(pool querier) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the filings and ledger tables when absent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS filings (
	id            BIGSERIAL PRIMARY KEY,
	accession_id  TEXT NOT NULL UNIQUE,
	form_type     TEXT NOT NULL,
	segment       TEXT NOT NULL,
	company_name  TEXT NOT NULL,
	cik           TEXT NOT NULL,
	ticker        TEXT NOT NULL DEFAULT '',
	index_url     TEXT NOT NULL,
	filed_at      TIMESTAMPTZ,
	summary       TEXT NOT NULL,
	impact        INT NOT NULL,
	reasons       JSONB NOT NULL DEFAULT '[]',
	raw_excerpt   TEXT NOT NULL DEFAULT '',
	fields        JSONB NOT NULL DEFAULT '{}',
	priority      TEXT NOT NULL,
	archive_uri   TEXT NOT NULL DEFAULT '',
	discovered_at TIMESTAMPTZ NOT NULL,
	processed_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS filings_segment_processed_idx ON filings (segment, processed_at DESC);
CREATE TABLE IF NOT EXISTS filing_ledger (
	accession_id TEXT PRIMARY KEY,
	seen_at      TIMESTAMPTZ NOT NULL
);`
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Exists reports whether a processed record holds the accession id.
func (s *Store) Exists(ctx context.Context, accessionID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM filings WHERE accession_id = $1)`
	var exists bool
	if err := s.pool.QueryRow(ctx, query, accessionID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check filing exists: %w", err)
	}
	return exists, nil
}

// Insert appends a processed record and returns its row id. ErrDuplicate is
// returned when the accession id already holds a row.
func (s *Store) Insert(ctx context.Context, rec filing.Record) (int64, error) {
	reasonsJSON, err := json.Marshal(rec.Reasons)
	if err != nil {
		return 0, fmt.Errorf("marshal reasons: %w", err)
	}
	fieldsJSON, err := json.Marshal(rec.Fields)
	if err != nil {
		return 0, fmt.Errorf("marshal fields: %w", err)
	}
	const query = `
INSERT INTO filings (
	accession_id, form_type, segment, company_name, cik, ticker, index_url,
	filed_at, summary, impact, reasons, raw_excerpt, fields, priority,
	archive_uri, discovered_at, processed_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17
)
ON CONFLICT (accession_id) DO NOTHING
RETURNING id`
	var id int64
	err = s.pool.QueryRow(ctx, query,
		rec.Filing.AccessionID,
		rec.Filing.FormType,
		string(rec.Filing.Segment),
		rec.Filing.CompanyName,
		rec.Filing.CIK,
		rec.Filing.Ticker,
		rec.Filing.IndexURL,
		nullableTime(rec.Filing.FiledAt),
		rec.Summary,
		rec.Impact,
		reasonsJSON,
		rec.RawExcerpt,
		fieldsJSON,
		rec.Priority,
		rec.ArchiveURI,
		rec.DiscoveredAt,
		rec.ProcessedAt,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, filing.ErrDuplicate
	}
	if err != nil {
		return 0, fmt.Errorf("insert filing: %w", err)
	}
	return id, nil
}

// LedgerInsert marks accession ids as seen at the given time.
func (s *Store) LedgerInsert(ctx context.Context, accessionIDs []string, seenAt time.Time) error {
	if len(accessionIDs) == 0 {
		return nil
	}
	const query = `
INSERT INTO filing_ledger (accession_id, seen_at)
SELECT unnest($1::text[]), $2
ON CONFLICT (accession_id) DO NOTHING`
	if _, err := s.pool.Exec(ctx, query, accessionIDs, seenAt); err != nil {
		return fmt.Errorf("insert ledger entries: %w", err)
	}
	return nil
}

// LedgerContainsAny returns the subset of ids already present in the ledger.
func (s *Store) LedgerContainsAny(ctx context.Context, accessionIDs []string) (map[string]struct{}, error) {
	seen := make(map[string]struct{})
	if len(accessionIDs) == 0 {
		return seen, nil
	}
	const query = `SELECT accession_id FROM filing_ledger WHERE accession_id = ANY($1)`
	rows, err := s.pool.Query(ctx, query, accessionIDs)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		seen[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger rows: %w", err)
	}
	return seen, nil
}

// ListFilings returns processed records newest first, optionally filtered by
// segment.
func (s *Store) ListFilings(ctx context.Context, segment filing.Segment, limit, offset int) ([]filing.Record, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	const base = `
SELECT id, accession_id, form_type, segment, company_name, cik, ticker,
	index_url, filed_at, summary, impact, reasons, raw_excerpt, fields,
	priority, archive_uri, discovered_at, processed_at
FROM filings`
	var (
		rows pgx.Rows
		err  error
	)
	if segment != "" {
		rows, err = s.pool.Query(ctx, base+` WHERE segment = $1 ORDER BY processed_at DESC LIMIT $2 OFFSET $3`,
			string(segment), limit, offset)
	} else {
		rows, err = s.pool.Query(ctx, base+` ORDER BY processed_at DESC LIMIT $1 OFFSET $2`,
			limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("query filings: %w", err)
	}
	defer rows.Close()

	out := make([]filing.Record, 0, limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate filing rows: %w", err)
	}
	return out, nil
}

// Stats aggregates processed filings per segment since the given time.
func (s *Store) Stats(ctx context.Context, since time.Time) ([]filing.SegmentStats, error) {
	const query = `
SELECT segment,
	count(*),
	coalesce(avg(impact), 0),
	count(*) FILTER (WHERE impact > 0),
	count(*) FILTER (WHERE impact < 0)
FROM filings
WHERE processed_at >= $1
GROUP BY segment
ORDER BY segment`
	rows, err := s.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	var out []filing.SegmentStats
	for rows.Next() {
		var st filing.SegmentStats
		var seg string
		if err := rows.Scan(&seg, &st.Count, &st.AvgImpact, &st.Bullish, &st.Bearish); err != nil {
			return nil, fmt.Errorf("scan stats row: %w", err)
		}
		st.Segment = filing.Segment(seg)
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stats rows: %w", err)
	}
	return out, nil
}

func scanRecord(rows pgx.Rows) (filing.Record, error) {
	var (
		rec         filing.Record
		seg         string
		filedAt     *time.Time
		reasonsJSON []byte
		fieldsJSON  []byte
	)
	err := rows.Scan(
		&rec.ID,
		&rec.Filing.AccessionID,
		&rec.Filing.FormType,
		&seg,
		&rec.Filing.CompanyName,
		&rec.Filing.CIK,
		&rec.Filing.Ticker,
		&rec.Filing.IndexURL,
		&filedAt,
		&rec.Summary,
		&rec.Impact,
		&reasonsJSON,
		&rec.RawExcerpt,
		&fieldsJSON,
		&rec.Priority,
		&rec.ArchiveURI,
		&rec.DiscoveredAt,
		&rec.ProcessedAt,
	)
	if err != nil {
		return filing.Record{}, fmt.Errorf("scan filing row: %w", err)
	}
	rec.Filing.Segment = filing.Segment(seg)
	if filedAt != nil {
		rec.Filing.FiledAt = *filedAt
	}
	if len(reasonsJSON) > 0 {
		if err := json.Unmarshal(reasonsJSON, &rec.Reasons); err != nil {
			return filing.Record{}, fmt.Errorf("decode reasons: %w", err)
		}
	}
	if len(fieldsJSON) > 0 {
		if err := json.Unmarshal(fieldsJSON, &rec.Fields); err != nil {
			return filing.Record{}, fmt.Errorf("decode fields: %w", err)
		}
	}
	return rec, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
