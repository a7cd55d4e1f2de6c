// Package postgres persists listing records in Postgres.
//
// Expected schema (created by EnsureSchema when missing):
//
//	CREATE TABLE records (
//	    name             TEXT NOT NULL,
//	    shop_id          TEXT,
//	    rating           DOUBLE PRECISION,
//	    address          TEXT,
//	    category         TEXT,
//	    price_per_person INTEGER,
//	    review_count     INTEGER,
//	    crawl_time       TIMESTAMPTZ NOT NULL,
//	    data_source      TEXT NOT NULL,
//	    run_id           TEXT
//	);
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/listing-crawler/internal/crawler"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const defaultTable = "records"

// Columns lists the COPY column order.
var Columns = []string{
	"name",
	"shop_id",
	"rating",
	"address",
	"category",
	"price_per_person",
	"review_count",
	"crawl_time",
	"data_source",
	"run_id",
}

// RecordStoreConfig controls the Postgres connection pool used for records.
type RecordStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	CreateSchema    bool
}

type txPool interface {
	Begin(context.Context) (pgx.Tx, error)
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// RecordStore implements crawler.RecordStore with replace-all semantics per data source.
type RecordStore struct {
	pool  txPool
	table string
}

// NewRecordStore connects to Postgres using cfg.
func NewRecordStore(ctx context.Context, cfg RecordStoreConfig) (*RecordStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("storage.postgres.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
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
	store := &RecordStore{pool: pool, table: table}
	if cfg.CreateSchema {
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return store, nil
}

// NewRecordStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewRecordStoreWithPool(pool txPool, table string) (*RecordStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &RecordStore{pool: pool, table: name}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// EnsureSchema creates the records table and its source index when missing.
func (s *RecordStore) EnsureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	name TEXT NOT NULL,
	shop_id TEXT,
	rating DOUBLE PRECISION,
	address TEXT,
	category TEXT,
	price_per_person INTEGER,
	review_count INTEGER,
	crawl_time TIMESTAMPTZ NOT NULL,
	data_source TEXT NOT NULL,
	run_id TEXT
);
CREATE INDEX IF NOT EXISTS %[1]s_data_source_idx ON %[1]s (data_source);`, s.table)
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create records schema: %w", err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *RecordStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Replace deletes every row tagged with tag and inserts records, in one transaction.
func (s *RecordStore) Replace(ctx context.Context, records []crawler.Record, tag crawler.DataSource) (int, error) {
	if s == nil || s.pool == nil {
		return 0, fmt.Errorf("record store is not configured")
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin replace: %w", err)
	}

	n, err := s.replaceInTx(ctx, tx, records, tag)
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return 0, fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit replace: %w", err)
	}
	return n, nil
}

func (s *RecordStore) replaceInTx(ctx context.Context, tx pgx.Tx, records []crawler.Record, tag crawler.DataSource) (int, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE data_source = $1", s.table)
	if _, err := tx.Exec(ctx, query, string(tag)); err != nil {
		return 0, fmt.Errorf("delete records for %s: %w", tag, err)
	}
	if len(records) == 0 {
		return 0, nil
	}
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		rows = append(rows, []any{
			r.Name,
			r.ShopID,
			r.Rating,
			r.Address,
			r.Category,
			r.PricePerPerson,
			r.ReviewCount,
			r.CrawlTime,
			string(tag),
			r.RunID,
		})
	}
	copied, err := tx.CopyFrom(ctx, pgx.Identifier{s.table}, Columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("copy records: %w", err)
	}
	return int(copied), nil
}

// Count returns the number of rows tagged with tag.
func (s *RecordStore) Count(ctx context.Context, tag crawler.DataSource) (int, error) {
	if s == nil || s.pool == nil {
		return 0, fmt.Errorf("record store is not configured")
	}
	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE data_source = $1", s.table)
	if err := s.pool.QueryRow(ctx, query, string(tag)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}
