// Package sqlite persists listing records in a single-file SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/JakeFAU/listing-crawler/internal/crawler"
)

//go:embed schema.sql
var schema string

// RecordStore implements crawler.RecordStore on database/sql with the sqlite driver.
type RecordStore struct {
	db *sql.DB
}

// Open creates (if needed) and opens the database at path, applying the schema.
// ":memory:" is accepted for ephemeral stores.
func Open(ctx context.Context, path string) (*RecordStore, error) {
	if path == "" {
		return nil, fmt.Errorf("storage.sqlite.path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer; also keeps ":memory:" pinned to a single connection.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return &RecordStore{db: db}, nil
}

// Replace deletes every row tagged with tag and inserts records, in one transaction.
func (s *RecordStore) Replace(ctx context.Context, records []crawler.Record, tag crawler.DataSource) (n int, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin replace: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM records WHERE data_source = ?", string(tag)); err != nil {
		return 0, fmt.Errorf("delete records for %s: %w", tag, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO records
(name, shop_id, rating, address, category, price_per_person, review_count, crawl_time, data_source, run_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err = stmt.ExecContext(ctx,
			r.Name,
			r.ShopID,
			r.Rating,
			r.Address,
			r.Category,
			r.PricePerPerson,
			r.ReviewCount,
			r.CrawlTime.UTC().Format(time.RFC3339Nano),
			string(tag),
			r.RunID,
		); err != nil {
			return 0, fmt.Errorf("insert record %q: %w", r.Name, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit replace: %w", err)
	}
	return len(records), nil
}

// Count returns the number of rows tagged with tag.
func (s *RecordStore) Count(ctx context.Context, tag crawler.DataSource) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records WHERE data_source = ?", string(tag)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// List returns the stored records for tag in insertion order.
func (s *RecordStore) List(ctx context.Context, tag crawler.DataSource) ([]crawler.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, shop_id, rating, address, category, price_per_person, review_count, crawl_time, run_id
FROM records WHERE data_source = ? ORDER BY id`, string(tag))
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []crawler.Record
	for rows.Next() {
		var (
			r         crawler.Record
			shopID    sql.NullString
			rating    sql.NullFloat64
			address   sql.NullString
			category  sql.NullString
			price     sql.NullInt64
			reviews   sql.NullInt64
			crawlTime string
			runID     sql.NullString
		)
		if err := rows.Scan(&r.Name, &shopID, &rating, &address, &category, &price, &reviews, &crawlTime, &runID); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r.CrawlTime, err = time.Parse(time.RFC3339Nano, crawlTime)
		if err != nil {
			return nil, fmt.Errorf("parse crawl_time %q: %w", crawlTime, err)
		}
		r.ShopID = nullString(shopID)
		r.Rating = nullFloat(rating)
		r.Address = nullString(address)
		r.Category = nullString(category)
		r.PricePerPerson = nullInt(price)
		r.ReviewCount = nullInt(reviews)
		r.DataSource = tag
		r.RunID = runID.String
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

// Close releases the database handle.
func (s *RecordStore) Close() {
	if s == nil || s.db == nil {
		return
	}
	_ = s.db.Close()
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
