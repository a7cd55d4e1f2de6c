package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/listing-crawler/internal/crawler"
)

// RecordStore implements crawler.RecordStore over a map keyed by data source.
type RecordStore struct {
	mu      sync.RWMutex
	records map[crawler.DataSource][]crawler.Record
	err     error
}

// NewRecordStore constructs an empty RecordStore.
func NewRecordStore() *RecordStore {
	return &RecordStore{records: make(map[crawler.DataSource][]crawler.Record)}
}

// FailWith makes every later Replace return err. Pass nil to clear.
func (s *RecordStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Replace swaps the stored batch for tag with a copy of records.
func (s *RecordStore) Replace(_ context.Context, records []crawler.Record, tag crawler.DataSource) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	s.records[tag] = append([]crawler.Record(nil), records...)
	return len(records), nil
}

// Count returns the number of stored records for tag.
func (s *RecordStore) Count(_ context.Context, tag crawler.DataSource) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records[tag]), nil
}

// Records returns a copy of the stored batch for tag.
func (s *RecordStore) Records(tag crawler.DataSource) []crawler.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]crawler.Record(nil), s.records[tag]...)
}

// Close is a no-op.
func (s *RecordStore) Close() {}
