// Package memory provides an in-memory filing store for development and
// testing.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/secpulse/secpulse/internal/filing"
)

// Store keeps processed filings and the dedup ledger in process memory.
type Store struct {
	mu      sync.RWMutex
	nextID  int64
	records []filing.Record
	byAcc   map[string]struct{}
	ledger  map[string]time.Time
}

var _ filing.Store = (*Store)(nil)

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		nextID: 1,
		byAcc:  make(map[string]struct{}),
		ledger: make(map[string]time.Time),
	}
}

// Exists reports whether a processed record holds the accession id.
func (s *Store) Exists(_ context.Context, accessionID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byAcc[accessionID]
	return ok, nil
}

// Insert appends a processed record and returns its row id.
func (s *Store) Insert(_ context.Context, rec filing.Record) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byAcc[rec.Filing.AccessionID]; exists {
		return 0, filing.ErrDuplicate
	}
	rec.ID = s.nextID
	s.nextID++
	s.records = append(s.records, rec)
	s.byAcc[rec.Filing.AccessionID] = struct{}{}
	return rec.ID, nil
}

// LedgerInsert marks accession ids as seen at the given time.
func (s *Store) LedgerInsert(_ context.Context, accessionIDs []string, seenAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range accessionIDs {
		if _, exists := s.ledger[id]; !exists {
			s.ledger[id] = seenAt
		}
	}
	return nil
}

// LedgerContainsAny returns the subset of ids already present in the ledger.
func (s *Store) LedgerContainsAny(_ context.Context, accessionIDs []string) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, id := range accessionIDs {
		if _, ok := s.ledger[id]; ok {
			seen[id] = struct{}{}
		}
	}
	return seen, nil
}

// ListFilings returns processed records newest first, optionally filtered by
// segment.
func (s *Store) ListFilings(_ context.Context, segment filing.Segment, limit, offset int) ([]filing.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched := make([]filing.Record, 0, len(s.records))
	for _, rec := range s.records {
		if segment != "" && rec.Filing.Segment != segment {
			continue
		}
		matched = append(matched, rec)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].ProcessedAt.After(matched[j].ProcessedAt)
	})
	if offset >= len(matched) {
		return []filing.Record{}, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	out := make([]filing.Record, len(matched))
	copy(out, matched)
	return out, nil
}

// Stats aggregates processed filings per segment since the given time.
func (s *Store) Stats(_ context.Context, since time.Time) ([]filing.SegmentStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	agg := make(map[filing.Segment]*filing.SegmentStats)
	sums := make(map[filing.Segment]int64)
	for _, rec := range s.records {
		if rec.ProcessedAt.Before(since) {
			continue
		}
		seg := rec.Filing.Segment
		st, ok := agg[seg]
		if !ok {
			st = &filing.SegmentStats{Segment: seg}
			agg[seg] = st
		}
		st.Count++
		sums[seg] += int64(rec.Impact)
		if rec.Impact > 0 {
			st.Bullish++
		} else if rec.Impact < 0 {
			st.Bearish++
		}
	}
	out := make([]filing.SegmentStats, 0, len(agg))
	for seg, st := range agg {
		if st.Count > 0 {
			st.AvgImpact = float64(sums[seg]) / float64(st.Count)
		}
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Segment < out[j].Segment })
	return out, nil
}
