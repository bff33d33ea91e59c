package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"stratum-hq/reliq/pkg/engine"
)

// MemoryStore keeps trace records in memory. Intended for tests and
// short-lived runs; records are lost when the process exits.
type MemoryStore struct {
	mu      sync.RWMutex
	records []*TraceRecord
}

// NewMemoryStore creates an empty in-memory trace store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save appends a copy of the record.
func (s *MemoryStore) Save(ctx context.Context, rec *TraceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *rec
	cp.Trace = append([]engine.TraceEvent(nil), rec.Trace...)
	if cp.RecordedAt.IsZero() {
		cp.RecordedAt = time.Now().UTC()
	}
	s.records = append(s.records, &cp)
	return nil
}

// Query returns matching records, newest first.
func (s *MemoryStore) Query(ctx context.Context, q *Query) ([]*TraceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*TraceRecord
	for _, rec := range s.records {
		if matches(rec, q) {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RecordedAt.After(out[j].RecordedAt)
	})

	if q != nil {
		if q.Offset > 0 {
			if q.Offset >= len(out) {
				return nil, nil
			}
			out = out[q.Offset:]
		}
		if q.Limit > 0 && q.Limit < len(out) {
			out = out[:q.Limit]
		}
	}
	return out, nil
}

// Count returns the number of matching records.
func (s *MemoryStore) Count(ctx context.Context, q *Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, rec := range s.records {
		if matches(rec, q) {
			n++
		}
	}
	return n, nil
}

// Prune removes records older than the cutoff.
func (s *MemoryStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	var removed int64
	for _, rec := range s.records {
		if rec.RecordedAt.Before(before) {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	s.records = kept
	return removed, nil
}

// Close is a no-op for the in-memory backend.
func (s *MemoryStore) Close() error { return nil }

func matches(rec *TraceRecord, q *Query) bool {
	if q == nil {
		return true
	}
	if q.RuleID != "" && rec.RuleID != q.RuleID {
		return false
	}
	if q.RuleSetID != "" && rec.RuleSetID != q.RuleSetID {
		return false
	}
	if !q.Since.IsZero() && rec.RecordedAt.Before(q.Since) {
		return false
	}
	if !q.Until.IsZero() && rec.RecordedAt.After(q.Until) {
		return false
	}
	if q.OnlyErrors && rec.Error == "" {
		return false
	}
	return true
}
