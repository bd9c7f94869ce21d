package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// MemStore is an in-memory Store for tests and one-shot CLI runs. Records
// are deep-copied on the way in and out so callers cannot alias them.
type MemStore struct {
	mu      sync.Mutex
	records map[string]*Record
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{records: make(map[string]*Record)}
}

func (s *MemStore) Create(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.ID]; ok {
		return fmt.Errorf("create %s: already exists", rec.ID)
	}
	now := nowUTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	cp, err := clone(rec)
	if err != nil {
		return err
	}
	s.records[rec.ID] = cp
	return nil
}

func (s *MemStore) Update(_ context.Context, id string, p Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	rec.Apply(p, nowUTC())
	// Re-clone so patch pointers supplied by the caller are not retained.
	cp, err := clone(rec)
	if err != nil {
		return err
	}
	s.records[id] = cp
	return nil
}

func (s *MemStore) Get(_ context.Context, id string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	return clone(rec)
}

func (s *MemStore) List(_ context.Context, limit int) ([]*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Record, 0, len(s.records))
	for _, rec := range s.records {
		cp, err := clone(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	sortNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemStore) Close() error { return nil }

func clone(rec *Record) (*Record, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("clone review %s: %w", rec.ID, err)
	}
	var cp Record
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("clone review %s: %w", rec.ID, err)
	}
	return &cp, nil
}

func sortNewestFirst(recs []*Record) {
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].CreatedAt.After(recs[j].CreatedAt)
		}
		return recs[i].ID > recs[j].ID
	})
}
