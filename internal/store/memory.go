package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is the in-process RecordStore used by tests and demo mode.
// Records are deep-copied on the way in and out so callers never share
// mutable state with the store.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string]Record)}
}

func (s *MemoryStore) Create(ctx context.Context, collection string, rec Record) (Record, error) {
	stored := cloneRecord(rec)
	id, _ := stored["id"].(string)
	if id == "" {
		id = uuid.NewString()
		stored["id"] = id
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	coll := s.collections[collection]
	if coll == nil {
		coll = make(map[string]Record)
		s.collections[collection] = coll
	}
	if _, exists := coll[id]; exists {
		return nil, fmt.Errorf("record %s already exists in %s", id, collection)
	}
	coll[id] = stored
	return cloneRecord(stored), nil
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.collections[collection][id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return cloneRecord(rec), nil
}

func (s *MemoryStore) Find(ctx context.Context, collection string, q Query) ([]Record, error) {
	s.mu.RLock()
	matched := make([]Record, 0)
	for _, rec := range s.collections[collection] {
		if matchesFilter(rec, q.Filter) {
			matched = append(matched, cloneRecord(rec))
		}
	}
	s.mu.RUnlock()

	if q.SortBy != "" {
		sort.SliceStable(matched, func(i, j int) bool {
			less := compareValues(matched[i][q.SortBy], matched[j][q.SortBy]) < 0
			if q.SortDesc {
				return !less
			}
			return less
		})
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	return matched, nil
}

func (s *MemoryStore) Update(ctx context.Context, collection, id string, partial Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.collections[collection][id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	for k, v := range cloneRecord(partial) {
		rec[k] = v
	}
	rec["id"] = id
	return cloneRecord(rec), nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[collection][id]; !ok {
		return ErrRecordNotFound
	}
	delete(s.collections[collection], id)
	return nil
}

func matchesFilter(rec Record, filter Filter) bool {
	for field, want := range filter {
		if fmt.Sprint(rec[field]) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

// compareValues orders two record field values. Timestamps marshal as
// RFC3339 strings, so they are tried first.
func compareValues(a, b any) int {
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		at, aerr := time.Parse(time.RFC3339Nano, as)
		bt, berr := time.Parse(time.RFC3339Nano, bs)
		if aerr == nil && berr == nil {
			switch {
			case at.Before(bt):
				return -1
			case at.After(bt):
				return 1
			default:
				return 0
			}
		}
		switch {
		case as < bs:
			return -1
		case as > bs:
			return 1
		default:
			return 0
		}
	}
	af, aok := a.(float64)
	bf, bok := b.(float64)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	return 0
}

func cloneRecord(rec Record) Record {
	raw, err := json.Marshal(rec)
	if err != nil {
		out := make(Record, len(rec))
		for k, v := range rec {
			out[k] = v
		}
		return out
	}
	var out Record
	if err := json.Unmarshal(raw, &out); err != nil {
		return rec
	}
	return out
}
