package store

import (
	"context"
	"sort"
	"sync"

	"github.com/viant/slotor/service/dao"
)

// MemoryStore is a generic in-memory implementation of dao.Service keeping
// value copies of *T mapped by a key taken from keySelector. Callers never
// share memory with the store.
type MemoryStore[K comparable, T any] struct {
	mu          sync.RWMutex
	records     map[K]T
	keySelector func(*T) K
	less        func(a, b K) bool
	filter      func(*T, []*dao.Parameter) bool
}

// NewMemoryStore creates a new MemoryStore.
// keySelector extracts the entity key from a value; less orders List output
// and may be nil; filter narrows List output and may be nil.
func NewMemoryStore[K comparable, T any](keySelector func(*T) K, less func(a, b K) bool, filter func(*T, []*dao.Parameter) bool) *MemoryStore[K, T] {
	return &MemoryStore[K, T]{
		records:     make(map[K]T),
		keySelector: keySelector,
		less:        less,
		filter:      filter,
	}
}

// Save stores or overwrites a record.
func (s *MemoryStore[K, T]) Save(_ context.Context, v *T) error {
	if v == nil {
		return dao.ErrNilEntity
	}
	key := s.keySelector(v)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = *v
	return nil
}

// Load returns a copy of the record stored under key.
func (s *MemoryStore[K, T]) Load(_ context.Context, key K) (*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.records[key]
	if !ok {
		return nil, dao.ErrNotFound
	}
	return &v, nil
}

// Delete removes a record.
func (s *MemoryStore[K, T]) Delete(_ context.Context, key K) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[key]; !ok {
		return dao.ErrNotFound
	}
	delete(s.records, key)
	return nil
}

// List returns copies of matching records.
func (s *MemoryStore[K, T]) List(_ context.Context, parameters ...*dao.Parameter) ([]*T, error) {
	s.mu.RLock()
	keys := make([]K, 0, len(s.records))
	for k := range s.records {
		keys = append(keys, k)
	}
	if s.less != nil {
		sort.Slice(keys, func(i, j int) bool { return s.less(keys[i], keys[j]) })
	}
	out := make([]*T, 0, len(keys))
	for _, k := range keys {
		v := s.records[k]
		if s.filter != nil && !s.filter(&v, parameters) {
			continue
		}
		out = append(out, &v)
	}
	s.mu.RUnlock()
	return out, nil
}
