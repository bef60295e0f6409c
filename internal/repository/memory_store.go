package repository

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore keeps documents in process memory. Used when STORE_DRIVER=memory
// and by tests.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string]document // collection -> id -> doc
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]map[string]document{}}
}

var _ DocumentStore = (*MemoryStore)(nil)

func (s *MemoryStore) all(collection string) []document {
	docs := make([]document, 0, len(s.data[collection]))
	for _, d := range s.data[collection] {
		docs = append(docs, d)
	}
	return docs
}

func (s *MemoryStore) Insert(_ context.Context, collection, id string, raw json.RawMessage) error {
	d, err := parseDocument(raw)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[collection][id]; ok {
		return ErrDuplicate
	}
	if conflicts(s.all(collection), d, uniqueFields(collection)) {
		return ErrDuplicate
	}
	if s.data[collection] == nil {
		s.data[collection] = map[string]document{}
	}
	s.data[collection][id] = d
	return nil
}

func (s *MemoryStore) Get(_ context.Context, collection, id string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.data[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return d.raw, nil
}

func (s *MemoryStore) Replace(_ context.Context, collection, id string, raw json.RawMessage, keep ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.data[collection][id]
	if !ok {
		return ErrNotFound
	}
	raw, err := keepFields(stored.raw, raw, keep)
	if err != nil {
		return err
	}
	d, err := parseDocument(raw)
	if err != nil {
		return err
	}
	if conflicts(s.all(collection), d, uniqueFields(collection)) {
		return ErrDuplicate
	}
	s.data[collection][id] = d
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[collection][id]; !ok {
		return ErrNotFound
	}
	delete(s.data[collection], id)
	return nil
}

func (s *MemoryStore) Find(_ context.Context, collection string, q Query) ([]json.RawMessage, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs, total := applyQuery(s.all(collection), q)
	return docs, total, nil
}

func (s *MemoryStore) CountBy(_ context.Context, collection, field string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return countBy(s.all(collection), field), nil
}

func (s *MemoryStore) Increment(_ context.Context, collection, id, field string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.data[collection][id]
	if !ok {
		return ErrNotFound
	}
	raw, err := incrementField(d.raw, field, delta)
	if err != nil {
		return err
	}
	updated, err := parseDocument(raw)
	if err != nil {
		return err
	}
	s.data[collection][id] = updated
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
