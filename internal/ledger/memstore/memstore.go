// Package memstore provides an in-memory implementation of ledger.Store.
// Suitable for dev/testing; nothing survives a restart.
package memstore

import (
	"context"
	"sync"
)

// Store holds sets and records in memory.
type Store struct {
	mu      sync.RWMutex
	sets    map[string]map[string]struct{}
	records map[string]map[string]string
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		sets:    make(map[string]map[string]struct{}),
		records: make(map[string]map[string]string),
	}
}

// Exists reports set membership.
func (s *Store) Exists(_ context.Context, set, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sets[set][key]
	return ok, nil
}

// WriteRecord stores a copy of the field map under key.
func (s *Store) WriteRecord(_ context.Context, key string, fields map[string]string) error {
	cp := make(map[string]string, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = cp
	return nil
}

// AddToSet adds key to the named set.
func (s *Store) AddToSet(_ context.Context, set, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sets[set] == nil {
		s.sets[set] = make(map[string]struct{})
	}
	s.sets[set][key] = struct{}{}
	return nil
}

// ReadSet returns all members of the named set.
func (s *Store) ReadSet(_ context.Context, set string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	members := make([]string, 0, len(s.sets[set]))
	for k := range s.sets[set] {
		members = append(members, k)
	}
	return members, nil
}

// ReadRecord returns a copy of the stored field map, or an empty map if the
// key is unknown.
func (s *Store) ReadRecord(_ context.Context, key string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fields, ok := s.records[key]
	if !ok {
		return map[string]string{}, nil
	}
	cp := make(map[string]string, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return cp, nil
}
