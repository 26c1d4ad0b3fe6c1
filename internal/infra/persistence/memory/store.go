// Package memory implements an in-memory durable-store driver used by tests
// and ephemeral runs where nothing should outlive the process.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"vlabprogress/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.KVStore = (*Store)(nil)

// Store implements domain.KVStore backed by process memory.
type Store struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewStore returns an empty in-memory store.
func NewStore() *Store {
	return &Store{values: make(map[string]string)}
}

// Get returns the value stored under key.
func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

// Set stores value under key, overwriting any previous value.
func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// Remove deletes key; absent keys are ignored.
func (s *Store) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// Keys returns all keys with the given prefix in ascending order.
func (s *Store) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.values))
	for k := range s.values {
		if prefix == "" || strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Close is a no-op for the memory driver.
func (s *Store) Close() error { return nil }

// Len reports the number of stored keys; test helper.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}
