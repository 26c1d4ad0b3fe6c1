package core

import (
	"sync"

	"vlabprogress/pkg/domain"
)

var _ domain.SessionStore = (*SessionStore)(nil)

// SessionStore is the process-local holder of short-lived session markers
// (current page, page entry instant, prompted-once). It maps to browser
// session storage: cheap, never fails, gone when the process ends.
type SessionStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewSessionStore returns an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{values: make(map[string]string)}
}

// Get returns the marker under key and whether it was present.
func (s *SessionStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores a marker.
func (s *SessionStore) Set(key, value string) {
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
}

// Remove deletes a marker.
func (s *SessionStore) Remove(key string) {
	s.mu.Lock()
	delete(s.values, key)
	s.mu.Unlock()
}
