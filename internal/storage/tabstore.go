package storage

import "sync"

// TabStore is the short-term, single-process store for pending auth request
// material (anti-forgery state and PKCE code verifiers). It mirrors browser
// session storage: scoped to one "tab" (process), never shared, and gone
// when the process exits.
//
// At most one pending request exists per provider; a new login initiation
// overwrites the previous one.
type TabStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewTabStore creates an empty tab store.
func NewTabStore() *TabStore {
	return &TabStore{values: make(map[string]string)}
}

// Set stores a value under key, overwriting any previous value.
func (s *TabStore) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Get returns the value for key and whether it was present.
func (s *TabStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Delete removes the given keys.
func (s *TabStore) Delete(keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.values, key)
	}
}
