package storage

import "sync"

// TokenPair is the unit of durable persistence. The access and refresh
// tokens for a provider are always written and removed together; no
// partial pair ever reaches durable storage.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// DurableStore persists token pairs across restarts so a relaunch does not
// force re-login. Implementations are last-writer-wins across processes;
// no locking or versioning is provided.
type DurableStore interface {
	// TokenPair returns the stored pair for a provider, if any.
	TokenPair(provider string) (TokenPair, bool)

	// SetTokenPair stores both tokens atomically, or neither.
	SetTokenPair(provider string, pair TokenPair) error

	// DeleteTokenPair removes both tokens for a provider. Removing an
	// absent pair is not an error.
	DeleteTokenPair(provider string) error
}

// MemoryStore is an in-memory DurableStore, used in tests and for
// ephemeral sessions that should not persist tokens to disk.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// TokenPair implements DurableStore.
func (s *MemoryStore) TokenPair(provider string) (TokenPair, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	access, ok := s.values[TokenKey(provider)]
	if !ok {
		return TokenPair{}, false
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: s.values[RefreshTokenKey(provider)],
	}, true
}

// SetTokenPair implements DurableStore.
func (s *MemoryStore) SetTokenPair(provider string, pair TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[TokenKey(provider)] = pair.AccessToken
	if pair.RefreshToken != "" {
		s.values[RefreshTokenKey(provider)] = pair.RefreshToken
	} else {
		delete(s.values, RefreshTokenKey(provider))
	}
	return nil
}

// DeleteTokenPair implements DurableStore.
func (s *MemoryStore) DeleteTokenPair(provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, TokenKey(provider))
	delete(s.values, RefreshTokenKey(provider))
	return nil
}
