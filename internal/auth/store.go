package auth

import "sync"

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks -source=store.go TokenSource,TokenStore

// TokenSource provides the bearer token for outgoing requests
type TokenSource interface {
	// CurrentToken returns the current token, or "" when anonymous
	CurrentToken() string
}

// TokenStore is a TokenSource whose token can be replaced
type TokenStore interface {
	TokenSource
	// SetToken replaces the current token; an empty token clears it
	SetToken(token string) error
}

// Anonymous is a TokenSource that never supplies a token
var Anonymous TokenSource = StaticToken("")

// StaticToken is a fixed token
type StaticToken string

// CurrentToken returns the token itself
func (s StaticToken) CurrentToken() string {
	return string(s)
}

// MemoryStore keeps the token in memory
type MemoryStore struct {
	mu    sync.RWMutex
	token string
}

// NewMemoryStore creates a store seeded with token
func NewMemoryStore(token string) *MemoryStore {
	return &MemoryStore{token: token}
}

// CurrentToken returns the stored token
func (s *MemoryStore) CurrentToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// SetToken replaces the stored token
func (s *MemoryStore) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}
