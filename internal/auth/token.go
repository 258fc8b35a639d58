package auth

import (
	"sync"

	"github.com/fivetwenty-io/cloudsdk/pkg/cloud"
)

// TokenStore provides thread-safe token storage.
type TokenStore struct {
	mutex sync.RWMutex
	token *cloud.Token
}

// NewTokenStore creates a new token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{}
}

// Get retrieves the current token.
func (s *TokenStore) Get() *cloud.Token {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.token
}

// Set stores a new token.
func (s *TokenStore) Set(token *cloud.Token) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.token = token
}

// Clear removes the stored token.
func (s *TokenStore) Clear() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.token = nil
}
