package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/fivetwenty-io/cloudsdk/pkg/cloud"
)

// ErrNoAuthHandler is returned when a token is needed and none can be
// obtained.
var ErrNoAuthHandler = errors.New("no auth handler configured")

// Handler performs a full identity exchange.
type Handler func(ctx context.Context) (*cloud.Token, error)

// TokenManager hands out the current token and re-authenticates through its
// handler when the token is missing, about to expire, or rejected.
// Concurrent callers share a single exchange.
type TokenManager struct {
	store   *TokenStore
	handler Handler
	group   singleflight.Group
	// refreshMutex serializes RefreshToken so a burst of 401s for the
	// same token yields one exchange.
	refreshMutex sync.Mutex

	cache    cloud.TokenCache
	cacheKey string
	logger   cloud.Logger
}

// ManagerOption configures a TokenManager.
type ManagerOption func(*TokenManager)

// WithTokenCache evicts key from cache whenever the token is rejected, so
// other processes sharing the cache stop reusing it.
func WithTokenCache(cache cloud.TokenCache, key string) ManagerOption {
	return func(m *TokenManager) {
		m.cache = cache
		m.cacheKey = key
	}
}

// WithManagerLogger sets the logger.
func WithManagerLogger(logger cloud.Logger) ManagerOption {
	return func(m *TokenManager) {
		m.logger = logger
	}
}

// WithInitialToken seeds the store, typically with the token from the
// builder's first exchange.
func WithInitialToken(token *cloud.Token) ManagerOption {
	return func(m *TokenManager) {
		m.store.Set(token)
	}
}

// NewTokenManager creates a manager that authenticates through handler.
func NewTokenManager(handler Handler, opts ...ManagerOption) *TokenManager {
	manager := &TokenManager{
		store:   NewTokenStore(),
		handler: handler,
	}

	for _, opt := range opts {
		opt(manager)
	}

	return manager
}

// GetToken returns a valid token ID, authenticating if necessary.
func (m *TokenManager) GetToken(ctx context.Context) (string, error) {
	token := m.store.Get()
	if token.Valid() {
		return token.ID, nil
	}

	token, err := m.authenticate(ctx)
	if err != nil {
		return "", err
	}

	return token.ID, nil
}

// Token returns the stored token, which may be nil or expired.
func (m *TokenManager) Token() *cloud.Token {
	return m.store.Get()
}

// SetToken replaces the stored token.
func (m *TokenManager) SetToken(token *cloud.Token) {
	m.store.Set(token)
}

// RefreshToken drops the token rejected by the server and authenticates
// again. When the stored token is no longer the rejected one it has already
// been replaced and nothing is done. An empty rejected ID always refreshes.
func (m *TokenManager) RefreshToken(ctx context.Context, rejected string) error {
	m.refreshMutex.Lock()
	defer m.refreshMutex.Unlock()

	current := m.store.Get()
	if rejected != "" && current != nil && current.ID != rejected && current.Valid() {
		return nil
	}

	m.store.Clear()

	if m.cache != nil && current != nil {
		err := m.cache.Delete(ctx, m.cacheKey)
		if err != nil && m.logger != nil {
			m.logger.Warn("Failed to evict rejected token from cache", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	_, err := m.authenticate(ctx)

	return err
}

func (m *TokenManager) authenticate(ctx context.Context) (*cloud.Token, error) {
	if m.handler == nil {
		return nil, ErrNoAuthHandler
	}

	result, err, shared := m.group.Do("authenticate", func() (interface{}, error) {
		token, err := m.handler(ctx)
		if err != nil {
			return nil, err
		}

		if token == nil || token.ID == "" {
			return nil, cloud.ErrNoSubjectToken
		}

		m.store.Set(token)

		return token, nil
	})
	if err != nil {
		return nil, fmt.Errorf("authenticating: %w", err)
	}

	token, _ := result.(*cloud.Token)

	if m.logger != nil {
		m.logger.Debug("Authenticated", map[string]interface{}{
			"shared":     shared,
			"expires_at": token.ExpiresAt,
		})
	}

	return token, nil
}
