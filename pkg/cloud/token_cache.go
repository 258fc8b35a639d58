package cloud

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/cloudsdk/internal/constants"
)

// TokenCacheType represents the type of token cache backend.
type TokenCacheType string

const (
	// TokenCacheMemory keeps tokens for the life of the process.
	TokenCacheMemory TokenCacheType = "memory"

	// TokenCacheFile keeps tokens in a YAML file.
	TokenCacheFile TokenCacheType = "file"

	// TokenCacheNATS keeps tokens in a NATS JetStream key-value bucket.
	TokenCacheNATS TokenCacheType = "nats"

	// TokenCacheNone disables caching.
	TokenCacheNone TokenCacheType = "none"
)

// TokenCache stores issued tokens so later builders can skip the identity
// exchange. Get returns ErrTokenNotCached on a miss.
type TokenCache interface {
	Get(ctx context.Context, key string) (*Token, error)
	Set(ctx context.Context, key string, token *Token) error
	Delete(ctx context.Context, key string) error
}

// TokenCacheConfig configures a cache backend.
type TokenCacheConfig struct {
	Type TokenCacheType

	// File is required for TokenCacheFile.
	File *FileCacheConfig

	// NATS is required for TokenCacheNATS.
	NATS *NATSKVConfig
}

// FileCacheConfig configures the file backend.
type FileCacheConfig struct {
	Path string
}

// NewTokenCacheFromConfig creates a cache backend from configuration. A nil
// config yields a memory cache.
func NewTokenCacheFromConfig(ctx context.Context, config *TokenCacheConfig) (TokenCache, error) {
	if config == nil {
		return NewMemoryTokenCache(), nil
	}

	switch config.Type {
	case TokenCacheMemory, "":
		return NewMemoryTokenCache(), nil

	case TokenCacheFile:
		if config.File == nil || config.File.Path == "" {
			return nil, ErrFilePathRequired
		}

		return NewFileTokenCache(config.File.Path), nil

	case TokenCacheNATS:
		if config.NATS == nil {
			return nil, ErrNATSConfigRequired
		}

		return NewNATSTokenCache(ctx, config.NATS)

	case TokenCacheNone:
		return NoOpTokenCache{}, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCache, config.Type)
	}
}

// TokenCacheKey derives a cache key from the identity and scope in opts.
// Secrets are never part of the key.
func TokenCacheKey(opts *Options) string {
	parts := []string{
		strings.TrimSuffix(opts.AuthURL, "/"),
		opts.IdentityVersion,
		opts.UserID, opts.Username, opts.DomainID, opts.DomainName,
		opts.ProjectID, opts.ProjectName, opts.ProjectDomainID, opts.ProjectDomainName,
		opts.ScopeDomainID, opts.ScopeDomainName,
		opts.TenantID, opts.TenantName,
	}

	if opts.TokenID != "" && !opts.HasPasswordCredentials() {
		parts = append(parts, "token:"+strconv.FormatUint(xxhash.Sum64String(opts.TokenID), 16))
	}

	return "token." + strconv.FormatUint(xxhash.Sum64String(strings.Join(parts, "\x00")), 16)
}

// MemoryTokenCache is a process-local cache. Expired tokens are evicted on
// read.
type MemoryTokenCache struct {
	mutex  sync.RWMutex
	tokens map[string]*Token
}

// NewMemoryTokenCache creates an empty memory cache.
func NewMemoryTokenCache() *MemoryTokenCache {
	return &MemoryTokenCache{tokens: make(map[string]*Token)}
}

// Get returns the cached token for key.
func (c *MemoryTokenCache) Get(ctx context.Context, key string) (*Token, error) {
	c.mutex.RLock()
	token, ok := c.tokens[key]
	c.mutex.RUnlock()

	if !ok {
		return nil, ErrTokenNotCached
	}

	if !token.Valid() {
		_ = c.Delete(ctx, key)

		return nil, ErrTokenNotCached
	}

	return token, nil
}

// Set stores token under key.
func (c *MemoryTokenCache) Set(ctx context.Context, key string, token *Token) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.tokens[key] = token

	return nil
}

// Delete removes key.
func (c *MemoryTokenCache) Delete(ctx context.Context, key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.tokens, key)

	return nil
}

// FileTokenCache keeps tokens in a YAML document keyed by cache key. It is
// safe for concurrent use within a process.
type FileTokenCache struct {
	mutex sync.Mutex
	path  string
}

// NewFileTokenCache creates a cache backed by path. The file is created on
// first Set.
func NewFileTokenCache(path string) *FileTokenCache {
	return &FileTokenCache{path: path}
}

// Get returns the cached token for key.
func (c *FileTokenCache) Get(ctx context.Context, key string) (*Token, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	tokens, err := c.load()
	if err != nil {
		return nil, err
	}

	token, ok := tokens[key]
	if !ok || !token.Valid() {
		return nil, ErrTokenNotCached
	}

	return token, nil
}

// Set stores token under key and prunes expired entries.
func (c *FileTokenCache) Set(ctx context.Context, key string, token *Token) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	tokens, err := c.load()
	if err != nil {
		return err
	}

	for existing, cached := range tokens {
		if cached.HasExpired() {
			delete(tokens, existing)
		}
	}

	tokens[key] = token

	return c.save(tokens)
}

// Delete removes key.
func (c *FileTokenCache) Delete(ctx context.Context, key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	tokens, err := c.load()
	if err != nil {
		return err
	}

	if _, ok := tokens[key]; !ok {
		return nil
	}

	delete(tokens, key)

	return c.save(tokens)
}

func (c *FileTokenCache) load() (map[string]*Token, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]*Token), nil
	}

	if err != nil {
		return nil, fmt.Errorf("reading token cache: %w", err)
	}

	tokens := make(map[string]*Token)

	err = yaml.Unmarshal(data, &tokens)
	if err != nil {
		return nil, fmt.Errorf("parsing token cache: %w", err)
	}

	return tokens, nil
}

func (c *FileTokenCache) save(tokens map[string]*Token) error {
	err := os.MkdirAll(filepath.Dir(c.path), constants.ConfigDirPerm)
	if err != nil {
		return fmt.Errorf("creating token cache directory: %w", err)
	}

	data, err := yaml.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("encoding token cache: %w", err)
	}

	err = os.WriteFile(c.path, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("writing token cache: %w", err)
	}

	return nil
}

// NoOpTokenCache caches nothing.
type NoOpTokenCache struct{}

// Get always misses.
func (NoOpTokenCache) Get(ctx context.Context, key string) (*Token, error) {
	return nil, ErrTokenNotCached
}

// Set does nothing.
func (NoOpTokenCache) Set(ctx context.Context, key string, token *Token) error {
	return nil
}

// Delete does nothing.
func (NoOpTokenCache) Delete(ctx context.Context, key string) error {
	return nil
}
