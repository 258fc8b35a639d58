package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// DefaultNATSBucket is used when NATSKVConfig.Bucket is empty.
const DefaultNATSBucket = "cloudsdk_tokens"

// NATSKVConfig configures the NATS key-value backend.
type NATSKVConfig struct {
	// URL of the NATS server, e.g. "nats://127.0.0.1:4222".
	URL string
	// Bucket name; created if missing.
	Bucket string
	// TTL bounds how long any entry is kept regardless of token expiry.
	TTL time.Duration
	// Conn reuses an existing connection instead of dialing URL.
	Conn *nats.Conn
}

// NATSTokenCache shares tokens between processes through a JetStream
// key-value bucket.
type NATSTokenCache struct {
	conn    *nats.Conn
	ownConn bool
	kv      jetstream.KeyValue
}

// NewNATSTokenCache connects and binds to the configured bucket.
func NewNATSTokenCache(ctx context.Context, config *NATSKVConfig) (*NATSTokenCache, error) {
	conn := config.Conn
	ownConn := false

	if conn == nil {
		var err error

		conn, err = nats.Connect(config.URL, nats.Name("cloudsdk-token-cache"))
		if err != nil {
			return nil, fmt.Errorf("connecting to NATS: %w", err)
		}

		ownConn = true
	}

	js, err := jetstream.New(conn)
	if err != nil {
		closeIfOwned(conn, ownConn)

		return nil, fmt.Errorf("creating JetStream context: %w", err)
	}

	bucket := config.Bucket
	if bucket == "" {
		bucket = DefaultNATSBucket
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "identity tokens",
		TTL:         config.TTL,
	})
	if err != nil {
		closeIfOwned(conn, ownConn)

		return nil, fmt.Errorf("binding key-value bucket %q: %w", bucket, err)
	}

	return &NATSTokenCache{conn: conn, ownConn: ownConn, kv: kv}, nil
}

// Get returns the cached token for key.
func (c *NATSTokenCache) Get(ctx context.Context, key string) (*Token, error) {
	entry, err := c.kv.Get(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, ErrTokenNotCached
	}

	if err != nil {
		return nil, fmt.Errorf("reading token from NATS: %w", err)
	}

	var token Token

	err = json.Unmarshal(entry.Value(), &token)
	if err != nil {
		return nil, fmt.Errorf("parsing cached token: %w", err)
	}

	if !token.Valid() {
		return nil, ErrTokenNotCached
	}

	return &token, nil
}

// Set stores token under key.
func (c *NATSTokenCache) Set(ctx context.Context, key string, token *Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}

	_, err = c.kv.Put(ctx, key, data)
	if err != nil {
		return fmt.Errorf("writing token to NATS: %w", err)
	}

	return nil
}

// Delete removes key.
func (c *NATSTokenCache) Delete(ctx context.Context, key string) error {
	err := c.kv.Delete(ctx, key)
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("deleting token from NATS: %w", err)
	}

	return nil
}

// Close releases the connection if the cache dialed it.
func (c *NATSTokenCache) Close() {
	closeIfOwned(c.conn, c.ownConn)
}

func closeIfOwned(conn *nats.Conn, owned bool) {
	if owned {
		conn.Close()
	}
}
