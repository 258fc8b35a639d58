// Package identity holds helpers shared by the identity service
// implementations in its v2 and v3 subpackages.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fivetwenty-io/cloudsdk/internal/constants"
	"github.com/fivetwenty-io/cloudsdk/pkg/cloud"
)

// InferExpiry reads the exp claim when tokenID is a JWT. The signature is
// not checked; the identity service that issued the token is trusted.
func InferExpiry(tokenID string) (time.Time, bool) {
	token, _, err := jwt.NewParser().ParseUnverified(tokenID, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}

	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}

	return exp.Time, true
}

// FillExpiry sets ExpiresAt on a freshly issued token that came without
// one, from its JWT exp claim or else DefaultTokenLifetime after issue.
func FillExpiry(token *cloud.Token) {
	if !token.ExpiresAt.IsZero() {
		return
	}

	if exp, ok := InferExpiry(token.ID); ok {
		token.ExpiresAt = exp

		return
	}

	issued := token.IssuedAt
	if issued.IsZero() {
		issued = time.Now()
	}

	token.ExpiresAt = issued.Add(constants.DefaultTokenLifetime)
}

// Lookup resolves the token for opts without an exchange when possible:
// opts.CachedToken first, then opts.TokenCache. It returns nil, nil when an
// exchange is needed.
func Lookup(ctx context.Context, opts *cloud.Options) (*cloud.Token, error) {
	if opts.CachedToken != nil {
		if opts.CachedToken.HasExpired() {
			return nil, fmt.Errorf("%w: expired at %s", cloud.ErrCachedTokenExpired,
				opts.CachedToken.ExpiresAt.Format(time.RFC3339))
		}

		return opts.CachedToken, nil
	}

	if opts.TokenCache == nil {
		return nil, nil //nolint:nilnil // a miss is not an error
	}

	token, err := opts.TokenCache.Get(ctx, cloud.TokenCacheKey(opts))
	if errors.Is(err, cloud.ErrTokenNotCached) {
		return nil, nil //nolint:nilnil // a miss is not an error
	}

	if err != nil {
		logWarn(opts.Logger, "Token cache lookup failed", err)

		return nil, nil //nolint:nilnil // a broken cache falls back to an exchange
	}

	logDebug(opts.Logger, "Using cached token", map[string]interface{}{"expires_at": token.ExpiresAt})

	return token, nil
}

// Store saves a freshly issued token in opts.TokenCache. Failures are
// logged and otherwise ignored.
func Store(ctx context.Context, opts *cloud.Options, token *cloud.Token) {
	if opts.TokenCache == nil {
		return
	}

	err := opts.TokenCache.Set(ctx, cloud.TokenCacheKey(opts), token)
	if err != nil {
		logWarn(opts.Logger, "Failed to cache token", err)
	}
}

// ResolveURL finds the base URL of the service selected by opts. Callers
// that only need a token leave CatalogType empty and get "".
func ResolveURL(token *cloud.Token, opts *cloud.Options, iface string) (string, error) {
	if opts.CatalogType == "" {
		return "", nil
	}

	url, err := token.Catalog.ServiceURL(opts.CatalogName, opts.CatalogType, opts.Region, iface)
	if err != nil {
		return "", fmt.Errorf("resolving service URL: %w", err)
	}

	return url, nil
}

func logWarn(logger cloud.Logger, msg string, err error) {
	if logger != nil {
		logger.Warn(msg, map[string]interface{}{"error": err.Error()})
	}
}

func logDebug(logger cloud.Logger, msg string, fields map[string]interface{}) {
	if logger != nil {
		logger.Debug(msg, fields)
	}
}
