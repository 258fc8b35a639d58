// Package builder creates authenticated service clients.
//
// Options come in layers: the builder's defaults, the global options given
// to New, the catalog defaults of the requested service, and the options
// given to each CreateService call, merged in that order.
//
//	b := builder.New(cloud.Options{
//		AuthURL:    "https://keystone.example.com/v3",
//		Username:   "demo",
//		Password:   "secret",
//		DomainName: "Default",
//	})
//
//	svc, err := b.CreateService(ctx, "compute/v2", cloud.Options{Region: "RegionOne"})
//	if err != nil {
//		return err
//	}
//
//	nova := svc.(*compute.Service)
package builder

import (
	"context"
	"fmt"

	"github.com/fivetwenty-io/cloudsdk/internal/auth"
	"github.com/fivetwenty-io/cloudsdk/internal/constants"
	cloudhttp "github.com/fivetwenty-io/cloudsdk/internal/http"
	idv2 "github.com/fivetwenty-io/cloudsdk/internal/identity/v2"
	idv3 "github.com/fivetwenty-io/cloudsdk/internal/identity/v3"
	"github.com/fivetwenty-io/cloudsdk/internal/operator"
	"github.com/fivetwenty-io/cloudsdk/internal/registry"
	"github.com/fivetwenty-io/cloudsdk/pkg/cloud"
)

// Builder creates services. It is safe for concurrent use.
type Builder struct {
	defaults cloud.Options
	global   cloud.Options
	registry *registry.Registry
}

// Option configures a Builder.
type Option func(*Builder)

// WithRegistry replaces the built-in service registry.
func WithRegistry(r *registry.Registry) Option {
	return func(b *Builder) {
		b.registry = r
	}
}

// Defaults returns the builder's own option layer. URLType is left empty
// so it follows the merged Interface.
func Defaults() cloud.Options {
	return cloud.Options{
		Interface:       constants.DefaultInterface,
		IdentityVersion: constants.DefaultIdentityVersion,
	}
}

// New creates a builder with global options shared by every service.
func New(global cloud.Options, opts ...Option) *Builder {
	b := &Builder{
		defaults: Defaults(),
		global:   global,
		registry: registry.Default(),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Registry returns the registry services are looked up in.
func (b *Builder) Registry() *registry.Registry {
	return b.registry
}

// MergeOptions merges the defaults, the global options and call, and checks
// the result. A missing AuthURL is a *cloud.ConfigError.
func (b *Builder) MergeOptions(call cloud.Options) (cloud.Options, error) {
	return b.merge(call)
}

func (b *Builder) merge(layers ...cloud.Options) (cloud.Options, error) {
	merged, err := mergeLayers(append([]cloud.Options{b.defaults, b.global}, layers...)...)
	if err != nil {
		return cloud.Options{}, err
	}

	if merged.AuthURL == "" {
		return cloud.Options{}, &cloud.ConfigError{Option: "AuthURL", Reason: "is required"}
	}

	if merged.URLType == "" {
		merged.URLType = merged.Interface + "URL"
	}

	return merged, nil
}

// CreateService authenticates and returns the service registered under
// name, e.g. "compute/v2". An unknown name is a *cloud.ResolutionError.
func (b *Builder) CreateService(ctx context.Context, name string, call cloud.Options) (cloud.Service, error) {
	def, err := b.registry.Lookup(name)
	if err != nil {
		return nil, err
	}

	opts, err := b.merge(cloud.Options{CatalogName: def.CatalogName, CatalogType: def.CatalogType}, call)
	if err != nil {
		return nil, err
	}

	identityService, err := stockIdentity(opts)
	if err != nil {
		return nil, err
	}

	opts.IdentityService = identityService

	token, baseURL, err := identityService.Authenticate(ctx, &opts)
	if err != nil {
		return nil, fmt.Errorf("authenticating for %s: %w", def.Name, err)
	}

	logDebug(opts.Logger, "Authenticated", map[string]interface{}{
		"service":    def.Name,
		"endpoint":   baseURL,
		"expires_at": token.ExpiresAt,
	})

	manager := auth.NewTokenManager(reauthenticate(opts), managerOptions(opts, token)...)

	clientOpts := append(transportOptions(opts),
		cloudhttp.WithInterceptors(serviceInterceptors(opts, def.Name)),
		cloudhttp.WithHeaders(opts.Headers),
	)

	client := cloudhttp.NewClient(baseURL, manager, clientOpts...)

	return def.New(operator.New(client), opts), nil
}

// Token authenticates with the merged options and returns the token
// without creating a service. No catalog entry is resolved unless call
// names one.
func (b *Builder) Token(ctx context.Context, call cloud.Options) (*cloud.Token, error) {
	opts, err := b.merge(call)
	if err != nil {
		return nil, err
	}

	identityService, err := stockIdentity(opts)
	if err != nil {
		return nil, err
	}

	token, _, err := identityService.Authenticate(ctx, &opts)
	if err != nil {
		return nil, fmt.Errorf("authenticating: %w", err)
	}

	return token, nil
}

// CreateServiceAsync runs CreateService in the background.
func (b *Builder) CreateServiceAsync(ctx context.Context, name string, call cloud.Options) *cloud.Future[cloud.Service] {
	return cloud.Go(func() (cloud.Service, error) {
		return b.CreateService(ctx, name, call)
	})
}

// stockIdentity returns opts.IdentityService, or creates the stock identity
// service for opts.IdentityVersion rooted at opts.AuthURL.
func stockIdentity(opts cloud.Options) (cloud.IdentityService, error) {
	if opts.IdentityService != nil {
		return opts.IdentityService, nil
	}

	client := cloudhttp.NewClient(opts.AuthURL, nil, transportOptions(opts)...)

	switch opts.IdentityVersion {
	case cloud.IdentityV3:
		return idv3.New(client), nil
	case cloud.IdentityV2:
		return idv2.New(client), nil
	default:
		return nil, &cloud.ConfigError{
			Option: "IdentityService",
			Reason: fmt.Sprintf("is not set and no identity service exists for version %q", opts.IdentityVersion),
		}
	}
}

// reauthenticate performs a fresh exchange. A caller-supplied CachedToken
// is dropped since it has just been rejected.
func reauthenticate(opts cloud.Options) auth.Handler {
	return func(ctx context.Context) (*cloud.Token, error) {
		fresh := opts
		fresh.CachedToken = nil

		token, _, err := opts.IdentityService.Authenticate(ctx, &fresh)

		return token, err
	}
}

func managerOptions(opts cloud.Options, token *cloud.Token) []auth.ManagerOption {
	managerOpts := []auth.ManagerOption{auth.WithInitialToken(token)}

	if opts.TokenCache != nil {
		managerOpts = append(managerOpts, auth.WithTokenCache(opts.TokenCache, cloud.TokenCacheKey(&opts)))
	}

	if opts.Logger != nil {
		managerOpts = append(managerOpts, auth.WithManagerLogger(opts.Logger))
	}

	return managerOpts
}

// serviceInterceptors extends the caller's chain with rate limiting and
// metrics for one service. The caller's chain is never modified.
func serviceInterceptors(opts cloud.Options, service string) *cloud.InterceptorChain {
	if opts.RateLimit <= 0 && opts.Metrics == nil {
		return opts.Interceptors
	}

	chain := opts.Interceptors.Clone()

	if opts.RateLimit > 0 {
		chain.AddRequestInterceptor(cloud.RateLimitInterceptor(opts.RateLimit, max(opts.RateBurst, 1)))
	}

	if opts.Metrics != nil {
		opts.Metrics.Attach(chain, service)
	}

	return chain
}

// transportOptions are shared by the identity and service clients.
func transportOptions(opts cloud.Options) []cloudhttp.Option {
	clientOpts := []cloudhttp.Option{
		cloudhttp.WithDebug(opts.Debug),
		cloudhttp.WithHTTPClient(opts.HTTPClient),
		cloudhttp.WithTimeout(opts.HTTPTimeout),
	}

	if opts.Logger != nil {
		clientOpts = append(clientOpts, cloudhttp.WithLogger(opts.Logger))
	}

	if opts.UserAgent != "" {
		clientOpts = append(clientOpts, cloudhttp.WithUserAgent(constants.UserAgentPrefix+" "+opts.UserAgent))
	}

	if opts.RetryMax != 0 || opts.RetryWaitMin != 0 || opts.RetryWaitMax != 0 {
		clientOpts = append(clientOpts, cloudhttp.WithRetryConfig(
			orDefault(opts.RetryMax, constants.DefaultRetryMax),
			orDefault(opts.RetryWaitMin, constants.DefaultRetryWaitMin),
			orDefault(opts.RetryWaitMax, constants.DefaultRetryWaitMax),
		))
	}

	return clientOpts
}

func orDefault[T comparable](value, fallback T) T {
	var zero T
	if value == zero {
		return fallback
	}

	return value
}

func logDebug(logger cloud.Logger, msg string, fields map[string]interface{}) {
	if logger != nil {
		logger.Debug(msg, fields)
	}
}
