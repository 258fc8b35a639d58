package cloud

import (
	"context"
	"net/http"
	"time"
)

// Endpoint interfaces as they appear in a v3 service catalog.
const (
	InterfacePublic   = "public"
	InterfaceInternal = "internal"
	InterfaceAdmin    = "admin"
)

// v2 catalog URL types.
const (
	URLTypePublic   = "publicURL"
	URLTypeInternal = "internalURL"
	URLTypeAdmin    = "adminURL"
)

// Identity API versions understood by the builder.
const (
	IdentityV2 = "v2"
	IdentityV3 = "v3"
)

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// IdentityService exchanges the credentials held in opts for a token and
// the base URL of the service selected by opts.CatalogName, opts.CatalogType,
// opts.Region and opts.Interface.
type IdentityService interface {
	Authenticate(ctx context.Context, opts *Options) (*Token, string, error)
}

// Service is implemented by every client created by the builder.
type Service interface {
	// Name returns the registry name of the service, e.g. "compute/v2".
	Name() string
	// Endpoint returns the base URL the service sends requests to.
	Endpoint() string
}

// Options holds every setting the builder understands. The same type is
// used for each layer that gets merged: builder defaults, global options
// and per-call options.
//
// # Merging
//
// Non-zero fields of a later layer override the same field of an earlier
// one. Zero values never override, so a bool that is true in an earlier
// layer stays true. Pointer, interface and func fields are replaced
// wholesale; maps are merged key by key.
//
// # Authentication
//
// The identity service picks its method from the fields that are set:
//  1. Password with UserID, or with Username plus DomainID/DomainName
//     (v3) or plain Username (v2): password method.
//  2. TokenID alone: token method, rescoped as requested.
//  3. CachedToken: used as is when it has not expired; an expired cached
//     token is an error and no exchange is attempted.
//
// TokenCache, when set, is consulted before any exchange and receives every
// freshly issued token.
type Options struct {
	// AuthURL is the identity endpoint, e.g. "https://keystone.example.com/v3".
	// Required.
	AuthURL string
	// Region selects catalog endpoints. Empty matches any region.
	Region string
	// Interface selects v3 catalog endpoints: public, internal or admin.
	Interface string
	// URLType selects v2 catalog endpoints: publicURL, internalURL or adminURL.
	URLType string
	// IdentityVersion chooses the stock identity service, "v3" or "v2".
	IdentityVersion string

	UserID     string
	Username   string
	Password   string
	DomainID   string
	DomainName string

	ProjectID         string
	ProjectName       string
	ProjectDomainID   string
	ProjectDomainName string
	// ScopeDomainID and ScopeDomainName request a domain-scoped token when
	// no project is given.
	ScopeDomainID   string
	ScopeDomainName string

	// TenantID and TenantName scope v2 tokens.
	TenantID   string
	TenantName string

	// TokenID authenticates with an existing token.
	TokenID string
	// CachedToken skips the exchange entirely.
	CachedToken *Token

	// CatalogName and CatalogType locate the service in the catalog. The
	// builder fills them from the service definition unless set.
	CatalogName string
	CatalogType string

	// UserAgent overrides the default User-Agent header.
	UserAgent string
	// Debug enables request/response logging when a Logger is provided.
	Debug bool
	// HTTPTimeout bounds each HTTP attempt. Zero uses the default.
	HTTPTimeout time.Duration
	// RetryMax, RetryWaitMin and RetryWaitMax tune the wrapped client's
	// retries for 5xx, 429 and connection errors.
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	// Headers are added to every request.
	Headers map[string]string
	// RateLimit caps requests per second for each created service. Zero
	// disables limiting. RateBurst defaults to 1.
	RateLimit float64
	RateBurst int

	Logger          Logger
	IdentityService IdentityService
	Interceptors    *InterceptorChain
	TokenCache      TokenCache
	// Metrics records request counts and latencies per service.
	Metrics *MetricsCollector
	// HTTPClient replaces the underlying *http.Client, mostly for custom
	// TLS or tests.
	HTTPClient *http.Client
}

// HasPasswordCredentials reports whether a password method can be attempted.
func (o *Options) HasPasswordCredentials() bool {
	return o.Password != "" && (o.UserID != "" || o.Username != "")
}

// HasProjectScope reports whether a project scope was requested.
func (o *Options) HasProjectScope() bool {
	return o.ProjectID != "" || o.ProjectName != "" || o.TenantID != "" || o.TenantName != ""
}
