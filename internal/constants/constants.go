package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration and cache files.
	ConfigFilePerm = 0600
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// ShortHTTPTimeout is used for identity exchanges.
	ShortHTTPTimeout = 10 * time.Second
)

// Retry limits.
const (
	// DefaultRetryMax is the default maximum number of retries.
	DefaultRetryMax = 3

	// DefaultRetryWaitMin is the minimum wait time between retries.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax is the maximum wait time between retries.
	DefaultRetryWaitMax = 10 * time.Second
)

// Headers.
const (
	// HeaderAuthToken carries the token on authenticated requests.
	HeaderAuthToken = "X-Auth-Token"

	// HeaderSubjectToken carries the issued token on v3 token responses.
	HeaderSubjectToken = "X-Subject-Token"

	// HeaderContentType is the Content-Type header.
	HeaderContentType = "Content-Type"

	// HeaderAccept is the Accept header.
	HeaderAccept = "Accept"

	// HeaderUserAgent is the User-Agent header.
	HeaderUserAgent = "User-Agent"
)

// Content types.
const (
	// ContentTypeJSON is used for request bodies unless an operation says otherwise.
	ContentTypeJSON = "application/json"

	// ContentTypeImagePatch is the JSON-Patch media type of the image API.
	ContentTypeImagePatch = "application/openstack-images-v2.1-json-patch"
)

// Defaults applied beneath every options layer.
const (
	// DefaultInterface selects public v3 catalog endpoints.
	DefaultInterface = "public"


	// DefaultIdentityVersion is used when none is configured.
	DefaultIdentityVersion = "v3"

	// UserAgentPrefix is prepended to the library version.
	UserAgentPrefix = "cloudsdk-go"
)

// Token handling.
const (
	// DefaultTokenLifetime is assumed when an identity response carries no
	// expiry and the token is not a JWT.
	DefaultTokenLifetime = 1 * time.Hour

	// DefaultTokenCacheTTL bounds NATS cache entries.
	DefaultTokenCacheTTL = 24 * time.Hour
)

// Rate limiting.
const (
	// DefaultRateLimitBurst is used when a rate limit is configured without a burst.
	DefaultRateLimitBurst = 1
)

// Format constants.
const (
	// FormatJSON for JSON output format.
	FormatJSON = "json"

	// FormatYAML for YAML output format.
	FormatYAML = "yaml"

	// FormatTable for table output format.
	FormatTable = "table"
)

// UI and display constants.
const (
	// NotAvailable is used when information is not available.
	NotAvailable = "N/A"

	// MaskedSecret is used to hide sensitive information.
	MaskedSecret = "***"

	// JSONIndentSize is the number of spaces for JSON indentation.
	JSONIndentSize = 2

	// IDDisplayLength truncates IDs in tables.
	IDDisplayLength = 36
)
