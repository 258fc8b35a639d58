package cloud

import (
	"fmt"
	"strings"
	"time"
)

// TokenExpiryBuffer is how long before ExpiresAt a token is treated as
// no longer usable.
const TokenExpiryBuffer = 30 * time.Second

// Token is an identity-issued credential together with the catalog that
// came with it.
type Token struct {
	ID        string        `json:"id"                   yaml:"id"`
	ExpiresAt time.Time     `json:"expires_at"           yaml:"expires_at"`
	IssuedAt  time.Time     `json:"issued_at"            yaml:"issued_at"`
	Methods   []string      `json:"methods,omitempty"    yaml:"methods,omitempty"`
	User      *TokenUser    `json:"user,omitempty"       yaml:"user,omitempty"`
	Project   *TokenProject `json:"project,omitempty"    yaml:"project,omitempty"`
	Catalog   *Catalog      `json:"catalog,omitempty"    yaml:"catalog,omitempty"`
}

// TokenUser identifies the user a token was issued to.
type TokenUser struct {
	ID     string `json:"id"               yaml:"id"`
	Name   string `json:"name"             yaml:"name"`
	Domain *Ref   `json:"domain,omitempty" yaml:"domain,omitempty"`
}

// TokenProject is the project a token is scoped to.
type TokenProject struct {
	ID     string `json:"id"               yaml:"id"`
	Name   string `json:"name"             yaml:"name"`
	Domain *Ref   `json:"domain,omitempty" yaml:"domain,omitempty"`
}

// Ref is an id/name pair.
type Ref struct {
	ID   string `json:"id,omitempty"   yaml:"id,omitempty"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

// HasExpired reports whether the token is past its expiry. A token without
// an expiry never expires.
func (t *Token) HasExpired() bool {
	if t == nil {
		return true
	}

	if t.ExpiresAt.IsZero() {
		return false
	}

	return !time.Now().Before(t.ExpiresAt)
}

// Valid reports whether the token can still be sent, leaving
// TokenExpiryBuffer of slack before expiry.
func (t *Token) Valid() bool {
	if t == nil || t.ID == "" {
		return false
	}

	if t.ExpiresAt.IsZero() {
		return true
	}

	return time.Now().Add(TokenExpiryBuffer).Before(t.ExpiresAt)
}

// Catalog is the service catalog returned with a token.
type Catalog struct {
	Entries []CatalogEntry `json:"entries" yaml:"entries"`
}

// CatalogEntry describes one service and its endpoints.
type CatalogEntry struct {
	ID        string     `json:"id,omitempty" yaml:"id,omitempty"`
	Name      string     `json:"name"         yaml:"name"`
	Type      string     `json:"type"         yaml:"type"`
	Endpoints []Endpoint `json:"endpoints"    yaml:"endpoints"`
}

// Endpoint is a single URL for a service.
type Endpoint struct {
	ID        string `json:"id,omitempty"        yaml:"id,omitempty"`
	Interface string `json:"interface"           yaml:"interface"`
	Region    string `json:"region,omitempty"    yaml:"region,omitempty"`
	RegionID  string `json:"region_id,omitempty" yaml:"region_id,omitempty"`
	URL       string `json:"url"                 yaml:"url"`
}

// Matches reports whether the entry has the given type and, when name is
// not empty, the given name.
func (e CatalogEntry) Matches(name, serviceType string) bool {
	if e.Type != serviceType {
		return false
	}

	return name == "" || e.Name == name
}

// Matches reports whether the endpoint serves iface in region. An empty
// region on either side matches.
func (e Endpoint) Matches(region, iface string) bool {
	if e.Interface != iface {
		return false
	}

	if region == "" || e.Region == "" {
		return true
	}

	return e.Region == region || e.RegionID == region
}

// ServiceURL returns the URL of the first endpoint matching all four
// criteria.
func (c *Catalog) ServiceURL(name, serviceType, region, iface string) (string, error) {
	if iface == "" {
		iface = InterfacePublic
	}

	if c != nil {
		for _, entry := range c.Entries {
			if !entry.Matches(name, serviceType) {
				continue
			}

			for _, endpoint := range entry.Endpoints {
				if endpoint.Matches(region, iface) {
					return strings.TrimSuffix(endpoint.URL, "/"), nil
				}
			}
		}
	}

	return "", fmt.Errorf("%w: type [%s] name [%s] region [%s] interface [%s]",
		ErrEndpointNotFound, serviceType, name, region, iface)
}
