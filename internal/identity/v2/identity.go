// Package v2 authenticates against the legacy v2.0 identity API.
package v2

import (
	"context"
	"fmt"
	"net/http"

	cloudhttp "github.com/fivetwenty-io/cloudsdk/internal/http"
	"github.com/fivetwenty-io/cloudsdk/internal/identity"
	"github.com/fivetwenty-io/cloudsdk/pkg/cloud"
)

// TokensPath is the token resource relative to the auth URL.
const TokensPath = "/tokens"

// Service implements cloud.IdentityService for the v2.0 API.
type Service struct {
	client *cloudhttp.Client
}

// New creates a service sending requests through client, which must be
// rooted at the auth URL (e.g. "https://keystone.example.com/v2.0").
func New(client *cloudhttp.Client) *Service {
	return &Service{client: client}
}

// Authenticate returns a token for opts and the URL of the catalog entry
// opts selects. Endpoints are chosen by opts.URLType.
func (s *Service) Authenticate(ctx context.Context, opts *cloud.Options) (*cloud.Token, string, error) {
	token, err := identity.Lookup(ctx, opts)
	if err != nil {
		return nil, "", err
	}

	if token == nil {
		token, err = s.GenerateToken(ctx, opts)
		if err != nil {
			return nil, "", err
		}

		identity.Store(ctx, opts, token)
	}

	url, err := identity.ResolveURL(token, opts, InterfaceFromURLType(opts.URLType))
	if err != nil {
		return nil, "", err
	}

	return token, url, nil
}

// GenerateToken always performs an exchange.
func (s *Service) GenerateToken(ctx context.Context, opts *cloud.Options) (*cloud.Token, error) {
	body, err := buildAuthRequest(opts)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(ctx, &cloudhttp.Request{
		Method: http.MethodPost,
		Path:   TokensPath,
		Body:   body,
	})
	if err != nil {
		return nil, fmt.Errorf("generating token: %w", err)
	}

	var access accessResponse

	err = resp.Decode(&access)
	if err != nil {
		return nil, err
	}

	if access.Access.Token.ID == "" {
		return nil, cloud.ErrNoSubjectToken
	}

	token := access.toToken()
	identity.FillExpiry(token)

	return token, nil
}

// InterfaceFromURLType maps a v2 URL type to the interface name used in
// cloud.Catalog. Unknown values select the public interface.
func InterfaceFromURLType(urlType string) string {
	switch urlType {
	case cloud.URLTypeInternal:
		return cloud.InterfaceInternal
	case cloud.URLTypeAdmin:
		return cloud.InterfaceAdmin
	default:
		return cloud.InterfacePublic
	}
}

type accessResponse struct {
	Access struct {
		Token struct {
			ID       string             `json:"id"`
			Expires  identity.Timestamp `json:"expires"`
			IssuedAt identity.Timestamp `json:"issued_at"`
			Tenant   *struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"tenant"`
		} `json:"token"`
		User *struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"user"`
		ServiceCatalog []struct {
			Name      string `json:"name"`
			Type      string `json:"type"`
			Endpoints []struct {
				ID          string `json:"id"`
				Region      string `json:"region"`
				PublicURL   string `json:"publicURL"`
				InternalURL string `json:"internalURL"`
				AdminURL    string `json:"adminURL"`
			} `json:"endpoints"`
		} `json:"serviceCatalog"`
	} `json:"access"`
}

func (r *accessResponse) toToken() *cloud.Token {
	access := r.Access
	token := &cloud.Token{
		ID:        access.Token.ID,
		ExpiresAt: access.Token.Expires.Time(),
		IssuedAt:  access.Token.IssuedAt.Time(),
		Catalog:   &cloud.Catalog{},
	}

	if access.User != nil {
		token.User = &cloud.TokenUser{ID: access.User.ID, Name: access.User.Name}
	}

	if access.Token.Tenant != nil {
		token.Project = &cloud.TokenProject{ID: access.Token.Tenant.ID, Name: access.Token.Tenant.Name}
	}

	for _, service := range access.ServiceCatalog {
		entry := cloud.CatalogEntry{Name: service.Name, Type: service.Type}

		for _, endpoint := range service.Endpoints {
			urls := map[string]string{
				cloud.InterfacePublic:   endpoint.PublicURL,
				cloud.InterfaceInternal: endpoint.InternalURL,
				cloud.InterfaceAdmin:    endpoint.AdminURL,
			}

			for _, iface := range []string{cloud.InterfacePublic, cloud.InterfaceInternal, cloud.InterfaceAdmin} {
				if urls[iface] == "" {
					continue
				}

				entry.Endpoints = append(entry.Endpoints, cloud.Endpoint{
					ID:        endpoint.ID,
					Interface: iface,
					Region:    endpoint.Region,
					URL:       urls[iface],
				})
			}
		}

		token.Catalog.Entries = append(token.Catalog.Entries, entry)
	}

	return token
}

type authRequest struct {
	Auth authBody `json:"auth"`
}

type authBody struct {
	PasswordCredentials *passwordCredentials `json:"passwordCredentials,omitempty"`
	Token               *tokenCredentials    `json:"token,omitempty"`
	TenantID            string               `json:"tenantId,omitempty"`
	TenantName          string               `json:"tenantName,omitempty"`
}

type passwordCredentials struct {
	Username string `json:"username,omitempty"`
	UserID   string `json:"userId,omitempty"`
	Password string `json:"password"`
}

type tokenCredentials struct {
	ID string `json:"id"`
}

func buildAuthRequest(opts *cloud.Options) (*authRequest, error) {
	req := &authRequest{}

	switch {
	case opts.HasPasswordCredentials():
		req.Auth.PasswordCredentials = &passwordCredentials{
			Username: opts.Username,
			UserID:   opts.UserID,
			Password: opts.Password,
		}
	case opts.TokenID != "":
		req.Auth.Token = &tokenCredentials{ID: opts.TokenID}
	default:
		return nil, cloud.ErrNoCredentials
	}

	req.Auth.TenantID = firstNonEmpty(opts.TenantID, opts.ProjectID)
	if req.Auth.TenantID == "" {
		req.Auth.TenantName = firstNonEmpty(opts.TenantName, opts.ProjectName)
	}

	return req, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}

	return ""
}
