// Package v3 authenticates against the v3 identity API.
package v3

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fivetwenty-io/cloudsdk/internal/constants"
	cloudhttp "github.com/fivetwenty-io/cloudsdk/internal/http"
	"github.com/fivetwenty-io/cloudsdk/internal/identity"
	"github.com/fivetwenty-io/cloudsdk/pkg/cloud"
)

// TokensPath is the token resource relative to the auth URL.
const TokensPath = "/auth/tokens"

// Service implements cloud.IdentityService for the v3 API.
type Service struct {
	client *cloudhttp.Client
}

// New creates a service sending requests through client, which must be
// rooted at the auth URL (e.g. "https://keystone.example.com/v3").
func New(client *cloudhttp.Client) *Service {
	return &Service{client: client}
}

// Authenticate returns a token for opts and the URL of the catalog entry
// opts selects.
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

	url, err := identity.ResolveURL(token, opts, opts.Interface)
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

	token, err := ParseTokenResponse(resp)
	if err != nil {
		return nil, err
	}

	identity.FillExpiry(token)

	return token, nil
}

// ParseTokenResponse reads a token response as returned by token creation
// and validation. The ID comes from the X-Subject-Token header.
func ParseTokenResponse(resp *cloudhttp.Response) (*cloud.Token, error) {
	subject := resp.Headers.Get(constants.HeaderSubjectToken)
	if subject == "" {
		return nil, cloud.ErrNoSubjectToken
	}

	var body tokenResponse

	err := resp.Decode(&body)
	if err != nil {
		return nil, err
	}

	token := &cloud.Token{
		ID:        subject,
		ExpiresAt: body.Token.ExpiresAt.Time(),
		IssuedAt:  body.Token.IssuedAt.Time(),
		Methods:   body.Token.Methods,
		User:      body.Token.User,
		Project:   body.Token.Project,
	}

	if body.Token.Catalog != nil {
		token.Catalog = &cloud.Catalog{Entries: body.Token.Catalog}
	}

	return token, nil
}

type tokenResponse struct {
	Token struct {
		ExpiresAt identity.Timestamp   `json:"expires_at"`
		IssuedAt  identity.Timestamp   `json:"issued_at"`
		Methods   []string             `json:"methods"`
		User      *cloud.TokenUser     `json:"user"`
		Project   *cloud.TokenProject  `json:"project"`
		Catalog   []cloud.CatalogEntry `json:"catalog"`
	} `json:"token"`
}

type authRequest struct {
	Auth authBody `json:"auth"`
}

type authBody struct {
	Identity authIdentity `json:"identity"`
	Scope    *authScope   `json:"scope,omitempty"`
}

type authIdentity struct {
	Methods  []string      `json:"methods"`
	Password *passwordAuth `json:"password,omitempty"`
	Token    *tokenAuth    `json:"token,omitempty"`
}

type passwordAuth struct {
	User userAuth `json:"user"`
}

type userAuth struct {
	ID       string     `json:"id,omitempty"`
	Name     string     `json:"name,omitempty"`
	Password string     `json:"password"`
	Domain   *cloud.Ref `json:"domain,omitempty"`
}

type tokenAuth struct {
	ID string `json:"id"`
}

type authScope struct {
	Project *projectScope `json:"project,omitempty"`
	Domain  *cloud.Ref    `json:"domain,omitempty"`
}

type projectScope struct {
	ID     string     `json:"id,omitempty"`
	Name   string     `json:"name,omitempty"`
	Domain *cloud.Ref `json:"domain,omitempty"`
}

func buildAuthRequest(opts *cloud.Options) (*authRequest, error) {
	req := &authRequest{}

	switch {
	case opts.HasPasswordCredentials():
		user := userAuth{ID: opts.UserID, Password: opts.Password}

		if opts.UserID == "" {
			domain := ref(opts.DomainID, opts.DomainName)
			if domain == nil {
				return nil, &cloud.ConfigError{Option: "DomainName", Reason: "or DomainID is required when authenticating by user name"}
			}

			user.Name = opts.Username
			user.Domain = domain
		}

		req.Auth.Identity = authIdentity{
			Methods:  []string{"password"},
			Password: &passwordAuth{User: user},
		}

	case opts.TokenID != "":
		req.Auth.Identity = authIdentity{
			Methods: []string{"token"},
			Token:   &tokenAuth{ID: opts.TokenID},
		}

	default:
		return nil, cloud.ErrNoCredentials
	}

	req.Auth.Scope = buildScope(opts)

	return req, nil
}

func buildScope(opts *cloud.Options) *authScope {
	switch {
	case opts.ProjectID != "":
		return &authScope{Project: &projectScope{ID: opts.ProjectID}}

	case opts.ProjectName != "":
		domain := ref(opts.ProjectDomainID, opts.ProjectDomainName)
		if domain == nil {
			domain = ref(opts.DomainID, opts.DomainName)
		}

		return &authScope{Project: &projectScope{Name: opts.ProjectName, Domain: domain}}

	case opts.ScopeDomainID != "" || opts.ScopeDomainName != "":
		return &authScope{Domain: ref(opts.ScopeDomainID, opts.ScopeDomainName)}

	default:
		return nil
	}
}

func ref(id, name string) *cloud.Ref {
	if id != "" {
		return &cloud.Ref{ID: id}
	}

	if name != "" {
		return &cloud.Ref{Name: name}
	}

	return nil
}
