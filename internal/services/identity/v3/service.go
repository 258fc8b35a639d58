// Package identity is the client for the identity service, version 3.
package identity

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fivetwenty-io/cloudsdk/internal/constants"
	idv3 "github.com/fivetwenty-io/cloudsdk/internal/identity/v3"
	"github.com/fivetwenty-io/cloudsdk/internal/operator"
	"github.com/fivetwenty-io/cloudsdk/pkg/cloud"
)

// Registry name and catalog defaults.
const (
	Name        = "identity/v3"
	CatalogName = "keystone"
	CatalogType = "identity"
)

var subjectParam = operator.Param{
	Location: operator.LocationHeader,
	Type:     operator.TypeString,
	SentAs:   constants.HeaderSubjectToken,
	Required: true,
}

var (
	validateTokenOp = operator.Operation{
		Method: http.MethodGet,
		Path:   idv3.TokensPath,
		Params: map[string]operator.Param{"tokenId": subjectParam},
	}
	revokeTokenOp = operator.Operation{
		Method: http.MethodDelete,
		Path:   idv3.TokensPath,
		Params: map[string]operator.Param{"tokenId": subjectParam},
	}
	listProjectsOp = operator.Operation{
		Method: http.MethodGet,
		Path:   "/auth/projects",
	}
)

// Service is the identity v3 client.
type Service struct {
	operator.Operator
}

// New creates the service over op.
func New(op operator.Operator, _ cloud.Options) cloud.Service {
	return &Service{Operator: op}
}

// Name implements cloud.Service.
func (s *Service) Name() string {
	return Name
}

// Project is a project the current token may be scoped to.
type Project struct {
	ID       string `json:"id"        yaml:"id"`
	Name     string `json:"name"      yaml:"name"`
	DomainID string `json:"domain_id" yaml:"domain_id"`
	Enabled  bool   `json:"enabled"   yaml:"enabled"`
}

// GenerateToken exchanges the credentials in opts for a new token. Only
// the credential and scope fields of opts are used.
func (s *Service) GenerateToken(ctx context.Context, opts cloud.Options) (*cloud.Token, error) {
	return idv3.New(s.Client()).GenerateToken(ctx, &opts)
}

// ValidateToken checks tokenID and returns its current details.
func (s *Service) ValidateToken(ctx context.Context, tokenID string) (*cloud.Token, error) {
	resp, err := s.Execute(ctx, validateTokenOp, map[string]interface{}{"tokenId": tokenID})
	if err != nil {
		return nil, fmt.Errorf("validating token: %w", err)
	}

	return idv3.ParseTokenResponse(resp)
}

// RevokeToken invalidates tokenID.
func (s *Service) RevokeToken(ctx context.Context, tokenID string) error {
	_, err := s.Execute(ctx, revokeTokenOp, map[string]interface{}{"tokenId": tokenID})
	if err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}

	return nil
}

// ListProjects lists the projects available to the current token.
func (s *Service) ListProjects(ctx context.Context) ([]Project, error) {
	resp, err := s.Execute(ctx, listProjectsOp, nil)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}

	var projects []Project

	err = operator.Populate(resp, "projects", &projects)
	if err != nil {
		return nil, err
	}

	return projects, nil
}
