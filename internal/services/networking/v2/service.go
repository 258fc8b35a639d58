// Package networking is the client for the networking service, version 2.
package networking

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fivetwenty-io/cloudsdk/internal/operator"
	"github.com/fivetwenty-io/cloudsdk/pkg/cloud"
)

// Registry name and catalog defaults.
const (
	Name        = "networking/v2"
	CatalogName = "neutron"
	CatalogType = "network"
)

// The catalog lists the unversioned endpoint.
const prefix = "/v2.0"

var (
	listNetworksOp = operator.Operation{
		Method: http.MethodGet,
		Path:   prefix + "/networks",
		Params: map[string]operator.Param{
			"name":     {Location: operator.LocationQuery, Type: operator.TypeString},
			"status":   {Location: operator.LocationQuery, Type: operator.TypeString},
			"tenantId": {Location: operator.LocationQuery, Type: operator.TypeString, SentAs: "tenant_id"},
			"shared":   {Location: operator.LocationQuery, Type: operator.TypeBoolean},
		},
	}
	getNetworkOp = operator.Operation{
		Method: http.MethodGet,
		Path:   prefix + "/networks/{id}",
		Params: map[string]operator.Param{"id": {Location: operator.LocationURL, Type: operator.TypeString}},
	}
	createNetworkOp = operator.Operation{
		Method:  http.MethodPost,
		Path:    prefix + "/networks",
		JSONKey: "network",
		Params: map[string]operator.Param{
			"name":         {Location: operator.LocationJSON, Type: operator.TypeString},
			"adminStateUp": {Location: operator.LocationJSON, Type: operator.TypeBoolean, SentAs: "admin_state_up"},
			"shared":       {Location: operator.LocationJSON, Type: operator.TypeBoolean},
			"tenantId":     {Location: operator.LocationJSON, Type: operator.TypeString, SentAs: "tenant_id"},
		},
	}
	deleteNetworkOp = operator.Operation{
		Method: http.MethodDelete,
		Path:   prefix + "/networks/{id}",
		Params: map[string]operator.Param{"id": {Location: operator.LocationURL, Type: operator.TypeString}},
	}
)

// Service is the networking v2 client.
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

// Network is a layer 2 network.
type Network struct {
	ID           string   `json:"id"             yaml:"id"`
	Name         string   `json:"name"           yaml:"name"`
	Status       string   `json:"status"         yaml:"status"`
	AdminStateUp bool     `json:"admin_state_up" yaml:"admin_state_up"`
	Shared       bool     `json:"shared"         yaml:"shared"`
	TenantID     string   `json:"tenant_id"      yaml:"tenant_id"`
	Subnets      []string `json:"subnets"        yaml:"subnets"`
}

// ListNetworksOpts filters ListNetworks. Shared is only sent when set.
type ListNetworksOpts struct {
	Name     string
	Status   string
	TenantID string
	Shared   *bool
}

// CreateNetworkOpts describes a new network.
type CreateNetworkOpts struct {
	Name         string
	AdminStateUp *bool
	Shared       *bool
	TenantID     string
}

// ListNetworks lists networks.
func (s *Service) ListNetworks(ctx context.Context, opts ListNetworksOpts) ([]Network, error) {
	values := map[string]interface{}{}
	setString(values, "name", opts.Name)
	setString(values, "status", opts.Status)
	setString(values, "tenantId", opts.TenantID)

	if opts.Shared != nil {
		values["shared"] = *opts.Shared
	}

	resp, err := s.Execute(ctx, listNetworksOp, values)
	if err != nil {
		return nil, fmt.Errorf("listing networks: %w", err)
	}

	var networks []Network

	err = operator.Populate(resp, "networks", &networks)
	if err != nil {
		return nil, err
	}

	return networks, nil
}

// GetNetwork retrieves a network.
func (s *Service) GetNetwork(ctx context.Context, id string) (*Network, error) {
	resp, err := s.Execute(ctx, getNetworkOp, map[string]interface{}{"id": id})
	if err != nil {
		return nil, fmt.Errorf("getting network %s: %w", id, err)
	}

	var network Network

	err = operator.Populate(resp, "network", &network)
	if err != nil {
		return nil, err
	}

	return &network, nil
}

// CreateNetwork creates a network.
func (s *Service) CreateNetwork(ctx context.Context, opts CreateNetworkOpts) (*Network, error) {
	values := map[string]interface{}{}
	setString(values, "name", opts.Name)
	setString(values, "tenantId", opts.TenantID)

	if opts.AdminStateUp != nil {
		values["adminStateUp"] = *opts.AdminStateUp
	}

	if opts.Shared != nil {
		values["shared"] = *opts.Shared
	}

	resp, err := s.Execute(ctx, createNetworkOp, values)
	if err != nil {
		return nil, fmt.Errorf("creating network: %w", err)
	}

	var network Network

	err = operator.Populate(resp, "network", &network)
	if err != nil {
		return nil, err
	}

	return &network, nil
}

// DeleteNetwork deletes a network.
func (s *Service) DeleteNetwork(ctx context.Context, id string) error {
	_, err := s.Execute(ctx, deleteNetworkOp, map[string]interface{}{"id": id})
	if err != nil {
		return fmt.Errorf("deleting network %s: %w", id, err)
	}

	return nil
}

func setString(values map[string]interface{}, key, value string) {
	if value != "" {
		values[key] = value
	}
}
