package compute

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fivetwenty-io/cloudsdk/internal/operator"
	"github.com/fivetwenty-io/cloudsdk/pkg/cloud"
)

// Registry name and catalog defaults.
const (
	Name        = "compute/v2"
	CatalogName = "nova"
	CatalogType = "compute"
)

// Service is the compute v2 client.
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

// Server is a compute instance.
type Server struct {
	ID        string                     `json:"id"                  yaml:"id"`
	Name      string                     `json:"name"                yaml:"name"`
	Status    string                     `json:"status"              yaml:"status"`
	TenantID  string                     `json:"tenant_id"           yaml:"tenant_id"`
	UserID    string                     `json:"user_id"             yaml:"user_id"`
	Flavor    map[string]interface{}     `json:"flavor"              yaml:"flavor"`
	Image     json.RawMessage            `json:"image"               yaml:"-"`
	Addresses map[string][]ServerAddress `json:"addresses"           yaml:"addresses"`
	Metadata  map[string]string          `json:"metadata"            yaml:"metadata"`
	KeyName   string                     `json:"key_name"            yaml:"key_name"`
	AdminPass string                     `json:"adminPass,omitempty" yaml:"-"`
	Created   time.Time                  `json:"created"             yaml:"created"`
	Updated   time.Time                  `json:"updated"             yaml:"updated"`
}

// ServerAddress is one address on a server network.
type ServerAddress struct {
	Addr    string `json:"addr"    yaml:"addr"`
	Version int    `json:"version" yaml:"version"`
}

// ImageID returns the boot image ID, or "" for volume-backed servers whose
// image is reported as an empty string.
func (s *Server) ImageID() string {
	var image struct {
		ID string `json:"id"`
	}

	if json.Unmarshal(s.Image, &image) != nil {
		return ""
	}

	return image.ID
}

// Flavor is an instance size.
type Flavor struct {
	ID    string `json:"id"    yaml:"id"`
	Name  string `json:"name"  yaml:"name"`
	RAM   int    `json:"ram"   yaml:"ram"`
	VCPUs int    `json:"vcpus" yaml:"vcpus"`
	Disk  int    `json:"disk"  yaml:"disk"`
}

// ListServersOpts filters ListServers.
type ListServersOpts struct {
	Limit  int
	Marker string
	Name   string
	Status string
	Flavor string
	Image  string
}

func (o ListServersOpts) values() map[string]interface{} {
	values := map[string]interface{}{}
	setInt(values, "limit", o.Limit)
	setString(values, "marker", o.Marker)
	setString(values, "name", o.Name)
	setString(values, "status", o.Status)
	setString(values, "flavor", o.Flavor)
	setString(values, "image", o.Image)

	return values
}

// CreateServerOpts describes a new server.
type CreateServerOpts struct {
	Name           string
	ImageID        string
	FlavorID       string
	KeyName        string
	UserData       string
	Metadata       map[string]string
	Networks       []ServerNetwork
	SecurityGroups []string
}

// ServerNetwork attaches a server to a network or port.
type ServerNetwork struct {
	UUID    string
	Port    string
	FixedIP string
}

func (o CreateServerOpts) values() map[string]interface{} {
	values := map[string]interface{}{}
	setString(values, "name", o.Name)
	setString(values, "imageId", o.ImageID)
	setString(values, "flavorId", o.FlavorID)
	setString(values, "keyName", o.KeyName)
	setString(values, "userData", o.UserData)

	if len(o.Metadata) > 0 {
		metadata := make(map[string]interface{}, len(o.Metadata))
		for key, value := range o.Metadata {
			metadata[key] = value
		}

		values["metadata"] = metadata
	}

	if len(o.Networks) > 0 {
		networks := make([]interface{}, 0, len(o.Networks))

		for _, network := range o.Networks {
			entry := map[string]interface{}{}
			setString(entry, "uuid", network.UUID)
			setString(entry, "port", network.Port)
			setString(entry, "fixedIp", network.FixedIP)
			networks = append(networks, entry)
		}

		values["networks"] = networks
	}

	if len(o.SecurityGroups) > 0 {
		groups := make([]interface{}, 0, len(o.SecurityGroups))
		for _, name := range o.SecurityGroups {
			groups = append(groups, map[string]interface{}{"name": name})
		}

		values["securityGroups"] = groups
	}

	return values
}

// ListServers lists servers with details.
func (s *Service) ListServers(ctx context.Context, opts ListServersOpts) ([]Server, error) {
	resp, err := s.Execute(ctx, listServersOp, opts.values())
	if err != nil {
		return nil, fmt.Errorf("listing servers: %w", err)
	}

	var servers []Server

	err = operator.Populate(resp, "servers", &servers)
	if err != nil {
		return nil, err
	}

	return servers, nil
}

// GetServer retrieves a server.
func (s *Service) GetServer(ctx context.Context, id string) (*Server, error) {
	resp, err := s.Execute(ctx, getServerOp, map[string]interface{}{"id": id})
	if err != nil {
		return nil, fmt.Errorf("getting server %s: %w", id, err)
	}

	var server Server

	err = operator.Populate(resp, "server", &server)
	if err != nil {
		return nil, err
	}

	return &server, nil
}

// CreateServer boots a server. The returned value carries the ID and admin
// password; fetch it again for the full record.
func (s *Service) CreateServer(ctx context.Context, opts CreateServerOpts) (*Server, error) {
	resp, err := s.Execute(ctx, createServerOp, opts.values())
	if err != nil {
		return nil, fmt.Errorf("creating server: %w", err)
	}

	var server Server

	err = operator.Populate(resp, "server", &server)
	if err != nil {
		return nil, err
	}

	return &server, nil
}

// CreateServerAsync runs CreateServer in the background.
func (s *Service) CreateServerAsync(ctx context.Context, opts CreateServerOpts) *cloud.Future[*Server] {
	return cloud.Go(func() (*Server, error) {
		return s.CreateServer(ctx, opts)
	})
}

// DeleteServer deletes a server.
func (s *Service) DeleteServer(ctx context.Context, id string) error {
	_, err := s.Execute(ctx, deleteServerOp, map[string]interface{}{"id": id})
	if err != nil {
		return fmt.Errorf("deleting server %s: %w", id, err)
	}

	return nil
}

// ListFlavors lists flavors with details.
func (s *Service) ListFlavors(ctx context.Context) ([]Flavor, error) {
	resp, err := s.Execute(ctx, listFlavorsOp, nil)
	if err != nil {
		return nil, fmt.Errorf("listing flavors: %w", err)
	}

	var flavors []Flavor

	err = operator.Populate(resp, "flavors", &flavors)
	if err != nil {
		return nil, err
	}

	return flavors, nil
}

func setString(values map[string]interface{}, key, value string) {
	if value != "" {
		values[key] = value
	}
}

func setInt(values map[string]interface{}, key string, value int) {
	if value != 0 {
		values[key] = value
	}
}
