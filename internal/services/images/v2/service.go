// Package images is the client for the image service, version 2.
package images

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fivetwenty-io/cloudsdk/internal/constants"
	"github.com/fivetwenty-io/cloudsdk/internal/operator"
	"github.com/fivetwenty-io/cloudsdk/internal/schema"
	"github.com/fivetwenty-io/cloudsdk/pkg/cloud"
)

// Registry name and catalog defaults.
const (
	Name        = "images/v2"
	CatalogName = "glance"
	CatalogType = "image"
)

// The catalog lists the unversioned endpoint.
const prefix = "/v2"

var idParam = operator.Param{Location: operator.LocationURL, Type: operator.TypeString}

var (
	listImagesOp = operator.Operation{
		Method: http.MethodGet,
		Path:   prefix + "/images",
		Params: map[string]operator.Param{
			"limit":      {Location: operator.LocationQuery, Type: operator.TypeInteger},
			"marker":     {Location: operator.LocationQuery, Type: operator.TypeString},
			"name":       {Location: operator.LocationQuery, Type: operator.TypeString},
			"status":     {Location: operator.LocationQuery, Type: operator.TypeString},
			"visibility": {Location: operator.LocationQuery, Type: operator.TypeString},
			"tags":       {Location: operator.LocationQuery, Type: operator.TypeArray, SentAs: "tag"},
		},
	}
	getImageOp = operator.Operation{
		Method: http.MethodGet,
		Path:   prefix + "/images/{id}",
		Params: map[string]operator.Param{"id": idParam},
	}
	deleteImageOp = operator.Operation{
		Method: http.MethodDelete,
		Path:   prefix + "/images/{id}",
		Params: map[string]operator.Param{"id": idParam},
	}
	getImageSchemaOp = operator.Operation{
		Method: http.MethodGet,
		Path:   prefix + "/schemas/image",
	}
	patchImageOp = operator.Operation{
		Method:      http.MethodPatch,
		Path:        prefix + "/images/{id}",
		ContentType: constants.ContentTypeImagePatch,
		Params: map[string]operator.Param{
			"id":       idParam,
			"patchDoc": {Location: operator.LocationRaw, Required: true},
		},
	}
)

// Aliases maps image schema properties to the names accepted by
// UpdateImage in addition to the property names themselves.
var Aliases = map[string]string{
	"container_format": "containerFormat",
	"disk_format":      "diskFormat",
	"min_disk":         "minDisk",
	"min_ram":          "minRam",
	"protected":        "isProtected",
}

// Service is the image v2 client.
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

// Image is a stored disk image.
type Image struct {
	ID              string    `json:"id"               yaml:"id"`
	Name            string    `json:"name"             yaml:"name"`
	Status          string    `json:"status"           yaml:"status"`
	Visibility      string    `json:"visibility"       yaml:"visibility"`
	Protected       bool      `json:"protected"        yaml:"protected"`
	ContainerFormat string    `json:"container_format" yaml:"container_format"`
	DiskFormat      string    `json:"disk_format"      yaml:"disk_format"`
	MinDisk         int       `json:"min_disk"         yaml:"min_disk"`
	MinRAM          int       `json:"min_ram"          yaml:"min_ram"`
	Size            int64     `json:"size"             yaml:"size"`
	Checksum        string    `json:"checksum"         yaml:"checksum"`
	Owner           string    `json:"owner"            yaml:"owner"`
	Tags            []string  `json:"tags"             yaml:"tags"`
	CreatedAt       time.Time `json:"created_at"       yaml:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"       yaml:"updated_at"`
}

// ListImagesOpts filters ListImages.
type ListImagesOpts struct {
	Limit      int
	Marker     string
	Name       string
	Status     string
	Visibility string
	Tags       []string
}

// ListImages lists images.
func (s *Service) ListImages(ctx context.Context, opts ListImagesOpts) ([]Image, error) {
	values := map[string]interface{}{}
	if opts.Limit > 0 {
		values["limit"] = opts.Limit
	}

	for key, value := range map[string]string{
		"marker":     opts.Marker,
		"name":       opts.Name,
		"status":     opts.Status,
		"visibility": opts.Visibility,
	} {
		if value != "" {
			values[key] = value
		}
	}

	if len(opts.Tags) > 0 {
		values["tags"] = opts.Tags
	}

	resp, err := s.Execute(ctx, listImagesOp, values)
	if err != nil {
		return nil, fmt.Errorf("listing images: %w", err)
	}

	var images []Image

	err = operator.Populate(resp, "images", &images)
	if err != nil {
		return nil, err
	}

	return images, nil
}

// GetImage retrieves an image.
func (s *Service) GetImage(ctx context.Context, id string) (*Image, error) {
	attrs, err := s.getImageAttrs(ctx, id)
	if err != nil {
		return nil, err
	}

	return decodeImage(attrs)
}

// DeleteImage deletes an image.
func (s *Service) DeleteImage(ctx context.Context, id string) error {
	_, err := s.Execute(ctx, deleteImageOp, map[string]interface{}{"id": id})
	if err != nil {
		return fmt.Errorf("deleting image %s: %w", id, err)
	}

	return nil
}

// GetImageSchema fetches the schema image records follow.
func (s *Service) GetImageSchema(ctx context.Context) (*schema.Schema, error) {
	resp, err := s.Execute(ctx, getImageSchemaOp, nil)
	if err != nil {
		return nil, fmt.Errorf("getting image schema: %w", err)
	}

	return schema.New(resp.Body)
}

// UpdateImage changes the image's writable properties to the values given.
// Keys may be property names or their Aliases. A nil value removes the
// property. The values are validated against the image schema before
// anything is sent, and a *schema.ValidationError describes any mismatch.
func (s *Service) UpdateImage(ctx context.Context, id string, values map[string]interface{}) (*Image, error) {
	current, err := s.getImageAttrs(ctx, id)
	if err != nil {
		return nil, err
	}

	imageSchema, err := s.GetImageSchema(ctx)
	if err != nil {
		return nil, err
	}

	src := imageSchema.NormalizeObject(current, Aliases)
	changes := imageSchema.NormalizeObject(values, Aliases)

	des := make(map[string]interface{}, len(src)+len(changes))
	for key, value := range src {
		des[key] = value
	}

	for key, value := range changes {
		if value == nil {
			delete(des, key)

			continue
		}

		des[key] = value
	}

	err = imageSchema.Validate(des)
	if err != nil {
		return nil, err
	}

	patch, err := Diff(src, des)
	if err != nil {
		return nil, err
	}

	if len(patch) == 0 {
		return decodeImage(current)
	}

	doc, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("encoding image patch: %w", err)
	}

	resp, err := s.Execute(ctx, patchImageOp, map[string]interface{}{"id": id, "patchDoc": doc})
	if err != nil {
		return nil, fmt.Errorf("updating image %s: %w", id, err)
	}

	var updated Image

	err = operator.Populate(resp, "", &updated)
	if err != nil {
		return nil, err
	}

	return &updated, nil
}

func (s *Service) getImageAttrs(ctx context.Context, id string) (map[string]interface{}, error) {
	resp, err := s.Execute(ctx, getImageOp, map[string]interface{}{"id": id})
	if err != nil {
		return nil, fmt.Errorf("getting image %s: %w", id, err)
	}

	var attrs map[string]interface{}

	err = operator.Populate(resp, "", &attrs)
	if err != nil {
		return nil, err
	}

	return attrs, nil
}

func decodeImage(attrs map[string]interface{}) (*Image, error) {
	encoded, err := json.Marshal(attrs)
	if err != nil {
		return nil, fmt.Errorf("encoding image: %w", err)
	}

	var image Image

	err = json.Unmarshal(encoded, &image)
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	return &image, nil
}
