// Package schema wraps a JSON schema published by a service (for example
// the image API's /v2/schemas/image) and uses it to shape and check request
// bodies before they are sent.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	oaierrors "github.com/go-openapi/errors"
	"github.com/go-openapi/spec"
	"github.com/go-openapi/strfmt"
	"github.com/go-openapi/validate"
)

// Schema is a parsed JSON schema document.
type Schema struct {
	body *spec.Schema
}

// New parses a JSON schema document.
func New(body []byte) (*Schema, error) {
	var parsed spec.Schema

	err := json.Unmarshal(body, &parsed)
	if err != nil {
		return nil, fmt.Errorf("parsing schema: %w", err)
	}

	return &Schema{body: &parsed}, nil
}

// FromSpec wraps an already parsed schema.
func FromSpec(body *spec.Schema) *Schema {
	return &Schema{body: body}
}

// Spec returns the underlying schema.
func (s *Schema) Spec() *spec.Schema {
	return s.body
}

// Name returns the schema's "name" member, if any.
func (s *Schema) Name() string {
	name, _ := s.body.ExtraProps["name"].(string)

	return name
}

// Property returns the declared property with the given name.
func (s *Schema) Property(name string) (*spec.Schema, bool) {
	property, ok := s.body.Properties[name]

	return &property, ok
}

// PropertyPaths lists every declared property as a JSON pointer, nested
// object properties included, sorted.
func (s *Schema) PropertyPaths() []string {
	var paths []string

	collectPaths(s.body, "", &paths)
	sort.Strings(paths)

	return paths
}

func collectPaths(body *spec.Schema, prefix string, paths *[]string) {
	for name, property := range body.Properties {
		path := prefix + "/" + name
		*paths = append(*paths, path)

		collectPaths(&property, path, paths)
	}
}

// PropertyExists reports whether a JSON pointer names a declared property.
func (s *Schema) PropertyExists(path string) bool {
	current := s.body

	for _, segment := range strings.Split(strings.TrimPrefix(path, "/"), "/") {
		property, ok := current.Properties[segment]
		if !ok {
			return false
		}

		current = &property
	}

	return true
}

// NormalizeObject returns a new object holding only the declared,
// non-read-only properties of the schema. For each property the value is
// read from its alias in aliases when the subject has that key, and from
// the property's own name otherwise. subject is not modified.
func (s *Schema) NormalizeObject(subject map[string]interface{}, aliases map[string]string) map[string]interface{} {
	out := make(map[string]interface{})

	for name, property := range s.body.Properties {
		if property.ReadOnly {
			continue
		}

		key := name
		if alias, ok := aliases[name]; ok {
			key = alias
		}

		if value, ok := subject[key]; ok {
			out[name] = value
		} else if value, ok := subject[name]; ok {
			out[name] = value
		}
	}

	return out
}

// Validate checks data against the schema. Any failure is returned as a
// *ValidationError.
func (s *Schema) Validate(data interface{}) error {
	normalized, err := toJSONValue(data)
	if err != nil {
		return err
	}

	err = validate.AgainstSchema(s.body, normalized, strfmt.Default)
	if err == nil {
		return nil
	}

	validationErr := &ValidationError{}
	flatten(err, &validationErr.Errors)

	return validationErr
}

// toJSONValue converts Go values into the shapes encoding/json produces,
// so integers and structs validate the same way decoded JSON does.
func toJSONValue(data interface{}) (interface{}, error) {
	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encoding value for validation: %w", err)
	}

	var decoded interface{}

	err = json.Unmarshal(encoded, &decoded)
	if err != nil {
		return nil, fmt.Errorf("decoding value for validation: %w", err)
	}

	return decoded, nil
}

// FieldError is a single validation failure.
type FieldError struct {
	Path    string
	Message string
}

// ValidationError lists every way a value failed to match the schema.
type ValidationError struct {
	Errors []FieldError
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return e.ErrorString()
}

// ErrorString formats the failures one per line after a fixed header.
func (e *ValidationError) ErrorString() string {
	var buf strings.Builder

	buf.WriteString("Provided values do not validate. Errors:\n")

	for _, fieldErr := range e.Errors {
		fmt.Fprintf(&buf, "[%s] %s\n", fieldErr.Path, fieldErr.Message)
	}

	return buf.String()
}

func flatten(err error, out *[]FieldError) {
	var composite *oaierrors.CompositeError
	if errors.As(err, &composite) && len(composite.Errors) > 0 {
		for _, inner := range composite.Errors {
			flatten(inner, out)
		}

		return
	}

	var validation *oaierrors.Validation
	if errors.As(err, &validation) {
		*out = append(*out, FieldError{Path: fieldPath(validation.Name), Message: validation.Error()})

		return
	}

	*out = append(*out, FieldError{Path: "/", Message: err.Error()})
}

func fieldPath(name string) string {
	name = strings.TrimPrefix(name, ".")
	if name == "" {
		return "/"
	}

	return name
}
