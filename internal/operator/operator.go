// Package operator turns declarative operation definitions into HTTP
// requests. Service clients embed an Operator and describe each API call as
// an Operation.
package operator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"

	cloudhttp "github.com/fivetwenty-io/cloudsdk/internal/http"
	"github.com/fivetwenty-io/cloudsdk/pkg/cloud"
)

// Static errors for operation input checks.
var (
	ErrRequiredParam = errors.New("is a required option, but it was not provided")
	ErrUnknownParam  = errors.New("is not a permitted option")
	ErrMissingKey    = errors.New("response has no such key")
)

// Location says where a parameter is sent.
type Location string

// Parameter locations.
const (
	LocationURL    Location = "url"
	LocationQuery  Location = "query"
	LocationHeader Location = "header"
	LocationJSON   Location = "json"
	LocationRaw    Location = "raw"
)

// Parameter types.
const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeObject  = "object"
	TypeArray   = "array"
)

// Param describes one input of an Operation.
type Param struct {
	Location Location
	// SentAs is the wire name; the parameter name is used when empty.
	SentAs   string
	Required bool
	// Type is one of the Type constants; empty accepts anything.
	Type string
	// Items describes array elements.
	Items *Param
	// Properties describes object members.
	Properties map[string]Param
}

func (p Param) wireName(name string) string {
	if p.SentAs != "" {
		return p.SentAs
	}

	return name
}

// Operation is a single API call. Path may contain {name} placeholders that
// are filled from url parameters.
type Operation struct {
	Method string
	Path   string
	Params map[string]Param
	// JSONKey wraps all json parameters in an object under this key.
	JSONKey string
	// ContentType overrides application/json.
	ContentType string
}

// Operator executes operations over an HTTP client.
type Operator struct {
	client *cloudhttp.Client
}

// New creates an Operator.
func New(client *cloudhttp.Client) Operator {
	return Operator{client: client}
}

// Client returns the underlying HTTP client.
func (o Operator) Client() *cloudhttp.Client {
	return o.client
}

// Endpoint returns the base URL requests are sent to.
func (o Operator) Endpoint() string {
	return o.client.BaseURL()
}

// Execute checks values against op, serializes them and sends the request.
func (o Operator) Execute(ctx context.Context, op Operation, values map[string]interface{}) (*cloudhttp.Response, error) {
	req, err := Build(op, values)
	if err != nil {
		return nil, err
	}

	return o.client.Do(ctx, req)
}

// ExecuteAsync runs Execute in the background.
func (o Operator) ExecuteAsync(ctx context.Context, op Operation, values map[string]interface{}) *cloud.Future[*cloudhttp.Response] {
	return cloud.Go(func() (*cloudhttp.Response, error) {
		return o.Execute(ctx, op, values)
	})
}

// Build validates values and produces the request for op without sending
// it.
func Build(op Operation, values map[string]interface{}) (*cloudhttp.Request, error) {
	err := validate(op, values)
	if err != nil {
		return nil, err
	}

	req := &cloudhttp.Request{
		Method:      op.Method,
		Path:        op.Path,
		Query:       url.Values{},
		Headers:     map[string]string{},
		ContentType: op.ContentType,
	}

	body := map[string]interface{}{}
	hasJSON := false

	for _, name := range sortedNames(op.Params) {
		param := op.Params[name]
		wire := param.wireName(name)

		value, ok := values[name]
		if !ok {
			continue
		}

		switch param.Location {
		case LocationURL:
			req.Path = strings.ReplaceAll(req.Path, "{"+name+"}", url.PathEscape(stringify(value)))
		case LocationQuery:
			addQuery(req.Query, wire, value)
		case LocationHeader:
			req.Headers[wire] = stringify(value)
		case LocationRaw:
			req.Body = rawBody(value)
		case LocationJSON:
			body[wire] = serialize(param, value)
			hasJSON = true
		}
	}

	if hasJSON {
		if op.JSONKey != "" {
			req.Body = map[string]interface{}{op.JSONKey: body}
		} else {
			req.Body = body
		}
	}

	return req, nil
}

func validate(op Operation, values map[string]interface{}) error {
	for name := range values {
		if _, ok := op.Params[name]; !ok {
			return fmt.Errorf("%q %w for %s %s", name, ErrUnknownParam, op.Method, op.Path)
		}
	}

	for _, name := range sortedNames(op.Params) {
		param := op.Params[name]

		value, ok := values[name]
		if !ok {
			if param.Required || param.Location == LocationURL {
				return fmt.Errorf("%q %w", name, ErrRequiredParam)
			}

			continue
		}

		// An empty path segment would address the collection instead.
		if param.Location == LocationURL && (value == nil || stringify(value) == "") {
			return fmt.Errorf("%q %w", name, ErrRequiredParam)
		}

		err := checkType(name, param, value)
		if err != nil {
			return err
		}
	}

	return nil
}

func checkType(name string, param Param, value interface{}) error {
	if param.Type == "" || value == nil {
		return nil
	}

	if !matchesType(param.Type, value) {
		return &cloud.UserInputError{Param: name, Expected: param.Type, Received: value}
	}

	rv := reflect.ValueOf(value)

	switch param.Type {
	case TypeArray:
		if param.Items == nil {
			return nil
		}

		for i := range rv.Len() {
			err := checkType(fmt.Sprintf("%s[%d]", name, i), *param.Items, rv.Index(i).Interface())
			if err != nil {
				return err
			}
		}

	case TypeObject:
		object, ok := value.(map[string]interface{})
		if !ok {
			return nil
		}

		for key, member := range object {
			property, declared := param.Properties[key]
			if !declared {
				continue
			}

			err := checkType(name+"."+key, property, member)
			if err != nil {
				return err
			}
		}
	}

	return nil
}

func matchesType(expected string, value interface{}) bool {
	rv := reflect.ValueOf(value)

	switch expected {
	case TypeString:
		return rv.Kind() == reflect.String
	case TypeBoolean:
		return rv.Kind() == reflect.Bool
	case TypeInteger:
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return true
		case reflect.Float32, reflect.Float64:
			return rv.Float() == float64(int64(rv.Float()))
		default:
			return false
		}
	case TypeNumber:
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64:
			return true
		default:
			return false
		}
	case TypeArray:
		return rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array
	case TypeObject:
		return rv.Kind() == reflect.Map || rv.Kind() == reflect.Struct ||
			(rv.Kind() == reflect.Ptr && rv.Elem().Kind() == reflect.Struct)
	default:
		return true
	}
}

// serialize renames nested object members and array elements to their wire
// names.
func serialize(param Param, value interface{}) interface{} {
	switch param.Type {
	case TypeObject:
		object, ok := value.(map[string]interface{})
		if !ok || len(param.Properties) == 0 {
			return value
		}

		out := make(map[string]interface{}, len(object))

		for key, member := range object {
			property, declared := param.Properties[key]
			if !declared {
				out[key] = member

				continue
			}

			out[property.wireName(key)] = serialize(property, member)
		}

		return out

	case TypeArray:
		if param.Items == nil {
			return value
		}

		rv := reflect.ValueOf(value)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return value
		}

		out := make([]interface{}, rv.Len())
		for i := range rv.Len() {
			out[i] = serialize(*param.Items, rv.Index(i).Interface())
		}

		return out

	default:
		return value
	}
}

func addQuery(query url.Values, key string, value interface{}) {
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
		for i := range rv.Len() {
			query.Add(key, stringify(rv.Index(i).Interface()))
		}

		return
	}

	query.Set(key, stringify(value))
}

func stringify(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

func rawBody(value interface{}) interface{} {
	if v, ok := value.(string); ok {
		return []byte(v)
	}

	return value
}

func sortedNames(params map[string]Param) []string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Populate decodes the response body into target. When jsonKey is set only
// that member of the top-level object is decoded, e.g. "server" for
// {"server": {...}}.
func Populate(resp *cloudhttp.Response, jsonKey string, target interface{}) error {
	if jsonKey == "" {
		return resp.Decode(target)
	}

	var envelope map[string]json.RawMessage

	err := resp.Decode(&envelope)
	if err != nil {
		return err
	}

	raw, ok := envelope[jsonKey]
	if !ok {
		return fmt.Errorf("%w: %q", ErrMissingKey, jsonKey)
	}

	err = json.Unmarshal(raw, target)
	if err != nil {
		return fmt.Errorf("failed to decode %q: %w", jsonKey, err)
	}

	return nil
}
