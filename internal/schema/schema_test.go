package schema_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/cloudsdk/internal/schema"
)

const imageSchema = `{
  "name": "image",
  "type": "object",
  "properties": {
    "id": {"type": "string", "readOnly": true},
    "status": {"type": "string", "readOnly": true, "enum": ["queued", "active"]},
    "name": {"type": ["null", "string"], "maxLength": 255},
    "visibility": {"type": "string", "enum": ["public", "private", "shared", "community"]},
    "min_disk": {"type": "integer", "minimum": 0},
    "protected": {"type": "boolean"},
    "tags": {"type": "array", "items": {"type": "string", "maxLength": 255}},
    "locations": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "url": {"type": "string"},
          "metadata": {"type": "object"}
        }
      }
    },
    "owner_info": {
      "type": "object",
      "properties": {
        "owner": {"type": "string"},
        "contact": {"type": "object", "properties": {"email": {"type": "string"}}}
      }
    }
  }
}`

func mustSchema(t *testing.T) *schema.Schema {
	t.Helper()

	parsed, err := schema.New([]byte(imageSchema))
	require.NoError(t, err)

	return parsed
}

func TestNew(t *testing.T) {
	t.Parallel()

	parsed := mustSchema(t)
	assert.Equal(t, "image", parsed.Name())

	property, ok := parsed.Property("visibility")
	require.True(t, ok)
	assert.Len(t, property.Enum, 4)

	_, ok = parsed.Property("missing")
	assert.False(t, ok)

	_, err := schema.New([]byte(`{"type": `))
	require.Error(t, err)
}

func TestPropertyPaths(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{
		"/id",
		"/locations",
		"/min_disk",
		"/name",
		"/owner_info",
		"/owner_info/contact",
		"/owner_info/contact/email",
		"/owner_info/owner",
		"/protected",
		"/status",
		"/tags",
		"/visibility",
	}, mustSchema(t).PropertyPaths())
}

func TestPropertyExists(t *testing.T) {
	t.Parallel()

	parsed := mustSchema(t)

	assert.True(t, parsed.PropertyExists("/name"))
	assert.True(t, parsed.PropertyExists("/owner_info/contact/email"))
	assert.False(t, parsed.PropertyExists("/owner_info/phone"))
	assert.False(t, parsed.PropertyExists("/nope"))
	assert.False(t, parsed.PropertyExists(""))
	assert.False(t, parsed.PropertyExists("/"))
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestNormalizeObject(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		subject  map[string]interface{}
		aliases  map[string]string
		expected map[string]interface{}
	}{
		{
			name:     "keeps declared writable properties",
			subject:  map[string]interface{}{"name": "cirros", "visibility": "private", "unknown": 1},
			expected: map[string]interface{}{"name": "cirros", "visibility": "private"},
		},
		{
			name:     "drops read-only properties",
			subject:  map[string]interface{}{"id": "abc", "status": "active", "name": "cirros"},
			expected: map[string]interface{}{"name": "cirros"},
		},
		{
			name:     "alias value lands on canonical key",
			subject:  map[string]interface{}{"minDisk": 10, "isProtected": true},
			aliases:  map[string]string{"min_disk": "minDisk", "protected": "isProtected"},
			expected: map[string]interface{}{"min_disk": 10, "protected": true},
		},
		{
			name:     "alias wins over canonical key",
			subject:  map[string]interface{}{"minDisk": 10, "min_disk": 5},
			aliases:  map[string]string{"min_disk": "minDisk"},
			expected: map[string]interface{}{"min_disk": 10},
		},
		{
			name:     "canonical key used when alias missing",
			subject:  map[string]interface{}{"min_disk": 5},
			aliases:  map[string]string{"min_disk": "minDisk"},
			expected: map[string]interface{}{"min_disk": 5},
		},
		{
			name:     "alias to read-only property is ignored",
			subject:  map[string]interface{}{"imageId": "abc"},
			aliases:  map[string]string{"id": "imageId"},
			expected: map[string]interface{}{},
		},
		{
			name:     "explicit null is kept",
			subject:  map[string]interface{}{"name": nil},
			expected: map[string]interface{}{"name": nil},
		},
		{
			name:     "empty subject",
			subject:  map[string]interface{}{},
			expected: map[string]interface{}{},
		},
	}

	parsed := mustSchema(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, parsed.NormalizeObject(tt.subject, tt.aliases))
		})
	}
}

func TestNormalizeObject_DoesNotModifySubject(t *testing.T) {
	t.Parallel()

	subject := map[string]interface{}{"id": "abc", "name": "cirros"}
	_ = mustSchema(t).NormalizeObject(subject, nil)

	assert.Equal(t, map[string]interface{}{"id": "abc", "name": "cirros"}, subject)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	parsed := mustSchema(t)

	require.NoError(t, parsed.Validate(map[string]interface{}{
		"name":       "cirros",
		"visibility": "private",
		"min_disk":   10,
		"tags":       []string{"a", "b"},
	}))

	require.NoError(t, parsed.Validate(map[string]interface{}{"name": nil}))

	err := parsed.Validate(map[string]interface{}{
		"visibility": "everyone",
		"min_disk":   -1,
		"protected":  "yes",
	})
	require.Error(t, err)

	var validationErr *schema.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.GreaterOrEqual(t, len(validationErr.Errors), 3)

	msg := err.Error()
	assert.True(t, strings.HasPrefix(msg, "Provided values do not validate. Errors:\n"))
	assert.Contains(t, msg, "[visibility] ")
	assert.Contains(t, msg, "[min_disk] ")
	assert.Contains(t, msg, "[protected] ")
	assert.Equal(t, msg, validationErr.ErrorString())
}

func TestValidationError_ErrorString(t *testing.T) {
	t.Parallel()

	err := &schema.ValidationError{Errors: []schema.FieldError{
		{Path: "name", Message: "name in body should be at most 255 chars long"},
		{Path: "/", Message: "body must be of type object"},
	}}

	assert.Equal(t,
		"Provided values do not validate. Errors:\n"+
			"[name] name in body should be at most 255 chars long\n"+
			"[/] body must be of type object\n",
		err.ErrorString())
}
