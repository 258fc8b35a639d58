package cloud_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/cloudsdk/pkg/cloud"
)

func TestToken_Valid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		token    *cloud.Token
		expected bool
	}{
		{name: "nil token", token: nil, expected: false},
		{name: "empty id", token: &cloud.Token{}, expected: false},
		{name: "valid token without expiry", token: &cloud.Token{ID: "tok"}, expected: true},
		{
			name:     "valid token with future expiry",
			token:    &cloud.Token{ID: "tok", ExpiresAt: time.Now().Add(time.Hour)},
			expected: true,
		},
		{
			name:     "expired token",
			token:    &cloud.Token{ID: "tok", ExpiresAt: time.Now().Add(-time.Hour)},
			expected: false,
		},
		{
			name:     "token expiring within buffer",
			token:    &cloud.Token{ID: "tok", ExpiresAt: time.Now().Add(15 * time.Second)},
			expected: false,
		},
		{
			name:     "token expiring just outside buffer",
			token:    &cloud.Token{ID: "tok", ExpiresAt: time.Now().Add(35 * time.Second)},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.token.Valid())
		})
	}
}

func TestToken_HasExpired(t *testing.T) {
	t.Parallel()

	var nilToken *cloud.Token

	assert.True(t, nilToken.HasExpired())
	assert.False(t, (&cloud.Token{ID: "tok"}).HasExpired())
	assert.True(t, (&cloud.Token{ID: "tok", ExpiresAt: time.Now().Add(-time.Second)}).HasExpired())
	// Inside the buffer is not yet expired, only unusable.
	assert.False(t, (&cloud.Token{ID: "tok", ExpiresAt: time.Now().Add(10 * time.Second)}).HasExpired())
}

func testCatalog() *cloud.Catalog {
	return &cloud.Catalog{
		Entries: []cloud.CatalogEntry{
			{
				Name: "nova",
				Type: "compute",
				Endpoints: []cloud.Endpoint{
					{Interface: "public", Region: "RegionOne", URL: "https://nova.one.example.com/v2.1/"},
					{Interface: "internal", Region: "RegionOne", URL: "http://nova.internal:8774/v2.1"},
					{Interface: "public", Region: "RegionTwo", URL: "https://nova.two.example.com/v2.1"},
				},
			},
			{
				Name: "glance",
				Type: "image",
				Endpoints: []cloud.Endpoint{
					{Interface: "public", URL: "https://glance.example.com"},
				},
			},
		},
	}
}

func TestCatalog_ServiceURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		serviceName string
		serviceType string
		region      string
		iface       string
		expected    string
	}{
		{"public endpoint trimmed", "nova", "compute", "RegionOne", "public", "https://nova.one.example.com/v2.1"},
		{"interface defaults to public", "nova", "compute", "RegionTwo", "", "https://nova.two.example.com/v2.1"},
		{"internal interface", "nova", "compute", "RegionOne", "internal", "http://nova.internal:8774/v2.1"},
		{"empty name matches by type", "", "compute", "RegionTwo", "public", "https://nova.two.example.com/v2.1"},
		{"regionless endpoint matches any region", "glance", "image", "RegionOne", "public", "https://glance.example.com"},
		{"empty region matches first", "nova", "compute", "", "public", "https://nova.one.example.com/v2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			url, err := testCatalog().ServiceURL(tt.serviceName, tt.serviceType, tt.region, tt.iface)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, url)
		})
	}
}

func TestCatalog_ServiceURLNotFound(t *testing.T) {
	t.Parallel()

	_, err := testCatalog().ServiceURL("neutron", "network", "RegionOne", "public")
	require.ErrorIs(t, err, cloud.ErrEndpointNotFound)
	assert.Contains(t, err.Error(), "type [network] name [neutron] region [RegionOne] interface [public]")

	_, err = testCatalog().ServiceURL("nova", "compute", "RegionThree", "public")
	require.ErrorIs(t, err, cloud.ErrEndpointNotFound)

	var empty *cloud.Catalog

	_, err = empty.ServiceURL("nova", "compute", "", "")
	require.ErrorIs(t, err, cloud.ErrEndpointNotFound)
}
