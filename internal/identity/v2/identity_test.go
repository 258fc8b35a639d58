package v2_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cloudhttp "github.com/fivetwenty-io/cloudsdk/internal/http"
	v2 "github.com/fivetwenty-io/cloudsdk/internal/identity/v2"
	"github.com/fivetwenty-io/cloudsdk/internal/testutil"
	"github.com/fivetwenty-io/cloudsdk/pkg/cloud"
)

func TestService_Authenticate(t *testing.T) {
	t.Parallel()

	keystone := testutil.NewFakeKeystone(t)
	keystone.AddService("glance", "image", "https://glance.example.com")

	service := v2.New(cloudhttp.NewClient(keystone.V2URL(), nil))

	opts := &cloud.Options{
		Username:    testutil.Username,
		Password:    testutil.Password,
		TenantName:  testutil.Project,
		Region:      "RegionOne",
		URLType:     cloud.URLTypeInternal,
		CatalogType: "image",
	}

	token, url, err := service.Authenticate(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token.ID)
	assert.Equal(t, "https://glance.example.com/internal", url)
	assert.Equal(t, "p-1", token.Project.ID)
	assert.Equal(t, testutil.Username, token.User.Name)
	assert.WithinDuration(t, time.Now().Add(time.Hour), token.ExpiresAt, time.Minute)

	auth := testutil.Dig(keystone.LastRequest(), "auth")
	assert.Equal(t, testutil.Project, auth["tenantName"])
	assert.Equal(t, testutil.Username, testutil.Dig(auth, "passwordCredentials")["username"])
}

func TestService_TokenMethod(t *testing.T) {
	t.Parallel()

	keystone := testutil.NewFakeKeystone(t)
	service := v2.New(cloudhttp.NewClient(keystone.V2URL(), nil))

	first, err := service.GenerateToken(context.Background(), &cloud.Options{Username: testutil.Username, Password: testutil.Password})
	require.NoError(t, err)

	second, err := service.GenerateToken(context.Background(), &cloud.Options{TokenID: first.ID, TenantID: "p-1"})
	require.NoError(t, err)
	assert.Equal(t, "tok-2", second.ID)

	auth := testutil.Dig(keystone.LastRequest(), "auth")
	assert.Equal(t, "p-1", auth["tenantId"])
	assert.Equal(t, first.ID, testutil.Dig(auth, "token")["id"])
}

func TestService_Errors(t *testing.T) {
	t.Parallel()

	keystone := testutil.NewFakeKeystone(t)
	service := v2.New(cloudhttp.NewClient(keystone.V2URL(), nil))

	_, err := service.GenerateToken(context.Background(), &cloud.Options{})
	require.ErrorIs(t, err, cloud.ErrNoCredentials)

	_, err = service.GenerateToken(context.Background(), &cloud.Options{Username: testutil.Username, Password: "nope"})
	require.Error(t, err)
	assert.True(t, cloud.IsUnauthorized(err))
}

func TestInterfaceFromURLType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, cloud.InterfacePublic, v2.InterfaceFromURLType(cloud.URLTypePublic))
	assert.Equal(t, cloud.InterfaceInternal, v2.InterfaceFromURLType(cloud.URLTypeInternal))
	assert.Equal(t, cloud.InterfaceAdmin, v2.InterfaceFromURLType(cloud.URLTypeAdmin))
	assert.Equal(t, cloud.InterfacePublic, v2.InterfaceFromURLType(""))
}
