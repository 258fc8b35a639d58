package identity_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cloudhttp "github.com/fivetwenty-io/cloudsdk/internal/http"
	"github.com/fivetwenty-io/cloudsdk/internal/operator"
	identity "github.com/fivetwenty-io/cloudsdk/internal/services/identity/v3"
	"github.com/fivetwenty-io/cloudsdk/internal/testutil"
	"github.com/fivetwenty-io/cloudsdk/pkg/cloud"
)

var credentials = cloud.Options{
	Username:    testutil.Username,
	Password:    testutil.Password,
	DomainName:  testutil.Domain,
	ProjectName: testutil.Project,
}

// newService authenticates against keystone and returns a client holding
// the issued token.
func newService(t *testing.T, keystone *testutil.FakeKeystone) (*identity.Service, *cloud.Token) {
	t.Helper()

	bootstrap, ok := identity.New(operator.New(cloudhttp.NewClient(keystone.V3URL(), nil)), cloud.Options{}).(*identity.Service)
	require.True(t, ok)

	token, err := bootstrap.GenerateToken(context.Background(), credentials)
	require.NoError(t, err)

	client := cloudhttp.NewClient(keystone.V3URL(), testutil.StaticToken(token.ID), cloudhttp.WithRetryConfig(0, 0, 0))

	service, ok := identity.New(operator.New(client), cloud.Options{}).(*identity.Service)
	require.True(t, ok)

	return service, token
}

func TestService_GenerateToken(t *testing.T) {
	t.Parallel()

	keystone := testutil.NewFakeKeystone(t)
	keystone.AddService("nova", "compute", "https://nova.example.com/v2.1")

	service, token := newService(t, keystone)

	assert.Equal(t, "identity/v3", service.Name())
	assert.Equal(t, "tok-1", token.ID)
	assert.True(t, token.Valid())
	require.NotNil(t, token.Catalog)
	assert.Len(t, token.Catalog.Entries, 1)
}

func TestService_ValidateToken(t *testing.T) {
	t.Parallel()

	keystone := testutil.NewFakeKeystone(t)
	service, token := newService(t, keystone)

	validated, err := service.ValidateToken(context.Background(), token.ID)
	require.NoError(t, err)
	assert.Equal(t, token.ID, validated.ID)
	assert.Equal(t, testutil.Project, validated.Project.Name)

	_, err = service.ValidateToken(context.Background(), "bogus")
	require.Error(t, err)
	assert.True(t, cloud.IsNotFound(err))
}

func TestService_RevokeToken(t *testing.T) {
	t.Parallel()

	keystone := testutil.NewFakeKeystone(t)
	service, token := newService(t, keystone)

	other, err := service.GenerateToken(context.Background(), credentials)
	require.NoError(t, err)

	require.NoError(t, service.RevokeToken(context.Background(), other.ID))

	_, err = service.ValidateToken(context.Background(), other.ID)
	assert.True(t, cloud.IsNotFound(err))

	_, err = service.ValidateToken(context.Background(), token.ID)
	assert.NoError(t, err)
}

func TestService_ListProjects(t *testing.T) {
	t.Parallel()

	keystone := testutil.NewFakeKeystone(t)
	service, _ := newService(t, keystone)

	projects, err := service.ListProjects(context.Background())
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, testutil.Project, projects[0].Name)
	assert.True(t, projects[0].Enabled)
}
