package networking_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cloudhttp "github.com/fivetwenty-io/cloudsdk/internal/http"
	"github.com/fivetwenty-io/cloudsdk/internal/operator"
	networking "github.com/fivetwenty-io/cloudsdk/internal/services/networking/v2"
	"github.com/fivetwenty-io/cloudsdk/internal/testutil"
	"github.com/fivetwenty-io/cloudsdk/pkg/cloud"
)

func newService(t *testing.T, handler http.Handler) *networking.Service {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := cloudhttp.NewClient(server.URL, testutil.StaticToken("tok-1"), cloudhttp.WithRetryConfig(0, 0, 0))

	service, ok := networking.New(operator.New(client), cloud.Options{}).(*networking.Service)
	require.True(t, ok)

	return service
}

func TestService_ListNetworks(t *testing.T) {
	t.Parallel()

	shared := false

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v2.0/networks", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "false", r.URL.Query().Get("shared"))
		assert.Equal(t, "private", r.URL.Query().Get("name"))

		testutil.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"networks": []map[string]interface{}{
				{"id": "net-1", "name": "private", "status": "ACTIVE", "admin_state_up": true, "subnets": []string{"sub-1"}},
			},
		})
	})

	networks, err := newService(t, mux).ListNetworks(context.Background(), networking.ListNetworksOpts{Name: "private", Shared: &shared})
	require.NoError(t, err)
	require.Len(t, networks, 1)
	assert.True(t, networks[0].AdminStateUp)
	assert.Equal(t, []string{"sub-1"}, networks[0].Subnets)
}

func TestService_GetNetwork(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v2.0/networks/{id}", func(w http.ResponseWriter, r *http.Request) {
		testutil.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"network": map[string]interface{}{"id": r.PathValue("id"), "name": "private"},
		})
	})

	network, err := newService(t, mux).GetNetwork(context.Background(), "net-7")
	require.NoError(t, err)
	assert.Equal(t, "net-7", network.ID)
}

func TestService_CreateNetwork(t *testing.T) {
	t.Parallel()

	var received map[string]interface{}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v2.0/networks", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		testutil.WriteJSON(w, http.StatusCreated, map[string]interface{}{
			"network": map[string]interface{}{"id": "net-2", "name": "backend", "admin_state_up": false},
		})
	})

	adminStateUp := false

	network, err := newService(t, mux).CreateNetwork(context.Background(), networking.CreateNetworkOpts{
		Name:         "backend",
		AdminStateUp: &adminStateUp,
	})
	require.NoError(t, err)
	assert.Equal(t, "net-2", network.ID)

	assert.Equal(t, map[string]interface{}{
		"network": map[string]interface{}{"name": "backend", "admin_state_up": false},
	}, received)
}

func TestService_DeleteNetwork(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /v2.0/networks/{id}", func(w http.ResponseWriter, _ *http.Request) {
		testutil.WriteJSON(w, http.StatusConflict, map[string]interface{}{
			"NeutronError": map[string]interface{}{"type": "NetworkInUse", "message": "Unable to complete operation on network."},
		})
	})

	err := newService(t, mux).DeleteNetwork(context.Background(), "net-1")
	require.Error(t, err)

	var badResponse *cloud.BadResponseError
	require.ErrorAs(t, err, &badResponse)
	assert.Equal(t, http.StatusConflict, badResponse.StatusCode)
}
