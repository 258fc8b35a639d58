package compute_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cloudhttp "github.com/fivetwenty-io/cloudsdk/internal/http"
	"github.com/fivetwenty-io/cloudsdk/internal/operator"
	compute "github.com/fivetwenty-io/cloudsdk/internal/services/compute/v2"
	"github.com/fivetwenty-io/cloudsdk/internal/testutil"
	"github.com/fivetwenty-io/cloudsdk/pkg/cloud"
)

func newService(t *testing.T, handler http.Handler) *compute.Service {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := cloudhttp.NewClient(server.URL+"/v2.1/p-1", testutil.StaticToken("tok-1"), cloudhttp.WithRetryConfig(0, 0, 0))

	service, ok := compute.New(operator.New(client), cloud.Options{}).(*compute.Service)
	require.True(t, ok)

	return service
}

func TestService_Name(t *testing.T) {
	t.Parallel()

	service := newService(t, http.NotFoundHandler())

	assert.Equal(t, "compute/v2", service.Name())
	assert.Contains(t, service.Endpoint(), "/v2.1/p-1")
}

func TestService_ListServers(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v2.1/p-1/servers/detail", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok-1", r.Header.Get("X-Auth-Token"))
		assert.Equal(t, "ACTIVE", r.URL.Query().Get("status"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		assert.False(t, r.URL.Query().Has("name"))

		testutil.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"servers": []map[string]interface{}{
				{
					"id": "srv-1", "name": "web-1", "status": "ACTIVE",
					"image":     map[string]interface{}{"id": "img-1"},
					"addresses": map[string]interface{}{"private": []map[string]interface{}{{"addr": "10.0.0.5", "version": 4}}},
				},
				{"id": "srv-2", "name": "db-1", "status": "ACTIVE", "image": ""},
			},
		})
	})

	servers, err := newService(t, mux).ListServers(context.Background(), compute.ListServersOpts{Status: "ACTIVE", Limit: 10})
	require.NoError(t, err)
	require.Len(t, servers, 2)

	assert.Equal(t, "web-1", servers[0].Name)
	assert.Equal(t, "img-1", servers[0].ImageID())
	assert.Equal(t, "10.0.0.5", servers[0].Addresses["private"][0].Addr)
	assert.Empty(t, servers[1].ImageID())
}

func TestService_GetServer(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v2.1/p-1/servers/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "srv-1" {
			testutil.WriteJSON(w, http.StatusNotFound, map[string]interface{}{
				"itemNotFound": map[string]interface{}{"code": 404, "message": "Instance could not be found."},
			})

			return
		}

		testutil.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"server": map[string]interface{}{"id": "srv-1", "name": "web-1", "metadata": map[string]string{"role": "web"}},
		})
	})

	service := newService(t, mux)

	server, err := service.GetServer(context.Background(), "srv-1")
	require.NoError(t, err)
	assert.Equal(t, "web", server.Metadata["role"])

	_, err = service.GetServer(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, cloud.IsNotFound(err))
}

func TestService_CreateServer(t *testing.T) {
	t.Parallel()

	var received map[string]interface{}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v2.1/p-1/servers", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		testutil.WriteJSON(w, http.StatusAccepted, map[string]interface{}{
			"server": map[string]interface{}{"id": "srv-9", "adminPass": "pw"},
		})
	})

	service := newService(t, mux)

	server, err := service.CreateServer(context.Background(), compute.CreateServerOpts{
		Name:           "web-9",
		ImageID:        "img-1",
		FlavorID:       "1",
		KeyName:        "ops",
		Networks:       []compute.ServerNetwork{{UUID: "net-1", FixedIP: "10.0.0.9"}},
		SecurityGroups: []string{"default"},
	})
	require.NoError(t, err)
	assert.Equal(t, "srv-9", server.ID)
	assert.Equal(t, "pw", server.AdminPass)

	body := testutil.Dig(received, "server")
	require.NotNil(t, body)
	assert.Equal(t, "web-9", body["name"])
	assert.Equal(t, "img-1", body["imageRef"])
	assert.Equal(t, "1", body["flavorRef"])
	assert.Equal(t, "ops", body["key_name"])
	assert.Equal(t, []interface{}{map[string]interface{}{"uuid": "net-1", "fixed_ip": "10.0.0.9"}}, body["networks"])
	assert.Equal(t, []interface{}{map[string]interface{}{"name": "default"}}, body["security_groups"])
	assert.NotContains(t, body, "metadata")
}

func TestService_CreateServer_RequiresFlavor(t *testing.T) {
	t.Parallel()

	service := newService(t, http.NotFoundHandler())

	_, err := service.CreateServer(context.Background(), compute.CreateServerOpts{Name: "web"})
	require.Error(t, err)
	assert.ErrorIs(t, err, operator.ErrRequiredParam)
}

func TestService_CreateServerAsync(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v2.1/p-1/servers", func(w http.ResponseWriter, _ *http.Request) {
		testutil.WriteJSON(w, http.StatusAccepted, map[string]interface{}{"server": map[string]interface{}{"id": "srv-async"}})
	})

	future := newService(t, mux).CreateServerAsync(context.Background(), compute.CreateServerOpts{Name: "a", FlavorID: "1"})

	server, err := future.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "srv-async", server.ID)
}

func TestService_DeleteServer(t *testing.T) {
	t.Parallel()

	deleted := make(chan string, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /v2.1/p-1/servers/{id}", func(w http.ResponseWriter, r *http.Request) {
		deleted <- r.PathValue("id")

		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, newService(t, mux).DeleteServer(context.Background(), "srv-1"))
	assert.Equal(t, "srv-1", <-deleted)
}

func TestService_DeleteServer_EmptyID(t *testing.T) {
	t.Parallel()

	var requests atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusNoContent)
	})

	nova := newService(t, mux)

	err := nova.DeleteServer(context.Background(), "")
	require.ErrorIs(t, err, operator.ErrRequiredParam)

	_, err = nova.GetServer(context.Background(), "")
	require.ErrorIs(t, err, operator.ErrRequiredParam)

	assert.Zero(t, requests.Load())
}

func TestService_ListFlavors(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v2.1/p-1/flavors/detail", func(w http.ResponseWriter, _ *http.Request) {
		testutil.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"flavors": []map[string]interface{}{{"id": "1", "name": "m1.tiny", "ram": 512, "vcpus": 1, "disk": 1}},
		})
	})

	flavors, err := newService(t, mux).ListFlavors(context.Background())
	require.NoError(t, err)
	require.Len(t, flavors, 1)
	assert.Equal(t, 512, flavors[0].RAM)
}
