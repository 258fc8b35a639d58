// Package testutil provides fake identity and service servers for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/fivetwenty-io/cloudsdk/pkg/cloud"
)

// Credentials accepted by FakeKeystone.
const (
	Username = "demo"
	Password = "secret"
	Domain   = "Default"
	Project  = "demo-project"
)

// FakeKeystone serves the v3 and v2.0 token APIs from memory.
type FakeKeystone struct {
	Server *httptest.Server

	mutex    sync.Mutex
	catalog  []cloud.CatalogEntry
	valid    map[string]bool
	issued   int
	requests []map[string]interface{}
	lifetime time.Duration
	omitExp  bool
}

// NewFakeKeystone starts a server that is closed with the test.
func NewFakeKeystone(t *testing.T, catalog ...cloud.CatalogEntry) *FakeKeystone {
	t.Helper()

	keystone := &FakeKeystone{
		catalog:  catalog,
		valid:    make(map[string]bool),
		lifetime: time.Hour,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v3/auth/tokens", keystone.issueV3)
	mux.HandleFunc("GET /v3/auth/tokens", keystone.validateV3)
	mux.HandleFunc("DELETE /v3/auth/tokens", keystone.revokeV3)
	mux.HandleFunc("GET /v3/auth/projects", keystone.projectsV3)
	mux.HandleFunc("POST /v2.0/tokens", keystone.issueV2)

	keystone.Server = httptest.NewServer(mux)
	t.Cleanup(keystone.Server.Close)

	return keystone
}

// V3URL is the auth URL for the v3 API.
func (k *FakeKeystone) V3URL() string {
	return k.Server.URL + "/v3"
}

// V2URL is the auth URL for the v2.0 API.
func (k *FakeKeystone) V2URL() string {
	return k.Server.URL + "/v2.0"
}

// AddService adds a catalog entry with a single public and internal
// endpoint in RegionOne.
func (k *FakeKeystone) AddService(name, serviceType, url string) {
	k.mutex.Lock()
	defer k.mutex.Unlock()

	k.catalog = append(k.catalog, cloud.CatalogEntry{
		ID:   fmt.Sprintf("svc-%d", len(k.catalog)+1),
		Name: name,
		Type: serviceType,
		Endpoints: []cloud.Endpoint{
			{Interface: cloud.InterfacePublic, Region: "RegionOne", URL: url},
			{Interface: cloud.InterfaceInternal, Region: "RegionOne", URL: url + "/internal"},
		},
	})
}

// SetLifetime changes the lifetime of tokens issued from now on.
func (k *FakeKeystone) SetLifetime(lifetime time.Duration) {
	k.mutex.Lock()
	defer k.mutex.Unlock()

	k.lifetime = lifetime
}

// OmitExpiry makes responses leave out expires_at.
func (k *FakeKeystone) OmitExpiry() {
	k.mutex.Lock()
	defer k.mutex.Unlock()

	k.omitExp = true
}

// Issued returns the number of tokens issued so far.
func (k *FakeKeystone) Issued() int {
	k.mutex.Lock()
	defer k.mutex.Unlock()

	return k.issued
}

// LastRequest returns the last decoded authentication body.
func (k *FakeKeystone) LastRequest() map[string]interface{} {
	k.mutex.Lock()
	defer k.mutex.Unlock()

	if len(k.requests) == 0 {
		return nil
	}

	return k.requests[len(k.requests)-1]
}

// Revoke invalidates a token so later requests carrying it get 401.
func (k *FakeKeystone) Revoke(token string) {
	k.mutex.Lock()
	defer k.mutex.Unlock()

	delete(k.valid, token)
}

// RevokeAll invalidates every token issued so far.
func (k *FakeKeystone) RevokeAll() {
	k.mutex.Lock()
	defer k.mutex.Unlock()

	k.valid = make(map[string]bool)
}

// Authorized reports whether r carries a valid X-Auth-Token.
func (k *FakeKeystone) Authorized(r *http.Request) bool {
	k.mutex.Lock()
	defer k.mutex.Unlock()

	return k.valid[r.Header.Get(cloud.AuthTokenHeader)]
}

// Protect wraps handler so requests without a valid token get 401.
func (k *FakeKeystone) Protect(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !k.Authorized(r) {
			WriteJSON(w, http.StatusUnauthorized, map[string]interface{}{
				"error": map[string]interface{}{
					"code":    http.StatusUnauthorized,
					"message": "The request you have made requires authentication.",
					"title":   "Unauthorized",
				},
			})

			return
		}

		handler.ServeHTTP(w, r)
	})
}

func (k *FakeKeystone) record(r *http.Request) (map[string]interface{}, bool) {
	var body map[string]interface{}

	err := json.NewDecoder(r.Body).Decode(&body)
	if err != nil {
		return nil, false
	}

	k.mutex.Lock()
	k.requests = append(k.requests, body)
	k.mutex.Unlock()

	return body, true
}

func (k *FakeKeystone) issue() (string, time.Time, []cloud.CatalogEntry, bool) {
	k.mutex.Lock()
	defer k.mutex.Unlock()

	k.issued++
	id := fmt.Sprintf("tok-%d", k.issued)
	k.valid[id] = true

	return id, time.Now().Add(k.lifetime).UTC(), k.catalog, k.omitExp
}

func (k *FakeKeystone) issueV3(w http.ResponseWriter, r *http.Request) {
	body, ok := k.record(r)
	if !ok || !acceptV3(body, k) {
		WriteJSON(w, http.StatusUnauthorized, map[string]interface{}{
			"error": map[string]interface{}{"code": 401, "message": "Invalid credentials", "title": "Unauthorized"},
		})

		return
	}

	id, expires, catalog, omitExp := k.issue()

	w.Header().Set("X-Subject-Token", id)
	WriteJSON(w, http.StatusCreated, map[string]interface{}{"token": v3Token(expires, catalog, omitExp)})
}

func (k *FakeKeystone) validateV3(w http.ResponseWriter, r *http.Request) {
	if !k.Authorized(r) {
		w.WriteHeader(http.StatusUnauthorized)

		return
	}

	subject := r.Header.Get("X-Subject-Token")

	k.mutex.Lock()
	valid := k.valid[subject]
	catalog := k.catalog
	lifetime := k.lifetime
	k.mutex.Unlock()

	if !valid {
		WriteJSON(w, http.StatusNotFound, map[string]interface{}{
			"error": map[string]interface{}{"code": 404, "message": "Could not find token: " + subject, "title": "Not Found"},
		})

		return
	}

	w.Header().Set("X-Subject-Token", subject)
	WriteJSON(w, http.StatusOK, map[string]interface{}{"token": v3Token(time.Now().Add(lifetime).UTC(), catalog, false)})
}

func (k *FakeKeystone) revokeV3(w http.ResponseWriter, r *http.Request) {
	if !k.Authorized(r) {
		w.WriteHeader(http.StatusUnauthorized)

		return
	}

	k.Revoke(r.Header.Get("X-Subject-Token"))
	w.WriteHeader(http.StatusNoContent)
}

func (k *FakeKeystone) projectsV3(w http.ResponseWriter, r *http.Request) {
	if !k.Authorized(r) {
		w.WriteHeader(http.StatusUnauthorized)

		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"projects": []map[string]interface{}{
			{"id": "p-1", "name": Project, "domain_id": "default", "enabled": true},
			{"id": "p-2", "name": "admin", "domain_id": "default", "enabled": true},
		},
	})
}

func (k *FakeKeystone) issueV2(w http.ResponseWriter, r *http.Request) {
	body, ok := k.record(r)
	if !ok || !acceptV2(body, k) {
		WriteJSON(w, http.StatusUnauthorized, map[string]interface{}{
			"error": map[string]interface{}{"code": 401, "message": "Invalid user / password", "title": "Unauthorized"},
		})

		return
	}

	id, expires, catalog, omitExp := k.issue()

	serviceCatalog := make([]map[string]interface{}, 0, len(catalog))
	for _, entry := range catalog {
		endpoint := map[string]interface{}{"region": "RegionOne"}

		for _, ep := range entry.Endpoints {
			endpoint[ep.Interface+"URL"] = ep.URL
		}

		serviceCatalog = append(serviceCatalog, map[string]interface{}{
			"name":      entry.Name,
			"type":      entry.Type,
			"endpoints": []map[string]interface{}{endpoint},
		})
	}

	token := map[string]interface{}{
		"id":        id,
		"issued_at": time.Now().UTC().Format("2006-01-02T15:04:05.000000"),
		"tenant":    map[string]interface{}{"id": "p-1", "name": Project},
	}
	if !omitExp {
		token["expires"] = expires.Format(time.RFC3339)
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"access": map[string]interface{}{
			"token":          token,
			"user":           map[string]interface{}{"id": "u-1", "name": Username},
			"serviceCatalog": serviceCatalog,
		},
	})
}

func v3Token(expires time.Time, catalog []cloud.CatalogEntry, omitExp bool) map[string]interface{} {
	token := map[string]interface{}{
		"issued_at": time.Now().UTC().Format(time.RFC3339Nano),
		"methods":   []string{"password"},
		"user": map[string]interface{}{
			"id": "u-1", "name": Username,
			"domain": map[string]interface{}{"id": "default", "name": Domain},
		},
		"project": map[string]interface{}{
			"id": "p-1", "name": Project,
			"domain": map[string]interface{}{"id": "default", "name": Domain},
		},
		"catalog": catalog,
	}
	if !omitExp {
		token["expires_at"] = expires.Format(time.RFC3339Nano)
	}

	return token
}

func acceptV3(body map[string]interface{}, k *FakeKeystone) bool {
	identity := dig(body, "auth", "identity")
	if identity == nil {
		return false
	}

	if user := dig(identity, "password", "user"); user != nil {
		name, _ := user["name"].(string)
		id, _ := user["id"].(string)
		password, _ := user["password"].(string)

		return (name == Username || id == "u-1") && password == Password
	}

	if token := dig(identity, "token"); token != nil {
		id, _ := token["id"].(string)

		k.mutex.Lock()
		defer k.mutex.Unlock()

		return k.valid[id]
	}

	return false
}

func acceptV2(body map[string]interface{}, k *FakeKeystone) bool {
	if creds := dig(body, "auth", "passwordCredentials"); creds != nil {
		name, _ := creds["username"].(string)
		password, _ := creds["password"].(string)

		return name == Username && password == Password
	}

	if token := dig(body, "auth", "token"); token != nil {
		id, _ := token["id"].(string)

		k.mutex.Lock()
		defer k.mutex.Unlock()

		return k.valid[id]
	}

	return false
}

// Dig walks nested JSON objects by key.
func Dig(value map[string]interface{}, keys ...string) map[string]interface{} {
	return dig(value, keys...)
}

func dig(value map[string]interface{}, keys ...string) map[string]interface{} {
	current := value

	for _, key := range keys {
		next, ok := current[key].(map[string]interface{})
		if !ok {
			return nil
		}

		current = next
	}

	return current
}

// WriteJSON writes body with status.
func WriteJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
