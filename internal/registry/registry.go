// Package registry maps service names such as "compute/v2" to the
// constructors the builder uses.
package registry

import (
	"sort"
	"strings"
	"sync"

	"github.com/fivetwenty-io/cloudsdk/internal/operator"
	compute "github.com/fivetwenty-io/cloudsdk/internal/services/compute/v2"
	identity "github.com/fivetwenty-io/cloudsdk/internal/services/identity/v3"
	images "github.com/fivetwenty-io/cloudsdk/internal/services/images/v2"
	networking "github.com/fivetwenty-io/cloudsdk/internal/services/networking/v2"
	"github.com/fivetwenty-io/cloudsdk/pkg/cloud"
)

// Constructor creates a service over an authenticated operator. opts are
// the fully merged options the service was created with.
type Constructor func(op operator.Operator, opts cloud.Options) cloud.Service

// Definition describes one service.
type Definition struct {
	Name        string
	CatalogName string
	CatalogType string
	New         Constructor
}

// Registry is safe for concurrent use.
type Registry struct {
	mutex       sync.RWMutex
	definitions map[string]Definition
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{definitions: make(map[string]Definition)}
}

// Default returns a registry holding every built-in service.
func Default() *Registry {
	r := New()

	r.Register(Definition{Name: identity.Name, CatalogName: identity.CatalogName, CatalogType: identity.CatalogType, New: identity.New})
	r.Register(Definition{Name: compute.Name, CatalogName: compute.CatalogName, CatalogType: compute.CatalogType, New: compute.New})
	r.Register(Definition{Name: images.Name, CatalogName: images.CatalogName, CatalogType: images.CatalogType, New: images.New})
	r.Register(Definition{Name: networking.Name, CatalogName: networking.CatalogName, CatalogType: networking.CatalogType, New: networking.New})

	return r
}

// Register adds or replaces a definition.
func (r *Registry) Register(def Definition) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.definitions[normalize(def.Name)] = def
}

// Lookup finds a definition by name. Names are matched case-insensitively
// and a backslash separator is accepted in place of "/".
func (r *Registry) Lookup(name string) (Definition, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	def, ok := r.definitions[normalize(name)]
	if !ok {
		return Definition{}, &cloud.ResolutionError{Kind: "service", Name: name}
	}

	return def, nil
}

// Names lists the registered names, sorted.
func (r *Registry) Names() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	names := make([]string, 0, len(r.definitions))
	for _, def := range r.definitions {
		names = append(names, def.Name)
	}

	sort.Strings(names)

	return names
}

func normalize(name string) string {
	return strings.ToLower(strings.Trim(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"), "/"))
}
