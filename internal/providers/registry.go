// Package providers holds the adapter registry and the pieces every adapter shares:
// credential lookup, input normalization and response text extraction.
package providers

import (
	"fmt"
	"net/http"
	"sort"
	"sync"

	"modelrouter/internal/core"
)

// Options carries what an adapter constructor needs.
type Options struct {
	HTTPClient  *http.Client
	Credentials Credentials
	// BaseURL overrides the adapter's default endpoint when set
	BaseURL string
}

// BaseURLOr returns the explicit override, the environment override, or fallback.
func (o Options) BaseURLOr(provider, fallback string) string {
	if o.BaseURL != "" {
		return o.BaseURL
	}
	return o.Credentials.BaseURL(provider, fallback)
}

// Registration pairs a route name with its adapter constructor.
type Registration struct {
	Route string
	New   func(opts Options) core.Adapter
}

// Registry maps route names to adapters. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]core.Adapter
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]core.Adapter)}
}

// Register adds an adapter under its Name. A later registration for the same route replaces the earlier one.
func (r *Registry) Register(adapter core.Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[adapter.Name()] = adapter
}

// RegisterAll constructs and registers every registration with the same options.
func (r *Registry) RegisterAll(opts Options, regs ...Registration) {
	for _, reg := range regs {
		adapter := reg.New(opts)
		if adapter.Name() != reg.Route {
			panic(fmt.Sprintf("providers: registration %q built adapter named %q", reg.Route, adapter.Name()))
		}
		r.Register(adapter)
	}
}

// Get returns the adapter for route.
func (r *Registry) Get(route string) (core.Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[route]
	return a, ok
}

// Routes returns the registered route names in sorted order.
func (r *Registry) Routes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	routes := make([]string, 0, len(r.adapters))
	for route := range r.adapters {
		routes = append(routes, route)
	}
	sort.Strings(routes)
	return routes
}
