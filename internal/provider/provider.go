// Package provider defines the adapter contract the search pipeline consumes
// and the registry that plans are resolved against.
package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/wigg/wigg/internal/search/types"
)

// ErrUnknownProvider is returned when a plan names a provider that has no
// registered adapter.
var ErrUnknownProvider = errors.New("unknown provider")

// Adapter is the two-method contract every provider implements. Execute
// performs the provider-specific call for a plan and must surface failures as
// returned errors, never sentinel values, so the execution engine's uniform
// error handling applies. Normalize maps the raw response into the common
// result schema, including inferring the media type where the provider does
// not expose one directly.
type Adapter interface {
	Name() string
	Ready() bool
	Execute(ctx context.Context, plan types.QueryPlan) (any, error)
	Normalize(raw any) ([]types.NormalizedResult, error)
}

// Capability describes one registered adapter for API responses.
type Capability struct {
	Name  string `json:"name"`
	Ready bool   `json:"ready"`
}

// Registry is a provider-name-keyed set of adapters. The planner's provider
// field and the execution engine both key into it.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
	logger   zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		adapters: make(map[string]Adapter),
		logger:   logger.With().Str("component", "provider-registry").Logger(),
	}
}

// Register adds or replaces an adapter under its own name.
func (r *Registry) Register(adapter Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[adapter.Name()] = adapter
	r.logger.Debug().
		Str("provider", adapter.Name()).
		Bool("ready", adapter.Ready()).
		Msg("Registered provider adapter")
}

// Get returns the adapter registered under name.
func (r *Registry) Get(name string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return adapter, nil
}

// Ready reports whether a named adapter exists and is configured. It
// implements the planner's capability view, so plans are never generated for
// providers that would be doomed to fail.
func (r *Registry) Ready(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[name]
	return ok && adapter.Ready()
}

// Capabilities lists registered adapters in name order.
func (r *Registry) Capabilities() []Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()
	caps := make([]Capability, 0, len(r.adapters))
	for name, adapter := range r.adapters {
		caps = append(caps, Capability{Name: name, Ready: adapter.Ready()})
	}
	sort.Slice(caps, func(i, j int) bool { return caps[i].Name < caps[j].Name })
	return caps
}
