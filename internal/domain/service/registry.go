package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/superide/super-ide/backend/internal/shared/types"
)

// Provider is the interface service implementations expose to the
// registry.
type Provider interface {
	Definition() types.Service
	Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error)
}

// Registry manages service discovery and execution
type Registry struct {
	services sync.Map
}

// NewRegistry creates a new service registry
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a service provider
func (r *Registry) Register(provider Provider) error {
	def := provider.Definition()
	if def.ID == "" {
		return fmt.Errorf("service ID cannot be empty")
	}

	r.services.Store(def.ID, provider)
	return nil
}

// Unregister removes a service provider
func (r *Registry) Unregister(serviceID string) {
	r.services.Delete(serviceID)
}

// Get retrieves a service by ID
func (r *Registry) Get(serviceID string) (Provider, bool) {
	val, ok := r.services.Load(serviceID)
	if !ok {
		return nil, false
	}
	return val.(Provider), true
}

// List returns all registered services, ordered by ID for stable output.
func (r *Registry) List() []types.Service {
	var services []types.Service
	r.services.Range(func(_, value interface{}) bool {
		services = append(services, value.(Provider).Definition())
		return true
	})
	sort.Slice(services, func(i, j int) bool {
		return services[i].ID < services[j].ID
	})
	return services
}

// ExecuteTool routes a tool invocation to the provider owning it. Tool
// ids are "<service>.<operation>".
func (r *Registry) ExecuteTool(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	serviceID := toolID
	for i, c := range toolID {
		if c == '.' {
			serviceID = toolID[:i]
			break
		}
	}

	provider, ok := r.Get(serviceID)
	if !ok {
		return nil, fmt.Errorf("unknown service: %s", serviceID)
	}
	return provider.Execute(ctx, toolID, params, appCtx)
}
