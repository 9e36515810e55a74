package providers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"modelrouter/internal/core"
)

// CallHook observes every completed provider call.
type CallHook interface {
	ObserveCall(provider, model string, duration time.Duration, err error)
}

// Router dispatches calls to the adapter named by the descriptor's route.
type Router struct {
	registry *Registry
	hooks    []CallHook
}

// NewRouter creates a router over registry. Returns an error if the registry is nil.
func NewRouter(registry *Registry, hooks ...CallHook) (*Router, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry cannot be nil")
	}
	return &Router{registry: registry, hooks: hooks}, nil
}

// Supports reports whether an adapter is registered for the descriptor's route.
func (r *Router) Supports(model *core.ModelDescriptor) bool {
	_, ok := r.registry.Get(model.Route)
	return ok
}

// Call executes input against the model's adapter. Unknown routes are configuration errors.
func (r *Router) Call(ctx context.Context, model *core.ModelDescriptor, input *core.CallInput) (*core.CallResult, error) {
	adapter, ok := r.registry.Get(model.Route)
	if !ok {
		err := core.NewConfigurationError(model.Provider, fmt.Sprintf("no adapter for route %q", model.Route))
		err.Model = model.ID
		return nil, err
	}

	start := time.Now()
	result, err := adapter.Call(ctx, model, input)
	elapsed := time.Since(start)

	for _, h := range r.hooks {
		h.ObserveCall(model.Provider, model.ID, elapsed, err)
	}

	if err != nil {
		slog.Warn("provider call failed",
			"provider", model.Provider,
			"route", model.Route,
			"model", model.ID,
			"duration", elapsed,
			"error", err,
		)
		return nil, err
	}
	slog.Debug("provider call succeeded",
		"provider", model.Provider,
		"model", model.ID,
		"duration", elapsed,
		"status", result.StatusCode,
	)
	return result, nil
}
