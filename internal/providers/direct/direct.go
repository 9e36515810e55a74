// Package direct implements the "direct" route: a dispatch on the descriptor's company
// to the big-name first-party integrations.
package direct

import (
	"context"
	"fmt"

	"modelrouter/internal/core"
	"modelrouter/internal/providers"
	"modelrouter/internal/providers/anthropic"
	"modelrouter/internal/providers/gemini"
	"modelrouter/internal/providers/openaicompat"
)

// Registration provides factory registration for the direct route.
var Registration = providers.Registration{
	Route: core.RouteDirect,
	New:   func(opts providers.Options) core.Adapter { return New(opts) },
}

// Adapter picks a first-party adapter by company.
type Adapter struct {
	integrations map[string]core.Adapter
}

// New builds the fixed set of direct integrations. opts.BaseURL is ignored so
// each integration keeps its own endpoint.
func New(opts providers.Options) *Adapter {
	opts.BaseURL = ""
	integrations := map[string]core.Adapter{
		"anthropic": anthropic.New(opts),
		"gemini":    gemini.New(opts),
	}
	for _, name := range []string{"openai", "xai", "mistral"} {
		spec, _ := openaicompat.Lookup(name)
		integrations[name] = openaicompat.New(spec, opts)
	}
	return &Adapter{integrations: integrations}
}

// NewWith creates a direct adapter over explicit integrations keyed by provider name.
func NewWith(integrations map[string]core.Adapter) *Adapter {
	return &Adapter{integrations: integrations}
}

// Name returns the route name.
func (a *Adapter) Name() string {
	return core.RouteDirect
}

// Resolve returns the integration serving company.
func (a *Adapter) Resolve(company string) (core.Adapter, error) {
	provider, ok := core.DirectIntegration(company)
	if !ok {
		return nil, core.NewConfigurationError(core.RouteDirect, fmt.Sprintf("no direct integration for company %q", company))
	}
	adapter, ok := a.integrations[provider]
	if !ok {
		return nil, core.NewConfigurationError(core.RouteDirect, fmt.Sprintf("direct integration %q is not registered", provider))
	}
	return adapter, nil
}

// Call dispatches to the company's integration.
func (a *Adapter) Call(ctx context.Context, model *core.ModelDescriptor, input *core.CallInput) (*core.CallResult, error) {
	adapter, err := a.Resolve(model.Company)
	if err != nil {
		if gwErr, ok := err.(*core.GatewayError); ok {
			gwErr.Model = model.ID
		}
		return nil, err
	}
	return adapter.Call(ctx, model, input)
}
