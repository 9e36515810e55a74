// Package puter provides the brokered provider: calls run through a host SDK binding
// instead of a direct HTTP request, draw on the signed-in account's credits, and return
// no response headers.
package puter

import (
	"context"
	"net/http"
	"strings"

	"modelrouter/internal/core"
	"modelrouter/internal/providers"
)

const providerName = "puter"

// Adapter executes calls through the host binding.
type Adapter struct {
	binding Binding
}

// New creates a brokered adapter. A nil binding makes every call unavailable.
func New(binding Binding) *Adapter {
	return &Adapter{binding: binding}
}

// Name returns the provider name.
func (a *Adapter) Name() string {
	return providerName
}

func (a *Adapter) ready(ctx context.Context) error {
	if a.binding == nil {
		return core.NewUnavailableError(providerName, "host binding is not present in this runtime")
	}
	switch a.binding.Probe(ctx) {
	case ProbeReady:
		return nil
	case ProbeUnauthenticated:
		return core.NewAuthenticationError(providerName, "host binding is present but not signed in")
	default:
		return core.NewUnavailableError(providerName, "host binding is not reachable")
	}
}

// Call runs chat or image generation through the binding.
func (a *Adapter) Call(ctx context.Context, model *core.ModelDescriptor, input *core.CallInput) (*core.CallResult, error) {
	in, err := providers.NormalizeInput(input)
	if err != nil {
		return nil, err
	}
	if err := a.ready(ctx); err != nil {
		if gwErr, ok := err.(*core.GatewayError); ok {
			gwErr.Model = model.ID
		}
		return nil, err
	}

	var data []byte
	switch in.Task {
	case core.TaskChat:
		data, err = a.binding.Chat(ctx, ChatRequest{
			Model:       model.ID,
			Messages:    in.WithSystem(),
			Temperature: in.Temperature,
			MaxTokens:   in.MaxTokens,
		})
	case core.TaskImage:
		data, err = a.binding.GenerateImage(ctx, ImageRequest{Model: model.ID, Prompt: imagePrompt(input, in)})
	default:
		return nil, core.NewValidationError("task", in.Task, "unsupported task")
	}
	if err != nil {
		return nil, err
	}
	return &core.CallResult{Data: data, StatusCode: http.StatusOK}, nil
}

// imagePrompt prefers the flat prompt and otherwise uses the last user message.
func imagePrompt(raw *core.CallInput, in providers.Input) string {
	if p := strings.TrimSpace(raw.Prompt); p != "" {
		return p
	}
	for i := len(in.Messages) - 1; i >= 0; i-- {
		if in.Messages[i].Role == "user" {
			return in.Messages[i].Content
		}
	}
	return in.Prompt()
}

// CreditBalance reports the account balance. A missing or signed-out binding reports
// Available=false with a reason rather than an error.
func (a *Adapter) CreditBalance(ctx context.Context) (core.CreditBalance, error) {
	if err := a.ready(ctx); err != nil {
		return core.CreditBalance{Available: false, Reason: err.(*core.GatewayError).Message}, nil
	}
	balance, err := a.binding.Balance(ctx)
	if err != nil {
		return core.CreditBalance{}, err
	}
	return core.CreditBalance{Available: true, Balance: balance}, nil
}
