// Package openaicompat implements the adapter family that speaks the OpenAI chat
// completions wire format: POST {model, messages, temperature, max_tokens} with a bearer token.
package openaicompat

import (
	"context"
	"net/http"

	"modelrouter/internal/core"
	"modelrouter/internal/llmclient"
	"modelrouter/internal/providers"
)

// Spec describes one OpenAI-compatible provider.
type Spec struct {
	Name    string
	BaseURL string
	// Headers are static attribution headers sent with every call
	Headers map[string]string
}

// Known lists the OpenAI-compatible providers with their public endpoints.
var Known = []Spec{
	{Name: "groq", BaseURL: "https://api.groq.com/openai/v1"},
	{Name: "mistral", BaseURL: "https://api.mistral.ai/v1"},
	{Name: "cerebras", BaseURL: "https://api.cerebras.ai/v1"},
	{Name: "sambanova", BaseURL: "https://api.sambanova.ai/v1"},
	{Name: "together", BaseURL: "https://api.together.xyz/v1"},
	{Name: "deepseek", BaseURL: "https://api.deepseek.com"},
	{Name: "nvidia", BaseURL: "https://integrate.api.nvidia.com/v1"},
	{Name: "github", BaseURL: "https://models.github.ai/inference"},
	{Name: "fireworks", BaseURL: "https://api.fireworks.ai/inference/v1"},
	{Name: "chutes", BaseURL: "https://llm.chutes.ai/v1"},
	{Name: "hyperbolic", BaseURL: "https://api.hyperbolic.xyz/v1"},
	{Name: "scaleway", BaseURL: "https://api.scaleway.ai/v1"},
	{Name: "openai", BaseURL: "https://api.openai.com/v1"},
	{Name: "xai", BaseURL: "https://api.x.ai/v1"},
	{Name: "ollama", BaseURL: "http://localhost:11434/v1"},
	{
		Name:    "openrouter",
		BaseURL: "https://openrouter.ai/api/v1",
		Headers: map[string]string{
			"HTTP-Referer": "http://localhost",
			"X-Title":      "modelrouter",
		},
	},
}

// Lookup returns the Known spec for name.
func Lookup(name string) (Spec, bool) {
	for _, s := range Known {
		if s.Name == name {
			return s, true
		}
	}
	return Spec{}, false
}

// Registrations returns one registration per Known provider.
func Registrations() []providers.Registration {
	regs := make([]providers.Registration, 0, len(Known))
	for _, spec := range Known {
		spec := spec
		regs = append(regs, providers.Registration{
			Route: spec.Name,
			New:   func(opts providers.Options) core.Adapter { return New(spec, opts) },
		})
	}
	return regs
}

// Adapter calls one OpenAI-compatible provider.
type Adapter struct {
	spec   Spec
	creds  providers.Credentials
	client *llmclient.Client
}

// New creates an adapter for spec.
func New(spec Spec, opts providers.Options) *Adapter {
	a := &Adapter{spec: spec, creds: opts.Credentials}
	a.client = llmclient.New(opts.HTTPClient, llmclient.Config{
		ProviderName: spec.Name,
		BaseURL:      opts.BaseURLOr(spec.Name, spec.BaseURL),
	}, a.setHeaders)
	return a
}

func (a *Adapter) setHeaders(req *http.Request) {
	for k, v := range a.spec.Headers {
		req.Header.Set(k, v)
	}
}

// Name returns the provider name.
func (a *Adapter) Name() string {
	return a.spec.Name
}

type chatRequest struct {
	Model       string         `json:"model"`
	Messages    []core.Message `json:"messages"`
	Temperature float64        `json:"temperature"`
	MaxTokens   int            `json:"max_tokens"`
}

// Call sends a chat completion request.
func (a *Adapter) Call(ctx context.Context, model *core.ModelDescriptor, input *core.CallInput) (*core.CallResult, error) {
	in, err := providers.NormalizeInput(input)
	if err != nil {
		return nil, err
	}
	if err := in.RequireChat(a.spec.Name); err != nil {
		return nil, err
	}

	key, err := a.creds.APIKey(a.spec.Name)
	if err != nil {
		return nil, err
	}
	headers := map[string]string{}
	if key != "" {
		headers["Authorization"] = "Bearer " + key
	}

	resp, err := a.client.DoJSON(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: "/chat/completions",
		Model:    model.ID,
		Headers:  headers,
		Body: chatRequest{
			Model:       model.ID,
			Messages:    in.WithSystem(),
			Temperature: in.Temperature,
			MaxTokens:   in.MaxTokens,
		},
	})
	if err != nil {
		return nil, err
	}
	return resp.Result(), nil
}
