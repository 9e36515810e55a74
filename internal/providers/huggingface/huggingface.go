// Package huggingface provides Hugging Face Inference API integration.
package huggingface

import (
	"context"
	"net/http"
	"strings"

	"modelrouter/internal/core"
	"modelrouter/internal/llmclient"
	"modelrouter/internal/providers"
)

const (
	providerName   = "huggingface"
	defaultBaseURL = "https://api-inference.huggingface.co"
)

// Registration provides factory registration for the Hugging Face adapter.
var Registration = providers.Registration{
	Route: providerName,
	New:   func(opts providers.Options) core.Adapter { return New(opts) },
}

// Adapter calls the text-generation task of the Inference API.
type Adapter struct {
	creds  providers.Credentials
	client *llmclient.Client
}

// New creates a new Hugging Face adapter.
func New(opts providers.Options) *Adapter {
	return &Adapter{
		creds: opts.Credentials,
		client: llmclient.New(opts.HTTPClient, llmclient.Config{
			ProviderName: providerName,
			BaseURL:      opts.BaseURLOr(providerName, defaultBaseURL),
		}, nil),
	}
}

// Name returns the provider name.
func (a *Adapter) Name() string {
	return providerName
}

type parameters struct {
	Temperature    float64 `json:"temperature"`
	MaxNewTokens   int     `json:"max_new_tokens"`
	ReturnFullText bool    `json:"return_full_text"`
}

// generateRequest is the completion-style body: one flattened prompt string.
type generateRequest struct {
	Inputs     string     `json:"inputs"`
	Parameters parameters `json:"parameters"`
}

// Call sends a text-generation request.
func (a *Adapter) Call(ctx context.Context, model *core.ModelDescriptor, input *core.CallInput) (*core.CallResult, error) {
	in, err := providers.NormalizeInput(input)
	if err != nil {
		return nil, err
	}
	if err := in.RequireChat(providerName); err != nil {
		return nil, err
	}
	key, err := a.creds.APIKey(providerName)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.DoJSON(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: "/models/" + strings.TrimPrefix(model.ID, "/"),
		Model:    model.ID,
		Headers:  map[string]string{"Authorization": "Bearer " + key},
		Body: generateRequest{
			Inputs: in.Prompt(),
			Parameters: parameters{
				Temperature:  in.Temperature,
				MaxNewTokens: in.MaxTokens,
			},
		},
	})
	if err != nil {
		return nil, err
	}
	return resp.Result(), nil
}
