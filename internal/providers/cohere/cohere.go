// Package cohere provides Cohere v2 chat integration.
package cohere

import (
	"context"
	"net/http"

	"modelrouter/internal/core"
	"modelrouter/internal/llmclient"
	"modelrouter/internal/providers"
)

const (
	providerName   = "cohere"
	defaultBaseURL = "https://api.cohere.com/v2"
)

// Registration provides factory registration for the Cohere adapter.
var Registration = providers.Registration{
	Route: providerName,
	New:   func(opts providers.Options) core.Adapter { return New(opts) },
}

// Adapter calls the Cohere chat endpoint.
type Adapter struct {
	creds  providers.Credentials
	client *llmclient.Client
}

// New creates a new Cohere adapter.
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

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

// Call sends a chat request.
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

	msgs := in.WithSystem()
	req := chatRequest{
		Model:       model.ID,
		Messages:    make([]message, 0, len(msgs)),
		Temperature: in.Temperature,
		MaxTokens:   in.MaxTokens,
	}
	for _, m := range msgs {
		req.Messages = append(req.Messages, message{
			Role:    m.Role,
			Content: []contentBlock{{Type: "text", Text: m.Content}},
		})
	}

	resp, err := a.client.DoJSON(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: "/chat",
		Model:    model.ID,
		Headers:  map[string]string{"Authorization": "Bearer " + key},
		Body:     req,
	})
	if err != nil {
		return nil, err
	}
	return resp.Result(), nil
}
