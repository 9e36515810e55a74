// Package anthropic provides Anthropic Messages API integration.
package anthropic

import (
	"context"
	"net/http"

	"modelrouter/internal/core"
	"modelrouter/internal/llmclient"
	"modelrouter/internal/providers"
)

const (
	providerName        = "anthropic"
	defaultBaseURL      = "https://api.anthropic.com/v1"
	anthropicAPIVersion = "2023-06-01"
)

// Registration provides factory registration for the Anthropic adapter.
var Registration = providers.Registration{
	Route: providerName,
	New:   func(opts providers.Options) core.Adapter { return New(opts) },
}

// Adapter calls the Anthropic Messages API.
type Adapter struct {
	creds  providers.Credentials
	client *llmclient.Client
}

// New creates a new Anthropic adapter.
func New(opts providers.Options) *Adapter {
	return &Adapter{
		creds: opts.Credentials,
		client: llmclient.New(opts.HTTPClient, llmclient.Config{
			ProviderName: providerName,
			BaseURL:      opts.BaseURLOr(providerName, defaultBaseURL),
		}, setHeaders),
	}
}

func setHeaders(req *http.Request) {
	req.Header.Set("anthropic-version", anthropicAPIVersion)
}

// Name returns the provider name.
func (a *Adapter) Name() string {
	return providerName
}

// anthropicRequest represents the Anthropic API request format
type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	System      string             `json:"system,omitempty"`
}

// anthropicMessage represents a message in Anthropic format
type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

// anthropicContent represents a text content block
type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// convertToAnthropicRequest lifts system messages into the top-level field and wraps
// every remaining message in a single text block.
func convertToAnthropicRequest(model string, in providers.Input) anthropicRequest {
	system, msgs := in.SplitSystem()
	req := anthropicRequest{
		Model:       model,
		Messages:    make([]anthropicMessage, 0, len(msgs)),
		MaxTokens:   in.MaxTokens,
		Temperature: in.Temperature,
		System:      system,
	}
	for _, m := range msgs {
		role := m.Role
		if role != "assistant" {
			role = "user"
		}
		req.Messages = append(req.Messages, anthropicMessage{
			Role:    role,
			Content: []anthropicContent{{Type: "text", Text: m.Content}},
		})
	}
	return req
}

// Call sends a Messages API request.
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
		Endpoint: "/messages",
		Model:    model.ID,
		Headers:  map[string]string{"x-api-key": key},
		Body:     convertToAnthropicRequest(model.ID, in),
	})
	if err != nil {
		return nil, err
	}
	return resp.Result(), nil
}
