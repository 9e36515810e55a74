// Package gemini provides the native Google Gemini generateContent integration.
// The API key travels as a query parameter and messages become role-tagged content turns.
package gemini

import (
	"context"
	"net/http"
	"net/url"

	"modelrouter/internal/core"
	"modelrouter/internal/llmclient"
	"modelrouter/internal/providers"
)

const (
	providerName   = "gemini"
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
)

// Registration provides factory registration for the Gemini adapter.
var Registration = providers.Registration{
	Route: providerName,
	New:   func(opts providers.Options) core.Adapter { return New(opts) },
}

// Adapter calls the Gemini generateContent endpoint.
type Adapter struct {
	creds  providers.Credentials
	client *llmclient.Client
}

// New creates a new Gemini adapter.
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

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateRequest struct {
	Contents          []content        `json:"contents"`
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

// convertMessages maps chat roles onto Gemini turns: assistant becomes model,
// everything else that is not a system message is a user turn.
func convertMessages(in providers.Input) ([]content, *content) {
	system, msgs := in.SplitSystem()
	contents := make([]content, 0, len(msgs))
	for _, m := range msgs {
		role := "user"
		if m.Role == "assistant" || m.Role == "model" {
			role = "model"
		}
		contents = append(contents, content{Role: role, Parts: []part{{Text: m.Content}}})
	}
	if system == "" {
		return contents, nil
	}
	return contents, &content{Parts: []part{{Text: system}}}
}

// Call sends a generateContent request.
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

	contents, system := convertMessages(in)
	resp, err := a.client.DoJSON(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: "/models/" + url.PathEscape(model.ID) + ":generateContent?key=" + url.QueryEscape(key),
		Model:    model.ID,
		Body: generateRequest{
			Contents:          contents,
			SystemInstruction: system,
			GenerationConfig: generationConfig{
				Temperature:     in.Temperature,
				MaxOutputTokens: in.MaxTokens,
			},
		},
	})
	if err != nil {
		return nil, err
	}
	return resp.Result(), nil
}
