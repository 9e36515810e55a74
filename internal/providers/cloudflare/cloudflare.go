// Package cloudflare provides Cloudflare Workers AI integration.
// Workers AI needs an account id alongside the token; both end up in the request,
// the account id and model id in the URL path.
package cloudflare

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"modelrouter/internal/core"
	"modelrouter/internal/llmclient"
	"modelrouter/internal/providers"
)

const (
	providerName   = "cloudflare"
	defaultBaseURL = "https://api.cloudflare.com/client/v4"
)

// Registration provides factory registration for the Workers AI adapter.
var Registration = providers.Registration{
	Route: providerName,
	New:   func(opts providers.Options) core.Adapter { return New(opts) },
}

// Adapter calls the Workers AI run endpoint.
type Adapter struct {
	creds  providers.Credentials
	client *llmclient.Client
}

// New creates a new Workers AI adapter.
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

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type runRequest struct {
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

// runEndpoint keeps the slashes of "@cf/meta/..." model ids and escapes each segment.
func runEndpoint(account, model string) string {
	segments := strings.Split(model, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return "/accounts/" + url.PathEscape(account) + "/ai/run/" + strings.Join(segments, "/")
}

// Call sends a run request for model.
func (a *Adapter) Call(ctx context.Context, model *core.ModelDescriptor, input *core.CallInput) (*core.CallResult, error) {
	in, err := providers.NormalizeInput(input)
	if err != nil {
		return nil, err
	}
	if err := in.RequireChat(providerName); err != nil {
		return nil, err
	}
	token, err := a.creds.APIKey(providerName)
	if err != nil {
		return nil, err
	}
	account, err := a.creds.Require(providerName, providers.CloudflareAccountEnv)
	if err != nil {
		return nil, err
	}

	msgs := in.WithSystem()
	body := runRequest{
		Messages:    make([]message, 0, len(msgs)),
		Temperature: in.Temperature,
		MaxTokens:   in.MaxTokens,
	}
	for _, m := range msgs {
		body.Messages = append(body.Messages, message{Role: m.Role, Content: m.Content})
	}

	resp, err := a.client.DoJSON(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: runEndpoint(account, model.ID),
		Model:    model.ID,
		Headers:  map[string]string{"Authorization": "Bearer " + token},
		Body:     body,
	})
	if err != nil {
		return nil, err
	}
	return resp.Result(), nil
}
