package puter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"modelrouter/internal/core"
	"modelrouter/internal/llmclient"
)

// ProbeState is the tri-state result of checking the host binding.
type ProbeState string

const (
	ProbeReady           ProbeState = "ready"
	ProbeUnauthenticated ProbeState = "unauthenticated"
	ProbeUnavailable     ProbeState = "unavailable"
)

// ChatRequest is the payload handed to the host for chat generation.
type ChatRequest struct {
	Model       string         `json:"model"`
	Messages    []core.Message `json:"messages"`
	Temperature float64        `json:"temperature"`
	MaxTokens   int            `json:"max_tokens"`
}

// ImageRequest is the payload handed to the host for image generation.
type ImageRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// Binding is the host-provided SDK surface. It exposes only the operations the
// brokered runtime supports.
type Binding interface {
	Probe(ctx context.Context) ProbeState
	Chat(ctx context.Context, req ChatRequest) (json.RawMessage, error)
	GenerateImage(ctx context.Context, req ImageRequest) (json.RawMessage, error)
	Balance(ctx context.Context) (float64, error)
}

// HTTPBinding reaches the host SDK through a local bridge process.
//
// Bridge endpoints:
//
//	GET  /status   {"available": bool, "signed_in": bool}
//	POST /chat     ChatRequest -> host chat response
//	POST /image    ImageRequest -> host image response
//	GET  /balance  {"balance": number} or {"remaining": number}
type HTTPBinding struct {
	client *llmclient.Client
	token  string
}

// NewHTTPBinding returns a bridge-backed binding, or nil when bridgeURL is empty.
// A nil *HTTPBinding must not be stored in a Binding interface; use Bind.
func NewHTTPBinding(httpClient *http.Client, bridgeURL, token string) *HTTPBinding {
	bridgeURL = strings.TrimRight(strings.TrimSpace(bridgeURL), "/")
	if bridgeURL == "" {
		return nil
	}
	return &HTTPBinding{
		client: llmclient.New(httpClient, llmclient.Config{
			ProviderName: providerName,
			BaseURL:      bridgeURL,
		}, nil),
		token: token,
	}
}

// Bind converts a possibly nil bridge into a Binding, keeping nil as a true nil interface.
func Bind(b *HTTPBinding) Binding {
	if b == nil {
		return nil
	}
	return b
}

func (b *HTTPBinding) headers() map[string]string {
	if b.token == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + b.token}
}

// Probe asks the bridge whether the host SDK is present and signed in.
func (b *HTTPBinding) Probe(ctx context.Context) ProbeState {
	resp, err := b.client.DoJSON(ctx, llmclient.Request{
		Method:   http.MethodGet,
		Endpoint: "/status",
		Headers:  b.headers(),
	})
	if err != nil {
		var gwErr *core.GatewayError
		if errors.As(err, &gwErr) && gwErr.Type == core.ErrorTypeAuthentication {
			return ProbeUnauthenticated
		}
		return ProbeUnavailable
	}

	status := gjson.ParseBytes(resp.Body)
	if available := status.Get("available"); available.Exists() && !available.Bool() {
		return ProbeUnavailable
	}
	if !status.Get("signed_in").Bool() {
		return ProbeUnauthenticated
	}
	return ProbeReady
}

// Chat forwards a chat request to the host.
func (b *HTTPBinding) Chat(ctx context.Context, req ChatRequest) (json.RawMessage, error) {
	resp, err := b.client.DoJSON(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: "/chat",
		Model:    req.Model,
		Headers:  b.headers(),
		Body:     req,
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// GenerateImage forwards an image request to the host.
func (b *HTTPBinding) GenerateImage(ctx context.Context, req ImageRequest) (json.RawMessage, error) {
	resp, err := b.client.DoJSON(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: "/image",
		Model:    req.Model,
		Headers:  b.headers(),
		Body:     req,
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Balance returns the remaining credit balance of the signed-in account.
func (b *HTTPBinding) Balance(ctx context.Context) (float64, error) {
	resp, err := b.client.DoJSON(ctx, llmclient.Request{
		Method:   http.MethodGet,
		Endpoint: "/balance",
		Headers:  b.headers(),
	})
	if err != nil {
		return 0, err
	}
	body := gjson.ParseBytes(resp.Body)
	for _, key := range []string{"balance", "remaining"} {
		if v := body.Get(key); v.Type == gjson.Number {
			return v.Float(), nil
		}
	}
	return 0, core.NewProviderError(providerName, http.StatusBadGateway, "bridge balance response has no numeric balance", nil)
}
