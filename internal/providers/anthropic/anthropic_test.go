package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelrouter/internal/core"
	"modelrouter/internal/providers"
)

func TestConvertToAnthropicRequest(t *testing.T) {
	in, err := providers.NormalizeInput(&core.CallInput{
		Messages: []core.Message{
			{Role: "system", Content: "terse"},
			{Role: "user", Content: "hi"},
			{Role: "assistant", Content: "hello"},
		},
	})
	require.NoError(t, err)

	req := convertToAnthropicRequest("claude-3-5-haiku-latest", in)

	assert.Equal(t, "terse", req.System)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "user", req.Messages[0].Role)
	assert.Equal(t, []anthropicContent{{Type: "text", Text: "hi"}}, req.Messages[0].Content)
	assert.Equal(t, "assistant", req.Messages[1].Role)
	assert.Equal(t, core.DefaultMaxTokens, req.MaxTokens)
}

func TestAdapter_Call(t *testing.T) {
	var headers http.Header
	var body map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		headers = r.Header.Clone()
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("anthropic-ratelimit-requests-remaining", "49")
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"claude says hi"}]}`))
	}))
	defer server.Close()

	a := New(providers.Options{
		BaseURL:     server.URL,
		Credentials: providers.StaticCredentials(map[string]string{"ANTHROPIC_API_KEY": "sk-ant"}),
	})

	result, err := a.Call(context.Background(), &core.ModelDescriptor{ID: "claude-3-5-haiku-latest"}, &core.CallInput{Prompt: "hi"})
	require.NoError(t, err)

	assert.Equal(t, "sk-ant", headers.Get("x-api-key"))
	assert.Equal(t, anthropicAPIVersion, headers.Get("anthropic-version"))
	assert.Empty(t, headers.Get("Authorization"))
	assert.Equal(t, float64(core.DefaultMaxTokens), body["max_tokens"])
	assert.Equal(t, "claude says hi", providers.ExtractContent(result.Data))
}

func TestAdapter_AuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer server.Close()

	a := New(providers.Options{
		BaseURL:     server.URL,
		Credentials: providers.StaticCredentials(map[string]string{"ANTHROPIC_API_KEY": "bad"}),
	})
	_, err := a.Call(context.Background(), &core.ModelDescriptor{ID: "claude"}, &core.CallInput{Prompt: "x"})

	gwErr, ok := err.(*core.GatewayError)
	require.True(t, ok)
	assert.Equal(t, core.ErrorTypeAuthentication, gwErr.Type)
	assert.Equal(t, "invalid x-api-key", gwErr.Message)
}
