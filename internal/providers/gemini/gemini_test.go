package gemini

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

func TestAdapter_Call(t *testing.T) {
	var got generateRequest
	var gotPath, gotKey, gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"bonjour"}]}}]}`))
	}))
	defer server.Close()

	a := New(providers.Options{
		BaseURL:     server.URL,
		Credentials: providers.StaticCredentials(map[string]string{"GEMINI_API_KEY": "g-key"}),
	})

	temp := 0.1
	result, err := a.Call(context.Background(), &core.ModelDescriptor{ID: "gemini-2.0-flash", Route: "gemini"}, &core.CallInput{
		System: "answer in french",
		Messages: []core.Message{
			{Role: "user", Content: "hello"},
			{Role: "assistant", Content: "salut"},
			{Role: "user", Content: "again"},
		},
		Temperature: &temp,
	})
	require.NoError(t, err)

	assert.Equal(t, "/models/gemini-2.0-flash:generateContent", gotPath)
	assert.Equal(t, "g-key", gotKey)
	assert.Empty(t, gotAuth, "gemini takes no bearer token")

	require.Len(t, got.Contents, 3)
	assert.Equal(t, "user", got.Contents[0].Role)
	assert.Equal(t, "model", got.Contents[1].Role)
	assert.Equal(t, "salut", got.Contents[1].Parts[0].Text)
	require.NotNil(t, got.SystemInstruction)
	assert.Equal(t, "answer in french", got.SystemInstruction.Parts[0].Text)
	assert.Equal(t, 0.1, got.GenerationConfig.Temperature)
	assert.Equal(t, core.DefaultMaxTokens, got.GenerationConfig.MaxOutputTokens)

	assert.Equal(t, "bonjour", providers.ExtractContent(result.Data))
}

func TestAdapter_MissingKey(t *testing.T) {
	a := New(providers.Options{Credentials: providers.StaticCredentials(nil)})
	_, err := a.Call(context.Background(), &core.ModelDescriptor{ID: "gemini-2.0-flash"}, &core.CallInput{Prompt: "x"})
	assert.Equal(t, core.ErrorTypeConfiguration, core.ErrorTypeOf(err))
}

func TestAdapter_ResourceExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"Resource has been exhausted","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer server.Close()

	a := New(providers.Options{
		BaseURL:     server.URL,
		Credentials: providers.StaticCredentials(map[string]string{"GEMINI_API_KEY": "k"}),
	})
	_, err := a.Call(context.Background(), &core.ModelDescriptor{ID: "gemini-2.0-flash"}, &core.CallInput{Prompt: "x"})
	assert.True(t, core.IsRateLimit(err))
}

func TestAdapter_UnreachableHostHidesKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	a := New(providers.Options{
		BaseURL:     baseURL,
		Credentials: providers.StaticCredentials(map[string]string{"GEMINI_API_KEY": "AIza-do-not-log"}),
	})
	_, err := a.Call(context.Background(), &core.ModelDescriptor{ID: "gemini-2.0-flash"}, &core.CallInput{Prompt: "x"})
	require.Error(t, err)

	assert.NotContains(t, err.Error(), "AIza-do-not-log")
	var gwErr *core.GatewayError
	require.ErrorAs(t, err, &gwErr)
	body, jsonErr := json.Marshal(gwErr.ToJSON())
	require.NoError(t, jsonErr)
	assert.NotContains(t, string(body), "AIza-do-not-log")
}
