package openaicompat

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
	var gotBody map[string]any
	var gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)

		w.Header().Set("x-ratelimit-remaining-requests", "14")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"hi"}}]}`))
	}))
	defer server.Close()

	spec, ok := Lookup("groq")
	require.True(t, ok)
	a := New(spec, providers.Options{
		BaseURL:     server.URL,
		Credentials: providers.StaticCredentials(map[string]string{"GROQ_API_KEY": "gsk-test"}),
	})

	result, err := a.Call(context.Background(),
		&core.ModelDescriptor{ID: "llama-3.1-8b-instant", Provider: "groq", Route: "groq"},
		&core.CallInput{Prompt: "hello", System: "be nice"})
	require.NoError(t, err)

	assert.Equal(t, "Bearer gsk-test", gotAuth)
	assert.Equal(t, "llama-3.1-8b-instant", gotBody["model"])
	assert.Equal(t, 0.7, gotBody["temperature"])
	assert.Equal(t, float64(1024), gotBody["max_tokens"])

	msgs, ok := gotBody["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "hello", msgs[1].(map[string]any)["content"])

	assert.Equal(t, "hi", providers.ExtractContent(result.Data))
	assert.Equal(t, "14", result.Headers.Get("X-Ratelimit-Remaining-Requests"))
}

func TestAdapter_OpenRouterAttributionHeaders(t *testing.T) {
	var headers http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	spec, _ := Lookup("openrouter")
	a := New(spec, providers.Options{
		BaseURL:     server.URL,
		Credentials: providers.StaticCredentials(map[string]string{"OPENROUTER_API_KEY": "or"}),
	})

	_, err := a.Call(context.Background(), &core.ModelDescriptor{ID: "meta/llama:free", Route: "openrouter"}, &core.CallInput{Prompt: "x"})
	require.NoError(t, err)

	assert.Equal(t, "Bearer or", headers.Get("Authorization"))
	assert.NotEmpty(t, headers.Get("HTTP-Referer"))
	assert.Equal(t, "modelrouter", headers.Get("X-Title"))
}

func TestAdapter_MissingCredential(t *testing.T) {
	spec, _ := Lookup("cerebras")
	a := New(spec, providers.Options{BaseURL: "http://127.0.0.1:1", Credentials: providers.StaticCredentials(nil)})

	_, err := a.Call(context.Background(), &core.ModelDescriptor{ID: "llama3.1-8b", Route: "cerebras"}, &core.CallInput{Prompt: "x"})
	assert.Equal(t, core.ErrorTypeConfiguration, core.ErrorTypeOf(err))
}

func TestAdapter_OllamaIsKeyless(t *testing.T) {
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"local"}}]}`))
	}))
	defer server.Close()

	spec, _ := Lookup("ollama")
	a := New(spec, providers.Options{BaseURL: server.URL, Credentials: providers.StaticCredentials(nil)})

	_, err := a.Call(context.Background(), &core.ModelDescriptor{ID: "llama3.2", Route: "ollama"}, &core.CallInput{Prompt: "x"})
	require.NoError(t, err)
	assert.Empty(t, auth)
}

func TestAdapter_ProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-ratelimit-remaining-tokens", "0")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached for model"}}`))
	}))
	defer server.Close()

	spec, _ := Lookup("groq")
	a := New(spec, providers.Options{
		BaseURL:     server.URL,
		Credentials: providers.StaticCredentials(map[string]string{"GROQ_API_KEY": "k"}),
	})

	_, err := a.Call(context.Background(), &core.ModelDescriptor{ID: "m", Route: "groq"}, &core.CallInput{Prompt: "x"})
	require.Error(t, err)

	gwErr, ok := err.(*core.GatewayError)
	require.True(t, ok)
	assert.Equal(t, core.ErrorTypeRateLimit, gwErr.Type)
	assert.Equal(t, "groq", gwErr.Provider)
	assert.Equal(t, "m", gwErr.Model)
	assert.Contains(t, gwErr.Body, "Rate limit reached")
	assert.Equal(t, "0", gwErr.Headers.Get("x-ratelimit-remaining-tokens"))
}

func TestAdapter_RejectsImageTask(t *testing.T) {
	spec, _ := Lookup("groq")
	a := New(spec, providers.Options{Credentials: providers.StaticCredentials(map[string]string{"GROQ_API_KEY": "k"})})

	_, err := a.Call(context.Background(), &core.ModelDescriptor{ID: "m", Route: "groq"}, &core.CallInput{Prompt: "a cat", Task: core.TaskImage})
	assert.Equal(t, core.ErrorTypeInvalidRequest, core.ErrorTypeOf(err))
}

func TestRegistrations(t *testing.T) {
	regs := Registrations()
	require.Len(t, regs, len(Known))

	reg := providers.NewRegistry()
	reg.RegisterAll(providers.Options{}, regs...)
	for _, spec := range Known {
		_, ok := reg.Get(spec.Name)
		assert.True(t, ok, spec.Name)
	}
}
