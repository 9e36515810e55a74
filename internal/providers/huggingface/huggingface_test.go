package huggingface

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
	var gotPath, gotAuth string
	var got map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &got)
		_, _ = w.Write([]byte(`[{"generated_text":"once upon a time"}]`))
	}))
	defer server.Close()

	a := New(providers.Options{
		BaseURL:     server.URL,
		Credentials: providers.StaticCredentials(map[string]string{"HUGGINGFACE_API_KEY": "hf_x"}),
	})

	maxTokens := 64
	result, err := a.Call(context.Background(),
		&core.ModelDescriptor{ID: "mistralai/Mistral-7B-Instruct-v0.3", Route: "huggingface"},
		&core.CallInput{Prompt: "tell a story", MaxTokens: &maxTokens})
	require.NoError(t, err)

	assert.Equal(t, "/models/mistralai/Mistral-7B-Instruct-v0.3", gotPath)
	assert.Equal(t, "Bearer hf_x", gotAuth)
	assert.Equal(t, "tell a story", got["inputs"])

	params, ok := got["parameters"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(64), params["max_new_tokens"])
	assert.Equal(t, false, params["return_full_text"])
	assert.NotContains(t, params, "max_tokens")

	assert.Equal(t, "once upon a time", providers.ExtractContent(result.Data))
}

func TestAdapter_FlattensConversation(t *testing.T) {
	var got generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &got)
		_, _ = w.Write([]byte(`{"generated_text":"ok"}`))
	}))
	defer server.Close()

	a := New(providers.Options{
		BaseURL:     server.URL,
		Credentials: providers.StaticCredentials(map[string]string{"HUGGINGFACE_API_KEY": "hf_x"}),
	})
	_, err := a.Call(context.Background(), &core.ModelDescriptor{ID: "gpt2"}, &core.CallInput{
		Messages: []core.Message{{Role: "user", Content: "hi"}, {Role: "assistant", Content: "yo"}, {Role: "user", Content: "sup"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "user: hi\nassistant: yo\nuser: sup\nassistant:", got.Inputs)
}

func TestAdapter_ModelLoading(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"Model gpt2 is currently loading","estimated_time":20}`))
	}))
	defer server.Close()

	a := New(providers.Options{
		BaseURL:     server.URL,
		Credentials: providers.StaticCredentials(map[string]string{"HUGGINGFACE_API_KEY": "hf_x"}),
	})
	_, err := a.Call(context.Background(), &core.ModelDescriptor{ID: "gpt2"}, &core.CallInput{Prompt: "x"})

	var gwErr *core.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, core.ErrorTypeProvider, gwErr.Type)
	assert.Equal(t, "gpt2", gwErr.Model)
	assert.Contains(t, gwErr.Body, "currently loading")
}
