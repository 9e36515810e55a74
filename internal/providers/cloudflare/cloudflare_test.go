package cloudflare

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

func TestRunEndpoint(t *testing.T) {
	tests := []struct {
		account, model, want string
	}{
		{"acc", "@cf/meta/llama-3.1-8b-instruct", "/accounts/acc/ai/run/@cf/meta/llama-3.1-8b-instruct"},
		{"a b", "plain", "/accounts/a%20b/ai/run/plain"},
	}
	for _, tt := range tests {
		if got := runEndpoint(tt.account, tt.model); got != tt.want {
			t.Errorf("runEndpoint(%q, %q) = %q, want %q", tt.account, tt.model, got, tt.want)
		}
	}
}

func TestAdapter_Call(t *testing.T) {
	var gotPath, gotAuth string
	var got runRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &got)
		_, _ = w.Write([]byte(`{"result":{"response":"workers reply"},"success":true}`))
	}))
	defer server.Close()

	a := New(providers.Options{
		BaseURL: server.URL,
		Credentials: providers.StaticCredentials(map[string]string{
			"CLOUDFLARE_API_KEY":    "cf-token",
			"CLOUDFLARE_ACCOUNT_ID": "acct-1",
		}),
	})

	result, err := a.Call(context.Background(),
		&core.ModelDescriptor{ID: "@cf/meta/llama-3.1-8b-instruct", Route: "cloudflare"},
		&core.CallInput{Prompt: "hi", System: "short"})
	require.NoError(t, err)

	assert.Equal(t, "/accounts/acct-1/ai/run/@cf/meta/llama-3.1-8b-instruct", gotPath)
	assert.Equal(t, "Bearer cf-token", gotAuth)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "workers reply", providers.ExtractContent(result.Data))
}

func TestAdapter_MissingAccountID(t *testing.T) {
	a := New(providers.Options{
		Credentials: providers.StaticCredentials(map[string]string{"CLOUDFLARE_API_KEY": "cf-token"}),
	})
	_, err := a.Call(context.Background(), &core.ModelDescriptor{ID: "@cf/x"}, &core.CallInput{Prompt: "hi"})
	require.Error(t, err)
	assert.Equal(t, core.ErrorTypeConfiguration, core.ErrorTypeOf(err))
	assert.Contains(t, err.Error(), providers.CloudflareAccountEnv)
}
