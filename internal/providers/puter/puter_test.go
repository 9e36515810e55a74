package puter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelrouter/internal/core"
	"modelrouter/internal/providers"
)

type fakeBinding struct {
	state      ProbeState
	balance    float64
	balanceErr error
	chat       ChatRequest
	image      ImageRequest
}

func (f *fakeBinding) Probe(context.Context) ProbeState { return f.state }

func (f *fakeBinding) Chat(_ context.Context, req ChatRequest) (json.RawMessage, error) {
	f.chat = req
	return json.RawMessage(`{"message":{"role":"assistant","content":"brokered"}}`), nil
}

func (f *fakeBinding) GenerateImage(_ context.Context, req ImageRequest) (json.RawMessage, error) {
	f.image = req
	return json.RawMessage(`{"url":"data:image/png;base64,AAAA"}`), nil
}

func (f *fakeBinding) Balance(context.Context) (float64, error) {
	return f.balance, f.balanceErr
}

func TestAdapter_NilBinding(t *testing.T) {
	a := New(nil)

	_, err := a.Call(context.Background(), &core.ModelDescriptor{ID: "gpt-4o"}, &core.CallInput{Prompt: "hi"})
	require.Error(t, err)
	assert.Equal(t, core.ErrorTypeUnavailable, core.ErrorTypeOf(err))

	balance, err := a.CreditBalance(context.Background())
	require.NoError(t, err)
	assert.False(t, balance.Available)
	assert.NotEmpty(t, balance.Reason)
}

func TestAdapter_Chat(t *testing.T) {
	b := &fakeBinding{state: ProbeReady}
	a := New(b)

	result, err := a.Call(context.Background(), &core.ModelDescriptor{ID: "claude-sonnet"}, &core.CallInput{Prompt: "hi", System: "be brief"})
	require.NoError(t, err)

	assert.Equal(t, "claude-sonnet", b.chat.Model)
	require.Len(t, b.chat.Messages, 2)
	assert.Equal(t, core.DefaultMaxTokens, b.chat.MaxTokens)
	assert.Nil(t, result.Headers)
	assert.Equal(t, "brokered", providers.ExtractContent(result.Data))
}

func TestAdapter_Image(t *testing.T) {
	b := &fakeBinding{state: ProbeReady}
	a := New(b)

	_, err := a.Call(context.Background(), &core.ModelDescriptor{ID: "dall-e-3"}, &core.CallInput{
		Messages: []core.Message{{Role: "user", Content: "a red fox"}},
		Task:     core.TaskImage,
	})
	require.NoError(t, err)
	assert.Equal(t, "a red fox", b.image.Prompt)
	assert.Equal(t, "dall-e-3", b.image.Model)
}

func TestAdapter_Unauthenticated(t *testing.T) {
	a := New(&fakeBinding{state: ProbeUnauthenticated})

	_, err := a.Call(context.Background(), &core.ModelDescriptor{ID: "m"}, &core.CallInput{Prompt: "hi"})
	assert.Equal(t, core.ErrorTypeAuthentication, core.ErrorTypeOf(err))

	balance, err := a.CreditBalance(context.Background())
	require.NoError(t, err)
	assert.False(t, balance.Available)
}

func TestAdapter_CreditBalance(t *testing.T) {
	a := New(&fakeBinding{state: ProbeReady, balance: 2.5})
	balance, err := a.CreditBalance(context.Background())
	require.NoError(t, err)
	assert.True(t, balance.Available)
	assert.Equal(t, 2.5, balance.Balance)

	failing := New(&fakeBinding{state: ProbeReady, balanceErr: errors.New("bridge down")})
	_, err = failing.CreditBalance(context.Background())
	assert.Error(t, err)
}

func TestNewHTTPBinding_EmptyURL(t *testing.T) {
	assert.Nil(t, NewHTTPBinding(nil, "  ", "tok"))
	assert.Nil(t, Bind(NewHTTPBinding(nil, "", "")))
}

func TestHTTPBinding(t *testing.T) {
	var auth string
	var chat ChatRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		switch r.URL.Path {
		case "/status":
			_, _ = w.Write([]byte(`{"available":true,"signed_in":true}`))
		case "/balance":
			_, _ = w.Write([]byte(`{"remaining":0.75}`))
		case "/chat":
			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, &chat)
			_, _ = w.Write([]byte(`{"message":{"content":"via bridge"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	b := NewHTTPBinding(nil, server.URL+"/", "bridge-token")
	require.NotNil(t, b)

	assert.Equal(t, ProbeReady, b.Probe(context.Background()))
	assert.Equal(t, "Bearer bridge-token", auth)

	balance, err := b.Balance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.75, balance)

	a := New(Bind(b))
	result, err := a.Call(context.Background(), &core.ModelDescriptor{ID: "gpt-4o-mini"}, &core.CallInput{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", chat.Model)
	assert.Equal(t, "via bridge", providers.ExtractContent(result.Data))
}

func TestHTTPBinding_ProbeStates(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   ProbeState
	}{
		{"signed out", http.StatusOK, `{"available":true,"signed_in":false}`, ProbeUnauthenticated},
		{"sdk missing", http.StatusOK, `{"available":false}`, ProbeUnavailable},
		{"bridge rejects token", http.StatusUnauthorized, `{"error":{"message":"bad token"}}`, ProbeUnauthenticated},
		{"bridge error", http.StatusInternalServerError, `oops`, ProbeUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			b := NewHTTPBinding(nil, server.URL, "")
			assert.Equal(t, tt.want, b.Probe(context.Background()))
		})
	}
}

func TestHTTPBinding_Unreachable(t *testing.T) {
	b := NewHTTPBinding(nil, "http://127.0.0.1:1", "")
	assert.Equal(t, ProbeUnavailable, b.Probe(context.Background()))
}
