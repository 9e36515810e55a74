package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelrouter/internal/core"
)

func TestNormalizeInput_PromptBecomesMessage(t *testing.T) {
	in, err := NormalizeInput(&core.CallInput{Prompt: "hello"})
	require.NoError(t, err)

	assert.Equal(t, []core.Message{{Role: "user", Content: "hello"}}, in.Messages)
	assert.Equal(t, core.DefaultTemperature, in.Temperature)
	assert.Equal(t, core.DefaultMaxTokens, in.MaxTokens)
	assert.Equal(t, core.TaskChat, in.Task)
}

func TestNormalizeInput_MessagesWinOverPrompt(t *testing.T) {
	temp := 0.2
	maxTokens := 64
	in, err := NormalizeInput(&core.CallInput{
		Prompt:      "ignored",
		Messages:    []core.Message{{Role: "user", Content: "a"}, {Role: "assistant", Content: "b"}},
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	})
	require.NoError(t, err)

	assert.Len(t, in.Messages, 2)
	assert.Equal(t, 0.2, in.Temperature)
	assert.Equal(t, 64, in.MaxTokens)
}

func TestNormalizeInput_ZeroTemperatureIsKept(t *testing.T) {
	zero := 0.0
	in, err := NormalizeInput(&core.CallInput{Prompt: "x", Temperature: &zero})
	require.NoError(t, err)
	assert.Equal(t, 0.0, in.Temperature)
}

func TestNormalizeInput_Empty(t *testing.T) {
	_, err := NormalizeInput(&core.CallInput{Prompt: "   "})
	require.Error(t, err)

	gwErr, ok := err.(*core.GatewayError)
	require.True(t, ok)
	assert.Equal(t, core.ErrorTypeInvalidRequest, gwErr.Type)
	assert.Equal(t, "prompt", gwErr.Field)
}

func TestInput_SystemHandling(t *testing.T) {
	in := Input{
		System: "be brief",
		Messages: []core.Message{
			{Role: "system", Content: "no emojis"},
			{Role: "user", Content: "hi"},
		},
	}

	msgs := in.WithSystem()
	require.Len(t, msgs, 3)
	assert.Equal(t, "system", msgs[0].Role)

	system, rest := in.SplitSystem()
	assert.Equal(t, "be brief\n\nno emojis", system)
	assert.Equal(t, []core.Message{{Role: "user", Content: "hi"}}, rest)
}

func TestInput_Prompt(t *testing.T) {
	single := Input{Messages: []core.Message{{Role: "user", Content: "only"}}}
	assert.Equal(t, "only", single.Prompt())

	multi := Input{Messages: []core.Message{
		{Role: "user", Content: "q"},
		{Role: "assistant", Content: "a"},
		{Role: "user", Content: "q2"},
	}}
	assert.Equal(t, "user: q\nassistant: a\nuser: q2\nassistant:", multi.Prompt())
}
