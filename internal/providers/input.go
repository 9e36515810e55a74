package providers

import (
	"fmt"
	"strings"

	"modelrouter/internal/core"
)

// Input is a CallInput with defaults applied and the message list resolved.
type Input struct {
	Messages    []core.Message
	System      string
	Temperature float64
	MaxTokens   int
	Task        string
}

// NormalizeInput synthesizes a single user message from Prompt when no messages are
// given, and fills temperature and max tokens with their defaults.
func NormalizeInput(in *core.CallInput) (Input, error) {
	if in == nil {
		return Input{}, core.NewValidationError("prompt", nil, "prompt or messages is required")
	}

	out := Input{
		System:      in.System,
		Temperature: core.DefaultTemperature,
		MaxTokens:   core.DefaultMaxTokens,
		Task:        in.Task,
	}
	if out.Task == "" {
		out.Task = core.TaskChat
	}
	if in.Temperature != nil {
		out.Temperature = *in.Temperature
	}
	if in.MaxTokens != nil && *in.MaxTokens > 0 {
		out.MaxTokens = *in.MaxTokens
	}

	switch {
	case len(in.Messages) > 0:
		out.Messages = append([]core.Message(nil), in.Messages...)
	case strings.TrimSpace(in.Prompt) != "":
		out.Messages = []core.Message{{Role: "user", Content: in.Prompt}}
	default:
		return Input{}, core.NewValidationError("prompt", in.Prompt, "prompt or messages is required")
	}
	return out, nil
}

// WithSystem returns the messages with System prepended as a system message when set.
func (in Input) WithSystem() []core.Message {
	if in.System == "" {
		return in.Messages
	}
	msgs := make([]core.Message, 0, len(in.Messages)+1)
	msgs = append(msgs, core.Message{Role: "system", Content: in.System})
	return append(msgs, in.Messages...)
}

// SplitSystem separates system-role messages from the conversation. Input.System comes first.
func (in Input) SplitSystem() (string, []core.Message) {
	var system []string
	if in.System != "" {
		system = append(system, in.System)
	}
	msgs := make([]core.Message, 0, len(in.Messages))
	for _, m := range in.Messages {
		if m.Role == "system" {
			system = append(system, m.Content)
			continue
		}
		msgs = append(msgs, m)
	}
	return strings.Join(system, "\n\n"), msgs
}

// Prompt flattens the conversation into one string for completion-style endpoints.
// A lone user message is returned verbatim.
func (in Input) Prompt() string {
	msgs := in.WithSystem()
	if len(msgs) == 1 && msgs[0].Role == "user" {
		return msgs[0].Content
	}
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
	}
	b.WriteString("\nassistant:")
	return b.String()
}

// RequireChat rejects tasks other than chat for adapters that only generate text.
func (in Input) RequireChat(provider string) error {
	if in.Task == core.TaskChat {
		return nil
	}
	err := core.NewValidationError("task", in.Task, fmt.Sprintf("%s only supports the chat task", provider))
	err.Provider = provider
	return err
}
