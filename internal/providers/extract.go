package providers

import (
	"github.com/tidwall/gjson"
)

// contentPaths are tried in order; the first string match wins.
var contentPaths = []string{
	"choices.0.message.content",         // OpenAI-compatible
	"content.0.text",                    // Anthropic blocks
	"candidates.0.content.parts.0.text", // Gemini
	"message.content.0.text",            // Cohere v2
	"result.response",                   // Cloudflare Workers AI
	"generated_text",                    // HuggingFace object
	"0.generated_text",                  // HuggingFace array
	"choices.0.text",                    // completions
	"message.content",                   // brokered chat
}

// ExtractContent pulls the generated text out of a provider response.
// Unrecognized shapes fall back to the raw response text, so it never fails.
func ExtractContent(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	if gjson.ValidBytes(raw) {
		for _, path := range contentPaths {
			if r := gjson.GetBytes(raw, path); r.Exists() && r.Type == gjson.String {
				return r.String()
			}
		}
	}
	return string(raw)
}
