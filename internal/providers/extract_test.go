package providers

import "testing"

func TestExtractContent(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"openai compatible", `{"choices":[{"message":{"content":"hi"}}]}`, "hi"},
		{"anthropic blocks", `{"content":[{"type":"text","text":"from claude"}]}`, "from claude"},
		{"gemini", `{"candidates":[{"content":{"parts":[{"text":"from gemini"}]}}]}`, "from gemini"},
		{"cohere", `{"message":{"content":[{"type":"text","text":"from cohere"}]}}`, "from cohere"},
		{"cloudflare", `{"result":{"response":"from workers"},"success":true}`, "from workers"},
		{"huggingface object", `{"generated_text":"from hf"}`, "from hf"},
		{"huggingface array", `[{"generated_text":"from hf list"}]`, "from hf list"},
		{"brokered chat", `{"message":{"role":"assistant","content":"from puter"}}`, "from puter"},
		{
			name: "openai wins over later shapes",
			raw:  `{"choices":[{"message":{"content":"first"}}],"generated_text":"second"}`,
			want: "first",
		},
		{
			name: "null content falls through",
			raw:  `{"choices":[{"message":{"content":null}}],"result":{"response":"fallback"}}`,
			want: "fallback",
		},
		{"unknown shape", `{"unknown":"shape"}`, `{"unknown":"shape"}`},
		{"not json", `plain text answer`, `plain text answer`},
		{"empty", ``, ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractContent([]byte(tt.raw)); got != tt.want {
				t.Errorf("ExtractContent() = %q, want %q", got, tt.want)
			}
		})
	}
}
