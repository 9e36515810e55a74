package providers

import (
	"os"
	"strings"

	"modelrouter/internal/core"
)

// knownProviderEnvs lists providers whose credential does not follow the <PROVIDER>_API_KEY convention.
var knownProviderEnvs = map[string]string{
	"github":      "GITHUB_TOKEN",
	"huggingface": "HUGGINGFACE_API_KEY",
	"gemini":      "GEMINI_API_KEY",
}

// keylessProviders run without any credential.
var keylessProviders = map[string]bool{
	"ollama": true,
	"puter":  true,
}

// CloudflareAccountEnv names the second Cloudflare credential.
const CloudflareAccountEnv = "CLOUDFLARE_ACCOUNT_ID"

// APIKeyEnv returns the environment variable holding a provider's credential:
// upper-cased, hyphens and dots replaced by underscores, suffixed with _API_KEY.
func APIKeyEnv(provider string) string {
	if env, ok := knownProviderEnvs[provider]; ok {
		return env
	}
	return envPrefix(provider) + "_API_KEY"
}

// BaseURLEnv returns the environment variable that overrides a provider's endpoint.
func BaseURLEnv(provider string) string {
	return envPrefix(provider) + "_BASE_URL"
}

func envPrefix(provider string) string {
	r := strings.NewReplacer("-", "_", ".", "_", " ", "_")
	return strings.ToUpper(r.Replace(provider))
}

// Credentials looks up provider secrets at call time.
type Credentials struct {
	lookup func(string) string
}

// EnvCredentials reads secrets from the process environment.
func EnvCredentials() Credentials {
	return Credentials{lookup: os.Getenv}
}

// StaticCredentials serves secrets from a fixed map keyed by environment variable name.
func StaticCredentials(values map[string]string) Credentials {
	return Credentials{lookup: func(k string) string { return values[k] }}
}

// Lookup returns the raw value of an environment variable, or "".
func (c Credentials) Lookup(name string) string {
	if c.lookup == nil {
		return ""
	}
	return strings.TrimSpace(c.lookup(name))
}

// Require returns the named value or a configuration error attributed to provider.
func (c Credentials) Require(provider, name string) (string, error) {
	if v := c.Lookup(name); v != "" {
		return v, nil
	}
	return "", core.NewMissingCredentialError(provider, name)
}

// APIKey returns the provider's credential. Keyless providers return "" without error.
func (c Credentials) APIKey(provider string) (string, error) {
	if keylessProviders[provider] {
		return c.Lookup(APIKeyEnv(provider)), nil
	}
	return c.Require(provider, APIKeyEnv(provider))
}

// BaseURL returns the endpoint override for provider, or fallback when none is set.
func (c Credentials) BaseURL(provider, fallback string) string {
	if v := c.Lookup(BaseURLEnv(provider)); v != "" {
		return strings.TrimRight(v, "/")
	}
	return fallback
}

// Configured reports whether every credential the provider needs is present.
func (c Credentials) Configured(provider string) bool {
	if keylessProviders[provider] {
		return true
	}
	if c.Lookup(APIKeyEnv(provider)) == "" {
		return false
	}
	if provider == "cloudflare" {
		return c.Lookup(CloudflareAccountEnv) != ""
	}
	return true
}
