package llm

import (
	"os"
	"strings"
)

// providerEnv names the environment variables a provider reads.
type providerEnv struct {
	key     string // API key
	baseURL string // endpoint override
}

var envByProvider = map[Provider]providerEnv{
	ProviderClaude:     {key: "ANTHROPIC_API_KEY", baseURL: "ANTHROPIC_BASE_URL"},
	ProviderOpenAI:     {key: "OPENAI_API_KEY", baseURL: "OPENAI_BASE_URL"},
	ProviderOpenRouter: {key: "OPENROUTER_API_KEY"},
	ProviderOllama:     {key: "OLLAMA_API_KEY", baseURL: "OLLAMA_BASE_URL"},
}

// detectOrder is the order DetectProvider probes the environment in. Ollama
// needs no key, so its base URL is what marks it as configured.
var detectOrder = []struct {
	provider Provider
	env      string
}{
	{ProviderOpenRouter, "OPENROUTER_API_KEY"},
	{ProviderClaude, "ANTHROPIC_API_KEY"},
	{ProviderOpenAI, "OPENAI_API_KEY"},
	{ProviderOllama, "OLLAMA_BASE_URL"},
}

// ParseProvider maps a user-supplied name to a Provider. It returns "" for
// unknown names.
func ParseProvider(name string) Provider {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "claude", "anthropic":
		return ProviderClaude
	case "openai":
		return ProviderOpenAI
	case "openrouter":
		return ProviderOpenRouter
	case "ollama":
		return ProviderOllama
	}
	return ""
}

// DetectProvider picks the analysis provider from the environment: an
// explicit AI_PROVIDER wins, then the first provider in detectOrder whose
// variable is set. It returns "" when nothing is configured.
func DetectProvider() Provider {
	if p := ParseProvider(os.Getenv("AI_PROVIDER")); p != "" {
		return p
	}
	for _, d := range detectOrder {
		if os.Getenv(d.env) != "" {
			return d.provider
		}
	}
	return ""
}

// ConfigFromEnv returns the default config with the model, key and base URL
// for provider filled in from the environment.
func ConfigFromEnv(provider Provider) *Config {
	cfg := DefaultConfig()
	cfg.Model = os.Getenv("AI_MODEL")
	if env, ok := envByProvider[provider]; ok {
		cfg.APIKey = os.Getenv(env.key)
		if env.baseURL != "" {
			cfg.BaseURL = os.Getenv(env.baseURL)
		}
	}
	return cfg
}

// FirstNonEmpty returns the first non-empty value.
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
