// Package openrouter reaches OpenRouter through its OpenAI-compatible API.
package openrouter

import (
	"errors"
	"os"

	"github.com/Zerofisher/pktdash/agent/llm"
	"github.com/Zerofisher/pktdash/agent/providers/openai"
)

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultModel   = "anthropic/claude-sonnet-4"
)

// ErrNoKey is returned when neither the config nor OPENROUTER_API_KEY
// carries a key.
var ErrNoKey = errors.New("openrouter: OPENROUTER_API_KEY not set")

// attribution identifies pktdash on OpenRouter's usage pages. Headers
// already present in the config are kept.
var attribution = map[string]string{
	"HTTP-Referer": "https://github.com/Zerofisher/pktdash",
	"X-Title":      "pktdash",
}

// New returns an OpenAI client pointed at OpenRouter. cfg is filled in
// place; nil uses the defaults.
func New(cfg *llm.Config) (*openai.Client, error) {
	if cfg == nil {
		cfg = llm.DefaultConfig()
	}
	cfg.APIKey = llm.FirstNonEmpty(cfg.APIKey, os.Getenv("OPENROUTER_API_KEY"))
	if cfg.APIKey == "" {
		return nil, ErrNoKey
	}
	cfg.BaseURL = llm.FirstNonEmpty(cfg.BaseURL, DefaultBaseURL)
	cfg.Model = llm.FirstNonEmpty(cfg.Model, os.Getenv("AI_MODEL"), DefaultModel)

	if cfg.ExtraHeader == nil {
		cfg.ExtraHeader = make(map[string]string, len(attribution))
	}
	for k, v := range attribution {
		if _, ok := cfg.ExtraHeader[k]; !ok {
			cfg.ExtraHeader[k] = v
		}
	}
	return openai.NewWithProvider(cfg, llm.ProviderOpenRouter)
}
