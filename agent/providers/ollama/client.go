// Package ollama reaches a local Ollama server through its OpenAI-compatible
// /v1 API.
package ollama

import (
	"fmt"
	"os"
	"strings"

	"github.com/Zerofisher/pktdash/agent/llm"
	"github.com/Zerofisher/pktdash/agent/providers/openai"
)

const (
	DefaultBaseURL = "http://localhost:11434/v1"
	DefaultModel   = "llama3.1"

	// placeholderKey satisfies the SDK; Ollama ignores the key.
	placeholderKey = "ollama"
)

// New returns an OpenAI client pointed at Ollama. cfg is filled in place;
// nil uses the defaults.
func New(cfg *llm.Config) (*openai.Client, error) {
	if cfg == nil {
		cfg = llm.DefaultConfig()
	}
	cfg.BaseURL = CompatURL(llm.FirstNonEmpty(cfg.BaseURL, os.Getenv("OLLAMA_BASE_URL"), DefaultBaseURL))
	cfg.Model = llm.FirstNonEmpty(cfg.Model, os.Getenv("AI_MODEL"), DefaultModel)
	cfg.APIKey = llm.FirstNonEmpty(cfg.APIKey, os.Getenv("OLLAMA_API_KEY"), placeholderKey)

	client, err := openai.NewWithProvider(cfg, llm.ProviderOllama)
	if err != nil {
		return nil, fmt.Errorf("ollama at %s: %w", cfg.BaseURL, err)
	}
	return client, nil
}

// CompatURL appends the /v1 suffix of the OpenAI-compatible API to a bare
// Ollama server URL.
func CompatURL(base string) string {
	base = strings.TrimRight(base, "/")
	if strings.HasSuffix(base, "/v1") {
		return base
	}
	return base + "/v1"
}
