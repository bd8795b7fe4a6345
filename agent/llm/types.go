// Package llm provides a provider-neutral chat client used by the analysis
// service.
package llm

import (
	"context"
	"time"
)

// Provider represents different LLM providers
type Provider string

const (
	ProviderClaude     Provider = "claude"
	ProviderOpenAI     Provider = "openai"
	ProviderOpenRouter Provider = "openrouter"
	ProviderOllama     Provider = "ollama"
)

// Message is one chat turn.
type Message struct {
	Role    Role
	Content string
}

// Role represents message roles
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatRequest represents a unified chat request
type ChatRequest struct {
	Model       string    // model identifier, empty for the client default
	Messages    []Message // conversation history
	MaxTokens   int       // max tokens to generate
	Temperature float64   // sampling temperature (0-1)
}

// ChatResponse represents a unified chat response
type ChatResponse struct {
	Content    string // text content from assistant
	StopReason string // why the model stopped (end_turn, max_tokens, etc.)
	Usage      *Usage // token usage (optional)
}

// Usage represents token usage statistics
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Client is the unified interface for all LLM providers
type Client interface {
	// Chat sends a chat request and returns the response
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Provider returns the provider type
	Provider() Provider

	// ModelID returns the current model identifier
	ModelID() string
}

// Config holds common configuration for LLM clients
type Config struct {
	APIKey      string            // API key for authentication
	BaseURL     string            // Base URL for API requests
	Model       string            // Model identifier
	Timeout     time.Duration     // Request timeout
	MaxRetries  int               // Max retry attempts
	ExtraHeader map[string]string // Extra HTTP headers
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Timeout:    120 * time.Second,
		MaxRetries: 2,
	}
}
