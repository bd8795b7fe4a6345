// Package openai provides a chat client for OpenAI and OpenAI-compatible
// endpoints using the official SDK.
package openai

import (
	"context"
	"fmt"
	"os"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/Zerofisher/pktdash/agent/llm"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-5.1"
)

// Client implements llm.Client for OpenAI and compatible APIs
type Client struct {
	config   *llm.Config
	sdk      openai.Client
	provider llm.Provider
}

// New creates a new OpenAI client
func New(cfg *llm.Config) (*Client, error) {
	if cfg == nil {
		cfg = llm.DefaultConfig()
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	if cfg.Model == "" {
		cfg.Model = os.Getenv("AI_MODEL")
	}
	return NewWithProvider(cfg, llm.ProviderOpenAI)
}

// NewWithProvider creates a client with custom provider type (for OpenRouter, Ollama, etc.)
func NewWithProvider(cfg *llm.Config, provider llm.Provider) (*Client, error) {
	if cfg == nil {
		cfg = llm.DefaultConfig()
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key not set")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.BaseURL != DefaultBaseURL {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	for k, v := range cfg.ExtraHeader {
		opts = append(opts, option.WithHeader(k, v))
	}

	return &Client{
		config:   cfg,
		sdk:      openai.NewClient(opts...),
		provider: provider,
	}, nil
}

func (c *Client) Provider() llm.Provider {
	return c.provider
}

func (c *Client) ModelID() string {
	return c.config.Model
}

func (c *Client) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	completion, err := c.sdk.Chat.Completions.New(ctx, c.buildParams(req))
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	return parseResponse(completion)
}

func (c *Client) buildParams(req *llm.ChatRequest) openai.ChatCompletionNewParams {
	model := req.Model
	if model == "" {
		model = c.config.Model
	}

	params := openai.ChatCompletionNewParams{
		Model: model,
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}
	params.MaxCompletionTokens = openai.Int(int64(maxTokens))

	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	for _, msg := range req.Messages {
		params.Messages = append(params.Messages, convertMessage(msg))
	}
	return params
}

func convertMessage(msg llm.Message) openai.ChatCompletionMessageParamUnion {
	switch msg.Role {
	case llm.RoleSystem:
		return openai.SystemMessage(msg.Content)
	case llm.RoleAssistant:
		return openai.AssistantMessage(msg.Content)
	default:
		return openai.UserMessage(msg.Content)
	}
}

func parseResponse(resp *openai.ChatCompletion) (*llm.ChatResponse, error) {
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	choice := resp.Choices[0]
	return &llm.ChatResponse{
		Content:    choice.Message.Content,
		StopReason: string(choice.FinishReason),
		Usage: &llm.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}
