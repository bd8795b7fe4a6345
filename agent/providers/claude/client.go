// Package claude provides Anthropic Claude API client using the official SDK
package claude

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/Zerofisher/pktdash/agent/llm"
)

const (
	DefaultBaseURL = "https://api.anthropic.com"
	DefaultModel   = "claude-sonnet-4-20250514"
)

// Client implements llm.Client for Anthropic Claude
type Client struct {
	config *llm.Config
	sdk    anthropic.Client
}

// New creates a new Claude client
func New(cfg *llm.Config) (*Client, error) {
	if cfg == nil {
		cfg = llm.DefaultConfig()
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
	}
	cfg.APIKey = apiKey

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = os.Getenv("AI_MODEL")
		if cfg.Model == "" {
			cfg.Model = DefaultModel
		}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
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
		config: cfg,
		sdk:    anthropic.NewClient(opts...),
	}, nil
}

func (c *Client) Provider() llm.Provider {
	return llm.ProviderClaude
}

func (c *Client) ModelID() string {
	return c.config.Model
}

func (c *Client) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	message, err := c.sdk.Messages.New(ctx, c.buildParams(req))
	if err != nil {
		return nil, fmt.Errorf("chat message failed: %w", err)
	}
	return parseResponse(message), nil
}

func (c *Client) buildParams(req *llm.ChatRequest) anthropic.MessageNewParams {
	model := req.Model
	if model == "" {
		model = c.config.Model
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	var system []string
	for _, msg := range req.Messages {
		switch msg.Role {
		case llm.RoleSystem:
			system = append(system, msg.Content)
		case llm.RoleAssistant:
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	if len(system) > 0 {
		params.System = []anthropic.TextBlockParam{
			{Text: strings.Join(system, "\n\n")},
		}
	}
	return params
}

func parseResponse(msg *anthropic.Message) *llm.ChatResponse {
	result := &llm.ChatResponse{
		StopReason: string(msg.StopReason),
		Usage: &llm.Usage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
			TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
	}

	var textParts []string
	for _, block := range msg.Content {
		if v, ok := block.AsAny().(anthropic.TextBlock); ok {
			textParts = append(textParts, v.Text)
		}
	}
	result.Content = strings.Join(textParts, "\n")
	return result
}
