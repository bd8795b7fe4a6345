// Package agent runs packet analysis requests against a chat model.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Zerofisher/pktdash/agent/llm"
	"github.com/Zerofisher/pktdash/agent/providers/claude"
	"github.com/Zerofisher/pktdash/agent/providers/ollama"
	"github.com/Zerofisher/pktdash/agent/providers/openai"
	"github.com/Zerofisher/pktdash/agent/providers/openrouter"
	"github.com/Zerofisher/pktdash/pkg/model"
)

// DefaultSampleRows is how many packets are sent to the model per request.
const DefaultSampleRows = 50

// PromptHeader opens every analysis prompt.
const PromptHeader = "Analyze the Data like a senior data analyst:"

// ErrNoPackets is returned when the filter matches nothing.
var ErrNoPackets = errors.New("no packets match the analysis filter")

// RowSource supplies the packets to analyze.
type RowSource interface {
	SampleRows(ctx context.Context, f model.AnalysisFilter, limit int) ([]*model.PacketRecord, error)
}

// Analyst turns a filtered packet sample into a model prompt and returns
// the model's answer.
type Analyst struct {
	client     llm.Client
	rows       RowSource
	sampleRows int
	maxTokens  int
	redact     *RedactConfig
}

// NewAnalyst creates an analyst. sampleRows <= 0 selects DefaultSampleRows.
func NewAnalyst(client llm.Client, rows RowSource, sampleRows int) *Analyst {
	if sampleRows <= 0 {
		sampleRows = DefaultSampleRows
	}
	return &Analyst{client: client, rows: rows, sampleRows: sampleRows, maxTokens: 2048}
}

// SetRedaction masks addresses and credentials in every later prompt.
// nil sends packets as stored.
func (a *Analyst) SetRedaction(cfg *RedactConfig) {
	a.redact = cfg
}

// Analyze samples packets matching f and asks the model about them.
func (a *Analyst) Analyze(ctx context.Context, f model.AnalysisFilter) (model.Analysis, error) {
	records, err := a.rows.SampleRows(ctx, f, a.sampleRows)
	if err != nil {
		return model.Analysis{}, fmt.Errorf("sample rows: %w", err)
	}
	if len(records) == 0 {
		return model.Analysis{}, ErrNoPackets
	}

	resp, err := a.client.Chat(ctx, &llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildPrompt(records, a.redact)},
		},
		MaxTokens: a.maxTokens,
	})
	if err != nil {
		return model.Analysis{}, err
	}

	return model.Analysis{
		Provider: string(a.client.Provider()),
		Model:    a.client.ModelID(),
		Rows:     len(records),
		Response: resp.Content,
	}, nil
}

// BuildPrompt renders one line per packet under PromptHeader.
func BuildPrompt(records []*model.PacketRecord) string {
	return buildPrompt(records, nil)
}

func buildPrompt(records []*model.PacketRecord, redact *RedactConfig) string {
	var b strings.Builder
	b.WriteString(PromptHeader)
	for _, p := range records {
		payload := p.PayloadString()
		if redact != nil && redact.Enabled {
			payload = ClampString(RedactText(payload, redact), redact.MaxPayload)
		}
		payload = strings.ReplaceAll(payload, "\n", " ")
		fmt.Fprintf(&b, "\nTimestamp: %s, Packet Type: %s, Source: %s, Destination: %s, Protocol: %s, Payload (String): %s",
			p.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
			p.PacketType, redactAddr(p.Source, redact), redactAddr(p.Destination, redact), p.Protocol,
			payload)
	}
	return b.String()
}

// NewLLMClient creates a client for provider. An empty provider is detected
// from the environment and falls back to a local Ollama server.
func NewLLMClient(provider llm.Provider, cfg *llm.Config) (llm.Client, error) {
	if provider == "" {
		provider = llm.DetectProvider()
	}
	if provider == "" {
		provider = llm.ProviderOllama
	}
	if cfg == nil {
		cfg = llm.ConfigFromEnv(provider)
	}

	switch provider {
	case llm.ProviderClaude:
		return claude.New(cfg)
	case llm.ProviderOpenAI:
		return openai.New(cfg)
	case llm.ProviderOpenRouter:
		return openrouter.New(cfg)
	case llm.ProviderOllama:
		return ollama.New(cfg)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", provider)
	}
}
