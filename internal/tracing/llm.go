package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Zerofisher/pktdash/agent/llm"
)

// TracedClient wraps an llm.Client to add a span per Chat call using the
// GenAI semantic conventions.
type TracedClient struct {
	client llm.Client
}

// WrapClient wraps an LLM client with tracing.
// If tracing is not enabled, returns the original client unchanged.
func WrapClient(client llm.Client) llm.Client {
	if !enabled {
		return client
	}
	return &TracedClient{client: client}
}

// Chat implements llm.Client.Chat with tracing.
func (c *TracedClient) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	ctx, span := tracer().Start(ctx, "llm.chat",
		trace.WithSpanKind(trace.SpanKindClient),
	)
	defer span.End()

	span.SetAttributes(
		attribute.String("gen_ai.system", string(c.client.Provider())),
		attribute.String("gen_ai.request.model", c.client.ModelID()),
		attribute.String("gen_ai.operation.name", "chat"),
		attribute.Int("gen_ai.request.message_count", len(req.Messages)),
	)

	// Langfuse shows the last user message as the trace input.
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == llm.RoleUser && req.Messages[i].Content != "" {
			preview := attrText(req.Messages[i].Content)
			span.SetAttributes(
				attribute.String("gen_ai.prompt", preview),
				attribute.String("input", preview),
			)
			break
		}
	}

	resp, err := c.client.Chat(ctx, req)
	if err != nil {
		span.RecordError(sanitizedError(err))
		span.SetStatus(codes.Error, attrText(err.Error()))
		return nil, err
	}

	outputPreview := attrText(resp.Content)
	span.SetAttributes(
		attribute.String("gen_ai.completion", outputPreview),
		attribute.String("output", outputPreview),
	)
	if resp.Usage != nil {
		span.SetAttributes(
			attribute.Int("gen_ai.usage.input_tokens", resp.Usage.PromptTokens),
			attribute.Int("gen_ai.usage.output_tokens", resp.Usage.CompletionTokens),
		)
	}

	span.SetStatus(codes.Ok, "")
	return resp, nil
}

// Provider implements llm.Client.Provider.
func (c *TracedClient) Provider() llm.Provider {
	return c.client.Provider()
}

// ModelID implements llm.Client.ModelID.
func (c *TracedClient) ModelID() string {
	return c.client.ModelID()
}

// sanitizedErr carries a UTF-8 safe message so RecordError never fails.
type sanitizedErr struct {
	original error
	message  string
}

func (e *sanitizedErr) Error() string {
	return e.message
}

func (e *sanitizedErr) Unwrap() error {
	return e.original
}

func sanitizedError(err error) error {
	if err == nil {
		return nil
	}
	return &sanitizedErr{
		original: err,
		message:  attrText(fmt.Sprintf("%v", err)),
	}
}
