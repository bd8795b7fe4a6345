package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Zerofisher/pktdash/pkg/gateway"
)

// TracedGateway records one client span per gateway command.
type TracedGateway struct {
	next gateway.Gateway
}

// WrapGateway wraps gw with tracing. If tracing is not enabled, gw is
// returned unchanged.
func WrapGateway(gw gateway.Gateway) gateway.Gateway {
	if !enabled {
		return gw
	}
	return &TracedGateway{next: gw}
}

// Call implements gateway.Gateway.
func (g *TracedGateway) Call(ctx context.Context, cmd gateway.Command, p gateway.Params) gateway.Result {
	ctx, span := tracer().Start(ctx, "gateway."+string(cmd),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	defer span.End()

	span.SetAttributes(attribute.String("gateway.command", string(cmd)))
	if p.Interface != "" {
		span.SetAttributes(attribute.String("gateway.interface", p.Interface))
	}
	if p.Table != "" {
		span.SetAttributes(attribute.String("gateway.table", p.Table))
	}

	res := g.next.Call(ctx, cmd, p)
	if !res.OK() {
		span.SetAttributes(attribute.String("gateway.error_kind", string(res.Err.Kind)))
		span.SetStatus(codes.Error, attrText(res.Err.Message))
		return res
	}
	span.SetAttributes(attribute.Int("gateway.payload_len", res.Payload.Len()))
	span.SetStatus(codes.Ok, "")
	return res
}
