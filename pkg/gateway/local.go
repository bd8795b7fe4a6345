package gateway

import (
	"context"
	"fmt"

	"github.com/Zerofisher/pktdash/pkg/value"
)

// Handler serves one command in-process.
type Handler func(ctx context.Context, p Params) (value.Value, error)

// Local dispatches commands to in-process handlers.
type Local struct {
	handlers map[Command]Handler
}

// NewLocal returns a gateway with no handlers registered.
func NewLocal() *Local {
	return &Local{handlers: make(map[Command]Handler)}
}

// Handle registers h for cmd, replacing any previous handler.
func (l *Local) Handle(cmd Command, h Handler) {
	l.handlers[cmd] = h
}

// Call implements Gateway.
func (l *Local) Call(ctx context.Context, cmd Command, p Params) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Fail(Errorf(KindBackend, "%s: %v", cmd, r))
		}
	}()

	if err := Validate(cmd, p); err != nil {
		return Fail(err)
	}
	h, ok := l.handlers[cmd]
	if !ok {
		return Fail(Errorf(KindBackend, "%s: not supported by this backend", cmd))
	}
	if err := ctx.Err(); err != nil {
		return Fail(Errorf(KindTransport, "%s: %v", cmd, err))
	}
	v, err := h(ctx, p)
	if err != nil {
		return Fail(AsError(fmt.Errorf("%s: %w", cmd, err)))
	}
	return Ok(v)
}
