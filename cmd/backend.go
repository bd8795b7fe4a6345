package cmd

import (
	"context"
	"fmt"

	"github.com/Zerofisher/pktdash/internal/app"
	"github.com/Zerofisher/pktdash/pkg/gateway"
	"github.com/Zerofisher/pktdash/pkg/value"
)

// openGateway connects to the configured remote backend, or opens the local
// one. The returned closer releases it.
func openGateway(ctx context.Context) (gateway.Gateway, func() error, error) {
	if cfg.Backend.URL != "" {
		r, err := gateway.Dial(ctx, cfg.Backend.URL)
		if err != nil {
			return nil, nil, err
		}
		logger.Debug().Str("url", cfg.Backend.URL).Msg("using remote backend")
		return r, r.Close, nil
	}
	b, err := openBackend()
	if err != nil {
		return nil, nil, err
	}
	return b.Gateway(), b.Close, nil
}

// openBackend opens the in-process backend. Capture commands need it
// directly because they own the capture session.
func openBackend() (*app.Backend, error) {
	b, err := app.Open(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open backend: %w", err)
	}
	return b, nil
}

// call runs one gateway command and turns a failed result into an error.
func call(ctx context.Context, gw gateway.Gateway, c gateway.Command, p gateway.Params) (value.Value, error) {
	res := gw.Call(ctx, c, p)
	if !res.OK() {
		return value.Null(), res.Err
	}
	return res.Payload, nil
}
