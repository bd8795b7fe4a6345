package app

import (
	"context"
	"time"

	"github.com/Zerofisher/pktdash/agent"
	"github.com/Zerofisher/pktdash/agent/llm"
	"github.com/Zerofisher/pktdash/internal/config"
	"github.com/Zerofisher/pktdash/internal/tracing"
	"github.com/Zerofisher/pktdash/pkg/gateway"
	"github.com/Zerofisher/pktdash/pkg/model"
	"github.com/Zerofisher/pktdash/pkg/value"
)

// SetupAnalyst creates the analysis client from the analysis section of cfg,
// falling back to environment detection for anything left empty.
func SetupAnalyst(cfg *config.Config, rows agent.RowSource) (*agent.Analyst, error) {
	provider := llm.ParseProvider(cfg.Analysis.Provider)
	if provider == "" {
		provider = llm.DetectProvider()
	}
	if provider == "" {
		provider = llm.ProviderOllama
	}

	lc := llm.ConfigFromEnv(provider)
	if cfg.Analysis.Model != "" {
		lc.Model = cfg.Analysis.Model
	}
	if cfg.Analysis.BaseURL != "" {
		lc.BaseURL = cfg.Analysis.BaseURL
	}
	if cfg.Analysis.Timeout > 0 {
		lc.Timeout = cfg.Analysis.Timeout
	}

	client, err := agent.NewLLMClient(provider, lc)
	if err != nil {
		return nil, err
	}
	analyst := agent.NewAnalyst(tracing.WrapClient(client), rows, cfg.Analysis.SampleRows)
	if cfg.Analysis.Redact {
		analyst.SetRedaction(agent.DefaultRedactConfig())
	}
	return analyst, nil
}

func (b *Backend) runAnalysis(ctx context.Context, p gateway.Params) (value.Value, error) {
	if b.analyst == nil {
		return value.Null(), gateway.Errorf(gateway.KindBackend, "analysis unavailable: %v", b.analystErr)
	}

	if b.cfg != nil && b.cfg.Analysis.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.Analysis.Timeout+5*time.Second)
		defer cancel()
	}

	start := time.Now()
	res, err := b.analyst.Analyze(ctx, model.AnalysisFilter{
		Table:         p.Table,
		Protocol:      p.Protocol,
		SourceIP:      p.SourceIP,
		DestinationIP: p.DestinationIP,
	})
	if err != nil {
		return value.Null(), queryError(err)
	}

	b.logger.Info().
		Str("table", p.Table).
		Str("model", res.Model).
		Int("rows", res.Rows).
		Dur("took", time.Since(start)).
		Msg("analysis finished")
	return res.Payload(), nil
}
