// Package app wires storage, capture, queries and analysis into the command
// gateway that the dashboard and the remote server talk to.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Zerofisher/pktdash/agent"
	"github.com/Zerofisher/pktdash/capture"
	"github.com/Zerofisher/pktdash/internal/config"
	"github.com/Zerofisher/pktdash/internal/tracing"
	"github.com/Zerofisher/pktdash/pkg/gateway"
	"github.com/Zerofisher/pktdash/pkg/model"
	"github.com/Zerofisher/pktdash/pkg/query"
	"github.com/Zerofisher/pktdash/pkg/store/sqlite"
	"github.com/Zerofisher/pktdash/pkg/value"
)

// Backend is the in-process implementation of every gateway command.
type Backend struct {
	store    *sqlite.SQLiteStore
	engine   *query.SQLiteEngine
	sessions *capture.Manager
	analyst  *agent.Analyst
	logger   zerolog.Logger

	// analystErr explains why analyst is nil.
	analystErr error

	// listInterfaces is capture.ListInterfaces outside of tests.
	listInterfaces func() ([]model.Interface, error)

	cfg *config.Config
}

// Open creates the backend described by cfg. A missing or misconfigured
// analysis provider does not fail Open; run_analysis reports it instead.
func Open(cfg *config.Config, logger zerolog.Logger) (*Backend, error) {
	st, err := sqlite.New(sqlite.Config{DBPath: cfg.Database, WAL: true})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	b := &Backend{
		store:          st,
		engine:         query.NewSQLiteEngine(st),
		sessions:       capture.NewManager(st, CaptureManagerConfig(cfg), logger),
		logger:         logger,
		listInterfaces: capture.ListInterfaces,
		cfg:            cfg,
	}

	b.analyst, b.analystErr = SetupAnalyst(cfg, b.engine)
	if b.analystErr != nil {
		logger.Warn().Err(b.analystErr).Msg("analysis disabled")
	}
	return b, nil
}

// Sessions exposes the capture session manager.
func (b *Backend) Sessions() *capture.Manager { return b.sessions }

// Engine exposes the query engine.
func (b *Backend) Engine() *query.SQLiteEngine { return b.engine }

// Close stops a running capture and closes the database.
func (b *Backend) Close() error {
	if b.sessions.Running() {
		if _, err := b.sessions.Stop(context.Background()); err != nil {
			b.logger.Warn().Err(err).Msg("stop capture on close")
		}
	}
	return b.store.Close()
}

// Gateway returns the command gateway backed by b.
func (b *Backend) Gateway() gateway.Gateway {
	l := gateway.NewLocal()

	l.Handle(gateway.StartCapture, b.startCapture)
	l.Handle(gateway.StopCapture, b.stopCapture)
	l.Handle(gateway.ListInterfaces, b.interfaces)

	l.Handle(gateway.ListTableNames, b.tableNames)
	l.Handle(gateway.GetTableData, b.tableData)
	l.Handle(gateway.ListSourceIPs, b.distinct(query.ColumnSource))
	l.Handle(gateway.ListDestinationIPs, b.distinct(query.ColumnDestination))
	l.Handle(gateway.ListProtocols, b.distinct(query.ColumnProtocol))

	l.Handle(gateway.GetIPStats, b.ipStats)
	l.Handle(gateway.GetPacketsPerSecond, b.packetsPerSecond)
	l.Handle(gateway.GetPacketTypes, b.packetTypes)

	l.Handle(gateway.RunAnalysis, b.runAnalysis)

	return tracing.WrapGateway(l)
}

func (b *Backend) tableNames(ctx context.Context, _ gateway.Params) (value.Value, error) {
	names, err := b.engine.ListTables(ctx)
	if err != nil {
		return value.Null(), err
	}
	return value.Strings(names), nil
}

func (b *Backend) tableData(ctx context.Context, p gateway.Params) (value.Value, error) {
	rs, err := b.engine.TableData(ctx, p.Table)
	if err != nil {
		return value.Null(), queryError(err)
	}
	return rs.Value(), nil
}

func (b *Backend) distinct(col query.Column) gateway.Handler {
	return func(ctx context.Context, p gateway.Params) (value.Value, error) {
		vals, err := b.engine.Distinct(ctx, p.Table, col)
		if err != nil {
			return value.Null(), queryError(err)
		}
		return value.Strings(vals), nil
	}
}

func (b *Backend) ipStats(ctx context.Context, p gateway.Params) (value.Value, error) {
	stats, err := b.engine.IPStats(ctx, p.Table)
	if err != nil {
		return value.Null(), queryError(err)
	}
	rows := make([]value.Value, len(stats))
	for i, s := range stats {
		rows[i] = s.Row()
	}
	return value.Array(rows...), nil
}

func (b *Backend) packetsPerSecond(ctx context.Context, p gateway.Params) (value.Value, error) {
	points, err := b.engine.PacketsPerSecond(ctx, p.Table)
	if err != nil {
		return value.Null(), queryError(err)
	}
	rows := make([]value.Value, len(points))
	for i, pt := range points {
		rows[i] = pt.Row()
	}
	return value.Array(rows...), nil
}

func (b *Backend) packetTypes(ctx context.Context, p gateway.Params) (value.Value, error) {
	counts, err := b.engine.PacketTypes(ctx, p.Table)
	if err != nil {
		return value.Null(), queryError(err)
	}
	rows := make([]value.Value, len(counts))
	for i, c := range counts {
		rows[i] = c.Row()
	}
	return value.Array(rows...), nil
}

// queryError reports unknown tables as validation failures; everything else
// stays a backend error.
func queryError(err error) error {
	if errors.Is(err, query.ErrUnknownTable) {
		return gateway.Errorf(gateway.KindValidation, "%v", err)
	}
	return err
}
