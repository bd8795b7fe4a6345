// Package query provides the read side of capture storage: table listing,
// raw table rows, distinct filter values and aggregates.
package query

import (
	"context"
	"errors"

	"github.com/Zerofisher/pktdash/pkg/model"
)

// ErrUnknownTable is returned for names that are not capture tables.
var ErrUnknownTable = errors.New("unknown capture table")

// Column is a column whose distinct values feed the analysis filters.
type Column string

const (
	ColumnSource      Column = "source"
	ColumnDestination Column = "destination"
	ColumnProtocol    Column = "protocol"
)

func (c Column) valid() bool {
	switch c {
	case ColumnSource, ColumnDestination, ColumnProtocol:
		return true
	}
	return false
}

// Engine provides the main query interface.
type Engine interface {
	// Tables
	ListTables(ctx context.Context) ([]string, error)
	TableData(ctx context.Context, table string) (model.ResultSet, error)

	// Filter values
	Distinct(ctx context.Context, table string, col Column) ([]string, error)

	// Aggregates
	IPStats(ctx context.Context, table string) ([]model.IPStat, error)
	PacketsPerSecond(ctx context.Context, table string) ([]model.RatePoint, error)
	PacketTypes(ctx context.Context, table string) ([]model.TypeCount, error)

	// Analysis input
	SampleRows(ctx context.Context, f model.AnalysisFilter, limit int) ([]*model.PacketRecord, error)
}
