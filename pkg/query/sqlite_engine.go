package query

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Zerofisher/pktdash/pkg/model"
	"github.com/Zerofisher/pktdash/pkg/store/sqlite"
	"github.com/Zerofisher/pktdash/pkg/value"
)

// SQLiteEngine implements Engine using SQLite storage.
type SQLiteEngine struct {
	store *sqlite.SQLiteStore
}

var _ Engine = (*SQLiteEngine)(nil)

// NewSQLiteEngine creates a new SQLite-backed query engine.
func NewSQLiteEngine(store *sqlite.SQLiteStore) *SQLiteEngine {
	return &SQLiteEngine{store: store}
}

// Close closes the underlying store.
func (e *SQLiteEngine) Close() error {
	return e.store.Close()
}

// ListTables returns capture table names in ascending order.
func (e *SQLiteEngine) ListTables(ctx context.Context) ([]string, error) {
	rows, err := e.store.DB().QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name LIKE 'packet\_data\_%' ESCAPE '\'
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		if model.IsCaptureTable(name) {
			tables = append(tables, name)
		}
	}
	return tables, rows.Err()
}

// checkTable makes sure table names an existing capture table. Table names
// are interpolated into SQL, so every query goes through here first.
func (e *SQLiteEngine) checkTable(ctx context.Context, table string) error {
	if !model.IsCaptureTable(table) {
		return fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	var n int
	err := e.store.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	return nil
}

// TableData returns every row of table with columns in table order.
func (e *SQLiteEngine) TableData(ctx context.Context, table string) (model.ResultSet, error) {
	if err := e.checkTable(ctx, table); err != nil {
		return nil, err
	}
	rows, err := e.store.DB().QueryContext(ctx, fmt.Sprintf(`SELECT * FROM %s ORDER BY id`, table))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()
	return scanResultSet(rows)
}

// scanResultSet converts arbitrary rows into ordered object values.
func scanResultSet(rows *sql.Rows) (model.ResultSet, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	rs := model.ResultSet{}
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		fields := make([]value.Field, len(cols))
		for i, c := range cols {
			fields[i] = value.F(c, cellValue(raw[i]))
		}
		rs = append(rs, value.Object(fields...))
	}
	return rs, rows.Err()
}

func cellValue(x any) value.Value {
	switch t := x.(type) {
	case time.Time:
		return value.String(t.UTC().Format(time.RFC3339Nano))
	case []byte:
		if t == nil {
			return value.Null()
		}
	}
	v, err := value.FromNative(x)
	if err != nil {
		return value.String(fmt.Sprint(x))
	}
	return v
}

// Distinct returns the distinct non-empty values of col, ascending.
func (e *SQLiteEngine) Distinct(ctx context.Context, table string, col Column) ([]string, error) {
	if !col.valid() {
		return nil, fmt.Errorf("unsupported column %q", col)
	}
	if err := e.checkTable(ctx, table); err != nil {
		return nil, err
	}
	rows, err := e.store.DB().QueryContext(ctx, fmt.Sprintf(
		`SELECT DISTINCT %[1]s FROM %[2]s WHERE %[1]s IS NOT NULL AND %[1]s != '' ORDER BY %[1]s`,
		col, table))
	if err != nil {
		return nil, fmt.Errorf("distinct %s: %w", col, err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// IPStats counts, per address, the packets it sent and received. Busiest
// addresses come first.
func (e *SQLiteEngine) IPStats(ctx context.Context, table string) ([]model.IPStat, error) {
	if err := e.checkTable(ctx, table); err != nil {
		return nil, err
	}
	rows, err := e.store.DB().QueryContext(ctx, fmt.Sprintf(`
		SELECT ip, SUM(src) AS src, SUM(dst) AS dst
		FROM (
			SELECT source AS ip, COUNT(*) AS src, 0 AS dst FROM %[1]s GROUP BY source
			UNION ALL
			SELECT destination AS ip, 0 AS src, COUNT(*) AS dst FROM %[1]s GROUP BY destination
		)
		GROUP BY ip
		ORDER BY (SUM(src) + SUM(dst)) DESC, ip ASC`, table))
	if err != nil {
		return nil, fmt.Errorf("ip stats: %w", err)
	}
	defer rows.Close()

	out := []model.IPStat{}
	for rows.Next() {
		var s model.IPStat
		if err := rows.Scan(&s.IP, &s.Source, &s.Destination); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// PacketsPerSecond buckets packets by capture second in time order.
func (e *SQLiteEngine) PacketsPerSecond(ctx context.Context, table string) ([]model.RatePoint, error) {
	if err := e.checkTable(ctx, table); err != nil {
		return nil, err
	}
	// RFC3339 timestamps: characters 1-19 are the date and the second.
	rows, err := e.store.DB().QueryContext(ctx, fmt.Sprintf(`
		SELECT substr(timestamp, 1, 19) AS sec, COUNT(*)
		FROM %s
		GROUP BY sec
		ORDER BY sec`, table))
	if err != nil {
		return nil, fmt.Errorf("packet rate: %w", err)
	}
	defer rows.Close()

	out := []model.RatePoint{}
	for rows.Next() {
		var (
			sec string
			p   model.RatePoint
		)
		if err := rows.Scan(&sec, &p.Traffic); err != nil {
			return nil, err
		}
		p.TimeStamp = sec
		if len(sec) == 19 {
			p.TimeStamp = sec[11:]
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// PacketTypes counts packets per packet type, most frequent first.
func (e *SQLiteEngine) PacketTypes(ctx context.Context, table string) ([]model.TypeCount, error) {
	if err := e.checkTable(ctx, table); err != nil {
		return nil, err
	}
	rows, err := e.store.DB().QueryContext(ctx, fmt.Sprintf(`
		SELECT packet_type, COUNT(*) AS cnt
		FROM %s
		GROUP BY packet_type
		ORDER BY cnt DESC, packet_type ASC`, table))
	if err != nil {
		return nil, fmt.Errorf("packet types: %w", err)
	}
	defer rows.Close()

	out := []model.TypeCount{}
	for rows.Next() {
		var c model.TypeCount
		if err := rows.Scan(&c.Type, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SampleRows returns up to limit packets matching f, oldest first.
func (e *SQLiteEngine) SampleRows(ctx context.Context, f model.AnalysisFilter, limit int) ([]*model.PacketRecord, error) {
	if err := e.checkTable(ctx, f.Table); err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	if f.Protocol != "" {
		where = append(where, "protocol = ?")
		args = append(args, f.Protocol)
	}
	if f.SourceIP != "" {
		where = append(where, "source = ?")
		args = append(args, f.SourceIP)
	}
	if f.DestinationIP != "" {
		where = append(where, "destination = ?")
		args = append(args, f.DestinationIP)
	}

	query := fmt.Sprintf(`SELECT id, timestamp, packet_type, source, destination, protocol, payload_raw FROM %s`, f.Table)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := e.store.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sample rows: %w", err)
	}
	defer rows.Close()

	var out []*model.PacketRecord
	for rows.Next() {
		var (
			p  model.PacketRecord
			ts string
		)
		if err := rows.Scan(&p.ID, &ts, &p.PacketType, &p.Source, &p.Destination, &p.Protocol, &p.Payload); err != nil {
			return nil, err
		}
		p.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, &p)
	}
	return out, rows.Err()
}

// Sessions lists recorded capture sessions, most recent first.
func (e *SQLiteEngine) Sessions() ([]*model.CaptureSession, error) {
	return e.store.Sessions()
}
