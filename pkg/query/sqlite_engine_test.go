package query

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Zerofisher/pktdash/pkg/model"
	"github.com/Zerofisher/pktdash/pkg/store/sqlite"
	"github.com/Zerofisher/pktdash/pkg/value"
)

func seed(t *testing.T) (*SQLiteEngine, string) {
	t.Helper()
	st, err := sqlite.New(sqlite.Config{DBPath: filepath.Join(t.TempDir(), "q.db")})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	table := "packet_data_20260501100000"
	older := "packet_data_20260430090000"
	for _, tb := range []string{table, older} {
		if err := st.CreateCaptureTable(tb); err != nil {
			t.Fatal(err)
		}
	}

	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	pkts := []*model.PacketRecord{
		{Timestamp: base, PacketType: "IPv4", Source: "10.0.0.1", Destination: "10.0.0.2", Protocol: "TCP", Payload: []byte{1, 2}},
		{Timestamp: base.Add(200 * time.Millisecond), PacketType: "IPv4", Source: "10.0.0.2", Destination: "10.0.0.1", Protocol: "TCP"},
		{Timestamp: base.Add(2 * time.Second), PacketType: "IPv4", Source: "10.0.0.1", Destination: "10.0.0.3", Protocol: "UDP"},
	}
	st.BeginBatch()
	if err := st.InsertPackets(table, pkts); err != nil {
		t.Fatal(err)
	}
	st.CommitBatch()
	return NewSQLiteEngine(st), table
}

func TestListTables(t *testing.T) {
	e, _ := seed(t)
	got, err := e.ListTables(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "packet_data_20260430090000" || got[1] != "packet_data_20260501100000" {
		t.Errorf("ListTables() = %v", got)
	}
}

func TestTableData(t *testing.T) {
	e, table := seed(t)
	rs, err := e.TableData(context.Background(), table)
	if err != nil {
		t.Fatal(err)
	}
	if len(rs) != 3 {
		t.Fatalf("rows = %d", len(rs))
	}
	raw, _ := rs[0].Get("payload_raw")
	if raw.Kind() != value.KindArray || raw.Len() != 2 {
		t.Errorf("payload_raw = %s", raw.Display())
	}
	if null, _ := rs[1].Get("payload_raw"); !null.IsNull() {
		t.Errorf("nil payload_raw = %s; want null", null.Display())
	}
	id, _ := rs[2].Get("id")
	if n, _ := id.AsInt(); n != 3 {
		t.Errorf("last id = %d", n)
	}
}

func TestUnknownTable(t *testing.T) {
	e, _ := seed(t)
	ctx := context.Background()
	for _, tb := range []string{"sqlite_master", "packet_data_20990101000000"} {
		if _, err := e.TableData(ctx, tb); !errors.Is(err, ErrUnknownTable) {
			t.Errorf("TableData(%q) = %v; want ErrUnknownTable", tb, err)
		}
	}
}

func TestDistinctAndAggregates(t *testing.T) {
	e, table := seed(t)
	ctx := context.Background()

	protos, err := e.Distinct(ctx, table, ColumnProtocol)
	if err != nil || len(protos) != 2 || protos[0] != "TCP" {
		t.Errorf("Distinct(protocol) = %v, %v", protos, err)
	}
	if _, err := e.Distinct(ctx, table, Column("payload_hex")); err == nil {
		t.Error("Distinct(payload_hex) expected error")
	}

	stats, err := e.IPStats(ctx, table)
	if err != nil {
		t.Fatal(err)
	}
	want := []model.IPStat{
		{IP: "10.0.0.1", Source: 2, Destination: 1},
		{IP: "10.0.0.2", Source: 1, Destination: 1},
		{IP: "10.0.0.3", Source: 0, Destination: 1},
	}
	if len(stats) != len(want) {
		t.Fatalf("IPStats() = %+v", stats)
	}
	for i := range want {
		if stats[i] != want[i] {
			t.Errorf("IPStats()[%d] = %+v; want %+v", i, stats[i], want[i])
		}
	}

	rate, err := e.PacketsPerSecond(ctx, table)
	if err != nil || len(rate) != 2 || rate[0] != (model.RatePoint{TimeStamp: "10:00:00", Traffic: 2}) || rate[1].TimeStamp != "10:00:02" {
		t.Errorf("PacketsPerSecond() = %+v, %v", rate, err)
	}

	types, err := e.PacketTypes(ctx, table)
	if err != nil || len(types) != 1 || types[0] != (model.TypeCount{Type: "IPv4", Count: 3}) {
		t.Errorf("PacketTypes() = %+v, %v", types, err)
	}
}

func TestSampleRows(t *testing.T) {
	e, table := seed(t)
	ctx := context.Background()

	tests := []struct {
		name string
		f    model.AnalysisFilter
		lim  int
		want int
	}{
		{"all", model.AnalysisFilter{Table: table}, 50, 3},
		{"limit", model.AnalysisFilter{Table: table}, 2, 2},
		{"protocol", model.AnalysisFilter{Table: table, Protocol: "UDP"}, 50, 1},
		{"source and dest", model.AnalysisFilter{Table: table, SourceIP: "10.0.0.1", DestinationIP: "10.0.0.2"}, 50, 1},
		{"no match", model.AnalysisFilter{Table: table, Protocol: "ICMPv4"}, 50, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.SampleRows(ctx, tt.f, tt.lim)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != tt.want {
				t.Errorf("SampleRows() = %d rows; want %d", len(got), tt.want)
			}
		})
	}

	got, _ := e.SampleRows(ctx, model.AnalysisFilter{Table: table}, 1)
	if got[0].Timestamp.IsZero() || string(got[0].Payload) != "\x01\x02" {
		t.Errorf("SampleRows()[0] = %+v", got[0])
	}
}
