package app

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Zerofisher/pktdash/agent"
	"github.com/Zerofisher/pktdash/agent/llm"
	"github.com/Zerofisher/pktdash/capture"
	"github.com/Zerofisher/pktdash/internal/config"
	"github.com/Zerofisher/pktdash/pkg/gateway"
	"github.com/Zerofisher/pktdash/pkg/model"
	"github.com/Zerofisher/pktdash/pkg/query"
	"github.com/Zerofisher/pktdash/pkg/store/sqlite"
)

type replayingSource struct {
	recs    []*model.PacketRecord
	stop    chan struct{}
	stopped sync.Once
}

func (s *replayingSource) Start() <-chan *model.PacketRecord {
	out := make(chan *model.PacketRecord)
	go func() {
		defer close(out)
		for _, r := range s.recs {
			select {
			case out <- r:
			case <-s.stop:
				return
			}
		}
		<-s.stop
	}()
	return out
}

func (s *replayingSource) Stop() { s.stopped.Do(func() { close(s.stop) }) }

type cannedClient struct{ reply string }

func (c cannedClient) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	return &llm.ChatResponse{Content: c.reply}, nil
}
func (cannedClient) Provider() llm.Provider { return llm.ProviderOllama }
func (cannedClient) ModelID() string        { return "llama3.1" }

func testRecords() []*model.PacketRecord {
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	return []*model.PacketRecord{
		{Timestamp: base, PacketType: "IPv4", Source: "10.0.0.1", Destination: "8.8.8.8", Protocol: "UDP", Payload: []byte("q")},
		{Timestamp: base.Add(100 * time.Millisecond), PacketType: "IPv4", Source: "8.8.8.8", Destination: "10.0.0.1", Protocol: "UDP", Payload: []byte("a")},
		{Timestamp: base.Add(time.Second), PacketType: "IPv6", Source: "fe80::1", Destination: "fe80::2", Protocol: "TCP", Payload: []byte("syn")},
	}
}

func newTestBackend(t *testing.T, withAnalyst bool) (*Backend, gateway.Gateway) {
	t.Helper()
	st, err := sqlite.New(sqlite.Config{DBPath: filepath.Join(t.TempDir(), "packets.db")})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	cfg := config.Default()
	cfg.Capture.BatchSize = 1
	cfg.Capture.FlushInterval = 5 * time.Millisecond

	b := &Backend{
		store:  st,
		engine: query.NewSQLiteEngine(st),
		logger: zerolog.Nop(),
		cfg:    cfg,
		listInterfaces: func() ([]model.Interface, error) {
			return []model.Interface{{Name: "eth0", Addresses: []string{"10.0.0.1"}}, {Name: "lo"}}, nil
		},
		analystErr: errors.New("no provider configured"),
	}
	b.sessions = capture.NewManager(st, CaptureManagerConfig(cfg), zerolog.Nop()).
		WithOpener(func(iface, table string) (capture.Source, error) {
			return &replayingSource{recs: testRecords(), stop: make(chan struct{})}, nil
		})
	if withAnalyst {
		b.analyst = agent.NewAnalyst(cannedClient{reply: "DNS lookups to 8.8.8.8."}, b.engine, 0)
	}
	return b, b.Gateway()
}

func captureTable(t *testing.T, b *Backend, gw gateway.Gateway) string {
	t.Helper()
	ctx := context.Background()

	res := gw.Call(ctx, gateway.StartCapture, gateway.Params{Interface: "eth0"})
	if !res.OK() {
		t.Fatalf("start_capture: %v", res.Err)
	}
	tv, _ := res.Payload.Get("table")
	table, _ := tv.AsString()

	deadline := time.Now().Add(2 * time.Second)
	for b.sessions.Active().Packets < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	res = gw.Call(ctx, gateway.StopCapture, gateway.Params{})
	if !res.OK() {
		t.Fatalf("stop_capture: %v", res.Err)
	}
	pv, _ := res.Payload.Get("packets")
	if n, _ := pv.AsInt(); n != 3 {
		t.Fatalf("stop_capture packets = %d; want 3", n)
	}
	return table
}

func TestCaptureLifecycle(t *testing.T) {
	b, gw := newTestBackend(t, false)
	ctx := context.Background()

	res := gw.Call(ctx, gateway.StopCapture, gateway.Params{})
	if res.OK() || res.Err.Kind != gateway.KindBackend || res.Err.Code != gateway.CodeNotRunning {
		t.Errorf("stop while idle = %+v; want backend error with code %s", res, gateway.CodeNotRunning)
	}

	table := captureTable(t, b, gw)
	if !model.IsCaptureTable(table) {
		t.Fatalf("table = %q", table)
	}

	res = gw.Call(ctx, gateway.ListTableNames, gateway.Params{})
	names, perr := gateway.DecodeStrings(res.Payload)
	if !res.OK() || perr != nil || len(names) != 1 || names[0] != table {
		t.Errorf("list_table_names = %v %v", names, res.Err)
	}
}

func TestStartCaptureTwice(t *testing.T) {
	b, gw := newTestBackend(t, false)
	ctx := context.Background()
	if res := gw.Call(ctx, gateway.StartCapture, gateway.Params{Interface: "eth0"}); !res.OK() {
		t.Fatalf("start_capture: %v", res.Err)
	}
	res := gw.Call(ctx, gateway.StartCapture, gateway.Params{Interface: "eth0"})
	if res.OK() || res.Err.Kind != gateway.KindBackend || res.Err.Code != gateway.CodeAlreadyRunning {
		t.Errorf("second start = %+v; want backend error with code %s", res, gateway.CodeAlreadyRunning)
	}
	b.sessions.Stop(ctx)
}

func TestQueries(t *testing.T) {
	b, gw := newTestBackend(t, false)
	table := captureTable(t, b, gw)
	ctx := context.Background()
	p := gateway.Params{Table: table}

	res := gw.Call(ctx, gateway.GetTableData, p)
	rs, perr := gateway.DecodeResultSet(res.Payload)
	if !res.OK() || perr != nil || len(rs) != 3 {
		t.Fatalf("get_table_data = %d rows, %v %v", len(rs), res.Err, perr)
	}
	wantCols := []string{"id", "timestamp", "packet_type", "source", "destination", "protocol",
		"payload_base64", "payload_hex", "payload_raw", "payload_string"}
	cols := rs.Columns()
	for i, c := range wantCols {
		if i >= len(cols) || cols[i] != c {
			t.Fatalf("columns = %v; want %v", cols, wantCols)
		}
	}

	tests := []struct {
		cmd  gateway.Command
		want []string
	}{
		{gateway.ListSourceIPs, []string{"10.0.0.1", "8.8.8.8", "fe80::1"}},
		{gateway.ListDestinationIPs, []string{"10.0.0.1", "8.8.8.8", "fe80::2"}},
		{gateway.ListProtocols, []string{"TCP", "UDP"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.cmd), func(t *testing.T) {
			res := gw.Call(ctx, tt.cmd, p)
			got, perr := gateway.DecodeStrings(res.Payload)
			if !res.OK() || perr != nil {
				t.Fatalf("%s failed: %v %v", tt.cmd, res.Err, perr)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("%s = %v; want %v", tt.cmd, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("%s = %v; want %v", tt.cmd, got, tt.want)
				}
			}
		})
	}

	res = gw.Call(ctx, gateway.GetPacketTypes, p)
	rs, _ = gateway.DecodeResultSet(res.Payload)
	types := model.TypeCountsFrom(rs)
	if len(types) != 2 || types[0].Type != "IPv4" || types[0].Count != 2 {
		t.Errorf("get_packet_types = %+v", types)
	}

	res = gw.Call(ctx, gateway.GetPacketsPerSecond, p)
	rs, _ = gateway.DecodeResultSet(res.Payload)
	points := model.RatePointsFrom(rs)
	if len(points) != 2 || points[0].TimeStamp != "10:00:00" || points[0].Traffic != 2 {
		t.Errorf("get_packet_per_second = %+v", points)
	}

	res = gw.Call(ctx, gateway.GetIPStats, p)
	rs, _ = gateway.DecodeResultSet(res.Payload)
	stats := model.IPStatsFrom(rs)
	if len(stats) != 4 || stats[0].Total() != 2 {
		t.Errorf("get_ip_stats = %+v", stats)
	}
}

func TestUnknownTableIsValidation(t *testing.T) {
	_, gw := newTestBackend(t, false)
	res := gw.Call(context.Background(), gateway.GetTableData, gateway.Params{Table: "packet_data_20990101000000"})
	if res.OK() || res.Err.Kind != gateway.KindValidation {
		t.Errorf("get_table_data(unknown) = %+v; want validation error", res)
	}
}

func TestListInterfaces(t *testing.T) {
	_, gw := newTestBackend(t, false)
	res := gw.Call(context.Background(), gateway.ListInterfaces, gateway.Params{})
	ifaces, perr := gateway.DecodeInterfaces(res.Payload)
	if !res.OK() || perr != nil || len(ifaces) != 2 || ifaces[0].Name != "eth0" {
		t.Errorf("list_interfaces = %+v %v %v", ifaces, res.Err, perr)
	}
}

func TestRunAnalysis(t *testing.T) {
	b, gw := newTestBackend(t, true)
	table := captureTable(t, b, gw)

	res := gw.Call(context.Background(), gateway.RunAnalysis, gateway.Params{Table: table, Protocol: "UDP"})
	a, perr := gateway.DecodeAnalysis(res.Payload)
	if !res.OK() || perr != nil {
		t.Fatalf("run_analysis failed: %v %v", res.Err, perr)
	}
	if a.Response != "DNS lookups to 8.8.8.8." || a.Rows != 2 || a.Model != "llama3.1" {
		t.Errorf("run_analysis = %+v", a)
	}
}

func TestRunAnalysisUnavailable(t *testing.T) {
	b, gw := newTestBackend(t, false)
	table := captureTable(t, b, gw)
	res := gw.Call(context.Background(), gateway.RunAnalysis, gateway.Params{Table: table})
	if res.OK() || res.Err.Kind != gateway.KindBackend {
		t.Errorf("run_analysis without client = %+v; want backend error", res)
	}
}
