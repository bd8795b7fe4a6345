package model

import (
	"testing"
	"time"

	"github.com/Zerofisher/pktdash/pkg/value"
)

func TestSessionTable(t *testing.T) {
	ts := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	name := SessionTable(ts)
	if name != "packet_data_20260304050607" {
		t.Errorf("SessionTable() = %q", name)
	}
	if !IsCaptureTable(name) {
		t.Errorf("IsCaptureTable(%q) = false", name)
	}
	for _, bad := range []string{"packet_data_", "packet_data_2026; DROP", "sqlite_master", "packet_data_202603040506070"} {
		if IsCaptureTable(bad) {
			t.Errorf("IsCaptureTable(%q) = true", bad)
		}
	}
}

func TestPacketRecordRow(t *testing.T) {
	p := &PacketRecord{
		ID:          3,
		Timestamp:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		PacketType:  "IPv4",
		Source:      "10.0.0.1",
		Destination: "10.0.0.2",
		Protocol:    "TCP",
		Payload:     []byte("hi\xff"),
	}
	row := p.Row()
	want := []string{"id", "timestamp", "packet_type", "source", "destination", "protocol",
		"payload_base64", "payload_hex", "payload_raw", "payload_string"}
	keys := row.Keys()
	if len(keys) != len(want) {
		t.Fatalf("Keys() = %v", keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("key %d = %q; want %q", i, keys[i], want[i])
		}
	}
	hexv, _ := row.Get("payload_hex")
	if s, _ := hexv.AsString(); s != "6869ff" {
		t.Errorf("payload_hex = %q", s)
	}
	raw, _ := row.Get("payload_raw")
	if raw.Compact() != "[104,105,255]" {
		t.Errorf("payload_raw = %s", raw.Compact())
	}
	str, _ := row.Get("payload_string")
	if s, _ := str.AsString(); s != "hi�" {
		t.Errorf("payload_string = %q", s)
	}
}

func TestResultSetFrom(t *testing.T) {
	rs, err := ResultSetFrom(value.Array(IPStat{IP: "a", Source: 1, Destination: 2}.Row()))
	if err != nil {
		t.Fatalf("ResultSetFrom() error: %v", err)
	}
	cols := rs.Columns()
	if len(cols) != 3 || cols[0] != "IP" {
		t.Errorf("Columns() = %v", cols)
	}
	if _, err := ResultSetFrom(value.String("x")); err == nil {
		t.Error("ResultSetFrom(string) expected error")
	}
	if _, err := ResultSetFrom(value.Array(value.Int(1))); err == nil {
		t.Error("ResultSetFrom([1]) expected error")
	}
	if cols := (ResultSet{}).Columns(); cols != nil {
		t.Errorf("empty Columns() = %v", cols)
	}
}

func TestAggregateAdapters(t *testing.T) {
	stats := IPStatsFrom(ResultSet{
		IPStat{IP: "10.0.0.1", Source: 4, Destination: 1}.Row(),
		value.Object(value.F("IP", value.Int(1))),
	})
	if len(stats) != 1 || stats[0].Total() != 5 {
		t.Errorf("IPStatsFrom() = %+v", stats)
	}
	rate := RatePointsFrom(ResultSet{RatePoint{TimeStamp: "12:00:01", Traffic: 9}.Row()})
	if len(rate) != 1 || rate[0].Traffic != 9 {
		t.Errorf("RatePointsFrom() = %+v", rate)
	}
	types := TypeCountsFrom(ResultSet{TypeCount{Type: "UDP", Count: 2}.Row()})
	if len(types) != 1 || types[0].Type != "UDP" {
		t.Errorf("TypeCountsFrom() = %+v", types)
	}
}
