package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/Zerofisher/pktdash/pkg/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := New(Config{DBPath: filepath.Join(t.TempDir(), "nested", "packets.db")})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateCaptureTableRejectsBadNames(t *testing.T) {
	s := newTestStore(t)
	for _, name := range []string{"packets", "packet_data_2026", "packet_data_20260101000000; DROP TABLE meta"} {
		if err := s.CreateCaptureTable(name); err == nil {
			t.Errorf("CreateCaptureTable(%q) expected error", name)
		}
	}
}

func TestInsertPacketsInBatch(t *testing.T) {
	s := newTestStore(t)
	table := model.SessionTable(time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC))
	if table != "packet_data_20260501100000" {
		t.Fatalf("SessionTable() = %q", table)
	}
	if err := s.CreateCaptureTable(table); err != nil {
		t.Fatal(err)
	}

	if err := s.InsertPacket(table, &model.PacketRecord{}); err == nil {
		t.Error("InsertPacket() outside batch expected error")
	}

	pkts := []*model.PacketRecord{
		{Timestamp: time.Now(), PacketType: "IPv4", Source: "a", Destination: "b", Protocol: "TCP", Payload: []byte{0xff, 'x'}},
		{Timestamp: time.Now(), PacketType: "IPv4", Source: "b", Destination: "a", Protocol: "TCP"},
	}
	if err := s.BeginBatch(); err != nil {
		t.Fatal(err)
	}
	if err := s.BeginBatch(); err == nil {
		t.Error("nested BeginBatch() expected error")
	}
	if err := s.InsertPackets(table, pkts); err != nil {
		t.Fatalf("InsertPackets() error: %v", err)
	}
	if err := s.CommitBatch(); err != nil {
		t.Fatal(err)
	}
	if pkts[0].ID != 1 || pkts[1].ID != 2 {
		t.Errorf("IDs = %d, %d; want 1, 2", pkts[0].ID, pkts[1].ID)
	}

	var n int
	if err := s.DB().QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("row count = %d; want 2", n)
	}

	var str, hex string
	if err := s.DB().QueryRow(`SELECT payload_string, payload_hex FROM ` + table + ` WHERE id = 1`).Scan(&str, &hex); err != nil {
		t.Fatal(err)
	}
	if str != "�x" || hex != "ff78" {
		t.Errorf("payload_string = %q, payload_hex = %q", str, hex)
	}
}

func TestRollbackBatch(t *testing.T) {
	s := newTestStore(t)
	table := "packet_data_20260501100000"
	s.CreateCaptureTable(table)

	s.BeginBatch()
	s.InsertPacket(table, &model.PacketRecord{Timestamp: time.Now(), PacketType: "IPv4"})
	if err := s.RollbackBatch(); err != nil {
		t.Fatal(err)
	}
	var n int
	s.DB().QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n)
	if n != 0 {
		t.Errorf("row count after rollback = %d", n)
	}
}

func TestSessions(t *testing.T) {
	s := newTestStore(t)
	t0 := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	first, err := s.BeginSession("eth0", model.SessionTable(t0), t0)
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.BeginSession("wlan0", model.SessionTable(t0.Add(time.Hour)), t0.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.BeginSession("eth0", model.SessionTable(t0), t0); err == nil {
		t.Error("BeginSession() with duplicate table expected error")
	}

	first.StoppedAt = t0.Add(time.Minute)
	first.Packets = 42
	if err := s.EndSession(first); err != nil {
		t.Fatal(err)
	}

	got, err := s.Sessions()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != second.ID || got[1].ID != first.ID {
		t.Fatalf("Sessions() order = %+v", got)
	}
	if !got[0].Running() || got[1].Running() || got[1].Packets != 42 {
		t.Errorf("Sessions() = %+v, %+v", got[0], got[1])
	}
	if !got[1].StoppedAt.Equal(first.StoppedAt) {
		t.Errorf("StoppedAt = %v", got[1].StoppedAt)
	}
}
