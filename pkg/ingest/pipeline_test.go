package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Zerofisher/pktdash/pkg/model"
)

type memWriter struct {
	batches  [][]*model.PacketRecord
	current  []*model.PacketRecord
	inBatch  bool
	failNext bool
}

func (w *memWriter) CreateCaptureTable(string) error { return nil }

func (w *memWriter) BeginBatch() error {
	if w.inBatch {
		return errors.New("batch already in progress")
	}
	w.inBatch = true
	w.current = nil
	return nil
}

func (w *memWriter) CommitBatch() error {
	w.batches = append(w.batches, w.current)
	w.inBatch = false
	return nil
}

func (w *memWriter) RollbackBatch() error {
	w.inBatch = false
	w.current = nil
	return nil
}

func (w *memWriter) InsertPacket(table string, p *model.PacketRecord) error {
	if w.failNext {
		return errors.New("disk full")
	}
	w.current = append(w.current, p)
	return nil
}

func (w *memWriter) InsertPackets(table string, ps []*model.PacketRecord) error {
	for _, p := range ps {
		if err := w.InsertPacket(table, p); err != nil {
			return err
		}
	}
	return nil
}

func feed(n int) <-chan *model.PacketRecord {
	ch := make(chan *model.PacketRecord, n)
	for i := 0; i < n; i++ {
		ch <- &model.PacketRecord{Source: "a", Destination: "b"}
	}
	close(ch)
	return ch
}

func TestRecorderBatches(t *testing.T) {
	w := &memWriter{}
	r := NewRecorder(w, Config{Table: "packet_data_20260101000000", BatchSize: 4, FlushInterval: time.Hour})

	if err := r.Run(context.Background(), feed(10)); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if r.Written() != 10 {
		t.Errorf("Written() = %d; want 10", r.Written())
	}
	want := []int{4, 4, 2}
	if len(w.batches) != len(want) {
		t.Fatalf("batches = %d; want %d", len(w.batches), len(want))
	}
	for i, n := range want {
		if len(w.batches[i]) != n {
			t.Errorf("batch %d size = %d; want %d", i, len(w.batches[i]), n)
		}
	}
}

func TestRecorderFlushesOnInterval(t *testing.T) {
	w := &memWriter{}
	r := NewRecorder(w, Config{Table: "packet_data_20260101000000", BatchSize: 100, FlushInterval: 10 * time.Millisecond})

	ch := make(chan *model.PacketRecord)
	done := make(chan error, 1)
	go func() { done <- r.Run(context.Background(), ch) }()

	ch <- &model.PacketRecord{}
	deadline := time.Now().Add(2 * time.Second)
	for r.Written() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if r.Written() != 1 {
		t.Errorf("Written() = %d after interval; want 1", r.Written())
	}
	close(ch)
	if err := <-done; err != nil {
		t.Errorf("Run() error: %v", err)
	}
}

func TestRecorderWriteError(t *testing.T) {
	w := &memWriter{failNext: true}
	r := NewRecorder(w, Config{Table: "packet_data_20260101000000", BatchSize: 1})
	if err := r.Run(context.Background(), feed(3)); err == nil {
		t.Fatal("Run() expected error")
	}
	if w.inBatch {
		t.Error("batch left open after failure")
	}
	if r.Written() != 0 {
		t.Errorf("Written() = %d; want 0", r.Written())
	}
}
