// Package ingest writes captured packets into a session table in batches.
package ingest

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Zerofisher/pktdash/pkg/model"
	"github.com/Zerofisher/pktdash/pkg/store"
)

// Config holds configuration for the recorder.
type Config struct {
	// Table is the capture table packets are written to.
	Table string

	// BatchSize is the number of packets per batch commit.
	// Defaults to 500 if <= 0.
	BatchSize int

	// FlushInterval bounds how long a packet may wait in a partial batch,
	// so a slow link still shows up in the table promptly.
	// Defaults to 500ms if <= 0.
	FlushInterval time.Duration
}

// Recorder drains a packet channel into storage.
type Recorder struct {
	cfg Config
	w   store.Writer

	written atomic.Int64
}

// NewRecorder creates a recorder writing to w.
func NewRecorder(w store.Writer, cfg Config) *Recorder {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 500 * time.Millisecond
	}
	return &Recorder{cfg: cfg, w: w}
}

// Written returns the number of packets committed so far.
func (r *Recorder) Written() int64 {
	return r.written.Load()
}

// Run writes packets until the channel is closed or ctx is cancelled, then
// flushes what is buffered. It returns the first write error.
func (r *Recorder) Run(ctx context.Context, packets <-chan *model.PacketRecord) error {
	batch := make([]*model.PacketRecord, 0, r.cfg.BatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}

		if err := r.w.BeginBatch(); err != nil {
			return fmt.Errorf("begin batch: %w", err)
		}

		if err := r.w.InsertPackets(r.cfg.Table, batch); err != nil {
			r.w.RollbackBatch()
			return fmt.Errorf("insert packets: %w", err)
		}

		if err := r.w.CommitBatch(); err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}

		r.written.Add(int64(len(batch)))
		batch = batch[:0]
		return nil
	}

	ticker := time.NewTicker(r.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case pkt, ok := <-packets:
			if !ok {
				return flush()
			}
			batch = append(batch, pkt)
			if len(batch) >= r.cfg.BatchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		case <-ticker.C:
			if err := flush(); err != nil {
				return err
			}
		case <-ctx.Done():
			return flush()
		}
	}
}
