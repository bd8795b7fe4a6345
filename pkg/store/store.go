// Package store defines the storage interface for capture sessions.
package store

import (
	"time"

	"github.com/Zerofisher/pktdash/pkg/model"
)

// SchemaVersion is incremented when the session schema changes.
const SchemaVersion = 1

// Store persists capture sessions and their packet tables.
type Store interface {
	// Lifecycle
	Close() error

	// Sessions
	BeginSession(iface, table string, startedAt time.Time) (*model.CaptureSession, error)
	EndSession(s *model.CaptureSession) error
	Sessions() ([]*model.CaptureSession, error)

	Writer
}

// Writer defines write-side operations used by the capture recorder.
type Writer interface {
	// CreateCaptureTable creates an empty session table.
	CreateCaptureTable(table string) error

	// BeginBatch starts a batch write transaction.
	BeginBatch() error

	// CommitBatch commits the current batch.
	CommitBatch() error

	// RollbackBatch rolls back the current batch.
	RollbackBatch() error

	// InsertPacket inserts one packet into table and sets its ID.
	InsertPacket(table string, p *model.PacketRecord) error

	// InsertPackets inserts multiple packets (batch optimized).
	InsertPackets(table string, packets []*model.PacketRecord) error
}
