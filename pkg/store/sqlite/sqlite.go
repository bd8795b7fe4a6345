// Package sqlite provides the SQLite implementation of store.Store.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Zerofisher/pktdash/pkg/model"
	"github.com/Zerofisher/pktdash/pkg/store"
)

// Config holds configuration for the SQLite store.
type Config struct {
	// Path to the SQLite database file.
	DBPath string

	// ReadOnly opens the database in read-only mode.
	ReadOnly bool

	// WAL enables WAL mode so readers are not blocked by the capture writer.
	WAL bool
}

// SQLiteStore is the SQLite implementation of store.Store.
type SQLiteStore struct {
	db   *sql.DB
	path string
	cfg  Config

	// Write transaction state
	mu    sync.Mutex
	tx    *sql.Tx
	stmts map[string]*sql.Stmt // Prepared statements within tx
}

var _ store.Store = (*SQLiteStore)(nil)

// New creates a new SQLite store.
func New(cfg Config) (*SQLiteStore, error) {
	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := cfg.DBPath
	params := "?_foreign_keys=on&_busy_timeout=5000"
	if cfg.ReadOnly {
		params += "&mode=ro"
	}
	if cfg.WAL {
		params += "&_journal_mode=WAL"
	}
	dsn += params

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Single writer; the capture recorder keeps its transactions short.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStore{
		db:    db,
		path:  cfg.DBPath,
		cfg:   cfg,
		stmts: make(map[string]*sql.Stmt),
	}

	if !cfg.ReadOnly {
		if err := s.initSchema(); err != nil {
			db.Close()
			return nil, fmt.Errorf("init schema: %w", err)
		}
	}

	return s, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// DB returns the underlying database connection for the query engine.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// ────────────────────────────────────────────────────────────────────────────────
// Schema Initialization
// ────────────────────────────────────────────────────────────────────────────────

func (s *SQLiteStore) initSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT
);

CREATE TABLE IF NOT EXISTS capture_sessions (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	iface      TEXT NOT NULL,
	table_name TEXT NOT NULL UNIQUE,
	started_at TEXT NOT NULL,
	stopped_at TEXT,
	packets    INTEGER NOT NULL DEFAULT 0
);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}

	_, err := s.db.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`,
		"schema_version", fmt.Sprintf("%d", store.SchemaVersion))
	return err
}

// CreateCaptureTable creates the packet table for one capture session.
func (s *SQLiteStore) CreateCaptureTable(table string) error {
	if !model.IsCaptureTable(table) {
		return fmt.Errorf("invalid capture table name %q", table)
	}
	// The name is validated above; identifiers cannot be bound as parameters.
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp      TEXT NOT NULL,
	packet_type    TEXT NOT NULL,
	source         TEXT NOT NULL,
	destination    TEXT NOT NULL,
	protocol       TEXT NOT NULL,
	payload_base64 TEXT,
	payload_hex    TEXT,
	payload_raw    BLOB,
	payload_string TEXT
);
CREATE INDEX IF NOT EXISTS idx_%[1]s_source ON %[1]s(source);
CREATE INDEX IF NOT EXISTS idx_%[1]s_destination ON %[1]s(destination);
CREATE INDEX IF NOT EXISTS idx_%[1]s_protocol ON %[1]s(protocol);
`, table)
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	return nil
}

// ────────────────────────────────────────────────────────────────────────────────
// Sessions
// ────────────────────────────────────────────────────────────────────────────────

// BeginSession records the start of a capture session.
func (s *SQLiteStore) BeginSession(iface, table string, startedAt time.Time) (*model.CaptureSession, error) {
	res, err := s.db.Exec(`INSERT INTO capture_sessions (iface, table_name, started_at) VALUES (?, ?, ?)`,
		iface, table, startedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &model.CaptureSession{
		ID:        id,
		Interface: iface,
		Table:     table,
		StartedAt: startedAt,
	}, nil
}

// EndSession stores the stop time and packet count of a session.
func (s *SQLiteStore) EndSession(sess *model.CaptureSession) error {
	_, err := s.db.Exec(`UPDATE capture_sessions SET stopped_at = ?, packets = ? WHERE id = ?`,
		sess.StoppedAt.UTC().Format(time.RFC3339Nano), sess.Packets, sess.ID)
	if err != nil {
		return fmt.Errorf("update session %d: %w", sess.ID, err)
	}
	return nil
}

// Sessions lists recorded sessions, most recent first.
func (s *SQLiteStore) Sessions() ([]*model.CaptureSession, error) {
	rows, err := s.db.Query(`SELECT id, iface, table_name, started_at, stopped_at, packets
		FROM capture_sessions ORDER BY started_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []*model.CaptureSession
	for rows.Next() {
		var (
			sess    model.CaptureSession
			started string
			stopped sql.NullString
		)
		if err := rows.Scan(&sess.ID, &sess.Interface, &sess.Table, &started, &stopped, &sess.Packets); err != nil {
			return nil, err
		}
		sess.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		if stopped.Valid {
			sess.StoppedAt, _ = time.Parse(time.RFC3339Nano, stopped.String)
		}
		out = append(out, &sess)
	}
	return out, rows.Err()
}

// ────────────────────────────────────────────────────────────────────────────────
// Batch Write Operations
// ────────────────────────────────────────────────────────────────────────────────

// BeginBatch starts a batch write transaction.
func (s *SQLiteStore) BeginBatch() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tx != nil {
		return fmt.Errorf("batch already in progress")
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	s.tx = tx
	s.stmts = make(map[string]*sql.Stmt)
	return nil
}

// CommitBatch commits the current batch.
func (s *SQLiteStore) CommitBatch() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tx == nil {
		return fmt.Errorf("no batch in progress")
	}
	s.closeStmts()
	err := s.tx.Commit()
	s.tx = nil
	return err
}

// RollbackBatch rolls back the current batch.
func (s *SQLiteStore) RollbackBatch() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tx == nil {
		return nil
	}
	s.closeStmts()
	err := s.tx.Rollback()
	s.tx = nil
	return err
}

func (s *SQLiteStore) closeStmts() {
	for _, stmt := range s.stmts {
		stmt.Close()
	}
	s.stmts = nil
}

func (s *SQLiteStore) getStmt(name, query string) (*sql.Stmt, error) {
	if stmt, ok := s.stmts[name]; ok {
		return stmt, nil
	}
	stmt, err := s.tx.Prepare(query)
	if err != nil {
		return nil, err
	}
	s.stmts[name] = stmt
	return stmt, nil
}

// InsertPacket inserts one packet into table within the current batch.
func (s *SQLiteStore) InsertPacket(table string, p *model.PacketRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tx == nil {
		return fmt.Errorf("no batch in progress")
	}
	if !model.IsCaptureTable(table) {
		return fmt.Errorf("invalid capture table name %q", table)
	}

	query := fmt.Sprintf(`INSERT INTO %s (
		timestamp, packet_type, source, destination, protocol,
		payload_base64, payload_hex, payload_raw, payload_string
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, table)

	stmt, err := s.getStmt("insert_packet:"+table, query)
	if err != nil {
		return err
	}

	res, err := stmt.Exec(
		p.Timestamp.UTC().Format(time.RFC3339Nano),
		p.PacketType, p.Source, p.Destination, p.Protocol,
		p.PayloadBase64(), p.PayloadHex(), p.Payload, p.PayloadString(),
	)
	if err != nil {
		return err
	}
	p.ID, err = res.LastInsertId()
	return err
}

// InsertPackets inserts multiple packets.
func (s *SQLiteStore) InsertPackets(table string, packets []*model.PacketRecord) error {
	for _, p := range packets {
		if err := s.InsertPacket(table, p); err != nil {
			return err
		}
	}
	return nil
}
