package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Zerofisher/pktdash/pkg/ingest"
	"github.com/Zerofisher/pktdash/pkg/model"
	"github.com/Zerofisher/pktdash/pkg/store"
)

var (
	// ErrAlreadyRunning is returned by Start while a session is active.
	ErrAlreadyRunning = errors.New("a capture session is already running")

	// ErrNotRunning is returned by Stop when there is nothing to stop.
	ErrNotRunning = errors.New("no capture session is running")
)

// OpenFunc opens a packet source for iface. table is the session table the
// packets will land in.
type OpenFunc func(iface, table string) (Source, error)

// ManagerConfig configures capture sessions.
type ManagerConfig struct {
	Capture       Options
	BatchSize     int
	FlushInterval time.Duration

	// PcapDir, when set, receives a pcapng copy of every live session.
	PcapDir string
}

// Manager runs at most one capture session at a time. Each session records
// into its own packet_data_YYYYMMDDHHMMSS table.
type Manager struct {
	store  store.Store
	cfg    ManagerConfig
	open   OpenFunc
	logger zerolog.Logger
	now    func() time.Time

	mu     sync.Mutex
	active *run

	// naming serializes table selection with BeginSession.
	naming sync.Mutex
}

type run struct {
	session  *model.CaptureSession
	source   Source
	recorder *ingest.Recorder
	closers  []func() error
	done     chan error
}

// NewManager creates a session manager that opens live interfaces.
func NewManager(st store.Store, cfg ManagerConfig, logger zerolog.Logger) *Manager {
	m := &Manager{
		store:  st,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
	m.open = m.openLive
	return m
}

// WithOpener replaces how packet sources are opened.
func (m *Manager) WithOpener(open OpenFunc) *Manager {
	m.open = open
	return m
}

func (m *Manager) openLive(iface, table string) (Source, error) {
	c, err := NewLiveCapturer(iface, m.cfg.Capture)
	if err != nil {
		return nil, err
	}
	if m.cfg.PcapDir != "" {
		snap := uint32(m.cfg.Capture.SnapLen)
		if snap == 0 {
			snap = 65536
		}
		w, err := NewPcapWriter(SessionFilename(m.cfg.PcapDir, table), c.LinkType(), snap)
		if err != nil {
			c.Stop()
			return nil, err
		}
		c.Tee(w)
		return &teeSource{Capturer: c, w: w}, nil
	}
	return c, nil
}

// teeSource closes the pcapng copy once the capture has drained.
type teeSource struct {
	*Capturer
	w *PcapWriter
}

func (t *teeSource) Close() error { return t.w.Close() }

// Start begins recording iface into a new session table.
func (m *Manager) Start(ctx context.Context, iface string) (*model.CaptureSession, error) {
	if iface == "" {
		return nil, errors.New("interface name is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		return nil, ErrAlreadyRunning
	}

	r, err := m.begin(iface, func(table string) (Source, error) { return m.open(iface, table) })
	if err != nil {
		return nil, err
	}
	m.active = r

	m.logger.Info().
		Str("interface", iface).
		Str("table", r.session.Table).
		Msg("capture started")

	snapshot := *r.session
	return &snapshot, nil
}

// Stop ends the active session and returns it with its final packet count.
func (m *Manager) Stop(ctx context.Context) (*model.CaptureSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.active
	if r == nil {
		return nil, ErrNotRunning
	}

	r.source.Stop()
	var runErr error
	select {
	case runErr = <-r.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	m.active = nil

	sess, err := m.finish(r, runErr)
	if err != nil {
		return sess, err
	}

	m.logger.Info().
		Str("table", sess.Table).
		Int64("packets", sess.Packets).
		Dur("duration", sess.StoppedAt.Sub(sess.StartedAt)).
		Msg("capture stopped")
	return sess, nil
}

// Import records every packet of src into a new session table and returns
// when the source is exhausted or ctx is cancelled. label is stored as the
// session's interface.
func (m *Manager) Import(ctx context.Context, label string, src Source) (*model.CaptureSession, error) {
	if m.Running() {
		return nil, ErrAlreadyRunning
	}
	r, err := m.begin(label, func(string) (Source, error) { return src, nil })
	if err != nil {
		return nil, err
	}

	var runErr error
	select {
	case runErr = <-r.done:
	case <-ctx.Done():
		src.Stop()
		runErr = <-r.done
	}
	return m.finish(r, runErr)
}

// Active returns a snapshot of the running session, or nil.
func (m *Manager) Active() *model.CaptureSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil
	}
	snapshot := *m.active.session
	snapshot.Packets = m.active.recorder.Written()
	return &snapshot
}

// Running reports whether a session is active.
func (m *Manager) Running() bool {
	return m.Active() != nil
}

// sessionTable names the table for a session started at startedAt. Names
// have one-second resolution, so when that second is already taken by an
// earlier session the next free second is used.
func (m *Manager) sessionTable(startedAt time.Time) (string, error) {
	sessions, err := m.store.Sessions()
	if err != nil {
		return "", fmt.Errorf("list sessions: %w", err)
	}
	used := make(map[string]bool, len(sessions))
	for _, s := range sessions {
		used[s.Table] = true
	}
	t := startedAt
	for used[model.SessionTable(t)] {
		t = t.Add(time.Second)
	}
	return model.SessionTable(t), nil
}

func (m *Manager) begin(iface string, open func(table string) (Source, error)) (*run, error) {
	m.naming.Lock()
	defer m.naming.Unlock()

	startedAt := m.now().UTC()
	table, err := m.sessionTable(startedAt)
	if err != nil {
		return nil, err
	}

	src, err := open(table)
	if err != nil {
		return nil, fmt.Errorf("open capture: %w", err)
	}

	if err := m.store.CreateCaptureTable(table); err != nil {
		src.Stop()
		return nil, err
	}
	sess, err := m.store.BeginSession(iface, table, startedAt)
	if err != nil {
		src.Stop()
		return nil, err
	}

	r := &run{
		session: sess,
		source:  src,
		recorder: ingest.NewRecorder(m.store, ingest.Config{
			Table:         table,
			BatchSize:     m.cfg.BatchSize,
			FlushInterval: m.cfg.FlushInterval,
		}),
		done: make(chan error, 1),
	}
	if c, ok := src.(interface{ Close() error }); ok {
		r.closers = append(r.closers, c.Close)
	}

	packets := stamped(src.Start(), m.now)
	go func() {
		err := r.recorder.Run(context.Background(), packets)
		for range packets {
		}
		r.done <- err
	}()
	return r, nil
}

func (m *Manager) finish(r *run, runErr error) (*model.CaptureSession, error) {
	for _, c := range r.closers {
		if err := c(); err != nil {
			m.logger.Warn().Err(err).Str("table", r.session.Table).Msg("close capture output")
		}
	}

	sess := r.session
	sess.Packets = r.recorder.Written()
	sess.StoppedAt = m.now().UTC()
	if err := m.store.EndSession(sess); err != nil {
		return sess, err
	}
	if runErr != nil {
		return sess, fmt.Errorf("record %s: %w", sess.Table, runErr)
	}
	return sess, nil
}

// stamped fills in a receive time for records the source left without one.
func stamped(in <-chan *model.PacketRecord, now func() time.Time) <-chan *model.PacketRecord {
	out := make(chan *model.PacketRecord, cap(in))
	go func() {
		defer close(out)
		for rec := range in {
			if rec.Timestamp.IsZero() {
				rec.Timestamp = now().UTC()
			}
			out <- rec
		}
	}()
	return out
}
