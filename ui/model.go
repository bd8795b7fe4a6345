package ui

import (
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/rs/zerolog"

	"github.com/Zerofisher/pktdash/internal/controller"
	"github.com/Zerofisher/pktdash/pkg/gateway"
)

// Options configures the dashboard.
type Options struct {
	PageSize int
	// Timeout bounds each gateway call. Zero leaves it to the gateway.
	Timeout time.Duration
	Logger  zerolog.Logger
	// Clipboard receives copied detail text. Defaults to the system
	// clipboard.
	Clipboard func(string) error
}

// Model holds the application state. Panel data lives in the controller;
// the model only adds cursors and overlays.
type Model struct {
	gw      gateway.Gateway
	ctl     *controller.Controller
	logger  zerolog.Logger
	timeout time.Duration
	copy    func(string) error

	keys keyMap
	help help.Model

	width  int
	height int

	// Cursors
	ifaceCursor int
	tableCursor map[controller.Panel]int
	rowCursor   int
	colCursor   int
	rowsFocused bool

	filterInput textinput.Model
	filtering   bool

	details detailStack

	answer         viewport.Model
	answerRendered string // markdown source currently in answer

	// Status message (validation errors, copy results)
	statusMessage string
	statusIsError bool
}

// NewModel creates a dashboard talking to gw.
func NewModel(gw gateway.Gateway, opts Options) Model {
	filterTi := textinput.New()
	filterTi.Placeholder = `protocol == "TCP" && source == 10.0.0.1`
	filterTi.CharLimit = 200
	filterTi.Width = 60

	cp := opts.Clipboard
	if cp == nil {
		cp = clipboard.WriteAll
	}

	return Model{
		gw:          gw,
		ctl:         controller.New(opts.PageSize, opts.Logger),
		logger:      opts.Logger,
		timeout:     opts.Timeout,
		copy:        cp,
		keys:        defaultKeyMap(),
		help:        help.New(),
		tableCursor: make(map[controller.Panel]int),
		filterInput: filterTi,
		answer:      viewport.New(80, 10),
	}
}

// State exposes the controller state for rendering and tests.
func (m Model) State() *controller.State { return m.ctl.State() }

func (m *Model) setStatus(msg string, isErr bool) {
	m.statusMessage = msg
	m.statusIsError = isErr
}

func (m *Model) clearStatus() {
	m.statusMessage = ""
	m.statusIsError = false
}

// bodyHeight is what remains for the panel once the tab bar, status and
// help lines are drawn.
func (m Model) bodyHeight() int {
	h := m.height - 5
	if h < 5 {
		h = 5
	}
	return h
}

// clampCursors keeps list cursors inside lists that may have shrunk.
func (m *Model) clampCursors() {
	s := m.ctl.State()
	m.ifaceCursor = clampIndex(m.ifaceCursor, len(s.Sniffer.Interfaces.Data))
	for p, c := range m.tableCursor {
		m.tableCursor[p] = clampIndex(c, len(s.TableNames.Data))
	}
	page := s.Table.Page()
	m.rowCursor = clampIndex(m.rowCursor, len(page.Rows))
	m.colCursor = clampIndex(m.colCursor, len(s.Table.Columns()))
}

func clampIndex(i, n int) int {
	if n <= 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
