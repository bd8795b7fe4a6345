package ui

import (
	"context"
	"fmt"
	"slices"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Zerofisher/pktdash/internal/controller"
	"github.com/Zerofisher/pktdash/pkg/gateway"
	"github.com/Zerofisher/pktdash/pkg/present"
)

// Messages
type responseMsg controller.Response

// callCmd performs one gateway request off the UI loop.
func (m Model) callCmd(req controller.Request) tea.Cmd {
	gw, timeout := m.gw, m.timeout
	return func() tea.Msg {
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		return responseMsg{Request: req, Result: gw.Call(ctx, req.Command, req.Params)}
	}
}

func (m Model) run(reqs []controller.Request) tea.Cmd {
	cmds := make([]tea.Cmd, len(reqs))
	for i, r := range reqs {
		cmds[i] = m.callCmd(r)
	}
	return tea.Batch(cmds...)
}

// dispatch feeds ev to the controller and schedules the resulting calls.
// Local rejections end up on the status line.
func (m Model) dispatch(ev controller.Event) (Model, tea.Cmd) {
	reqs, err := m.ctl.Dispatch(ev)
	if err != nil {
		m.setStatus(err.Error(), true)
		return m, nil
	}
	return m, m.run(reqs)
}

func (m Model) Init() tea.Cmd {
	_, cmd := m.dispatch(controller.EnterPanel{Panel: controller.Sniffer})
	return cmd
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.filterInput.Width = m.width - 20
		for i := range m.details {
			m.details[i].SetSize(m.width, m.height)
		}
		m.answer.Width = m.width
		m.answerRendered = ""
		m.syncAnswer()
		return m, nil

	case responseMsg:
		m.ctl.Dispatch(controller.Response(msg))
		m.clampCursors()
		if msg.Request.Slot == controller.SlotTableData && m.State().Table.Data.Status == controller.Loaded {
			m.rowsFocused = true
			m.rowCursor, m.colCursor = 0, 0
		}
		m.syncAnswer()
		return m, nil

	case tea.KeyMsg:
		if m.details.open() {
			return m.handleDetailInput(msg)
		}
		if m.filtering {
			return m.handleFilterInput(msg)
		}
		m.clearStatus()
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleDetailInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.details = m.details.pop()
		return m, nil
	case key.Matches(msg, m.keys.Copy):
		top := m.details.top()
		if err := m.copy(top.Text()); err != nil {
			m.setStatus(fmt.Sprintf("Copy failed: %v", err), true)
		} else {
			m.setStatus(fmt.Sprintf("Copied %s", top.Title()), false)
		}
		return m, nil
	case key.Matches(msg, m.keys.Quit) && msg.String() == "ctrl+c":
		return m, tea.Quit
	}
	top := m.details.top()
	var cmd tea.Cmd
	*top, cmd = top.Update(msg)
	return m, cmd
}

func (m Model) handleFilterInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.filtering = false
		m.filterInput.Blur()
		var cmd tea.Cmd
		m, cmd = m.dispatch(controller.SetFilter{Expr: m.filterInput.Value()})
		m.rowCursor = 0
		return m, cmd
	case "esc":
		m.filtering = false
		m.filterInput.Blur()
		if f := m.State().Table.Filter; f != nil {
			m.filterInput.SetValue(f.String())
		} else {
			m.filterInput.SetValue("")
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Sniffer):
		return m.enter(controller.Sniffer)
	case key.Matches(msg, m.keys.Table):
		return m.enter(controller.Table)
	case key.Matches(msg, m.keys.Visualization):
		return m.enter(controller.Visualization)
	case key.Matches(msg, m.keys.Analysis):
		return m.enter(controller.Analysis)
	case key.Matches(msg, m.keys.NextPanel):
		i := slices.Index(controller.Panels, m.State().Panel)
		return m.enter(controller.Panels[(i+1)%len(controller.Panels)])
	case key.Matches(msg, m.keys.Refresh):
		return m.enter(m.State().Panel)
	}

	switch m.State().Panel {
	case controller.Sniffer:
		return m.handleSnifferKey(msg)
	case controller.Table:
		return m.handleTableKey(msg)
	case controller.Visualization:
		return m.handleVisualizationKey(msg)
	case controller.Analysis:
		return m.handleAnalysisKey(msg)
	}
	return m, nil
}

func (m Model) enter(p controller.Panel) (tea.Model, tea.Cmd) {
	return m.dispatch(controller.EnterPanel{Panel: p})
}

func (m Model) handleSnifferKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	list := m.State().Sniffer.Interfaces.Data
	switch {
	case key.Matches(msg, m.keys.Up):
		m.ifaceCursor = clampIndex(m.ifaceCursor-1, len(list))
	case key.Matches(msg, m.keys.Down):
		m.ifaceCursor = clampIndex(m.ifaceCursor+1, len(list))
	case key.Matches(msg, m.keys.Enter):
		if len(list) == 0 {
			return m, nil
		}
		return m.dispatch(controller.SelectInterface{Name: list[m.ifaceCursor].Name})
	case key.Matches(msg, m.keys.Start):
		return m.dispatch(controller.StartCapture{})
	case key.Matches(msg, m.keys.Stop):
		return m.dispatch(controller.StopCapture{})
	}
	return m, nil
}

// moveTableCursor handles up/down/enter over the shared table-name list.
// It reports whether the key was consumed.
func (m *Model) moveTableCursor(msg tea.KeyMsg) (tea.Cmd, bool) {
	p := m.State().Panel
	names := m.State().TableNames.Data
	switch {
	case key.Matches(msg, m.keys.Up):
		m.tableCursor[p] = clampIndex(m.tableCursor[p]-1, len(names))
	case key.Matches(msg, m.keys.Down):
		m.tableCursor[p] = clampIndex(m.tableCursor[p]+1, len(names))
	case key.Matches(msg, m.keys.Enter):
		if len(names) == 0 {
			return nil, true
		}
		next, cmd := m.dispatch(controller.SelectTable{Name: names[m.tableCursor[p]]})
		*m = next
		return cmd, true
	default:
		return nil, false
	}
	return nil, true
}

func (m Model) handleTableKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	t := &m.State().Table
	switch {
	case key.Matches(msg, m.keys.Load):
		return m.dispatch(controller.LoadTable{})
	case key.Matches(msg, m.keys.Focus):
		m.rowsFocused = !m.rowsFocused
		return m, nil
	case key.Matches(msg, m.keys.Filter):
		m.filtering = true
		return m, m.filterInput.Focus()
	case key.Matches(msg, m.keys.NextPage):
		m.rowCursor = 0
		return m.dispatch(controller.NextPage{})
	case key.Matches(msg, m.keys.PrevPage):
		m.rowCursor = 0
		return m.dispatch(controller.PrevPage{})
	}

	if !m.rowsFocused {
		cmd, _ := m.moveTableCursor(msg)
		return m, cmd
	}

	page := t.Page()
	cols := t.Columns()
	switch {
	case key.Matches(msg, m.keys.Up):
		m.rowCursor = clampIndex(m.rowCursor-1, len(page.Rows))
	case key.Matches(msg, m.keys.Down):
		m.rowCursor = clampIndex(m.rowCursor+1, len(page.Rows))
	case key.Matches(msg, m.keys.Left):
		m.colCursor = clampIndex(m.colCursor-1, len(cols))
	case key.Matches(msg, m.keys.Right):
		m.colCursor = clampIndex(m.colCursor+1, len(cols))
	case key.Matches(msg, m.keys.Enter):
		return m.openDetail()
	}
	return m, nil
}

// openDetail expands the cell under the cursor when it is collapsible.
func (m Model) openDetail() (tea.Model, tea.Cmd) {
	t := &m.State().Table
	page := t.Page()
	cols := t.Columns()
	if m.rowCursor >= len(page.Rows) || m.colCursor >= len(cols) {
		return m, nil
	}
	row := page.Rows[m.rowCursor]
	col := cols[m.colCursor]
	cell, _ := row.Get(col)
	u := present.Present(cell)
	if !u.Expandable() {
		return m, nil
	}
	title := col
	if id, ok := row.Get("id"); ok {
		title = fmt.Sprintf("%s · row %s", col, id.Display())
	}
	m.details = m.details.push(NewDetailView(title, u.Full, m.width, m.height))
	return m, nil
}

func (m Model) handleVisualizationKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Visualize) {
		return m.dispatch(controller.Visualize{})
	}
	cmd, _ := m.moveTableCursor(msg)
	return m, cmd
}

func (m Model) handleAnalysisKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a := &m.State().Analysis
	switch {
	case key.Matches(msg, m.keys.Protocol):
		return m.dispatch(controller.SelectProtocol{Value: cycle(a.Protocols.Data, a.Protocol)})
	case key.Matches(msg, m.keys.Source):
		return m.dispatch(controller.SelectSourceIP{Value: cycle(a.Sources.Data, a.SourceIP)})
	case key.Matches(msg, m.keys.Destination):
		return m.dispatch(controller.SelectDestinationIP{Value: cycle(a.Destinations.Data, a.DestinationIP)})
	case key.Matches(msg, m.keys.Run):
		return m.dispatch(controller.RunAnalysis{})
	case key.Matches(msg, m.keys.ScrollUp), key.Matches(msg, m.keys.ScrollDown):
		var cmd tea.Cmd
		m.answer, cmd = m.answer.Update(msg)
		return m, cmd
	}
	cmd, _ := m.moveTableCursor(msg)
	return m, cmd
}

// cycle returns the option after cur, treating "" (any) as the slot before
// the first option.
func cycle(options []string, cur string) string {
	if len(options) == 0 {
		return ""
	}
	i := slices.Index(options, cur)
	if i+1 >= len(options) {
		return ""
	}
	return options[i+1]
}

// syncAnswer re-renders the analysis markdown when the result changed.
func (m *Model) syncAnswer() {
	res := m.State().Analysis.Result
	text := ""
	if res.Status == controller.Loaded {
		text = res.Data.Response
	}
	if text == m.answerRendered {
		return
	}
	m.answerRendered = text
	m.answer.Width = max(m.width, 20)
	m.answer.Height = max(m.bodyHeight()-8, 3)
	m.answer.SetContent(renderMarkdown(text, m.answer.Width))
	m.answer.GotoTop()
}

// Run starts the dashboard against gw.
func Run(gw gateway.Gateway, opts Options) error {
	p := tea.NewProgram(NewModel(gw, opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
