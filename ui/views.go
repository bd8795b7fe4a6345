package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/Zerofisher/pktdash/internal/controller"
	"github.com/Zerofisher/pktdash/pkg/gateway"
	"github.com/Zerofisher/pktdash/pkg/model"
	"github.com/Zerofisher/pktdash/pkg/present"
	"github.com/Zerofisher/pktdash/pkg/value"
)

func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}
	if m.details.open() {
		return m.details.top().View() + "\n" + m.renderStatusBar()
	}

	var sb strings.Builder
	sb.WriteString(m.renderTabs())
	sb.WriteString("\n\n")

	var body string
	switch m.State().Panel {
	case controller.Sniffer:
		body = m.renderSniffer()
	case controller.Table:
		body = m.renderTable()
	case controller.Visualization:
		body = m.renderVisualization()
	case controller.Analysis:
		body = m.renderAnalysis()
	}
	sb.WriteString(lipgloss.NewStyle().Height(m.bodyHeight()).MaxHeight(m.bodyHeight()).Render(body))
	sb.WriteString("\n")
	sb.WriteString(m.renderStatusBar())
	sb.WriteString("\n")
	sb.WriteString(m.help.ShortHelpView(m.panelKeys()))
	return sb.String()
}

func (m Model) renderTabs() string {
	tabs := make([]string, 0, len(controller.Panels)+1)
	tabs = append(tabs, titleStyle.Render("pktdash"))
	for i, p := range controller.Panels {
		label := fmt.Sprintf("%d %s", i+1, p)
		if p == m.State().Panel {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, tabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) panelKeys() []key.Binding {
	k := m.keys
	switch m.State().Panel {
	case controller.Sniffer:
		return append([]key.Binding{k.Up, k.Down, k.Enter, k.Start, k.Stop}, k.panelHelp()...)
	case controller.Table:
		if m.filtering {
			return []key.Binding{k.Enter, k.Back}
		}
		return append([]key.Binding{k.Enter, k.Load, k.NextPage, k.PrevPage, k.Focus, k.Filter}, k.panelHelp()...)
	case controller.Visualization:
		return append([]key.Binding{k.Enter, k.Visualize}, k.panelHelp()...)
	case controller.Analysis:
		return append([]key.Binding{k.Enter, k.Protocol, k.Source, k.Destination, k.Run, k.ScrollDown}, k.panelHelp()...)
	}
	return k.panelHelp()
}

func (m Model) renderStatusBar() string {
	if m.statusMessage != "" {
		if m.statusIsError {
			return errorStyle.Width(m.width).Render(m.statusMessage)
		}
		return successStyle.Width(m.width).Render(m.statusMessage)
	}

	s := m.State().Sniffer
	capture := fmt.Sprintf("Capture: %s", s.Capture)
	switch s.Capture {
	case controller.Running:
		capture += fmt.Sprintf(" on %s → %s", s.Selected, s.CaptureTable)
	case controller.Idle:
		if s.CaptureTable != "" {
			capture += fmt.Sprintf(" (last: %s, %d packets)", s.CaptureTable, s.LastPackets)
		}
	}
	return statusStyle.Width(m.width).Render(capture)
}

// remoteLine describes a fetch that has not produced data.
func remoteLine(status controller.Status, err *gateway.Error, empty string) string {
	switch status {
	case controller.Unloaded:
		return dimStyle.Render("not loaded")
	case controller.Loading:
		return warningStyle.Render("loading…")
	case controller.Failed:
		return errorStyle.Render(err.Error())
	}
	return dimStyle.Render(empty)
}

// ────────────────────────────────────────────────────────────────────────────────
// Sniffer
// ────────────────────────────────────────────────────────────────────────────────

func (m Model) renderSniffer() string {
	var sb strings.Builder
	s := m.State().Sniffer

	sb.WriteString(sectionStyle.Render("Interfaces"))
	sb.WriteString("\n")
	if s.Interfaces.Status != controller.Loaded || len(s.Interfaces.Data) == 0 {
		sb.WriteString(remoteLine(s.Interfaces.Status, s.Interfaces.Err, "no capture interfaces found"))
		sb.WriteString("\n")
	}
	for i, iface := range s.Interfaces.Data {
		mark := "  "
		if iface.Name == s.Selected {
			mark = "● "
		}
		line := mark + iface.Label()
		if len(iface.Addresses) > 0 {
			line += dimStyle.Render("  " + strings.Join(iface.Addresses, ", "))
		}
		if i == m.ifaceCursor {
			sb.WriteString(selectedStyle.Width(m.width).Render(line))
		} else {
			sb.WriteString(normalStyle.Render(line))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	state := s.Capture.String()
	switch s.Capture {
	case controller.Running:
		state = successStyle.Render(state)
	case controller.Starting, controller.Stopping:
		state = warningStyle.Render(state)
	}
	sb.WriteString(fmt.Sprintf("Capture %s", state))
	if s.Capture == controller.Running {
		sb.WriteString(fmt.Sprintf(" on %s into %s", s.Selected, s.CaptureTable))
	}
	sb.WriteString("\n")
	if s.CaptureErr != nil {
		sb.WriteString(errorStyle.Render(s.CaptureErr.Error()))
		sb.WriteString("\n")
	}
	return sb.String()
}

// ────────────────────────────────────────────────────────────────────────────────
// Table
// ────────────────────────────────────────────────────────────────────────────────

// renderTableList draws the shared table-name list with the panel's cursor
// and selection.
func (m Model) renderTableList(selected string, height int) string {
	var sb strings.Builder
	names := m.State().TableNames
	sb.WriteString(sectionStyle.Render("Tables"))
	sb.WriteString("\n")
	if names.Status != controller.Loaded || len(names.Data) == 0 {
		sb.WriteString(remoteLine(names.Status, names.Err, "no capture tables yet"))
		return sb.String()
	}

	cursor := m.tableCursor[m.State().Panel]
	start := 0
	if height > 0 && cursor >= height {
		start = cursor - height + 1
	}
	for i := start; i < len(names.Data) && (height <= 0 || i < start+height); i++ {
		mark := "  "
		if names.Data[i] == selected {
			mark = "● "
		}
		line := mark + names.Data[i]
		if i == cursor {
			sb.WriteString(selectedStyle.Render(line))
		} else {
			sb.WriteString(normalStyle.Render(line))
		}
		sb.WriteString("\n")
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func (m Model) renderTable() string {
	t := &m.State().Table

	var sb strings.Builder
	if !m.rowsFocused {
		sb.WriteString(m.renderTableList(t.Selected, m.bodyHeight()-4))
		sb.WriteString("\n\n")
	}

	sb.WriteString(m.renderFilterBar())
	sb.WriteString("\n")

	if t.Selected == "" {
		sb.WriteString(dimStyle.Render("select a table and press l to load it"))
		return sb.String()
	}
	if t.Data.Status != controller.Loaded {
		sb.WriteString(t.Selected + ": ")
		sb.WriteString(remoteLine(t.Data.Status, t.Data.Err, ""))
		return sb.String()
	}

	page := t.Page()
	sb.WriteString(headerStyle.Render(fmt.Sprintf("%s · page %d/%d · %d of %d rows",
		t.Selected, page.Index, max(page.Count, 1), len(t.View()), len(t.Data.Data))))
	sb.WriteString("\n")
	if len(page.Rows) == 0 {
		sb.WriteString(dimStyle.Render("no rows"))
		return sb.String()
	}
	sb.WriteString(m.renderGrid(t.Columns(), page.Rows))
	return sb.String()
}

func (m Model) renderFilterBar() string {
	t := &m.State().Table
	switch {
	case m.filtering:
		return statusStyle.Width(m.width).Render("Filter: " + m.filterInput.View())
	case t.FilterErr != nil:
		return errorStyle.Render("Filter: " + t.FilterErr.Message)
	case !t.Filter.Empty():
		return statusStyle.Width(m.width).Render("Filter: " + t.Filter.String())
	}
	return dimStyle.Render("no filter (/ to set)")
}

// renderGrid draws one page of rows through the cell presentation policy.
func (m Model) renderGrid(cols []string, rows []value.Value) string {
	cells := make([][]string, len(rows))
	expandable := make([][]bool, len(rows))
	for i, row := range rows {
		units := present.Row(row, cols)
		cells[i] = make([]string, len(units))
		expandable[i] = make([]bool, len(units))
		for j, u := range units {
			cells[i][j] = present.OneLine(u)
			expandable[i][j] = u.Expandable()
		}
	}

	focused := m.rowsFocused
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(dimColor)).
		Headers(cols...).
		Rows(cells...).
		Width(m.width).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case focused && row == m.rowCursor && col == m.colCursor:
				return cursorCellStyle
			case row >= 0 && row < len(expandable) && col < len(expandable[row]) && expandable[row][col]:
				return collapsedCellStyle
			case row >= 0 && col < len(cols) && cols[col] == "protocol":
				return getProtocolStyle(cells[row][col]).Padding(0, 1)
			}
			return cellStyle
		})
	return t.Render()
}

// ────────────────────────────────────────────────────────────────────────────────
// Visualization
// ────────────────────────────────────────────────────────────────────────────────

func (m Model) renderVisualization() string {
	v := m.State().Visualization
	var sb strings.Builder
	sb.WriteString(m.renderTableList(v.Selected, 5))
	sb.WriteString("\n\n")
	if v.Selected == "" {
		sb.WriteString(dimStyle.Render("select a table and press v to visualize it"))
		return sb.String()
	}

	sb.WriteString(sectionStyle.Render("IP addresses"))
	sb.WriteString(" " + sourceBarStyle.Render("■ source") + " " + destBarStyle.Render("■ destination"))
	sb.WriteString("\n")
	if v.IPStats.Status == controller.Loaded {
		sb.WriteString(barChart(ipStatBars(model.IPStatsFrom(v.IPStats.Data), 10), m.width, sourceBarStyle, destBarStyle))
	} else {
		sb.WriteString(remoteLine(v.IPStats.Status, v.IPStats.Err, ""))
	}
	sb.WriteString("\n\n")

	sb.WriteString(sectionStyle.Render("Packets per second"))
	sb.WriteString("\n")
	if v.PacketRate.Status == controller.Loaded {
		sb.WriteString(rateSummary(model.RatePointsFrom(v.PacketRate.Data), m.width))
	} else {
		sb.WriteString(remoteLine(v.PacketRate.Status, v.PacketRate.Err, ""))
	}
	sb.WriteString("\n\n")

	sb.WriteString(sectionStyle.Render("Packet types"))
	sb.WriteString("\n")
	if v.PacketTypes.Status == controller.Loaded {
		sb.WriteString(barChart(typeBars(model.TypeCountsFrom(v.PacketTypes.Data)), m.width, sparkStyle))
	} else {
		sb.WriteString(remoteLine(v.PacketTypes.Status, v.PacketTypes.Err, ""))
	}
	return sb.String()
}

// ────────────────────────────────────────────────────────────────────────────────
// Analysis
// ────────────────────────────────────────────────────────────────────────────────

func (m Model) renderAnalysis() string {
	a := m.State().Analysis
	var sb strings.Builder
	sb.WriteString(m.renderTableList(a.Selected, 5))
	sb.WriteString("\n\n")
	if a.Selected == "" {
		sb.WriteString(dimStyle.Render("select a table to analyze"))
		return sb.String()
	}

	option := func(label, chosen string, list controller.Remote[[]string]) string {
		v := chosen
		if v == "" {
			v = "any"
		}
		line := fmt.Sprintf("%-12s %s", label, normalStyle.Render(v))
		if list.Status != controller.Loaded {
			line += "  " + remoteLine(list.Status, list.Err, "")
		} else {
			line += dimStyle.Render(fmt.Sprintf("  (%d values)", len(list.Data)))
		}
		return line
	}
	sb.WriteString(option("Protocol", a.Protocol, a.Protocols) + "\n")
	sb.WriteString(option("Source", a.SourceIP, a.Sources) + "\n")
	sb.WriteString(option("Destination", a.DestinationIP, a.Destinations) + "\n\n")

	switch a.Result.Status {
	case controller.Loaded:
		sb.WriteString(dimStyle.Render(fmt.Sprintf("%s %s · %d packets", a.Result.Data.Provider, a.Result.Data.Model, a.Result.Data.Rows)))
		sb.WriteString("\n")
		sb.WriteString(m.answer.View())
	case controller.Unloaded:
		sb.WriteString(dimStyle.Render("press r to run the analysis"))
	default:
		sb.WriteString(remoteLine(a.Result.Status, a.Result.Err, ""))
	}
	return sb.String()
}

// renderMarkdown renders the analysis answer, falling back to the raw text.
func renderMarkdown(text string, width int) string {
	if text == "" {
		return ""
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimSpace(out)
}
