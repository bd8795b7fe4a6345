package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Zerofisher/pktdash/pkg/value"
)

// DetailView shows the full value behind one collapsed cell. It holds its
// own copy of the text, so closing it never touches the table data.
type DetailView struct {
	title string
	text  string
	vp    viewport.Model
}

// NewDetailView opens a view for v. Strings are shown verbatim, composites
// as indented JSON.
func NewDetailView(title string, v value.Value, width, height int) DetailView {
	d := DetailView{title: title, text: FullText(v)}
	d.vp = viewport.New(width, height)
	d.SetSize(width, height)
	return d
}

// FullText is the unabridged rendering of a cell value.
func FullText(v value.Value) string {
	if s, ok := v.AsString(); ok {
		return s
	}
	return v.Pretty()
}

// Title names the cell the view belongs to.
func (d DetailView) Title() string { return d.title }

// Text returns the full value as shown.
func (d DetailView) Text() string { return d.text }

// SetSize resizes the view, leaving room for its title and footer.
func (d *DetailView) SetSize(width, height int) {
	h := height - 2
	if h < 1 {
		h = 1
	}
	d.vp.Width = width
	d.vp.Height = h
	// Long lines are wrapped for display only; Text stays untouched.
	d.vp.SetContent(lipgloss.NewStyle().Width(width).Render(d.text))
}

// Update scrolls the view.
func (d DetailView) Update(msg tea.Msg) (DetailView, tea.Cmd) {
	var cmd tea.Cmd
	d.vp, cmd = d.vp.Update(msg)
	return d, cmd
}

func (d DetailView) View() string {
	footer := fmt.Sprintf("%3.f%%  esc close · y copy · ↑/↓ scroll", d.vp.ScrollPercent()*100)
	return titleStyle.Width(d.vp.Width).Render(d.title) + "\n" +
		d.vp.View() + "\n" +
		dimStyle.Render(footer)
}

// detailStack holds the open detail views; the last one is on screen.
type detailStack []DetailView

func (s detailStack) open() bool { return len(s) > 0 }

func (s detailStack) top() *DetailView {
	if len(s) == 0 {
		return nil
	}
	return &s[len(s)-1]
}

func (s detailStack) push(d DetailView) detailStack { return append(s, d) }

func (s detailStack) pop() detailStack {
	if len(s) == 0 {
		return s
	}
	return s[:len(s)-1]
}
