package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Sniffer       key.Binding
	Table         key.Binding
	Visualization key.Binding
	Analysis      key.Binding
	NextPanel     key.Binding

	Up    key.Binding
	Down  key.Binding
	Left  key.Binding
	Right key.Binding
	Enter key.Binding
	Back  key.Binding
	Quit  key.Binding

	Refresh key.Binding

	// Sniffer
	Start key.Binding
	Stop  key.Binding

	// Table
	Load     key.Binding
	NextPage key.Binding
	PrevPage key.Binding
	Focus    key.Binding
	Filter   key.Binding

	// Visualization
	Visualize key.Binding

	// Analysis
	Protocol    key.Binding
	Source      key.Binding
	Destination key.Binding
	Run         key.Binding
	ScrollUp    key.Binding
	ScrollDown  key.Binding

	// Detail view
	Copy key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Sniffer:       key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "sniffer")),
		Table:         key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "table")),
		Visualization: key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "charts")),
		Analysis:      key.NewBinding(key.WithKeys("4"), key.WithHelp("4", "analysis")),
		NextPanel:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next panel")),

		Up:    key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:  key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Left:  key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "left")),
		Right: key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "right")),
		Enter: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		Back:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
		Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),

		Refresh: key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "refresh")),

		Start: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start capture")),
		Stop:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "stop capture")),

		Load:     key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "load")),
		NextPage: key.NewBinding(key.WithKeys("n", "pgdown"), key.WithHelp("n", "next page")),
		PrevPage: key.NewBinding(key.WithKeys("p", "pgup"), key.WithHelp("p", "prev page")),
		Focus:    key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "tables/rows")),
		Filter:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),

		Visualize: key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "visualize")),

		Protocol:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "protocol")),
		Source:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "source")),
		Destination: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "destination")),
		Run:         key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "run analysis")),
		ScrollUp:    key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll")),
		ScrollDown:  key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "scroll")),

		Copy: key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy")),
	}
}

func (k keyMap) panelHelp() []key.Binding {
	return []key.Binding{k.Sniffer, k.Table, k.Visualization, k.Analysis, k.NextPanel}
}
