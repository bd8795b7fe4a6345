package controller

import (
	"github.com/Zerofisher/pktdash/filter"
	"github.com/Zerofisher/pktdash/pkg/gateway"
	"github.com/Zerofisher/pktdash/pkg/model"
	"github.com/Zerofisher/pktdash/pkg/paginate"
	"github.com/Zerofisher/pktdash/pkg/value"
)

// Panel is one of the dashboard's independent views.
type Panel int

const (
	Sniffer Panel = iota
	Table
	Visualization
	Analysis
)

// Panels lists every panel in display order.
var Panels = []Panel{Sniffer, Table, Visualization, Analysis}

func (p Panel) String() string {
	switch p {
	case Sniffer:
		return "Sniffer"
	case Table:
		return "Table"
	case Visualization:
		return "Visualization"
	case Analysis:
		return "Analysis"
	}
	return "Unknown"
}

// Status separates "no response yet" from "empty result".
type Status int

const (
	Unloaded Status = iota
	Loading
	Loaded
	Failed
)

func (s Status) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Remote is data fetched through the gateway together with its fetch state.
// A failed fetch leaves Data at its zero value.
type Remote[T any] struct {
	Status Status
	Data   T
	Err    *gateway.Error
}

func (r *Remote[T]) loading() {
	var zero T
	r.Status, r.Data, r.Err = Loading, zero, nil
}

func (r *Remote[T]) loaded(v T) {
	r.Status, r.Data, r.Err = Loaded, v, nil
}

func (r *Remote[T]) failed(err *gateway.Error) {
	var zero T
	r.Status, r.Data, r.Err = Failed, zero, err
}

func (r *Remote[T]) clear() {
	*r = Remote[T]{}
}

// CaptureState is the capture control sub-machine, independent of panels.
type CaptureState int

const (
	Idle CaptureState = iota
	Starting
	Running
	Stopping
)

func (c CaptureState) String() string {
	switch c {
	case Idle:
		return "Idle"
	case Starting:
		return "Starting"
	case Running:
		return "Running"
	case Stopping:
		return "Stopping"
	}
	return "Unknown"
}

// Busy reports whether a start or stop request is outstanding.
func (c CaptureState) Busy() bool { return c == Starting || c == Stopping }

// SnifferState is the working data of the Sniffer panel.
type SnifferState struct {
	Interfaces Remote[[]model.Interface]
	Selected   string

	Capture      CaptureState
	CaptureTable string
	LastPackets  int64
	CaptureErr   *gateway.Error
}

// TableState is the working data of the Table panel.
type TableState struct {
	Selected string
	Data     Remote[model.ResultSet]

	Filter    *filter.Filter
	FilterErr *gateway.Error

	view  model.ResultSet
	pager *paginate.Pager
}

// View returns the loaded rows that pass the display filter.
func (t *TableState) View() model.ResultSet { return t.view }

// Page returns the current page of the filtered rows.
func (t *TableState) Page() paginate.Page[value.Value] {
	return paginate.Apply(t.pager, []value.Value(t.view))
}

// Pager exposes page navigation state.
func (t *TableState) Pager() *paginate.Pager { return t.pager }

// Columns returns the column order of the loaded result set.
func (t *TableState) Columns() []string { return t.Data.Data.Columns() }

// VisualizationState is the working data of the Visualization panel. The
// aggregates are chart-ready result sets kept exactly as returned.
type VisualizationState struct {
	Selected    string
	IPStats     Remote[model.ResultSet]
	PacketRate  Remote[model.ResultSet]
	PacketTypes Remote[model.ResultSet]
}

// AnalysisState is the working data of the Analysis panel.
type AnalysisState struct {
	Selected     string
	Sources      Remote[[]string]
	Destinations Remote[[]string]
	Protocols    Remote[[]string]

	// Chosen filter values; empty means any.
	Protocol      string
	SourceIP      string
	DestinationIP string

	Result Remote[model.Analysis]
}

// Filter returns the analysis filter for the current selections.
func (a *AnalysisState) Filter() model.AnalysisFilter {
	return model.AnalysisFilter{
		Table:         a.Selected,
		Protocol:      a.Protocol,
		SourceIP:      a.SourceIP,
		DestinationIP: a.DestinationIP,
	}
}

// State is the full dashboard state.
type State struct {
	Panel Panel

	// TableNames is shared by Table, Visualization and Analysis and is
	// re-fetched on every entry to one of them.
	TableNames Remote[[]string]

	Sniffer       SnifferState
	Table         TableState
	Visualization VisualizationState
	Analysis      AnalysisState
}
