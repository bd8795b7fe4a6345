package controller

import "github.com/Zerofisher/pktdash/pkg/gateway"

// Event is a discrete input to the controller. The set is closed.
type Event interface{ isEvent() }

// EnterPanel switches to a panel and issues its entry queries.
type EnterPanel struct{ Panel Panel }

// SelectInterface picks the capture interface. An empty name clears it.
type SelectInterface struct{ Name string }

// StartCapture asks the backend to start capturing on the selected
// interface.
type StartCapture struct{}

// StopCapture asks the backend to stop the running capture.
type StopCapture struct{}

// SelectTable picks the table of the active panel.
type SelectTable struct{ Name string }

// LoadTable fetches the rows of the Table panel's selected table.
type LoadTable struct{}

// NextPage, PrevPage and GoToPage move through the loaded table.
type (
	NextPage struct{}
	PrevPage struct{}
	GoToPage struct{ Page int }
)

// SetFilter replaces the Table panel's display filter.
type SetFilter struct{ Expr string }

// Visualize fetches the aggregates of the Visualization panel's table.
type Visualize struct{}

// Analysis filter choices. An empty value means any.
type (
	SelectProtocol      struct{ Value string }
	SelectSourceIP      struct{ Value string }
	SelectDestinationIP struct{ Value string }
)

// RunAnalysis runs the analysis for the current filter.
type RunAnalysis struct{}

// Response delivers the result of a request issued by Dispatch.
type Response struct {
	Request Request
	Result  gateway.Result
}

func (EnterPanel) isEvent()          {}
func (SelectInterface) isEvent()     {}
func (StartCapture) isEvent()        {}
func (StopCapture) isEvent()         {}
func (SelectTable) isEvent()         {}
func (LoadTable) isEvent()           {}
func (NextPage) isEvent()            {}
func (PrevPage) isEvent()            {}
func (GoToPage) isEvent()            {}
func (SetFilter) isEvent()           {}
func (Visualize) isEvent()           {}
func (SelectProtocol) isEvent()      {}
func (SelectSourceIP) isEvent()      {}
func (SelectDestinationIP) isEvent() {}
func (RunAnalysis) isEvent()         {}
func (Response) isEvent()            {}
