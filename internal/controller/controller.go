// Package controller implements the dashboard's panel state machine.
//
// The controller is a reducer: Dispatch applies one Event to the State and
// returns the gateway requests that the event requires. The caller runs the
// requests (asynchronously, in any order) and feeds each outcome back as a
// Response event. Every request carries a generation token for its slot;
// only the response to the most recent request of a slot is applied.
package controller

import (
	"slices"

	"github.com/rs/zerolog"

	"github.com/Zerofisher/pktdash/filter"
	"github.com/Zerofisher/pktdash/pkg/gateway"
	"github.com/Zerofisher/pktdash/pkg/model"
	"github.com/Zerofisher/pktdash/pkg/paginate"
	"github.com/Zerofisher/pktdash/pkg/value"
)

// Slot names a piece of state fed by one query. A newer request for a slot
// supersedes every older one.
type Slot string

const (
	SlotInterfaces   Slot = "interfaces"
	SlotTableNames   Slot = "table_names"
	SlotCapture      Slot = "capture"
	SlotTableData    Slot = "table_data"
	SlotIPStats      Slot = "ip_stats"
	SlotPacketRate   Slot = "packet_rate"
	SlotPacketTypes  Slot = "packet_types"
	SlotSources      Slot = "source_ips"
	SlotDestinations Slot = "destination_ips"
	SlotProtocols    Slot = "protocols"
	SlotAnalysis     Slot = "analysis"
)

// Request is a gateway call the caller must perform.
type Request struct {
	Token   uint64
	Slot    Slot
	Command gateway.Command
	Params  gateway.Params
}

// Controller owns the dashboard state. It is not safe for concurrent use;
// the UI loop is its only caller.
type Controller struct {
	state     State
	nextToken uint64
	latest    map[Slot]uint64
	logger    zerolog.Logger
}

// New creates a controller showing the Sniffer panel. pageSize <= 0 selects
// paginate.DefaultPageSize.
func New(pageSize int, logger zerolog.Logger) *Controller {
	c := &Controller{
		latest: make(map[Slot]uint64),
		logger: logger,
	}
	c.state.Table.pager = paginate.NewPager(pageSize)
	return c
}

// State returns the current state. Callers must treat it as read-only.
func (c *Controller) State() *State { return &c.state }

// Pending reports whether a request for slot is outstanding.
func (c *Controller) Pending(slot Slot) bool {
	_, ok := c.latest[slot]
	return ok
}

// Dispatch applies ev and returns the requests it requires. Local
// rejections are returned as validation errors and issue no requests.
func (c *Controller) Dispatch(ev Event) ([]Request, error) {
	switch ev := ev.(type) {
	case EnterPanel:
		return c.enter(ev.Panel), nil
	case SelectInterface:
		return nil, c.selectInterface(ev.Name)
	case StartCapture:
		return c.startCapture()
	case StopCapture:
		return c.stopCapture()
	case SelectTable:
		return c.selectTable(ev.Name)
	case LoadTable:
		return c.loadTable()
	case NextPage:
		c.state.Table.pager.Next()
		return nil, nil
	case PrevPage:
		c.state.Table.pager.Previous()
		return nil, nil
	case GoToPage:
		c.state.Table.pager.GoTo(ev.Page)
		return nil, nil
	case SetFilter:
		return nil, c.setFilter(ev.Expr)
	case Visualize:
		return c.visualize()
	case SelectProtocol:
		return nil, c.selectOption(&c.state.Analysis.Protocol, c.state.Analysis.Protocols, "protocol", ev.Value)
	case SelectSourceIP:
		return nil, c.selectOption(&c.state.Analysis.SourceIP, c.state.Analysis.Sources, "source IP", ev.Value)
	case SelectDestinationIP:
		return nil, c.selectOption(&c.state.Analysis.DestinationIP, c.state.Analysis.Destinations, "destination IP", ev.Value)
	case RunAnalysis:
		return c.runAnalysis()
	case Response:
		c.respond(ev)
		return nil, nil
	}
	return nil, invalid("unsupported event %T", ev)
}

func invalid(format string, args ...any) error {
	return gateway.Errorf(gateway.KindValidation, format, args...)
}

func (c *Controller) issue(slot Slot, cmd gateway.Command, p gateway.Params) Request {
	c.nextToken++
	c.latest[slot] = c.nextToken
	return Request{Token: c.nextToken, Slot: slot, Command: cmd, Params: p}
}

// invalidate drops any outstanding request for slot so its response is
// discarded when it arrives.
func (c *Controller) invalidate(slots ...Slot) {
	for _, s := range slots {
		delete(c.latest, s)
	}
}

// ────────────────────────────────────────────────────────────────────────────────
// Panels
// ────────────────────────────────────────────────────────────────────────────────

func (c *Controller) enter(p Panel) []Request {
	c.state.Panel = p
	if p == Sniffer {
		c.state.Sniffer.Interfaces.loading()
		return []Request{c.issue(SlotInterfaces, gateway.ListInterfaces, gateway.Params{})}
	}
	c.state.TableNames.loading()
	return []Request{c.issue(SlotTableNames, gateway.ListTableNames, gateway.Params{})}
}

func (c *Controller) selectTable(name string) ([]Request, error) {
	switch c.state.Panel {
	case Table:
		t := &c.state.Table
		if name == t.Selected {
			return nil, nil
		}
		t.Selected = name
		t.Data.clear()
		c.invalidate(SlotTableData)
		c.refreshView()
		return nil, nil

	case Visualization:
		v := &c.state.Visualization
		if name == v.Selected {
			return nil, nil
		}
		v.Selected = name
		v.IPStats.clear()
		v.PacketRate.clear()
		v.PacketTypes.clear()
		c.invalidate(SlotIPStats, SlotPacketRate, SlotPacketTypes)
		return nil, nil

	case Analysis:
		a := &c.state.Analysis
		if name == a.Selected {
			return nil, nil
		}
		a.Selected = name
		a.Result.clear()
		c.invalidate(SlotAnalysis)
		if name == "" {
			a.Sources.clear()
			a.Destinations.clear()
			a.Protocols.clear()
			a.Protocol, a.SourceIP, a.DestinationIP = "", "", ""
			c.invalidate(SlotSources, SlotDestinations, SlotProtocols)
			return nil, nil
		}
		a.Sources.loading()
		a.Destinations.loading()
		a.Protocols.loading()
		p := gateway.Params{Table: name}
		return []Request{
			c.issue(SlotSources, gateway.ListSourceIPs, p),
			c.issue(SlotDestinations, gateway.ListDestinationIPs, p),
			c.issue(SlotProtocols, gateway.ListProtocols, p),
		}, nil
	}
	return nil, invalid("the %s panel has no table selection", c.state.Panel)
}

// ────────────────────────────────────────────────────────────────────────────────
// Sniffer
// ────────────────────────────────────────────────────────────────────────────────

func (c *Controller) selectInterface(name string) error {
	s := &c.state.Sniffer
	if name != "" && s.Interfaces.Status == Loaded && !hasInterface(s.Interfaces.Data, name) {
		return invalid("unknown interface %q", name)
	}
	s.Selected = name
	return nil
}

func hasInterface(list []model.Interface, name string) bool {
	return slices.ContainsFunc(list, func(i model.Interface) bool { return i.Name == name })
}

func (c *Controller) startCapture() ([]Request, error) {
	s := &c.state.Sniffer
	switch {
	case s.Capture.Busy():
		return nil, invalid("a capture request is already in flight")
	case s.Capture == Running:
		return nil, invalid("capture is already running on %s", s.Selected)
	case s.Selected == "":
		return nil, invalid("no interface selected")
	}
	s.Capture = Starting
	s.CaptureErr = nil
	return []Request{c.issue(SlotCapture, gateway.StartCapture, gateway.Params{Interface: s.Selected})}, nil
}

func (c *Controller) stopCapture() ([]Request, error) {
	s := &c.state.Sniffer
	switch {
	case s.Capture.Busy():
		return nil, invalid("a capture request is already in flight")
	case s.Capture != Running:
		return nil, invalid("capture is not running")
	}
	s.Capture = Stopping
	s.CaptureErr = nil
	return []Request{c.issue(SlotCapture, gateway.StopCapture, gateway.Params{})}, nil
}

// ────────────────────────────────────────────────────────────────────────────────
// Table
// ────────────────────────────────────────────────────────────────────────────────

func (c *Controller) loadTable() ([]Request, error) {
	t := &c.state.Table
	if t.Selected == "" {
		return nil, invalid("no table selected")
	}
	t.Data.loading()
	c.refreshView()
	return []Request{c.issue(SlotTableData, gateway.GetTableData, gateway.Params{Table: t.Selected})}, nil
}

func (c *Controller) setFilter(expr string) error {
	t := &c.state.Table
	f, err := filter.Compile(expr)
	if err != nil {
		t.FilterErr = gateway.Errorf(gateway.KindValidation, "%v", err)
		return t.FilterErr
	}
	t.Filter = f
	t.FilterErr = nil
	c.refreshView()
	return nil
}

// refreshView recomputes the filtered rows and restarts paging at page 1.
func (c *Controller) refreshView() {
	t := &c.state.Table
	t.view = filter.Apply(t.Filter, t.Data.Data)
	t.pager.Reset(len(t.view))
}

// ────────────────────────────────────────────────────────────────────────────────
// Visualization
// ────────────────────────────────────────────────────────────────────────────────

func (c *Controller) visualize() ([]Request, error) {
	v := &c.state.Visualization
	if v.Selected == "" {
		return nil, invalid("no table selected")
	}
	v.IPStats.loading()
	v.PacketRate.loading()
	v.PacketTypes.loading()
	p := gateway.Params{Table: v.Selected}
	return []Request{
		c.issue(SlotIPStats, gateway.GetIPStats, p),
		c.issue(SlotPacketRate, gateway.GetPacketsPerSecond, p),
		c.issue(SlotPacketTypes, gateway.GetPacketTypes, p),
	}, nil
}

// ────────────────────────────────────────────────────────────────────────────────
// Analysis
// ────────────────────────────────────────────────────────────────────────────────

func (c *Controller) selectOption(dst *string, options Remote[[]string], what, v string) error {
	if v != "" && options.Status == Loaded && !slices.Contains(options.Data, v) {
		return invalid("%s %q is not in the selected table", what, v)
	}
	*dst = v
	return nil
}

func (c *Controller) runAnalysis() ([]Request, error) {
	a := &c.state.Analysis
	if a.Selected == "" {
		return nil, invalid("no table selected")
	}
	a.Result.loading()
	f := a.Filter()
	return []Request{c.issue(SlotAnalysis, gateway.RunAnalysis, gateway.Params{
		Table:         f.Table,
		Protocol:      f.Protocol,
		SourceIP:      f.SourceIP,
		DestinationIP: f.DestinationIP,
	})}, nil
}

// ────────────────────────────────────────────────────────────────────────────────
// Responses
// ────────────────────────────────────────────────────────────────────────────────

func (c *Controller) respond(r Response) {
	req := r.Request
	if c.latest[req.Slot] != req.Token || req.Token == 0 {
		c.logger.Debug().
			Str("slot", string(req.Slot)).
			Uint64("token", req.Token).
			Str("command", string(req.Command)).
			Msg("stale response discarded")
		return
	}
	delete(c.latest, req.Slot)

	if !r.Result.OK() {
		c.logger.Warn().
			Str("slot", string(req.Slot)).
			Uint64("token", req.Token).
			Str("command", string(req.Command)).
			Str("kind", string(r.Result.Err.Kind)).
			Str("error", r.Result.Err.Message).
			Msg("gateway call failed")
	}

	s := &c.state
	switch req.Slot {
	case SlotInterfaces:
		list, err := decode(r.Result, gateway.DecodeInterfaces)
		if err != nil {
			s.Sniffer.Interfaces.failed(err)
			return
		}
		s.Sniffer.Interfaces.loaded(list)
		if !hasInterface(list, s.Sniffer.Selected) {
			s.Sniffer.Selected = ""
		}

	case SlotTableNames:
		setRemote(&s.TableNames, r.Result, gateway.DecodeStrings)

	case SlotCapture:
		c.captureAck(req, r.Result)

	case SlotTableData:
		setRemote(&s.Table.Data, r.Result, gateway.DecodeResultSet)
		c.refreshView()

	case SlotIPStats:
		setRemote(&s.Visualization.IPStats, r.Result, gateway.DecodeResultSet)
	case SlotPacketRate:
		setRemote(&s.Visualization.PacketRate, r.Result, gateway.DecodeResultSet)
	case SlotPacketTypes:
		setRemote(&s.Visualization.PacketTypes, r.Result, gateway.DecodeResultSet)

	case SlotSources:
		setOptions(&s.Analysis.Sources, &s.Analysis.SourceIP, r.Result)
	case SlotDestinations:
		setOptions(&s.Analysis.Destinations, &s.Analysis.DestinationIP, r.Result)
	case SlotProtocols:
		setOptions(&s.Analysis.Protocols, &s.Analysis.Protocol, r.Result)

	case SlotAnalysis:
		setRemote(&s.Analysis.Result, r.Result, gateway.DecodeAnalysis)
		if s.Analysis.Result.Status == Failed && s.Analysis.Result.Err.Kind == gateway.KindParse {
			c.logger.Warn().Str("error", s.Analysis.Result.Err.Message).Msg("analysis payload rejected")
		}
	}
}

// captureAck moves the capture sub-machine only on explicit acknowledgement.
func (c *Controller) captureAck(req Request, res gateway.Result) {
	s := &c.state.Sniffer
	switch req.Command {
	case gateway.StartCapture:
		if !res.OK() {
			s.Capture = Idle
			s.CaptureErr = res.Err
			if res.Err.Code == gateway.CodeAlreadyRunning {
				// Another client owns a running session; let this one stop it.
				s.Capture = Running
			}
			return
		}
		s.Capture = Running
		s.CaptureTable = stringField(res.Payload, "table")
	case gateway.StopCapture:
		if !res.OK() {
			s.Capture = Running
			s.CaptureErr = res.Err
			if res.Err.Code == gateway.CodeNotRunning {
				s.Capture = Idle
				c.logger.Info().Str("error", res.Err.Message).Msg("capture already stopped by backend")
			}
			return
		}
		s.Capture = Idle
		if n, ok := res.Payload.Get("packets"); ok {
			s.LastPackets, _ = n.AsInt()
		}
		if t := stringField(res.Payload, "table"); t != "" {
			s.CaptureTable = t
		}
	}
}

func decode[T any](res gateway.Result, fn func(value.Value) (T, *gateway.Error)) (T, *gateway.Error) {
	if !res.OK() {
		var zero T
		return zero, res.Err
	}
	return fn(res.Payload)
}

func setRemote[T any](dst *Remote[T], res gateway.Result, fn func(value.Value) (T, *gateway.Error)) {
	v, err := decode(res, fn)
	if err != nil {
		dst.failed(err)
		return
	}
	dst.loaded(v)
}

// setOptions replaces a filter option list and clears the chosen value when
// the new list no longer offers it.
func setOptions(list *Remote[[]string], chosen *string, res gateway.Result) {
	setRemote(list, res, gateway.DecodeStrings)
	if *chosen != "" && !slices.Contains(list.Data, *chosen) {
		*chosen = ""
	}
}

func stringField(v value.Value, key string) string {
	f, ok := v.Get(key)
	if !ok {
		return ""
	}
	s, _ := f.AsString()
	return s
}
