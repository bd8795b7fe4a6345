// Package gateway is the single request/response contract between the
// dashboard and the capture backend.
//
// Every backend operation is a named Command taking Params and yielding a
// Result. A Result carries either a payload or an *Error whose Kind tells
// callers whether the failure was local validation, transport, the backend
// itself or a malformed payload.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zerofisher/pktdash/pkg/value"
)

// Command names a backend operation.
type Command string

const (
	StartCapture        Command = "start_capture"
	StopCapture         Command = "stop_capture"
	ListInterfaces      Command = "list_interfaces"
	ListTableNames      Command = "list_table_names"
	GetTableData        Command = "get_table_data"
	ListSourceIPs       Command = "list_source_ips"
	ListDestinationIPs  Command = "list_destination_ips"
	ListProtocols       Command = "list_protocols"
	GetIPStats          Command = "get_ip_stats"
	GetPacketsPerSecond Command = "get_packet_per_second"
	GetPacketTypes      Command = "get_packet_types"
	RunAnalysis         Command = "run_analysis"
)

// Commands lists every known command.
var Commands = []Command{
	StartCapture, StopCapture, ListInterfaces, ListTableNames, GetTableData,
	ListSourceIPs, ListDestinationIPs, ListProtocols,
	GetIPStats, GetPacketsPerSecond, GetPacketTypes, RunAnalysis,
}

// Known reports whether c is one of Commands.
func (c Command) Known() bool {
	for _, k := range Commands {
		if k == c {
			return true
		}
	}
	return false
}

// NeedsTable reports whether c operates on a capture table.
func (c Command) NeedsTable() bool {
	switch c {
	case GetTableData, ListSourceIPs, ListDestinationIPs, ListProtocols,
		GetIPStats, GetPacketsPerSecond, GetPacketTypes, RunAnalysis:
		return true
	}
	return false
}

// Params carries the arguments of a command. Unused fields stay empty.
type Params struct {
	Interface     string `json:"interface,omitempty"`
	Table         string `json:"table,omitempty"`
	Protocol      string `json:"protocol,omitempty"`
	SourceIP      string `json:"sourceIp,omitempty"`
	DestinationIP string `json:"destinationIp,omitempty"`
}

// Validate checks that the parameters required by c are present.
func Validate(c Command, p Params) *Error {
	if !c.Known() {
		return Errorf(KindValidation, "unknown command %q", c)
	}
	if c == StartCapture && p.Interface == "" {
		return Errorf(KindValidation, "%s: no interface selected", c)
	}
	if c.NeedsTable() && p.Table == "" {
		return Errorf(KindValidation, "%s: no table selected", c)
	}
	return nil
}

// ────────────────────────────────────────────────────────────────────────────────
// Errors
// ────────────────────────────────────────────────────────────────────────────────

// ErrorKind classifies a failed call.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindTransport  ErrorKind = "transport"
	KindBackend    ErrorKind = "backend"
	KindParse      ErrorKind = "parse"
)

// Codes refine a backend error when the caller has to react to the cause,
// not just report it.
const (
	// CodeNotRunning: stop_capture found no session to stop.
	CodeNotRunning = "not_running"
	// CodeAlreadyRunning: start_capture found a session already recording.
	CodeAlreadyRunning = "already_running"
)

// Error is the uniform failure shape of every command.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Code    string    `json:"code,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

// Errorf builds an Error of the given kind.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithCode sets e's code and returns e.
func (e *Error) WithCode(code string) *Error {
	e.Code = code
	return e
}

// AsError normalizes err into an *Error. Errors that are not already
// gateway errors are reported as backend errors.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr
	}
	return &Error{Kind: KindBackend, Message: err.Error()}
}

// IsKind reports whether err is a gateway error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var gerr *Error
	return errors.As(err, &gerr) && gerr.Kind == kind
}

// ────────────────────────────────────────────────────────────────────────────────
// Results
// ────────────────────────────────────────────────────────────────────────────────

// Result is the outcome of one call. Exactly one of Payload or Err is
// meaningful: Err nil means success, even if Payload is empty.
type Result struct {
	Payload value.Value
	Err     *Error
}

// OK reports whether the call succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Ok wraps a successful payload.
func Ok(v value.Value) Result { return Result{Payload: v} }

// Fail wraps an error.
func Fail(err *Error) Result { return Result{Err: err} }

// Gateway executes commands against a backend.
//
// Call never panics and never returns a Go error: every failure is carried
// by the Result.
type Gateway interface {
	Call(ctx context.Context, cmd Command, p Params) Result
}

// Func adapts a plain function to the Gateway interface.
type Func func(ctx context.Context, cmd Command, p Params) Result

// Call implements Gateway.
func (f Func) Call(ctx context.Context, cmd Command, p Params) Result {
	return f(ctx, cmd, p)
}
