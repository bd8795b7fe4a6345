// Package model defines the records exchanged between the capture backend,
// the command gateway and the dashboard.
package model

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Zerofisher/pktdash/pkg/value"
)

// ────────────────────────────────────────────────────────────────────────────────
// Interfaces & filters
// ────────────────────────────────────────────────────────────────────────────────

// Interface is a capture device reported by the backend.
type Interface struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Addresses   []string `json:"addresses,omitempty"`
}

// Label returns the name plus the description when one exists.
func (i Interface) Label() string {
	if i.Description == "" {
		return i.Name
	}
	return fmt.Sprintf("%s (%s)", i.Name, i.Description)
}

// AnalysisFilter narrows the rows sent to the analysis service.
// Empty optional fields match everything.
type AnalysisFilter struct {
	Table         string `json:"table"`
	Protocol      string `json:"protocol,omitempty"`
	SourceIP      string `json:"sourceIp,omitempty"`
	DestinationIP string `json:"destinationIp,omitempty"`
}

// ────────────────────────────────────────────────────────────────────────────────
// Result sets
// ────────────────────────────────────────────────────────────────────────────────

// ResultSet is an ordered list of rows. Each row is an object value mapping
// column names to cell values.
type ResultSet []value.Value

// Columns returns the column order inferred from the first row.
func (rs ResultSet) Columns() []string {
	if len(rs) == 0 {
		return nil
	}
	return rs[0].Keys()
}

// Value wraps the result set as an array value.
func (rs ResultSet) Value() value.Value {
	return value.Array(rs...)
}

// ResultSetFrom converts an array of objects into a ResultSet.
func ResultSetFrom(v value.Value) (ResultSet, error) {
	if v.Kind() != value.KindArray {
		return nil, fmt.Errorf("result set: expected array, got %s", v.Kind())
	}
	items := v.Items()
	for i, row := range items {
		if row.Kind() != value.KindObject {
			return nil, fmt.Errorf("result set: row %d is %s, not object", i, row.Kind())
		}
	}
	return ResultSet(items), nil
}

// ────────────────────────────────────────────────────────────────────────────────
// Capture tables
// ────────────────────────────────────────────────────────────────────────────────

// TablePrefix is shared by every capture session table.
const TablePrefix = "packet_data_"

var tableNameRe = regexp.MustCompile(`^packet_data_\d{14}$`)

// SessionTable names the table for a capture started at t.
func SessionTable(t time.Time) string {
	return TablePrefix + t.UTC().Format("20060102150405")
}

// IsCaptureTable reports whether name is a well-formed capture table name.
func IsCaptureTable(name string) bool {
	return tableNameRe.MatchString(name)
}

// PacketRecord is one captured IP packet as stored in a session table.
type PacketRecord struct {
	ID          int64
	Timestamp   time.Time
	PacketType  string // IPv4 or IPv6
	Source      string
	Destination string
	Protocol    string
	Payload     []byte
}

// PayloadBase64 returns the payload in standard base64.
func (p *PacketRecord) PayloadBase64() string {
	return base64.StdEncoding.EncodeToString(p.Payload)
}

// PayloadHex returns the payload as lowercase hex.
func (p *PacketRecord) PayloadHex() string {
	return hex.EncodeToString(p.Payload)
}

// PayloadString returns the payload as text, replacing invalid UTF-8.
func (p *PacketRecord) PayloadString() string {
	return strings.ToValidUTF8(string(p.Payload), "�")
}

// Row returns the record in table column order.
func (p *PacketRecord) Row() value.Value {
	raw, _ := value.FromNative(p.Payload)
	return value.Object(
		value.F("id", value.Int(p.ID)),
		value.F("timestamp", value.String(p.Timestamp.UTC().Format(time.RFC3339Nano))),
		value.F("packet_type", value.String(p.PacketType)),
		value.F("source", value.String(p.Source)),
		value.F("destination", value.String(p.Destination)),
		value.F("protocol", value.String(p.Protocol)),
		value.F("payload_base64", value.String(p.PayloadBase64())),
		value.F("payload_hex", value.String(p.PayloadHex())),
		value.F("payload_raw", raw),
		value.F("payload_string", value.String(p.PayloadString())),
	)
}

// CaptureSession describes one start/stop cycle of the capture engine.
type CaptureSession struct {
	ID        int64
	Interface string
	Table     string
	StartedAt time.Time
	StoppedAt time.Time
	Packets   int64
}

// Running reports whether the session has not been stopped yet.
func (s *CaptureSession) Running() bool { return s.StoppedAt.IsZero() }

// ────────────────────────────────────────────────────────────────────────────────
// Aggregates
// ────────────────────────────────────────────────────────────────────────────────

// IPStat counts how often an address appeared on each side of a packet.
type IPStat struct {
	IP          string
	Source      int64
	Destination int64
}

// Total returns the packets seen for the address in either direction.
func (s IPStat) Total() int64 { return s.Source + s.Destination }

// Row returns the stat as a result row.
func (s IPStat) Row() value.Value {
	return value.Object(
		value.F("IP", value.String(s.IP)),
		value.F("Source", value.Int(s.Source)),
		value.F("Destination", value.Int(s.Destination)),
	)
}

// RatePoint is the packet count observed within one wall-clock second.
type RatePoint struct {
	TimeStamp string // HH:MM:SS
	Traffic   int64
}

// Row returns the point as a result row.
func (p RatePoint) Row() value.Value {
	return value.Object(
		value.F("timeStamp", value.String(p.TimeStamp)),
		value.F("traffic", value.Int(p.Traffic)),
	)
}

// TypeCount counts packets per packet type (IPv4, IPv6).
type TypeCount struct {
	Type  string
	Count int64
}

// Row returns the count as a result row.
func (c TypeCount) Row() value.Value {
	return value.Object(
		value.F("type", value.String(c.Type)),
		value.F("count", value.Int(c.Count)),
	)
}

// IPStatsFrom reads IP stats back out of an aggregate result set. Rows with
// missing or non-numeric fields are skipped.
func IPStatsFrom(rs ResultSet) []IPStat {
	var out []IPStat
	for _, row := range rs {
		ip, ok1 := stringField(row, "IP")
		src, ok2 := intField(row, "Source")
		dst, ok3 := intField(row, "Destination")
		if ok1 && ok2 && ok3 {
			out = append(out, IPStat{IP: ip, Source: src, Destination: dst})
		}
	}
	return out
}

// RatePointsFrom reads packet rate points out of an aggregate result set.
func RatePointsFrom(rs ResultSet) []RatePoint {
	var out []RatePoint
	for _, row := range rs {
		ts, ok1 := stringField(row, "timeStamp")
		n, ok2 := intField(row, "traffic")
		if ok1 && ok2 {
			out = append(out, RatePoint{TimeStamp: ts, Traffic: n})
		}
	}
	return out
}

// TypeCountsFrom reads packet type counts out of an aggregate result set.
func TypeCountsFrom(rs ResultSet) []TypeCount {
	var out []TypeCount
	for _, row := range rs {
		typ, ok1 := stringField(row, "type")
		n, ok2 := intField(row, "count")
		if ok1 && ok2 {
			out = append(out, TypeCount{Type: typ, Count: n})
		}
	}
	return out
}

func stringField(row value.Value, key string) (string, bool) {
	v, ok := row.Get(key)
	if !ok {
		return "", false
	}
	return v.AsString()
}

func intField(row value.Value, key string) (int64, bool) {
	v, ok := row.Get(key)
	if !ok {
		return 0, false
	}
	return v.AsInt()
}

// ────────────────────────────────────────────────────────────────────────────────
// Analysis
// ────────────────────────────────────────────────────────────────────────────────

// Analysis is the answer returned by the analysis service.
type Analysis struct {
	Provider string
	Model    string
	Rows     int
	Response string
}

// Payload returns the analysis in its wire form.
func (a Analysis) Payload() value.Value {
	return value.Object(
		value.F("provider", value.String(a.Provider)),
		value.F("model", value.String(a.Model)),
		value.F("rows", value.Int(int64(a.Rows))),
		value.F("response", value.String(a.Response)),
	)
}
