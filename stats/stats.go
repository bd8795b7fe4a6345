// Package stats computes endpoint and conversation statistics from the rows
// of a capture table.
package stats

import (
	"fmt"
	"sort"
	"time"

	"github.com/Zerofisher/pktdash/pkg/value"
)

// Manager accumulates statistics one row at a time.
type Manager struct {
	endpoints     map[string]*Endpoint
	conversations map[string]*Conversation
	totalPackets  int
	totalBytes    int64
	first, last   time.Time
}

// Endpoint is the traffic seen for one address.
type Endpoint struct {
	Address   string
	TxPackets int
	RxPackets int
	TxBytes   int64
	RxBytes   int64
}

// Packets returns the packets sent and received.
func (e *Endpoint) Packets() int { return e.TxPackets + e.RxPackets }

// Bytes returns the payload bytes sent and received.
func (e *Endpoint) Bytes() int64 { return e.TxBytes + e.RxBytes }

// Row returns the endpoint as a result row.
func (e *Endpoint) Row() value.Value {
	return value.Object(
		value.F("address", value.String(e.Address)),
		value.F("packets", value.Int(int64(e.Packets()))),
		value.F("bytes", value.Int(e.Bytes())),
		value.F("tx_packets", value.Int(int64(e.TxPackets))),
		value.F("rx_packets", value.Int(int64(e.RxPackets))),
	)
}

// Conversation is the traffic between two addresses over one protocol.
// AddrA is always the lower address.
type Conversation struct {
	AddrA       string
	AddrB       string
	Protocol    string
	PacketsAtoB int
	PacketsBtoA int
	BytesAtoB   int64
	BytesBtoA   int64
	StartTime   time.Time
	LastSeen    time.Time
}

// Packets returns the packets in both directions.
func (c *Conversation) Packets() int { return c.PacketsAtoB + c.PacketsBtoA }

// Bytes returns the payload bytes in both directions.
func (c *Conversation) Bytes() int64 { return c.BytesAtoB + c.BytesBtoA }

// Duration returns the time between the first and last packet.
func (c *Conversation) Duration() time.Duration { return c.LastSeen.Sub(c.StartTime) }

// Row returns the conversation as a result row.
func (c *Conversation) Row() value.Value {
	return value.Object(
		value.F("address_a", value.String(c.AddrA)),
		value.F("address_b", value.String(c.AddrB)),
		value.F("protocol", value.String(c.Protocol)),
		value.F("packets_a_b", value.Int(int64(c.PacketsAtoB))),
		value.F("packets_b_a", value.Int(int64(c.PacketsBtoA))),
		value.F("bytes", value.Int(c.Bytes())),
		value.F("duration", value.String(FormatDuration(c.Duration()))),
	)
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{
		endpoints:     make(map[string]*Endpoint),
		conversations: make(map[string]*Conversation),
	}
}

// AddRow updates the statistics with one capture table row. Rows without a
// source or destination are counted in the totals only.
func (m *Manager) AddRow(row value.Value) {
	src := str(row, "source")
	dst := str(row, "destination")
	proto := str(row, "protocol")
	size := int64(len(str(row, "payload_hex")) / 2)
	ts, _ := time.Parse(time.RFC3339Nano, str(row, "timestamp"))

	m.totalPackets++
	m.totalBytes += size
	if !ts.IsZero() {
		if m.first.IsZero() || ts.Before(m.first) {
			m.first = ts
		}
		if ts.After(m.last) {
			m.last = ts
		}
	}

	if src == "" || dst == "" {
		return
	}
	m.endpoint(src).TxPackets++
	m.endpoint(src).TxBytes += size
	m.endpoint(dst).RxPackets++
	m.endpoint(dst).RxBytes += size

	addrA, addrB := src, dst
	if addrB < addrA {
		addrA, addrB = addrB, addrA
	}
	key := fmt.Sprintf("%s-%s-%s", addrA, addrB, proto)
	conv, ok := m.conversations[key]
	if !ok {
		conv = &Conversation{AddrA: addrA, AddrB: addrB, Protocol: proto, StartTime: ts}
		m.conversations[key] = conv
	}
	if src == addrA {
		conv.PacketsAtoB++
		conv.BytesAtoB += size
	} else {
		conv.PacketsBtoA++
		conv.BytesBtoA += size
	}
	if ts.IsZero() {
		return
	}
	if conv.StartTime.IsZero() || ts.Before(conv.StartTime) {
		conv.StartTime = ts
	}
	if ts.After(conv.LastSeen) {
		conv.LastSeen = ts
	}
}

func (m *Manager) endpoint(addr string) *Endpoint {
	ep, ok := m.endpoints[addr]
	if !ok {
		ep = &Endpoint{Address: addr}
		m.endpoints[addr] = ep
	}
	return ep
}

// TotalPackets returns the number of rows added.
func (m *Manager) TotalPackets() int { return m.totalPackets }

// TotalBytes returns the payload bytes of every row added.
func (m *Manager) TotalBytes() int64 { return m.totalBytes }

// Span returns the time between the earliest and latest row.
func (m *Manager) Span() time.Duration { return m.last.Sub(m.first) }

// Endpoints returns the endpoints by packets, busiest first. limit <= 0
// returns all of them.
func (m *Manager) Endpoints(limit int) []*Endpoint {
	out := make([]*Endpoint, 0, len(m.endpoints))
	for _, ep := range m.endpoints {
		out = append(out, ep)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Packets() != out[j].Packets() {
			return out[i].Packets() > out[j].Packets()
		}
		return out[i].Address < out[j].Address
	})
	return head(out, limit)
}

// Conversations returns the conversations by packets, busiest first.
// limit <= 0 returns all of them.
func (m *Manager) Conversations(limit int) []*Conversation {
	out := make([]*Conversation, 0, len(m.conversations))
	for _, c := range m.conversations {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Packets() != out[j].Packets() {
			return out[i].Packets() > out[j].Packets()
		}
		if out[i].AddrA != out[j].AddrA {
			return out[i].AddrA < out[j].AddrA
		}
		if out[i].AddrB != out[j].AddrB {
			return out[i].AddrB < out[j].AddrB
		}
		return out[i].Protocol < out[j].Protocol
	})
	return head(out, limit)
}

func head[T any](s []T, limit int) []T {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}

func str(row value.Value, key string) string {
	v, ok := row.Get(key)
	if !ok {
		return ""
	}
	s, _ := v.AsString()
	return s
}

// FormatBytes renders b with binary units.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}

// FormatDuration renders d at a precision that suits its size.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%.1fm", d.Minutes())
	default:
		return fmt.Sprintf("%.1fh", d.Hours())
	}
}
