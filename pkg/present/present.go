// Package present decides how a single cell value is shown in a table.
//
// Short values are shown inline. Long strings and large objects or arrays
// are shown as a summary that can be expanded back into the original value.
package present

import (
	"strings"

	"github.com/Zerofisher/pktdash/pkg/value"
)

const (
	// MaxInlineString is the longest string (in runes) shown verbatim.
	MaxInlineString = 15
	// MaxInlineEntries is the largest object or array shown verbatim.
	MaxInlineEntries = 7

	headRunes   = 10
	tailRunes   = 5
	headEntries = 5
	tailEntries = 2
)

// Ellipsis marks the elided part of a summary.
const Ellipsis = "…"

// Kind distinguishes inline units from collapsible ones.
type Kind int

const (
	Inline Kind = iota
	Collapsible
)

func (k Kind) String() string {
	if k == Collapsible {
		return "collapsible"
	}
	return "inline"
}

// Unit is the presentation of one cell.
type Unit struct {
	Kind Kind
	// Text is the full text for inline units and the summary for
	// collapsible ones.
	Text string
	// Full is the original value. Only meaningful for collapsible units.
	Full value.Value
}

// Expandable reports whether u carries a full value behind its summary.
func (u Unit) Expandable() bool { return u.Kind == Collapsible }

// Present maps a value to its presentation unit. It never modifies v.
func Present(v value.Value) Unit {
	switch v.Kind() {
	case value.KindString:
		s, _ := v.AsString()
		if v.Len() <= MaxInlineString {
			return Unit{Kind: Inline, Text: s}
		}
		return Unit{Kind: Collapsible, Text: SummarizeString(s), Full: v}
	case value.KindObject, value.KindArray:
		if v.Len() <= MaxInlineEntries {
			return Unit{Kind: Inline, Text: v.Pretty()}
		}
		return Unit{Kind: Collapsible, Text: Reduce(v).Pretty(), Full: v}
	default:
		return Unit{Kind: Inline, Text: v.Display()}
	}
}

// SummarizeString keeps the first ten and last five runes of s.
func SummarizeString(s string) string {
	r := []rune(s)
	if len(r) <= MaxInlineString {
		return s
	}
	var b strings.Builder
	b.WriteString(string(r[:headRunes]))
	b.WriteString(Ellipsis)
	b.WriteString(string(r[len(r)-tailRunes:]))
	return b.String()
}

// Reduce returns the abbreviated form of a large object or array: the first
// five entries, an ellipsis marker and the last two entries. Objects use the
// marker as both key and value; if a kept key already is the marker, the
// marker key is lengthened until it is unique. Values at or under the limit
// are returned unchanged.
func Reduce(v value.Value) value.Value {
	if v.Len() <= MaxInlineEntries {
		return v
	}
	switch v.Kind() {
	case value.KindObject:
		fields := v.Fields()
		head, tail := fields[:headEntries], fields[len(fields)-tailEntries:]
		kept := make([]value.Field, 0, headEntries+1+tailEntries)
		kept = append(kept, head...)
		kept = append(kept, value.F(markerKey(head, tail), value.String(Ellipsis)))
		kept = append(kept, tail...)
		return value.Object(kept...)
	case value.KindArray:
		items := v.Items()
		kept := make([]value.Value, 0, headEntries+1+tailEntries)
		kept = append(kept, items[:headEntries]...)
		kept = append(kept, value.String(Ellipsis))
		kept = append(kept, items[len(items)-tailEntries:]...)
		return value.Array(kept...)
	}
	return v
}

func markerKey(groups ...[]value.Field) string {
	key := Ellipsis
	for taken(key, groups) {
		key += Ellipsis
	}
	return key
}

func taken(key string, groups [][]value.Field) bool {
	for _, g := range groups {
		for _, f := range g {
			if f.Key == key {
				return true
			}
		}
	}
	return false
}

// Row presents every cell of a row in column order.
func Row(row value.Value, columns []string) []Unit {
	out := make([]Unit, len(columns))
	for i, c := range columns {
		cell, ok := row.Get(c)
		if !ok {
			cell = value.Null()
		}
		out[i] = Present(cell)
	}
	return out
}

// OneLine flattens a unit's text for single-line table cells.
func OneLine(u Unit) string {
	if !strings.Contains(u.Text, "\n") {
		return u.Text
	}
	lines := strings.Split(u.Text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return strings.Join(lines, " ")
}
