// Package export writes result sets in various output formats
package export

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/Zerofisher/pktdash/pkg/present"
	"github.com/Zerofisher/pktdash/pkg/value"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatTable  OutputFormat = "table"
	FormatJSON   OutputFormat = "json"
	FormatFields OutputFormat = "fields"
)

// ParseFormat validates a format name. The empty string selects FormatTable.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON, FormatFields:
		return OutputFormat(s), nil
	}
	return "", fmt.Errorf("unknown output format %q (want table, json or fields)", s)
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAFAFA")).Background(lipgloss.Color("#7D56F4")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	moreStyle   = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("#FFCC00"))
)

// Exporter handles row export
type Exporter struct {
	format   OutputFormat
	writer   io.Writer
	columns  []string // for -e column selection
	showHex  bool     // -x hex dump of payload_hex
	count    int      // rows exported
	maxCount int      // -c limit (0 = unlimited)
	firstRow bool     // track first row for JSON array

	// table format renders once all rows are known
	cells     [][]string
	collapsed [][]bool
}

// NewExporter creates a new exporter
func NewExporter(w io.Writer, format OutputFormat) *Exporter {
	return &Exporter{
		format:   format,
		writer:   w,
		firstRow: true,
	}
}

// SetColumns restricts output to the named columns, in that order
func (e *Exporter) SetColumns(names []string) {
	e.columns = names
}

// SetMaxCount sets the maximum row count
func (e *Exporter) SetMaxCount(n int) {
	e.maxCount = n
}

// SetShowHex enables hex dumps of the payload column in fields output
func (e *Exporter) SetShowHex(v bool) {
	e.showHex = v
}

// Count returns the number of rows exported so far
func (e *Exporter) Count() int { return e.count }

// ShouldStop returns true if we've reached the row limit
func (e *Exporter) ShouldStop() bool {
	return e.maxCount > 0 && e.count >= e.maxCount
}

// Start writes any header needed for the format
func (e *Exporter) Start() error {
	if e.format == FormatJSON {
		_, err := fmt.Fprintln(e.writer, "[")
		return err
	}
	return nil
}

// ExportRow exports a single row object
func (e *Exporter) ExportRow(row value.Value) error {
	if e.ShouldStop() {
		return nil
	}
	if e.columns == nil {
		e.columns = row.Keys()
	}

	var err error
	switch e.format {
	case FormatJSON:
		err = e.exportJSON(row)
	case FormatFields:
		err = e.exportFields(row)
	default:
		e.exportTableRow(row)
	}

	if err == nil {
		e.count++
	}
	return err
}

// Finish writes any footer needed for the format
func (e *Exporter) Finish() error {
	switch e.format {
	case FormatJSON:
		if !e.firstRow {
			if _, err := fmt.Fprintln(e.writer); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintln(e.writer, "]")
		return err
	case FormatFields:
		return nil
	default:
		return e.renderTable()
	}
}

func (e *Exporter) exportTableRow(row value.Value) {
	units := present.Row(row, e.columns)
	line := make([]string, len(units))
	marks := make([]bool, len(units))
	for i, u := range units {
		line[i] = present.OneLine(u)
		marks[i] = u.Expandable()
	}
	e.cells = append(e.cells, line)
	e.collapsed = append(e.collapsed, marks)
}

// renderTable draws the buffered rows. Collapsed cells are highlighted so
// the reader knows the full value is elided.
func (e *Exporter) renderTable() error {
	if len(e.columns) == 0 {
		_, err := fmt.Fprintln(e.writer, "(no rows)")
		return err
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))).
		Headers(e.columns...).
		Rows(e.cells...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if row >= 0 && row < len(e.collapsed) && col < len(e.collapsed[row]) && e.collapsed[row][col] {
				return moreStyle
			}
			return cellStyle
		})
	_, err := fmt.Fprintln(e.writer, t.Render())
	return err
}

// exportJSON writes the row verbatim, keeping its column order
func (e *Exporter) exportJSON(row value.Value) error {
	data := selectColumns(row, e.columns).Compact()

	var err error
	if e.firstRow {
		e.firstRow = false
		_, err = fmt.Fprintf(e.writer, "  %s", data)
	} else {
		_, err = fmt.Fprintf(e.writer, ",\n  %s", data)
	}
	return err
}

// exportFields exports the selected columns tab separated (for -T fields -e)
func (e *Exporter) exportFields(row value.Value) error {
	values := make([]string, len(e.columns))
	for i, name := range e.columns {
		cell, ok := row.Get(name)
		if !ok {
			continue
		}
		if cell.IsComposite() {
			values[i] = cell.Compact()
		} else {
			values[i] = cell.Display()
		}
	}

	if _, err := fmt.Fprintln(e.writer, strings.Join(values, "\t")); err != nil {
		return err
	}

	if e.showHex {
		return e.exportHexDump(row)
	}
	return nil
}

func selectColumns(row value.Value, columns []string) value.Value {
	fields := make([]value.Field, 0, len(columns))
	for _, c := range columns {
		if v, ok := row.Get(c); ok {
			fields = append(fields, value.F(c, v))
		}
	}
	return value.Object(fields...)
}

// exportHexDump exports a hex dump of the payload_hex column (for -x)
func (e *Exporter) exportHexDump(row value.Value) error {
	cell, ok := row.Get("payload_hex")
	if !ok {
		return nil
	}
	s, _ := cell.AsString()
	data, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("payload_hex: %w", err)
	}
	id := ""
	if v, ok := row.Get("id"); ok {
		id = v.Display()
	}
	fmt.Fprintf(e.writer, "\nHex dump of row %s (%d bytes):\n", id, len(data))

	bytesPerLine := 16
	for i := 0; i < len(data); i += bytesPerLine {
		// Offset
		fmt.Fprintf(e.writer, "%08x  ", i)

		// Hex bytes
		for j := 0; j < bytesPerLine; j++ {
			if i+j < len(data) {
				fmt.Fprintf(e.writer, "%02x ", data[i+j])
			} else {
				fmt.Fprint(e.writer, "   ")
			}
			if j == 7 {
				fmt.Fprint(e.writer, " ")
			}
		}

		// ASCII
		fmt.Fprint(e.writer, " |")
		for j := 0; j < bytesPerLine && i+j < len(data); j++ {
			b := data[i+j]
			if b >= 32 && b <= 126 {
				fmt.Fprintf(e.writer, "%c", b)
			} else {
				fmt.Fprint(e.writer, ".")
			}
		}
		fmt.Fprintln(e.writer, "|")
	}

	_, err = fmt.Fprintln(e.writer)
	return err
}
