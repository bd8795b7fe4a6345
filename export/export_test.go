package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Zerofisher/pktdash/pkg/value"
)

func rows() []value.Value {
	return []value.Value{
		value.Object(
			value.F("id", value.Int(1)),
			value.F("protocol", value.String("UDP")),
			value.F("payload_hex", value.String("68690a")),
		),
		value.Object(
			value.F("id", value.Int(2)),
			value.F("protocol", value.String("a protocol name well past the inline limit")),
			value.F("payload_hex", value.String("")),
		),
	}
}

func export(t *testing.T, format OutputFormat, setup func(*Exporter)) string {
	t.Helper()
	var buf bytes.Buffer
	e := NewExporter(&buf, format)
	if setup != nil {
		setup(e)
	}
	if err := e.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	for _, r := range rows() {
		if err := e.ExportRow(r); err != nil {
			t.Fatalf("ExportRow() error: %v", err)
		}
	}
	if err := e.Finish(); err != nil {
		t.Fatalf("Finish() error: %v", err)
	}
	return buf.String()
}

func TestExportJSON(t *testing.T) {
	got := export(t, FormatJSON, nil)
	want := "[\n" +
		`  {"id":1,"protocol":"UDP","payload_hex":"68690a"},` + "\n" +
		`  {"id":2,"protocol":"a protocol name well past the inline limit","payload_hex":""}` + "\n" +
		"]\n"
	if got != want {
		t.Errorf("json export =\n%s\nwant\n%s", got, want)
	}
}

func TestExportFields(t *testing.T) {
	got := export(t, FormatFields, func(e *Exporter) {
		e.SetColumns([]string{"protocol", "id"})
		e.SetMaxCount(1)
	})
	if got != "UDP\t1\n" {
		t.Errorf("fields export = %q", got)
	}
}

func TestExportHexDump(t *testing.T) {
	got := export(t, FormatFields, func(e *Exporter) {
		e.SetColumns([]string{"id"})
		e.SetShowHex(true)
		e.SetMaxCount(1)
	})
	if !strings.Contains(got, "Hex dump of row 1 (3 bytes)") || !strings.Contains(got, "|hi.|") {
		t.Errorf("hex dump missing:\n%s", got)
	}
}

func TestExportTableCollapsesLongCells(t *testing.T) {
	got := export(t, FormatTable, nil)
	if !strings.Contains(got, "a protocol…limit") {
		t.Errorf("long cell not summarized:\n%s", got)
	}
	if strings.Contains(got, "well past") {
		t.Errorf("table shows the full value:\n%s", got)
	}
	for _, col := range []string{"id", "protocol", "payload_hex"} {
		if !strings.Contains(got, col) {
			t.Errorf("header %q missing", col)
		}
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", FormatTable, false},
		{"json", FormatJSON, false},
		{"fields", FormatFields, false},
		{"pdml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
			}
		})
	}
}
