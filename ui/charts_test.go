package ui

import (
	"strings"
	"testing"

	"github.com/Zerofisher/pktdash/pkg/model"
	"github.com/Zerofisher/pktdash/pkg/value"
)

func TestSparkline(t *testing.T) {
	tests := []struct {
		name   string
		values []int64
		width  int
		want   string
	}{
		{"empty", nil, 10, ""},
		{"flat zero", []int64{0, 0}, 10, "▁▁"},
		{"ramp", []int64{0, 7, 14}, 10, "▁▄█"},
		{"keeps tail", []int64{100, 1, 2}, 2, "▄█"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sparkline(tt.values, tt.width); got != tt.want {
				t.Errorf("sparkline(%v) = %q; want %q", tt.values, got, tt.want)
			}
		})
	}
}

func TestBarChart(t *testing.T) {
	bars := typeBars([]model.TypeCount{{Type: "IPv4", Count: 10}, {Type: "IPv6", Count: 1}})
	got := barChart(bars, 30)
	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines", len(lines))
	}
	if strings.Count(lines[0], "█") != 16 || !strings.HasSuffix(lines[0], " 10") {
		t.Errorf("IPv4 bar = %q", lines[0])
	}
	// Non-zero values always get at least one block.
	if strings.Count(lines[1], "█") != 1 {
		t.Errorf("IPv6 bar = %q", lines[1])
	}
	if got := barChart(nil, 30); !strings.Contains(got, "no data") {
		t.Errorf("empty chart = %q", got)
	}
}

func TestIPStatBarsLimit(t *testing.T) {
	stats := make([]model.IPStat, 12)
	if got := ipStatBars(stats, 10); len(got) != 10 {
		t.Errorf("got %d bars; want 10", len(got))
	}
}

func TestFullText(t *testing.T) {
	if got := FullText(value.String("line1\nline2")); got != "line1\nline2" {
		t.Errorf("string full text = %q", got)
	}
	obj := value.Object(value.F("b", value.Int(1)), value.F("a", value.Int(2)))
	if got := FullText(obj); got != "{\n  \"b\": 1,\n  \"a\": 2\n}" {
		t.Errorf("object full text = %q", got)
	}
}
