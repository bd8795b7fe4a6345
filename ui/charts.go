package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Zerofisher/pktdash/pkg/model"
)

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// bar is one row of a horizontal bar chart. Parts are stacked left to right.
type bar struct {
	label string
	parts []int64
}

func (b bar) total() int64 {
	var n int64
	for _, p := range b.parts {
		n += p
	}
	return n
}

// barChart draws one line per bar scaled to the largest total. styles are
// applied to the parts by position.
func barChart(bars []bar, width int, styles ...lipgloss.Style) string {
	if len(bars) == 0 {
		return dimStyle.Render("(no data)")
	}
	labelW := 0
	var maxTotal int64
	for _, b := range bars {
		labelW = max(labelW, lipgloss.Width(b.label))
		maxTotal = max(maxTotal, b.total())
	}
	barW := width - labelW - 10
	if barW < 1 {
		barW = 1
	}

	var sb strings.Builder
	for i, b := range bars {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("%-*s ", labelW, b.label))
		for j, p := range b.parts {
			n := scale(p, maxTotal, barW)
			seg := strings.Repeat("█", n)
			if j < len(styles) {
				seg = styles[j].Render(seg)
			}
			sb.WriteString(seg)
		}
		sb.WriteString(fmt.Sprintf(" %d", b.total()))
	}
	return sb.String()
}

func scale(v, maxV int64, width int) int {
	if maxV <= 0 || v <= 0 {
		return 0
	}
	n := int(v * int64(width) / maxV)
	if n == 0 {
		n = 1
	}
	return n
}

// sparkline maps each value onto eight block heights. Only the last width
// values are drawn.
func sparkline(values []int64, width int) string {
	if width > 0 && len(values) > width {
		values = values[len(values)-width:]
	}
	var maxV int64
	for _, v := range values {
		maxV = max(maxV, v)
	}
	out := make([]rune, len(values))
	for i, v := range values {
		if maxV <= 0 {
			out[i] = sparkRunes[0]
			continue
		}
		out[i] = sparkRunes[int(v*int64(len(sparkRunes)-1)/maxV)]
	}
	return string(out)
}

func ipStatBars(stats []model.IPStat, limit int) []bar {
	if limit > 0 && len(stats) > limit {
		stats = stats[:limit]
	}
	bars := make([]bar, len(stats))
	for i, s := range stats {
		bars[i] = bar{label: s.IP, parts: []int64{s.Source, s.Destination}}
	}
	return bars
}

func typeBars(counts []model.TypeCount) []bar {
	bars := make([]bar, len(counts))
	for i, c := range counts {
		bars[i] = bar{label: c.Type, parts: []int64{c.Count}}
	}
	return bars
}

func rateSummary(points []model.RatePoint, width int) string {
	if len(points) == 0 {
		return dimStyle.Render("(no data)")
	}
	values := make([]int64, len(points))
	var peak model.RatePoint
	var total int64
	for i, p := range points {
		values[i] = p.Traffic
		total += p.Traffic
		if p.Traffic > peak.Traffic {
			peak = p
		}
	}
	first, last := points[0].TimeStamp, points[len(points)-1].TimeStamp
	return sparkStyle.Render(sparkline(values, width)) + "\n" +
		dimStyle.Render(fmt.Sprintf("%s – %s · %d packets · peak %d/s at %s",
			first, last, total, peak.Traffic, peak.TimeStamp))
}
