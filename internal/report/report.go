// Package report builds a markdown summary of one capture table.
package report

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Zerofisher/pktdash/pkg/gateway"
	"github.com/Zerofisher/pktdash/pkg/model"
	"github.com/Zerofisher/pktdash/stats"
)

// TopN bounds every ranked section of the report.
const TopN = 10

// Data holds everything a report renders.
type Data struct {
	GeneratedAt time.Time
	Table       string

	Packets int
	Bytes   int64
	Span    time.Duration

	Types         []model.TypeCount
	TopTalkers    []model.IPStat
	PeakRate      model.RatePoint
	Conversations []*stats.Conversation
	Endpoints     []*stats.Endpoint
}

// Generate collects the report for table through gw.
func Generate(ctx context.Context, gw gateway.Gateway, table string) (*Data, error) {
	p := gateway.Params{Table: table}
	fetch := func(cmd gateway.Command) (model.ResultSet, error) {
		res := gw.Call(ctx, cmd, p)
		if !res.OK() {
			return nil, fmt.Errorf("%s: %w", cmd, res.Err)
		}
		rows, perr := gateway.DecodeResultSet(res.Payload)
		if perr != nil {
			return nil, fmt.Errorf("%s: %w", cmd, perr)
		}
		return rows, nil
	}

	data := &Data{GeneratedAt: time.Now(), Table: table}

	rows, err := fetch(gateway.GetTableData)
	if err != nil {
		return nil, err
	}
	m := stats.NewManager()
	for _, row := range rows {
		m.AddRow(row)
	}
	data.Packets = m.TotalPackets()
	data.Bytes = m.TotalBytes()
	data.Span = m.Span()
	data.Conversations = m.Conversations(TopN)
	data.Endpoints = m.Endpoints(TopN)

	ips, err := fetch(gateway.GetIPStats)
	if err != nil {
		return nil, err
	}
	data.TopTalkers = model.IPStatsFrom(ips)
	sort.SliceStable(data.TopTalkers, func(i, j int) bool {
		return data.TopTalkers[i].Total() > data.TopTalkers[j].Total()
	})
	if len(data.TopTalkers) > TopN {
		data.TopTalkers = data.TopTalkers[:TopN]
	}

	types, err := fetch(gateway.GetPacketTypes)
	if err != nil {
		return nil, err
	}
	data.Types = model.TypeCountsFrom(types)

	rate, err := fetch(gateway.GetPacketsPerSecond)
	if err != nil {
		return nil, err
	}
	for _, pt := range model.RatePointsFrom(rate) {
		if pt.Traffic > data.PeakRate.Traffic {
			data.PeakRate = pt
		}
	}

	return data, nil
}

// Markdown renders the report.
func (d *Data) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Capture report: %s\n\n", d.Table)
	fmt.Fprintf(&b, "Generated %s\n\n", d.GeneratedAt.Format(time.RFC1123))

	b.WriteString("## Overview\n\n")
	b.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Packets | %d |\n", d.Packets)
	fmt.Fprintf(&b, "| Payload | %s |\n", stats.FormatBytes(d.Bytes))
	fmt.Fprintf(&b, "| Span | %s |\n", stats.FormatDuration(d.Span))
	if d.PeakRate.Traffic > 0 {
		fmt.Fprintf(&b, "| Peak rate | %d pkt/s at %s |\n", d.PeakRate.Traffic, d.PeakRate.TimeStamp)
	}
	b.WriteString("\n")

	if len(d.Types) > 0 {
		b.WriteString("## Packet types\n\n| Type | Packets |\n|---|---|\n")
		for _, t := range d.Types {
			fmt.Fprintf(&b, "| %s | %d |\n", t.Type, t.Count)
		}
		b.WriteString("\n")
	}

	if len(d.TopTalkers) > 0 {
		b.WriteString("## Top talkers\n\n| Address | Sent | Received |\n|---|---|---|\n")
		for _, s := range d.TopTalkers {
			fmt.Fprintf(&b, "| %s | %d | %d |\n", s.IP, s.Source, s.Destination)
		}
		b.WriteString("\n")
	}

	if len(d.Conversations) > 0 {
		b.WriteString("## Conversations\n\n| A | B | Protocol | A→B | B→A | Payload | Duration |\n|---|---|---|---|---|---|---|\n")
		for _, c := range d.Conversations {
			fmt.Fprintf(&b, "| %s | %s | %s | %d | %d | %s | %s |\n",
				c.AddrA, c.AddrB, c.Protocol, c.PacketsAtoB, c.PacketsBtoA,
				stats.FormatBytes(c.Bytes()), stats.FormatDuration(c.Duration()))
		}
		b.WriteString("\n")
	}

	if len(d.Endpoints) > 0 {
		b.WriteString("## Endpoints\n\n| Address | Packets | Payload |\n|---|---|---|\n")
		for _, ep := range d.Endpoints {
			fmt.Fprintf(&b, "| %s | %d | %s |\n", ep.Address, ep.Packets(), stats.FormatBytes(ep.Bytes()))
		}
	}
	return b.String()
}
