package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Zerofisher/pktdash/export"
	"github.com/Zerofisher/pktdash/pkg/gateway"
	"github.com/Zerofisher/pktdash/pkg/value"
	"github.com/Zerofisher/pktdash/stats"
)

var (
	statsFormat string
	statsLimit  int
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Aggregate statistics of a capture table",
	Long:  `Print the chart-ready aggregates the Visualization panel draws.`,
	Example: `  pktdash stats ips packet_data_20260501100000
  pktdash stats rate packet_data_20260501100000 -T json
  pktdash stats types packet_data_20260501100000
  pktdash stats conversations packet_data_20260501100000 -n 5`,
	GroupID: "analysis",
}

func init() {
	statsCmd.PersistentFlags().StringVarP(&statsFormat, "format", "T", "table",
		"Output format: table, json, fields")

	statsCmd.AddCommand(newStatsCmd("ips", "Packets per address as source and destination", gateway.GetIPStats))
	statsCmd.AddCommand(newStatsCmd("rate", "Packets per second", gateway.GetPacketsPerSecond))
	statsCmd.AddCommand(newStatsCmd("types", "Packets per IP version", gateway.GetPacketTypes))

	conv := &cobra.Command{
		Use:   "conversations <table>",
		Short: "Traffic between address pairs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLocalStats(cmd, args[0], func(m *stats.Manager) []value.Value {
				var rows []value.Value
				for _, c := range m.Conversations(statsLimit) {
					rows = append(rows, c.Row())
				}
				return rows
			})
		},
	}
	endpoints := &cobra.Command{
		Use:   "endpoints <table>",
		Short: "Packets sent and received per address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLocalStats(cmd, args[0], func(m *stats.Manager) []value.Value {
				var rows []value.Value
				for _, ep := range m.Endpoints(statsLimit) {
					rows = append(rows, ep.Row())
				}
				return rows
			})
		},
	}
	for _, c := range []*cobra.Command{conv, endpoints} {
		c.Flags().IntVarP(&statsLimit, "limit", "n", 0, "Show at most this many rows (0 = all)")
		statsCmd.AddCommand(c)
	}
}

func newStatsCmd(name, short string, command gateway.Command) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <table>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, command, args[0])
		},
	}
}

func runStats(cmd *cobra.Command, command gateway.Command, table string) error {
	format, err := export.ParseFormat(statsFormat)
	if err != nil {
		return err
	}

	gw, closeFn, err := openGateway(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()

	payload, err := call(cmd.Context(), gw, command, gateway.Params{Table: table})
	if err != nil {
		return fmt.Errorf("%s: %w", command, err)
	}
	rows, perr := gateway.DecodeResultSet(payload)
	if perr != nil {
		return perr
	}
	return writeRows(format, rows)
}

// runLocalStats computes statistics from the table rows on this side of the
// gateway.
func runLocalStats(cmd *cobra.Command, table string, collect func(*stats.Manager) []value.Value) error {
	format, err := export.ParseFormat(statsFormat)
	if err != nil {
		return err
	}

	gw, closeFn, err := openGateway(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()

	payload, err := call(cmd.Context(), gw, gateway.GetTableData, gateway.Params{Table: table})
	if err != nil {
		return err
	}
	rows, perr := gateway.DecodeResultSet(payload)
	if perr != nil {
		return perr
	}
	m := stats.NewManager()
	for _, row := range rows {
		m.AddRow(row)
	}
	return writeRows(format, collect(m))
}

func writeRows(format export.OutputFormat, rows []value.Value) error {
	e := export.NewExporter(os.Stdout, format)
	if err := e.Start(); err != nil {
		return err
	}
	for _, row := range rows {
		if err := e.ExportRow(row); err != nil {
			return err
		}
	}
	return e.Finish()
}
