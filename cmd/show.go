package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Zerofisher/pktdash/export"
	"github.com/Zerofisher/pktdash/filter"
	"github.com/Zerofisher/pktdash/pkg/gateway"
	"github.com/Zerofisher/pktdash/pkg/paginate"
	"github.com/Zerofisher/pktdash/pkg/value"
)

// show command flags
var (
	showPage    int
	showWhere   string
	showFormat  string
	showColumns []string
	showCount   int
	showHex     bool
)

var showCmd = &cobra.Command{
	Use:   "show <table>",
	Short: "Print rows of a capture table",
	Long: `Print one page of a capture table with the dashboard's cell rules: long
strings and large objects are summarized. JSON and fields output print every
matching row in full instead.`,
	Example: `  pktdash show packet_data_20260501100000
  pktdash show packet_data_20260501100000 --page 3 --where 'protocol == "UDP"'
  pktdash show packet_data_20260501100000 -T fields -e source -e destination
  pktdash show packet_data_20260501100000 -T fields -e id -x -c 5
  pktdash show packet_data_20260501100000 -T json > rows.json`,
	Args:    cobra.ExactArgs(1),
	GroupID: "analysis",
	RunE:    runShow,
}

func init() {
	showCmd.Flags().IntVar(&showPage, "page", 1, "Page to print (table format)")
	showCmd.Flags().StringVarP(&showWhere, "where", "Y", "", "Display filter expression")
	showCmd.Flags().StringVarP(&showFormat, "format", "T", "table", "Output format: table, json, fields")
	showCmd.Flags().StringArrayVarP(&showColumns, "column", "e", nil, "Column to print (repeatable)")
	showCmd.Flags().IntVarP(&showCount, "count", "c", 0, "Stop after n rows (0 = unlimited)")
	showCmd.Flags().BoolVarP(&showHex, "hex", "x", false, "Hex dump of the payload (fields format)")
}

func runShow(cmd *cobra.Command, args []string) error {
	format, err := export.ParseFormat(showFormat)
	if err != nil {
		return err
	}
	f, err := filter.Compile(showWhere)
	if err != nil {
		return fmt.Errorf("invalid filter: %w", err)
	}

	gw, closeFn, err := openGateway(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()

	payload, err := call(cmd.Context(), gw, gateway.GetTableData, gateway.Params{Table: args[0]})
	if err != nil {
		return err
	}
	all, perr := gateway.DecodeResultSet(payload)
	if perr != nil {
		return perr
	}
	rows := filter.Apply(f, all)

	var page paginate.Page[value.Value]
	out := []value.Value(rows)
	if format == export.FormatTable {
		page = paginate.Paginate(out, cfg.PageSize, showPage)
		out = page.Rows
	}

	e := export.NewExporter(os.Stdout, format)
	if len(showColumns) > 0 {
		e.SetColumns(showColumns)
	}
	e.SetMaxCount(showCount)
	e.SetShowHex(showHex)

	if err := e.Start(); err != nil {
		return err
	}
	for _, row := range out {
		if e.ShouldStop() {
			break
		}
		if err := e.ExportRow(row); err != nil {
			return err
		}
	}
	if err := e.Finish(); err != nil {
		return err
	}

	if format == export.FormatTable {
		fmt.Fprintf(os.Stderr, "page %d/%d · %d of %d rows match\n",
			page.Index, max(page.Count, 1), page.Total, len(all))
	}
	return nil
}
