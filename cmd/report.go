package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/Zerofisher/pktdash/internal/report"
)

var (
	reportRaw    bool
	reportOutput string
)

var reportCmd = &cobra.Command{
	Use:   "report <table>",
	Short: "Summarize a capture table as markdown",
	Example: `  pktdash report packet_data_20260501100000
  pktdash report packet_data_20260501100000 -o report.md`,
	Args:    cobra.ExactArgs(1),
	GroupID: "analysis",
	RunE:    runReport,
}

func init() {
	reportCmd.Flags().BoolVar(&reportRaw, "raw", false, "Print markdown without rendering")
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "Write the markdown to a file")
}

func runReport(cmd *cobra.Command, args []string) error {
	gw, closeFn, err := openGateway(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()

	data, err := report.Generate(cmd.Context(), gw, args[0])
	if err != nil {
		return err
	}
	md := data.Markdown()

	if reportOutput != "" {
		if err := os.WriteFile(reportOutput, []byte(md), 0644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Report written to %s\n", reportOutput)
		return nil
	}
	if !reportRaw {
		if out, err := glamour.Render(md, "dark"); err == nil {
			fmt.Print(out)
			return nil
		}
	}
	fmt.Println(md)
	return nil
}
