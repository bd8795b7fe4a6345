package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/Zerofisher/pktdash/pkg/gateway"
)

// analyze command flags
var (
	analyzeProtocol string
	analyzeSource   string
	analyzeDest     string
	analyzeRaw      bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <table>",
	Short: "Ask the configured LLM about a capture table",
	Long: `Send a sample of the matching packets to the analysis model and print
its answer as markdown. The provider is taken from the config file or detected
from ANTHROPIC_API_KEY, OPENAI_API_KEY or OPENROUTER_API_KEY, falling back to
a local Ollama server.`,
	Example: `  pktdash analyze packet_data_20260501100000
  pktdash analyze packet_data_20260501100000 --protocol UDP --src 10.0.0.1`,
	Args:    cobra.ExactArgs(1),
	GroupID: "analysis",
	RunE:    runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeProtocol, "protocol", "", "Only packets of this protocol")
	analyzeCmd.Flags().StringVar(&analyzeSource, "src", "", "Only packets from this address")
	analyzeCmd.Flags().StringVar(&analyzeDest, "dst", "", "Only packets to this address")
	analyzeCmd.Flags().BoolVar(&analyzeRaw, "raw", false, "Print the answer without markdown rendering")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if cfg.Analysis.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Analysis.Timeout+10*time.Second)
		defer cancel()
	}

	gw, closeFn, err := openGateway(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	payload, err := call(ctx, gw, gateway.RunAnalysis, gateway.Params{
		Table:         args[0],
		Protocol:      analyzeProtocol,
		SourceIP:      analyzeSource,
		DestinationIP: analyzeDest,
	})
	if err != nil {
		return err
	}
	a, perr := gateway.DecodeAnalysis(payload)
	if perr != nil {
		return perr
	}

	if !analyzeRaw {
		if out, err := glamour.Render(a.Response, "dark"); err == nil {
			fmt.Print(out)
		} else {
			analyzeRaw = true
		}
	}
	if analyzeRaw {
		fmt.Println(a.Response)
	}
	fmt.Printf("\n(%s %s, %d packets)\n", a.Provider, a.Model, a.Rows)
	return nil
}
