package cmd

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var importBPFFilter string

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a pcap/pcapng file into a new table",
	Long: `Replay a capture file through the recording pipeline into a new
packet_data_* table, as if it had been captured live.`,
	Example: `  pktdash import capture.pcapng
  pktdash import capture.pcap -f "udp"`,
	Args:    cobra.ExactArgs(1),
	GroupID: "input",
	RunE:    runImport,
}

func init() {
	importCmd.Flags().StringVarP(&importBPFFilter, "bpf", "f", "",
		"BPF filter expression")
}

func runImport(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(args[0]); err != nil {
		return fmt.Errorf("cannot open %s: %w", args[0], err)
	}

	b, err := openBackend()
	if err != nil {
		return err
	}
	defer b.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	sess, err := b.ImportFile(ctx, args[0], importBPFFilter)
	if sess != nil {
		fmt.Printf("Imported %d packets from %s into %s\n", sess.Packets, args[0], sess.Table)
	}
	return err
}
