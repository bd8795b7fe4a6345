package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/Zerofisher/pktdash/capture"
	"github.com/Zerofisher/pktdash/pkg/model"
)

// capture command flags
var (
	captureBPFFilter string
	captureDuration  time.Duration
	capturePcapDir   string
)

var captureCmd = &cobra.Command{
	Use:   "capture [interface]",
	Short: "Record a live capture session into a new table",
	Long: `Capture IP packets from a network interface into a new packet_data_*
table until interrupted or until --duration elapses. Without an interface an
interactive picker lists the available ones.
Requires root privileges on most systems.`,
	Example: `  sudo pktdash capture en0
  sudo pktdash capture eth0 -f "tcp port 80" --duration 1m
  sudo pktdash capture en0 --pcap-dir ./pcaps`,
	Args:    cobra.MaximumNArgs(1),
	GroupID: "input",
	RunE:    runCapture,
}

func init() {
	captureCmd.Flags().StringVarP(&captureBPFFilter, "bpf", "f", "",
		"BPF filter expression")
	captureCmd.Flags().DurationVarP(&captureDuration, "duration", "d", 0,
		"Stop after this long (0 = until interrupted)")
	captureCmd.Flags().StringVar(&capturePcapDir, "pcap-dir", "",
		"Also write each session to <dir>/<table>.pcapng")
}

// runCapture runs a headless capture session
func runCapture(cmd *cobra.Command, args []string) error {
	if captureBPFFilter != "" {
		cfg.Capture.BPF = captureBPFFilter
	}
	if capturePcapDir != "" {
		cfg.Capture.PcapDir = capturePcapDir
	}

	iface := ""
	if len(args) == 1 {
		iface = args[0]
	} else {
		var err error
		if iface, err = pickInterface(); err != nil {
			return err
		}
	}

	b, err := openBackend()
	if err != nil {
		return err
	}
	defer b.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	if captureDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, captureDuration)
		defer cancel()
	}

	sess, err := b.Sessions().Start(ctx, iface)
	if err != nil {
		return fmt.Errorf("error starting capture: %w\nNote: Live capture requires root privileges. Try: sudo %s", err, strings.Join(os.Args, " "))
	}
	fmt.Printf("Capturing on %s into %s (Ctrl+C to stop)...\n", iface, sess.Table)

	<-ctx.Done()

	sess, err = b.Sessions().Stop(context.Background())
	if sess != nil {
		fmt.Printf("\n%d packets captured into %s in %s\n",
			sess.Packets, sess.Table, sess.StoppedAt.Sub(sess.StartedAt).Round(time.Millisecond))
		if cfg.Capture.PcapDir != "" {
			fmt.Printf("Raw frames saved to %s\n", capture.SessionFilename(cfg.Capture.PcapDir, sess.Table))
		}
	}
	return err
}

// pickInterface asks the user to choose a capture interface.
func pickInterface() (string, error) {
	ifaces, err := capture.ListInterfaces()
	if err != nil {
		return "", fmt.Errorf("error listing interfaces: %w", err)
	}
	if len(ifaces) == 0 {
		return "", errors.New("no capture interfaces found")
	}

	opts := make([]huh.Option[string], len(ifaces))
	for i, iface := range ifaces {
		opts[i] = huh.NewOption(interfaceLabel(iface), iface.Name)
	}
	var name string
	err = huh.NewSelect[string]().
		Title("Capture interface").
		Options(opts...).
		Value(&name).
		Run()
	if err != nil {
		return "", err
	}
	return name, nil
}

func interfaceLabel(iface model.Interface) string {
	if len(iface.Addresses) == 0 {
		return iface.Label()
	}
	return fmt.Sprintf("%s  %s", iface.Label(), strings.Join(iface.Addresses, ", "))
}
