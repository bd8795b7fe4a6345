// Package cmd provides the CLI commands for pktdash using Cobra.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Zerofisher/pktdash/internal/config"
	"github.com/Zerofisher/pktdash/internal/logging"
	"github.com/Zerofisher/pktdash/internal/tracing"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// persistent flags
var (
	configPath string
	dbPath     string
	logFile    string
	logLevel   string
)

// set up by PersistentPreRunE
var (
	cfg      *config.Config
	logger   = zerolog.Nop()
	closeLog = func() error { return nil }
)

var rootCmd = &cobra.Command{
	Use:   "pktdash",
	Short: "Packet capture dashboard with SQL storage and LLM analysis",
	Long: `pktdash captures IP packets into per-session SQLite tables and explores
them from a terminal dashboard:

  - Live capture and pcap file import into packet_data_* tables
  - Paged, filterable table browser with expandable cells
  - IP, packet-rate and packet-type charts
  - LLM analysis of filtered packet samples
  - Remote dashboards over a websocket gateway

Examples:
  pktdash dashboard                                  # Open the TUI
  sudo pktdash capture en0 --duration 30s            # Headless capture
  pktdash show packet_data_20260501100000 --page 2   # Print one page
  pktdash analyze packet_data_20260501100000 --protocol UDP
  pktdash serve --listen 0.0.0.0:7878                # Share the backend`,
	Version:           Version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if err := tracing.Shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("flush traces")
		}
		return closeLog()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Define command groups for organized help output
	rootCmd.AddGroup(
		&cobra.Group{ID: "input", Title: "Input Commands:"},
		&cobra.Group{ID: "analysis", Title: "Analysis Commands:"},
		&cobra.Group{ID: "info", Title: "Information Commands:"},
	)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "config file (default: standard locations)")
	pf.StringVar(&dbPath, "db", "", "SQLite database path")
	pf.StringVar(&logFile, "log-file", "", "write JSON logs to this file")
	pf.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(captureCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(listCmd)
}

// setup loads the configuration, applies flag overrides and installs the
// logger. The dashboard owns the terminal, so it logs to a file.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}
	if dbPath != "" {
		cfg.Database = dbPath
	}
	if logFile != "" {
		cfg.Log.File = logFile
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	file := cfg.Log.File
	if file == "" && cmd.Name() == "dashboard" {
		file = logging.DefaultFile()
	}
	logger, closeLog, err = logging.Setup(logging.Options{File: file, Level: cfg.Log.Level})
	if err != nil {
		return err
	}

	if err := tracing.Init(cmd.Context()); err != nil {
		logger.Warn().Err(err).Msg("tracing disabled")
	}
	return nil
}
