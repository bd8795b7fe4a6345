package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Zerofisher/pktdash/ui"
)

var dashboardBackend string

var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	Aliases: []string{"ui"},
	Short:   "Open the terminal dashboard",
	Long: `Open the four-panel dashboard (Sniffer, Table, Visualization, Analysis).

By default the backend runs in this process against the configured database.
With --backend the dashboard talks to a remote 'pktdash serve' instead.`,
	Example: `  sudo pktdash dashboard
  pktdash ui --backend ws://10.0.0.5:7878/ws`,
	Args:    cobra.NoArgs,
	GroupID: "analysis",
	RunE:    runDashboard,
}

func init() {
	dashboardCmd.Flags().StringVar(&dashboardBackend, "backend", "",
		"remote gateway URL (ws://host:port/ws)")
}

func runDashboard(cmd *cobra.Command, args []string) error {
	if dashboardBackend != "" {
		cfg.Backend.URL = dashboardBackend
	}
	gw, closeFn, err := openGateway(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()

	logger.Info().Str("backend", cfg.Backend.URL).Str("db", cfg.Database).Msg("dashboard started")
	return ui.Run(gw, ui.Options{
		PageSize: cfg.PageSize,
		Logger:   logger,
	})
}
