package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/Zerofisher/pktdash/pkg/gateway"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose the local backend as a websocket gateway",
	Long: `Serve every gateway command over a websocket at /ws so that dashboards on
other machines can drive this host's captures with --backend.`,
	Example: `  sudo pktdash serve
  sudo pktdash serve --listen 0.0.0.0:7878`,
	Args:    cobra.NoArgs,
	GroupID: "input",
	RunE:    runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveListen != "" {
		cfg.Serve.Listen = serveListen
	}

	b, err := openBackend()
	if err != nil {
		return err
	}
	defer b.Close()

	mux := http.NewServeMux()
	mux.Handle("/ws", gateway.Serve(b.Gateway(), logger))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "ok")
	})
	srv := &http.Server{
		Addr:              cfg.Serve.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("listen", srv.Addr).Msg("gateway listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info().Msg("shutting down gateway")
	return srv.Shutdown(shutdownCtx)
}
