package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newServeCmd(app *App) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and progress websocket",
		Long: `Serve the report pipeline over HTTP.

Routes include POST /api/analyze, GET /ws/analyze for live progress,
favorites, history, portfolio, WhatsApp bridge status, /health and /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := app.ensure(ctx); err != nil {
				return err
			}
			if !cmd.Flags().Changed("host") {
				host = app.Config.Server.Host
			}
			if !cmd.Flags().Changed("port") {
				port = app.Config.Server.Port
			}

			srv := app.Server(ctx, host, port)
			if !output.IsJSON() {
				output.Info("StockSignal API on http://%s (Ctrl+C to stop)", srv.Addr())
			}
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "listen host (default: server.host)")
	cmd.Flags().IntVar(&port, "port", 8080, "listen port (default: server.port)")
	return cmd
}
