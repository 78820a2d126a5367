// File: cmd/serve.go
package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/repairfill/internal/observability"
	"github.com/xkilldash9x/repairfill/internal/server"
)

// newServeCmd creates the `serve` command.
func newServeCmd() *cobra.Command {
	var (
		url    string
		listen string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the form actions over HTTP for the extension popup",
		Long: `Serve keeps one browser tab open and accepts commands on /api/v1/command
and whole runs on /api/v1/run. Status announcements stream on /ws/v1/status.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := configFrom(ctx)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.SetServerListenAddr(listen)
			}
			logger := observability.GetLogger()

			c, err := initializeComponents(ctx, cfg)
			if err != nil {
				return err
			}
			defer c.Shutdown()
			if err := c.openBrowser(ctx, url); err != nil {
				return err
			}
			c.connectEvents()

			hub := server.NewHub(logger)
			srv := server.New(logger, cfg.Server(), c.Dispatcher, c.orchestrator(hub), hub, c.Store)

			logger.Info("Serving repair form.", zap.String("address", cfg.Server().ListenAddr))
			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "navigate the tab here before serving")
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides server.listen_addr)")
	return cmd
}
