package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mod-updater/config"
	"mod-updater/logger"
	"mod-updater/proxy"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the download proxy server",
	Long: `Serves GET /api/proxy-file?url=<file> so downloads blocked by the CDN can be
retried through this origin. Also exposes /metrics and /healthz.

The proxy fetches any http(s) URL it is given, so keep it on a local address.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = cfg.ListenAddr
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return proxy.NewServer(addr, proxy.Options{Logger: logger.Named("proxy")}).Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (defaults to LISTEN_ADDR)")
}
