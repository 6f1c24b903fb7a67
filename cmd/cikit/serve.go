package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lirany1/cikit/pkg/logger"
	"github.com/lirany1/cikit/pkg/report"
	"github.com/lirany1/cikit/pkg/server"
	"github.com/lirany1/cikit/pkg/storage"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	srvCfg := &server.Config{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a generated HTML report",
		Long:  "Serve a generated HTML report together with a JSON API and Prometheus metrics.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			var db *storage.Database
			if cfg.History.Enabled {
				db, err = storage.NewDatabase(cfg.History.Path)
				if err != nil {
					logger.Warnf("Failed to open history database, /api/runs is disabled: %v", err)
					db = nil
				} else {
					defer db.Close()
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Infof("Serving reports from: %s", srvCfg.ReportsDir)
			return server.NewServer(srvCfg, db).Start(ctx)
		},
	}

	cmd.Flags().StringVarP(&srvCfg.ReportsDir, "dir", "d", report.DefaultOutputDir, "Directory containing the report to serve")
	cmd.Flags().StringVarP(&srvCfg.Host, "host", "H", "localhost", "Host to bind server to")
	cmd.Flags().IntVarP(&srvCfg.Port, "port", "p", 8080, "Port to run server on")
	return cmd
}
