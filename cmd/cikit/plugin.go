package main

import (
	"github.com/spf13/cobra"

	"github.com/lirany1/cikit/pkg/config"
	"github.com/lirany1/cikit/pkg/gauge"
	"github.com/lirany1/cikit/pkg/logger"
)

func newPluginCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "plugin",
		Short: "Run as Gauge reporter plugin",
		Long:  "Start the Gauge reporter in plugin mode (used internally by Gauge).",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			return runPlugin(cfg)
		},
	}
}

func runPlugin(cfg *config.Config) error {
	logger.Debug("Starting cikit Gauge reporter")
	return gauge.NewPlugin(cfg).Start()
}
