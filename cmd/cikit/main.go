package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lirany1/cikit/pkg/config"
	"github.com/lirany1/cikit/pkg/logger"
)

var (
	version = "1.0.0"
	commit  = "dev"
	date    = "unknown"
)

// pluginActionEnv is set by Gauge when it launches the reporter
const pluginActionEnv = "cikit_action"

type rootOptions struct {
	configFile string
	projectDir string
	logLevel   string
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	return config.Load(o.configFile)
}

func main() {
	if os.Getenv(pluginActionEnv) == "execution" {
		if err := runPlugin(nil); err != nil {
			logger.Fatalf("Failed to start plugin: %v", err)
		}
		return
	}

	if err := newRootCommand().Execute(); err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "cikit",
		Short: "Continuous integration reporting toolkit",
		Long: `cikit reads the JUnit reports of a build and turns them into console,
JSON and static HTML reports, Slack messages and GitHub commit comments.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.SetLevel(opts.logLevel)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "Path to configuration file (TOML, YAML or JSON)")
	flags.StringVar(&opts.projectDir, "project-dir", ".", "Directory searched for JUnit reports")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(
		newTestReportCommand(opts),
		newNotifyCommand(opts),
		newServeCommand(opts),
		newHistoryCommand(opts),
		newPluginCommand(opts),
	)
	return rootCmd
}
