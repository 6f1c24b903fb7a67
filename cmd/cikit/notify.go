package main

import (
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/lirany1/cikit/pkg/github"
	"github.com/lirany1/cikit/pkg/junit"
	"github.com/lirany1/cikit/pkg/notify"
)

func newNotifyCommand(opts *rootOptions) *cobra.Command {
	var (
		reportURL string
		console   bool
	)

	cmd := &cobra.Command{
		Use:   "notify <github_event_file>",
		Short: "Notify the build outcome to Slack and GitHub",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			gh, err := github.ReadContext(args[0])
			if err != nil {
				return err
			}
			outcome, parsed, err := junit.ReadOutcome(cmd.Context(), opts.projectDir, cfg)
			if err := tolerateParseErrors(parsed, err); err != nil {
				return err
			}

			notifiers := []notify.Notifier{notify.NewSlackNotifier(cfg.Notifications.Slack)}
			if cfg.Notifications.GitHub.Comment {
				publisher := github.NewCommentPublisher(cfg.Notifications.GitHub, nil)
				notifiers = append(notifiers, notify.NewCommentNotifier(publisher, reportURL))
			}
			if console {
				notifiers = append(notifiers, notify.NewConsoleNotifier(cmd.OutOrStdout()))
			}

			var errs *multierror.Error
			for _, n := range notifiers {
				if err := n.Notify(cmd.Context(), outcome, gh); err != nil {
					errs = multierror.Append(errs, err)
				}
			}
			return errs.ErrorOrNil()
		},
	}

	cmd.Flags().StringVar(&reportURL, "report-url", "", "URL of the published HTML report")
	cmd.Flags().BoolVar(&console, "console", false, "Also print the outcome to the console")
	return cmd
}
