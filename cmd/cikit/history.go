package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/lirany1/cikit/pkg/analytics"
	"github.com/lirany1/cikit/pkg/models"
	"github.com/lirany1/cikit/pkg/storage"
	"github.com/lirany1/cikit/pkg/view"
)

func newHistoryCommand(opts *rootOptions) *cobra.Command {
	var (
		limit   int
		slowest int
		cleanup bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the recorded test runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if !cfg.History.Enabled {
				return fmt.Errorf("history is disabled, set [history] enabled = true")
			}

			db, err := storage.NewDatabase(cfg.History.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			if cleanup {
				removed, err := db.CleanupOldData(cmd.Context(), cfg.History.RetentionDays)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d runs older than %d days\n", removed, cfg.History.RetentionDays)
			}

			insights, err := analytics.NewEngine(db).Insights(cmd.Context(), limit, slowest)
			if err != nil {
				return err
			}
			return printHistory(cmd.OutOrStdout(), insights)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to show")
	cmd.Flags().IntVar(&slowest, "slowest", 5, "Number of slowest suites of the latest run to show")
	cmd.Flags().BoolVar(&cleanup, "cleanup", false, "Remove runs older than history.retention_days first")
	return cmd
}

func printHistory(w io.Writer, insights *analytics.Insights) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tDURATION\tTESTS\tFAILURES\tERRORS\tSKIPPED\tSUCCESS\tSHA")
	for _, run := range insights.Runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%.1f%%\t%s\n",
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			view.ShowDuration(models.Duration(time.Duration(run.Duration)*time.Millisecond)),
			run.Tests, run.Failures, run.Errors, run.Skipped,
			run.SuccessRate, run.SHA,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	trend := insights.Trend
	fmt.Fprintf(w, "\nTrend: %s, average duration %s\n", trend.Direction, view.ShowDuration(models.Duration(trend.AverageDuration)))

	if len(insights.Slowest) > 0 {
		fmt.Fprintln(w, "\nSlowest suites of the latest run:")
		for _, s := range insights.Slowest {
			fmt.Fprintf(w, "  %-12s %s\n", view.ShowDuration(models.Duration(s.Duration)), s.Name)
		}
	}

	if len(insights.Flaky) > 0 {
		fmt.Fprintln(w, "\nFlaky suites:")
		for _, f := range insights.Flaky {
			fmt.Fprintf(w, "  %5.1f%% of %d runs failed  %s\n", f.FailureRate*100, f.Runs, f.Name)
		}
	}
	return nil
}
