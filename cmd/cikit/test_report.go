package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lirany1/cikit/pkg/config"
	"github.com/lirany1/cikit/pkg/gauge"
	"github.com/lirany1/cikit/pkg/github"
	"github.com/lirany1/cikit/pkg/junit"
	"github.com/lirany1/cikit/pkg/logger"
	"github.com/lirany1/cikit/pkg/models"
	"github.com/lirany1/cikit/pkg/publish"
	"github.com/lirany1/cikit/pkg/report"
	"github.com/lirany1/cikit/pkg/storage"
	"github.com/lirany1/cikit/pkg/themes"
)

// testRun is the input shared by every test-report format
type testRun struct {
	cfg       *config.Config
	gh        *github.Context
	suites    []models.SuiteResult
	summary   models.Summary
	startedAt time.Time
}

func newTestReportCommand(opts *rootOptions) *cobra.Command {
	var gaugeResult string

	cmd := &cobra.Command{
		Use:   "test-report",
		Short: "Report the JUnit results of the build",
	}
	cmd.PersistentFlags().StringVar(&gaugeResult, "gauge-result", "", "Read a serialized Gauge suite result instead of JUnit reports")

	load := func(ctx context.Context, args []string, sorting *junit.ReportSorting) (*testRun, error) {
		return loadTestRun(ctx, opts, args, gaugeResult, sorting)
	}

	cmd.AddCommand(
		newTextCommand(load),
		newJSONCommand(load),
		newHTMLCommand(load),
	)
	return cmd
}

type loadFunc func(ctx context.Context, args []string, sorting *junit.ReportSorting) (*testRun, error)

func newTextCommand(load loadFunc) *cobra.Command {
	var sortBy string

	cmd := &cobra.Command{
		Use:   "text [github_event_file]",
		Short: "Print the test suites to the console",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var sorting *junit.ReportSorting
			if sortBy != "" {
				s, err := junit.ParseReportSorting(sortBy)
				if err != nil {
					return err
				}
				sorting = &s
			}
			run, err := load(cmd.Context(), args, sorting)
			if err != nil {
				return err
			}
			return report.NewTextReport(cmd.OutOrStdout()).Render(run.summary, run.suites)
		},
	}
	cmd.Flags().StringVar(&sortBy, "sort-by", "", `Sort suites, e.g. "time DESC" or "time ASC"`)
	return cmd
}

func newJSONCommand(load loadFunc) *cobra.Command {
	var compact bool

	cmd := &cobra.Command{
		Use:   "json [github_event_file]",
		Short: "Print the full report as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := load(cmd.Context(), args, nil)
			if err != nil {
				return err
			}
			return report.WriteJSON(cmd.OutOrStdout(), run.fullReport(), compact)
		},
	}
	cmd.Flags().BoolVar(&compact, "compact", false, "Write the JSON on a single line")
	return cmd
}

func newHTMLCommand(load loadFunc) *cobra.Command {
	var (
		outputDir string
		force     bool
		publishTo string
		theme     string
	)

	cmd := &cobra.Command{
		Use:   "html [github_event_file]",
		Short: "Write the static HTML report",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var target publish.Target
			if publishTo != "" {
				t, err := publish.ParseTarget(publishTo)
				if err != nil {
					return err
				}
				target = t
			}

			html, err := report.NewHTMLReport(outputDir, force)
			if err != nil {
				return err
			}

			run, err := load(cmd.Context(), args, nil)
			if err != nil {
				return err
			}

			if theme != "" {
				projectDir, _ := cmd.Flags().GetString("project-dir")
				html.WithTheme(themes.NewManager(projectDir), theme)
			}
			if err := html.Write(run.fullReport()); err != nil {
				return err
			}

			if run.cfg.History.Enabled {
				recordHistory(cmd.Context(), run)
			}

			if target == publish.TargetGCS {
				url, err := publishReport(cmd.Context(), run, html.Dir())
				if err != nil {
					return err
				}
				if url != "" {
					fmt.Fprintln(cmd.OutOrStdout(), url)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", report.DefaultOutputDir, "Output directory of the HTML report")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Write into the output directory even if it exists")
	cmd.Flags().StringVar(&publishTo, "publish-to", "", "Publish the report after writing it (gcs)")
	cmd.Flags().StringVar(&theme, "theme", "", "Theme directory or name overriding the default styles")
	return cmd
}

func loadTestRun(ctx context.Context, opts *rootOptions, args []string, gaugeResult string, sorting *junit.ReportSorting) (*testRun, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}

	run := &testRun{cfg: cfg, startedAt: time.Now()}
	if len(args) == 1 {
		run.gh, err = github.ReadContext(args[0])
		if err != nil {
			return nil, err
		}
	}

	if gaugeResult != "" {
		run.suites, run.summary, err = gauge.ReadSuites(gaugeResult, run.startedAt)
		if err != nil {
			return nil, err
		}
		if sorting != nil {
			sorting.Apply(run.suites)
		}
		return run, nil
	}

	reader := junit.NewReader(opts.projectDir, cfg.JUnit)
	if isTerminal(os.Stderr) {
		reader.WithProgress(os.Stderr)
	}
	run.suites, run.summary, err = reader.Read(ctx)
	if err := tolerateParseErrors(len(run.suites), err); err != nil {
		return nil, err
	}
	if sorting != nil {
		sorting.Apply(run.suites)
	}
	return run, nil
}

// tolerateParseErrors keeps going with the suites that parsed and only
// fails when none did
func tolerateParseErrors(parsed int, err error) error {
	if err == nil {
		return nil
	}
	if parsed == 0 {
		return err
	}
	logger.Warnf("Some reports could not be read: %v", err)
	return nil
}

func (r *testRun) fullReport() models.FullReport {
	return models.NewFullReport(r.summary, r.suites, r.gh.View())
}

func recordHistory(ctx context.Context, run *testRun) {
	db, err := storage.NewDatabase(run.cfg.History.Path)
	if err != nil {
		logger.Warnf("Failed to open history database: %v", err)
		return
	}
	defer db.Close()

	record := storage.NewRunRecord(run.summary, run.startedAt)
	if run.gh != nil {
		record.GithubRunID = string(run.gh.RunID)
		record.SHA = run.gh.SHA
		record.Actor = run.gh.Actor
	}
	if err := db.SaveRun(ctx, record, run.suites); err != nil {
		logger.Warnf("Failed to save run history: %v", err)
		return
	}
	logger.Debugf("Recorded run %s", record.ID)
}

func publishReport(ctx context.Context, run *testRun, dir string) (string, error) {
	gcs := run.cfg.Notifications.GoogleCloudStorage
	if gcs == nil {
		logger.Warn("No Google Cloud Storage configuration, the report is not published")
		return "", nil
	}
	if run.gh == nil || run.gh.RunID == "" {
		logger.Warn("No GitHub run id, the report is not published")
		return "", nil
	}

	bucket, err := publish.NewGCSBucket(ctx, gcs.Bucket)
	if err != nil {
		return "", err
	}
	defer bucket.Close()

	url, err := publish.NewPublisher(bucket, dir, string(run.gh.RunID)).Publish(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to publish report: %w", err)
	}
	if url == "" {
		logger.Infof("Report published to bucket %s", gcs.Bucket)
	} else {
		logger.Infof("Report published at %s", url)
	}
	return url, nil
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
