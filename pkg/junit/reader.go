package junit

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/gammazero/workerpool"
	"github.com/hashicorp/go-multierror"
	"github.com/schollz/progressbar/v3"

	"github.com/lirany1/cikit/pkg/config"
	"github.com/lirany1/cikit/pkg/logger"
	"github.com/lirany1/cikit/pkg/models"
)

// Reader discovers and parses the JUnit reports of a project
type Reader struct {
	projectDir string
	pattern    string
	poolSize   int
	progress   io.Writer
}

type parseResult struct {
	index  int
	path   string
	suites []models.SuiteResult
	err    error
}

// NewReader creates a reader for projectDir using the junit configuration
func NewReader(projectDir string, cfg config.JUnitConfig) *Reader {
	poolSize := cfg.ParserPoolSize
	if poolSize <= 0 {
		poolSize = 5
	}
	return &Reader{
		projectDir: projectDir,
		pattern:    cfg.ReportDirPattern,
		poolSize:   poolSize,
	}
}

// WithProgress displays parse progress on w
func (r *Reader) WithProgress(w io.Writer) *Reader {
	r.progress = w
	return r
}

// Read parses every discovered report. Suites keep the order of the
// discovered files. Files that fail to parse are reported in the
// returned error while the remaining suites are still returned.
func (r *Reader) Read(ctx context.Context) ([]models.SuiteResult, models.Summary, error) {
	var summary models.Summary

	files, err := Discover(r.projectDir, r.pattern)
	if err != nil {
		return nil, summary, err
	}
	logger.Infof("%d report files found", len(files))

	results := make(chan parseResult, len(files))
	pool := workerpool.New(r.poolSize)
	for i, path := range files {
		i, path := i, path
		pool.Submit(func() {
			if err := ctx.Err(); err != nil {
				results <- parseResult{index: i, path: path, err: err}
				return
			}
			logger.WithField("file", path).Debug("parsing JUnit report")
			suites, err := ParseFile(path)
			results <- parseResult{index: i, path: path, suites: suites, err: err}
		})
	}
	go func() {
		pool.StopWait()
		close(results)
	}()

	var bar *progressbar.ProgressBar
	if r.progress != nil && len(files) > 0 {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetWriter(r.progress),
			progressbar.OptionSetDescription("Parsing reports"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	var errs *multierror.Error
	parsed := make([]parseResult, 0, len(files))
	for res := range results {
		if bar != nil {
			_ = bar.Add(1)
		}
		if res.err != nil {
			errs = multierror.Append(errs, fmt.Errorf("failed to parse %s: %w", res.path, res.err))
			continue
		}
		for _, s := range res.suites {
			summary.Add(s.Summary)
		}
		parsed = append(parsed, res)
	}
	if bar != nil {
		_ = bar.Finish()
	}

	sort.Slice(parsed, func(i, j int) bool { return parsed[i].index < parsed[j].index })
	suites := make([]models.SuiteResult, 0)
	for _, res := range parsed {
		suites = append(suites, res.suites...)
	}
	return suites, summary, errs.ErrorOrNil()
}

// ReadTestSuites reads every suite under projectDir, optionally sorted
func ReadTestSuites(ctx context.Context, projectDir string, cfg *config.Config, sorting *ReportSorting) ([]models.SuiteResult, models.Summary, error) {
	suites, summary, err := NewReader(projectDir, cfg.JUnit).Read(ctx)
	if sorting != nil {
		sorting.Apply(suites)
	}
	return suites, summary, err
}

// ReadOutcome reads the run outcome of projectDir. Like Read, files that
// fail to parse are reported in the returned error while the outcome still
// covers the suites that parsed; parsed is their number.
func ReadOutcome(ctx context.Context, projectDir string, cfg *config.Config) (outcome models.RunOutcome, parsed int, err error) {
	suites, summary, err := ReadTestSuites(ctx, projectDir, cfg, nil)
	return models.NewRunOutcome(summary, suites), len(suites), err
}
