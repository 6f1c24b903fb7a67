package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/lirany1/cikit/pkg/models"
	"github.com/lirany1/cikit/pkg/storage"
)

// TrendThreshold is the success rate change, in percentage points, that
// turns a trend from stable into improving or degrading
const TrendThreshold = 5.0

// FlakyThreshold is the failure rate from which a suite that both passed
// and failed counts as flaky
const FlakyThreshold = 0.3

// Quality trend directions
const (
	TrendImproving = "improving"
	TrendDegrading = "degrading"
	TrendStable    = "stable"
)

// SuitePerformance is the timing of a single suite
type SuitePerformance struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`
	Tests    int           `json:"tests"`
}

// TrendPoint is one run in a success rate trend, oldest first
type TrendPoint struct {
	StartedAt   time.Time     `json:"startedAt"`
	SuccessRate float64       `json:"successRate"`
	Duration    time.Duration `json:"duration"`
	Tests       int           `json:"tests"`
}

// Trend summarizes how recent runs evolved
type Trend struct {
	Points          []TrendPoint  `json:"points"`
	Direction       string        `json:"direction"`
	AverageDuration time.Duration `json:"averageDuration"`
}

// FlakySuite is a suite that both passed and failed in recent runs
type FlakySuite struct {
	Name        string  `json:"name"`
	FailureRate float64 `json:"failureRate"`
	Runs        int     `json:"runs"`
}

// Insights is the analysis of the recorded runs
type Insights struct {
	Runs    []storage.RunRecord `json:"runs"`
	Trend   *Trend              `json:"trend"`
	Slowest []SuitePerformance  `json:"slowest"`
	Flaky   []FlakySuite        `json:"flaky"`
}

// Engine handles analytics processing with database integration
type Engine struct {
	db *storage.Database
}

// NewEngine creates a new analytics engine. db may be nil, in which case
// only analyses of the current run are available.
func NewEngine(db *storage.Database) *Engine {
	return &Engine{db: db}
}

// SlowestSuites returns the n slowest suites, slowest first
func SlowestSuites(suites []models.SuiteResult, n int) []SuitePerformance {
	specs := make([]SuitePerformance, 0, len(suites))
	for _, s := range suites {
		specs = append(specs, SuitePerformance{
			Name:     s.Name,
			Duration: s.Summary.Time.Std(),
			Tests:    s.Summary.Tests,
		})
	}

	sort.SliceStable(specs, func(i, j int) bool {
		return specs[i].Duration > specs[j].Duration
	})

	if n >= 0 && len(specs) > n {
		specs = specs[:n]
	}
	return specs
}

// Direction compares the latest success rate with the previous one
func Direction(previous, current float64) string {
	change := current - previous
	switch {
	case change > TrendThreshold:
		return TrendImproving
	case change < -TrendThreshold:
		return TrendDegrading
	default:
		return TrendStable
	}
}

// NewTrend builds a trend from runs listed newest first, as returned by
// storage.Database.RecentRuns
func NewTrend(runs []storage.RunRecord) *Trend {
	trend := &Trend{
		Points:    make([]TrendPoint, len(runs)),
		Direction: TrendStable,
	}

	var total time.Duration
	for i, run := range runs {
		duration := time.Duration(run.Duration) * time.Millisecond
		trend.Points[len(runs)-1-i] = TrendPoint{
			StartedAt:   run.StartedAt,
			SuccessRate: run.SuccessRate,
			Duration:    duration,
			Tests:       run.Tests,
		}
		total += duration
	}

	if len(runs) > 0 {
		trend.AverageDuration = total / time.Duration(len(runs))
	}
	if len(runs) >= 2 {
		trend.Direction = Direction(runs[1].SuccessRate, runs[0].SuccessRate)
	}
	return trend
}

// Insights loads the last limit runs and analyses them: their trend, the
// slowest suites of the latest run and the suites of the latest run that
// are flaky over those runs
func (e *Engine) Insights(ctx context.Context, limit, slowest int) (*Insights, error) {
	insights := &Insights{
		Runs:    make([]storage.RunRecord, 0),
		Slowest: make([]SuitePerformance, 0),
		Flaky:   make([]FlakySuite, 0),
	}
	if e.db == nil {
		insights.Trend = NewTrend(nil)
		return insights, nil
	}

	runs, err := e.db.RecentRuns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent runs: %w", err)
	}
	insights.Runs = runs
	insights.Trend = NewTrend(runs)
	if len(runs) == 0 {
		return insights, nil
	}

	records, err := e.db.RunSuites(ctx, runs[0].ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest run: %w", err)
	}
	latest := make([]models.SuiteResult, 0, len(records))
	for _, rec := range records {
		latest = append(latest, rec.Result())
	}

	insights.Slowest = SlowestSuites(latest, slowest)
	insights.Flaky, err = e.FlakySuites(ctx, latest, limit, FlakyThreshold)
	if err != nil {
		return nil, err
	}
	return insights, nil
}

// FlakySuites returns the suites of the current run whose failure rate over
// the last limit recorded runs lies strictly between 0 and 1 and reaches
// threshold
func (e *Engine) FlakySuites(ctx context.Context, suites []models.SuiteResult, limit int, threshold float64) ([]FlakySuite, error) {
	flaky := make([]FlakySuite, 0)
	if e.db == nil {
		return flaky, nil
	}

	seen := make(map[string]bool)
	for _, s := range suites {
		if seen[s.Name] {
			continue
		}
		seen[s.Name] = true

		rate, runs, err := e.db.SuiteFailureRate(ctx, s.Name, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to load history of %s: %w", s.Name, err)
		}
		if runs < 2 || rate <= 0 || rate >= 1 || rate < threshold {
			continue
		}
		flaky = append(flaky, FlakySuite{
			Name:        s.Name,
			FailureRate: rate,
			Runs:        runs,
		})
	}

	sort.SliceStable(flaky, func(i, j int) bool {
		return flaky[i].FailureRate > flaky[j].FailureRate
	})
	return flaky, nil
}
