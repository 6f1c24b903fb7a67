package analytics

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lirany1/cikit/pkg/models"
	"github.com/lirany1/cikit/pkg/storage"
)

func suite(name string, elapsed time.Duration, failures int) models.SuiteResult {
	return models.SuiteResult{
		Summary:   models.Summary{Time: models.Duration(elapsed), Tests: 3, Failures: failures},
		TestSuite: models.TestSuite{Name: name},
	}
}

func TestSlowestSuites(t *testing.T) {
	suites := []models.SuiteResult{
		suite("fast", time.Second, 0),
		suite("slow", 10*time.Second, 0),
		suite("medium", 5*time.Second, 0),
	}

	slowest := SlowestSuites(suites, 2)
	require.Len(t, slowest, 2)
	assert.Equal(t, "slow", slowest[0].Name)
	assert.Equal(t, "medium", slowest[1].Name)
	assert.Equal(t, 10*time.Second, slowest[0].Duration)

	assert.Len(t, SlowestSuites(suites, 10), 3)
	assert.Empty(t, SlowestSuites(nil, 5))
}

func TestDirection(t *testing.T) {
	assert.Equal(t, TrendImproving, Direction(80, 90))
	assert.Equal(t, TrendDegrading, Direction(90, 80))
	assert.Equal(t, TrendStable, Direction(90, 95))
	assert.Equal(t, TrendStable, Direction(90, 85))
}

func TestNewTrend(t *testing.T) {
	now := time.Now().UTC()
	runs := []storage.RunRecord{
		{StartedAt: now, SuccessRate: 70, Duration: 3000},
		{StartedAt: now.Add(-time.Hour), SuccessRate: 90, Duration: 1000},
	}

	trend := NewTrend(runs)
	assert.Equal(t, TrendDegrading, trend.Direction)
	require.Len(t, trend.Points, 2)
	assert.Equal(t, 90.0, trend.Points[0].SuccessRate)
	assert.Equal(t, 70.0, trend.Points[1].SuccessRate)
	assert.Equal(t, 2*time.Second, trend.AverageDuration)

	empty := NewTrend(nil)
	assert.Equal(t, TrendStable, empty.Direction)
	assert.Empty(t, empty.Points)
}

func TestEngineWithoutDatabase(t *testing.T) {
	engine := NewEngine(nil)

	insights, err := engine.Insights(context.Background(), 10, 5)
	require.NoError(t, err)
	assert.Equal(t, TrendStable, insights.Trend.Direction)
	assert.Empty(t, insights.Runs)
	assert.Empty(t, insights.Slowest)
	assert.Empty(t, insights.Flaky)

	flaky, err := engine.FlakySuites(context.Background(), []models.SuiteResult{suite("a", 0, 1)}, 10, 0.1)
	require.NoError(t, err)
	assert.Empty(t, flaky)
}

func TestEngineWithHistory(t *testing.T) {
	ctx := context.Background()
	db, err := storage.NewDatabase(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer db.Close()

	base := time.Now().UTC()
	for i, failures := range []int{0, 1, 0, 1} {
		suites := []models.SuiteResult{
			suite("flaky", time.Second, failures),
			suite("broken", 2*time.Second, 1),
			suite("green", 500*time.Millisecond, 0),
		}
		run := storage.NewRunRecord(models.Summarize(suites), base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, db.SaveRun(ctx, run, suites))
	}

	engine := NewEngine(db)

	insights, err := engine.Insights(ctx, 10, 2)
	require.NoError(t, err)
	require.Len(t, insights.Runs, 4)
	trend := insights.Trend
	require.Len(t, trend.Points, 4)
	assert.True(t, trend.Points[0].StartedAt.Before(trend.Points[3].StartedAt))
	assert.Equal(t, TrendDegrading, trend.Direction)

	require.Len(t, insights.Slowest, 2)
	assert.Equal(t, "broken", insights.Slowest[0].Name)
	assert.Equal(t, 2*time.Second, insights.Slowest[0].Duration)
	assert.Equal(t, "flaky", insights.Slowest[1].Name)

	require.Len(t, insights.Flaky, 1)
	assert.Equal(t, "flaky", insights.Flaky[0].Name)

	current := []models.SuiteResult{
		suite("flaky", 0, 0),
		suite("broken", 0, 1),
		suite("green", 0, 0),
	}
	flaky, err := engine.FlakySuites(ctx, current, 10, 0.3)
	require.NoError(t, err)
	require.Len(t, flaky, 1)
	assert.Equal(t, "flaky", flaky[0].Name)
	assert.Equal(t, 0.5, flaky[0].FailureRate)
	assert.Equal(t, 4, flaky[0].Runs)
}
