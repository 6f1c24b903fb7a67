package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/lirany1/cikit/pkg/logger"
	"github.com/lirany1/cikit/pkg/models"
)

// sqliteTime matches datetime('now') so stored times compare as text
const sqliteTime = "2006-01-02 15:04:05"

// Database handles historical test run data
type Database struct {
	db   *sql.DB
	path string
}

// RunRecord represents a single test run
type RunRecord struct {
	ID          string    `json:"id"`
	StartedAt   time.Time `json:"startedAt"`
	Duration    int64     `json:"duration"`
	Tests       int       `json:"tests"`
	Failures    int       `json:"failures"`
	Errors      int       `json:"errors"`
	Skipped     int       `json:"skipped"`
	SuccessRate float64   `json:"successRate"`
	GithubRunID string    `json:"githubRunId,omitempty"`
	SHA         string    `json:"sha,omitempty"`
	Actor       string    `json:"actor,omitempty"`
}

// SuiteRunRecord represents a single suite within a run
type SuiteRunRecord struct {
	RunID     string    `json:"runId"`
	Name      string    `json:"name"`
	StartedAt time.Time `json:"startedAt"`
	Duration  int64     `json:"duration"`
	Tests     int       `json:"tests"`
	Failures  int       `json:"failures"`
	Errors    int       `json:"errors"`
	Skipped   int       `json:"skipped"`
}

// Failed reports whether the suite had failures or errors in that run
func (s SuiteRunRecord) Failed() bool {
	return s.Failures > 0 || s.Errors > 0
}

// Result rebuilds the suite summary recorded for that run
func (s SuiteRunRecord) Result() models.SuiteResult {
	return models.SuiteResult{
		Summary: models.Summary{
			Time:     models.Duration(time.Duration(s.Duration) * time.Millisecond),
			Tests:    s.Tests,
			Failures: s.Failures,
			Errors:   s.Errors,
			Skipped:  s.Skipped,
		},
		TestSuite: models.TestSuite{
			Name:      s.Name,
			Elapsed:   models.Duration(time.Duration(s.Duration) * time.Millisecond),
			Timestamp: models.Timestamp(s.StartedAt),
		},
	}
}

// NewRunRecord creates a record for a run summarized by summary
func NewRunRecord(summary models.Summary, startedAt time.Time) *RunRecord {
	return &RunRecord{
		ID:          uuid.New().String(),
		StartedAt:   startedAt,
		Duration:    summary.Time.Std().Milliseconds(),
		Tests:       summary.Tests,
		Failures:    summary.Failures,
		Errors:      summary.Errors,
		Skipped:     summary.Skipped,
		SuccessRate: SuccessRate(summary),
	}
}

// SuccessRate is the percentage of tests that passed or were skipped.
// A run without tests counts as fully successful.
func SuccessRate(s models.Summary) float64 {
	if s.Tests <= 0 {
		return 100
	}
	return float64(s.Tests-s.Failures-s.Errors) / float64(s.Tests) * 100
}

// NewDatabase creates or opens the history database at path
func NewDatabase(path string) (*Database, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	logger.Debugf("Opening database at: %s", path)

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	database := &Database{
		db:   db,
		path: path,
	}

	if err := database.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return database, nil
}

// migrate creates or updates the database schema
func (d *Database) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			duration INTEGER NOT NULL,
			tests INTEGER NOT NULL,
			failures INTEGER NOT NULL,
			errors INTEGER NOT NULL,
			skipped INTEGER NOT NULL,
			success_rate REAL NOT NULL,
			github_run_id TEXT,
			sha TEXT,
			actor TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_runs_started_at
		 ON runs(started_at DESC)`,

		`CREATE TABLE IF NOT EXISTS suite_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			name TEXT NOT NULL,
			duration INTEGER NOT NULL,
			tests INTEGER NOT NULL,
			failures INTEGER NOT NULL,
			errors INTEGER NOT NULL,
			skipped INTEGER NOT NULL,
			FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
		)`,

		`CREATE INDEX IF NOT EXISTS idx_suite_runs_name
		 ON suite_runs(name)`,

		`CREATE INDEX IF NOT EXISTS idx_suite_runs_run
		 ON suite_runs(run_id)`,
	}

	for i, migration := range migrations {
		if _, err := d.db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	return nil
}

// SaveRun saves a run and its suites in one transaction
func (d *Database) SaveRun(ctx context.Context, run *RunRecord, suites []models.SuiteResult) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (
			id, started_at, duration, tests, failures, errors,
			skipped, success_rate, github_run_id, sha, actor
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.StartedAt.UTC().Format(sqliteTime),
		run.Duration,
		run.Tests,
		run.Failures,
		run.Errors,
		run.Skipped,
		run.SuccessRate,
		run.GithubRunID,
		run.SHA,
		run.Actor,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO suite_runs (
			run_id, name, duration, tests, failures, errors, skipped
		) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare suite insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range suites {
		_, err := stmt.ExecContext(ctx,
			run.ID,
			s.Name,
			s.Summary.Time.Std().Milliseconds(),
			s.Summary.Tests,
			s.Summary.Failures,
			s.Summary.Errors,
			s.Summary.Skipped,
		)
		if err != nil {
			return fmt.Errorf("failed to save suite %s: %w", s.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	logger.Debugf("Saved run record: %s", run.ID)
	return nil
}

// RecentRuns retrieves the last limit runs, newest first
func (d *Database) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT
			id, started_at, duration, tests, failures, errors,
			skipped, success_rate, github_run_id, sha, actor
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]RunRecord, 0)
	for rows.Next() {
		var run RunRecord
		var startedAt string
		var githubRunID, sha, actor sql.NullString

		err := rows.Scan(
			&run.ID,
			&startedAt,
			&run.Duration,
			&run.Tests,
			&run.Failures,
			&run.Errors,
			&run.Skipped,
			&run.SuccessRate,
			&githubRunID,
			&sha,
			&actor,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		run.StartedAt = parseTime(startedAt)
		run.GithubRunID = githubRunID.String
		run.SHA = sha.String
		run.Actor = actor.String
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// SuiteHistory retrieves the last limit runs of a suite, newest first
func (d *Database) SuiteHistory(ctx context.Context, name string, limit int) ([]SuiteRunRecord, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT
			s.run_id, s.name, r.started_at, s.duration,
			s.tests, s.failures, s.errors, s.skipped
		FROM suite_runs s
		JOIN runs r ON s.run_id = r.id
		WHERE s.name = ?
		ORDER BY r.started_at DESC
		LIMIT ?`, name, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query suite history: %w", err)
	}
	return scanSuiteRuns(rows)
}

// RunSuites retrieves the suites recorded for a run, in recording order
func (d *Database) RunSuites(ctx context.Context, runID string) ([]SuiteRunRecord, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT
			s.run_id, s.name, r.started_at, s.duration,
			s.tests, s.failures, s.errors, s.skipped
		FROM suite_runs s
		JOIN runs r ON s.run_id = r.id
		WHERE s.run_id = ?
		ORDER BY s.id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query suites of run %s: %w", runID, err)
	}
	return scanSuiteRuns(rows)
}

func scanSuiteRuns(rows *sql.Rows) ([]SuiteRunRecord, error) {
	defer rows.Close()

	records := make([]SuiteRunRecord, 0)
	for rows.Next() {
		var rec SuiteRunRecord
		var startedAt string
		if err := rows.Scan(
			&rec.RunID,
			&rec.Name,
			&startedAt,
			&rec.Duration,
			&rec.Tests,
			&rec.Failures,
			&rec.Errors,
			&rec.Skipped,
		); err != nil {
			return nil, fmt.Errorf("failed to scan suite run: %w", err)
		}
		rec.StartedAt = parseTime(startedAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SuiteFailureRate returns the fraction of the last limit runs of a suite
// that failed, and the number of runs considered
func (d *Database) SuiteFailureRate(ctx context.Context, name string, limit int) (float64, int, error) {
	history, err := d.SuiteHistory(ctx, name, limit)
	if err != nil {
		return 0, 0, err
	}
	if len(history) == 0 {
		return 0, 0, nil
	}
	failed := 0
	for _, rec := range history {
		if rec.Failed() {
			failed++
		}
	}
	return float64(failed) / float64(len(history)), len(history), nil
}

// CleanupOldData removes runs started more than retentionDays ago and
// returns the number of removed runs
func (d *Database) CleanupOldData(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).Format(sqliteTime)

	if _, err := d.db.ExecContext(ctx, `
		DELETE FROM suite_runs
		WHERE run_id IN (SELECT id FROM runs WHERE started_at < ?)`, cutoff); err != nil {
		return 0, fmt.Errorf("failed to cleanup suite_runs: %w", err)
	}

	result, err := d.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup runs: %w", err)
	}

	rows, _ := result.RowsAffected()
	logger.Infof("Cleaned up %d old runs", rows)
	return rows, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

func parseTime(s string) time.Time {
	for _, layout := range []string{sqliteTime, time.RFC3339} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t
		}
	}
	return time.Time{}
}
