package models

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the layout JUnit reporters use for suite timestamps
const TimestampLayout = "2006-01-02T15:04:05"

// Duration is a time.Duration that reads JUnit seconds and serializes as milliseconds
type Duration time.Duration

// Std returns the standard library duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// MarshalJSON encodes the duration as integer milliseconds
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(time.Duration(d).Milliseconds(), 10)), nil
}

// UnmarshalJSON decodes integer milliseconds
func (d *Duration) UnmarshalJSON(data []byte) error {
	var ms float64
	if err := json.Unmarshal(data, &ms); err != nil {
		return fmt.Errorf("invalid duration %s: %w", string(data), err)
	}
	*d = Duration(time.Duration(ms * float64(time.Millisecond)))
	return nil
}

// UnmarshalXMLAttr decodes a JUnit time attribute given in seconds.
// Some reporters emit negative times; the absolute value is kept.
func (d *Duration) UnmarshalXMLAttr(attr xml.Attr) error {
	raw := strings.TrimSpace(strings.ReplaceAll(attr.Value, ",", ""))
	if raw == "" {
		*d = 0
		return nil
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("cannot parse duration %q: %w", attr.Value, err)
	}
	*d = Duration(time.Duration(math.Round(math.Abs(secs) * float64(time.Second))))
	return nil
}

// Timestamp is a suite start time without zone information
type Timestamp time.Time

// Time returns the standard library time
func (t Timestamp) Time() time.Time {
	return time.Time(t)
}

// MarshalJSON encodes the timestamp using TimestampLayout
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t).Format(TimestampLayout))
}

// UnmarshalJSON decodes a timestamp written by MarshalJSON
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := parseTimestamp(s)
	if err != nil {
		return err
	}
	*t = Timestamp(parsed)
	return nil
}

// UnmarshalXMLAttr decodes a JUnit timestamp attribute
func (t *Timestamp) UnmarshalXMLAttr(attr xml.Attr) error {
	parsed, err := parseTimestamp(attr.Value)
	if err != nil {
		return err
	}
	*t = Timestamp(parsed)
	return nil
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{TimestampLayout, time.RFC3339Nano, "2006-01-02T15:04:05.999999999"} {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp %q", s)
}

// Summary aggregates the outcome counts of one or more suites
type Summary struct {
	Time     Duration `json:"time"`
	Tests    int      `json:"tests"`
	Failures int      `json:"failures"`
	Errors   int      `json:"errors"`
	Skipped  int      `json:"skipped"`
}

// IsSuccessful reports whether no test failed or errored
func (s Summary) IsSuccessful() bool {
	return s.Failures == 0 && s.Errors == 0
}

// Add accumulates another summary into s
func (s *Summary) Add(other Summary) {
	s.Time += other.Time
	s.Tests += other.Tests
	s.Failures += other.Failures
	s.Errors += other.Errors
	s.Skipped += other.Skipped
}

// Passed returns the number of tests that neither failed, errored nor were skipped
func (s Summary) Passed() int {
	passed := s.Tests - s.Failures - s.Errors - s.Skipped
	if passed < 0 {
		return 0
	}
	return passed
}

// Failure is a JUnit failure or error element
type Failure struct {
	Message    string `xml:"message,attr" json:"message,omitempty"`
	Type       string `xml:"type,attr" json:"type"`
	StackTrace string `xml:",chardata" json:"stackTrace"`
}

// SkipMarker marks a skipped test case
type SkipMarker struct {
	Message string `xml:"message,attr"`
}

// TestCase is a single JUnit test case
type TestCase struct {
	Name      string      `xml:"name,attr"`
	ClassName string      `xml:"classname,attr"`
	Time      Duration    `xml:"time,attr"`
	Failure   *Failure    `xml:"failure"`
	Error     *Failure    `xml:"error"`
	SkipMark  *SkipMarker `xml:"skipped"`
}

// IsSkipped reports whether the case carries a skipped marker
func (c TestCase) IsSkipped() bool {
	return c.SkipMark != nil
}

// IsSuccessful reports whether the case neither failed nor errored
func (c TestCase) IsSuccessful() bool {
	return c.Failure == nil && c.Error == nil
}

// Outcome returns the display outcome of the case
func (c TestCase) Outcome() Outcome {
	switch {
	case c.IsSkipped():
		return OutcomeSkipped
	case !c.IsSuccessful():
		return OutcomeFailure
	default:
		return OutcomeSuccess
	}
}

// AsFailed returns the failed form of the case, preferring the failure over the error
func (c TestCase) AsFailed() (FailedTestCase, bool) {
	failure := c.Failure
	if failure == nil {
		failure = c.Error
	}
	if failure == nil {
		return FailedTestCase{}, false
	}
	return FailedTestCase{
		Name:      c.Name,
		ClassName: c.ClassName,
		Time:      c.Time,
		Failure:   *failure,
	}, true
}

// MarshalJSON renders the skipped marker as a boolean
func (c TestCase) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name      string   `json:"name"`
		ClassName string   `json:"classname"`
		Time      Duration `json:"time"`
		Failure   *Failure `json:"failure"`
		Error     *Failure `json:"error"`
		Skipped   bool     `json:"skipped"`
	}{c.Name, c.ClassName, c.Time, c.Failure, c.Error, c.IsSkipped()})
}

// UnmarshalJSON reads a test case written by MarshalJSON
func (c *TestCase) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name      string   `json:"name"`
		ClassName string   `json:"classname"`
		Time      Duration `json:"time"`
		Failure   *Failure `json:"failure"`
		Error     *Failure `json:"error"`
		Skipped   bool     `json:"skipped"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = TestCase{
		Name:      raw.Name,
		ClassName: raw.ClassName,
		Time:      raw.Time,
		Failure:   raw.Failure,
		Error:     raw.Error,
	}
	if raw.Skipped {
		c.SkipMark = &SkipMarker{}
	}
	return nil
}

// Outcome is the display outcome of a test case
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFailure
	OutcomeSkipped
)

// TestSuite is a JUnit test suite
type TestSuite struct {
	Name      string     `xml:"name,attr" json:"name"`
	Elapsed   Duration   `xml:"time,attr" json:"-"`
	Timestamp Timestamp  `xml:"timestamp,attr" json:"timestamp"`
	TestCases []TestCase `xml:"testcase" json:"testcase"`
}

// WithSummary derives the suite summary from its test cases
func (s TestSuite) WithSummary() SuiteResult {
	summary := Summary{Time: s.Elapsed}
	for _, tc := range s.TestCases {
		summary.Tests++
		switch {
		case tc.IsSkipped():
			summary.Skipped++
		case tc.Failure != nil:
			summary.Failures++
		case tc.Error != nil:
			summary.Errors++
		}
	}
	return SuiteResult{Summary: summary, TestSuite: s}
}

// FailedTestCase is a test case known to have failed
type FailedTestCase struct {
	Name      string   `json:"name"`
	ClassName string   `json:"classname"`
	Time      Duration `json:"time"`
	Failure   Failure  `json:"failure"`
}

// FailedTestSuite is a suite reduced to its failed test cases
type FailedTestSuite struct {
	Name            string           `json:"name"`
	Timestamp       Timestamp        `json:"timestamp"`
	FailedTestCases []FailedTestCase `json:"failedTestcases"`
}

// SuiteResult is a suite flattened together with its summary
type SuiteResult struct {
	Summary
	TestSuite
}

// IsSuccessful reports whether the suite summary is successful
func (r SuiteResult) IsSuccessful() bool {
	return r.Summary.IsSuccessful()
}

// AsFailed reduces the suite to its failed cases. It returns false when no case failed.
func (r SuiteResult) AsFailed() (FailedSuiteResult, bool) {
	failed := make([]FailedTestCase, 0)
	for _, tc := range r.TestCases {
		if f, ok := tc.AsFailed(); ok {
			failed = append(failed, f)
		}
	}
	if len(failed) == 0 {
		return FailedSuiteResult{}, false
	}
	return FailedSuiteResult{
		Summary: r.Summary,
		FailedTestSuite: FailedTestSuite{
			Name:            r.Name,
			Timestamp:       r.Timestamp,
			FailedTestCases: failed,
		},
	}, true
}

// FailedSuiteResult is a failed suite flattened together with its summary
type FailedSuiteResult struct {
	Summary
	FailedTestSuite
}

// RunOutcome is the aggregate result of a test run
type RunOutcome struct {
	Summary Summary
	Failed  []FailedTestSuite
}

// IsSuccessful reports whether the aggregate summary is successful
func (o RunOutcome) IsSuccessful() bool {
	return o.Summary.IsSuccessful()
}

// NewRunOutcome aggregates suites into a run outcome
func NewRunOutcome(summary Summary, suites []SuiteResult) RunOutcome {
	outcome := RunOutcome{Summary: summary}
	if summary.IsSuccessful() {
		return outcome
	}
	for _, suite := range suites {
		if failed, ok := suite.AsFailed(); ok {
			outcome.Failed = append(outcome.Failed, failed.FailedTestSuite)
		}
	}
	return outcome
}

// PullRequest is the pull request shown in the report header
type PullRequest struct {
	Title   string `json:"title"`
	HTMLURL string `json:"htmlUrl"`
}

// GithubUser is the user that triggered the build
type GithubUser struct {
	AvatarURL string `json:"avatarUrl"`
	Login     string `json:"login"`
	HTMLURL   string `json:"htmlUrl"`
}

// GithubContext is the pull request information shown in the report header
type GithubContext struct {
	Number      int         `json:"number"`
	PullRequest PullRequest `json:"pullRequest"`
	Sender      GithubUser  `json:"sender"`
}

// FullReport is the data set consumed by the report UI
type FullReport struct {
	Summary     Summary             `json:"summary"`
	Failed      []FailedSuiteResult `json:"failed"`
	AllSuites   []SuiteResult       `json:"allSuites"`
	GithubEvent *GithubContext      `json:"githubEvent"`
}

// NewFullReport builds the UI data set. githubEvent may be nil.
func NewFullReport(summary Summary, suites []SuiteResult, githubEvent *GithubContext) FullReport {
	report := FullReport{
		Summary:     summary,
		Failed:      make([]FailedSuiteResult, 0),
		AllSuites:   suites,
		GithubEvent: githubEvent,
	}
	if report.AllSuites == nil {
		report.AllSuites = make([]SuiteResult, 0)
	}
	for _, suite := range suites {
		if failed, ok := suite.AsFailed(); ok {
			report.Failed = append(report.Failed, failed)
		}
	}
	return report
}

// Summarize adds up the summaries of the given suites
func Summarize(suites []SuiteResult) Summary {
	var total Summary
	for _, s := range suites {
		total.Add(s.Summary)
	}
	return total
}
