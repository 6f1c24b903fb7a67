package junit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lirany1/cikit/pkg/config"
	"github.com/lirany1/cikit/pkg/models"
)

const successTestSuiteXML = `
<testsuite hostname="lenstop" name="com.example.LiveTopicCounterTest" tests="1" errors="0" failures="0" skipped="0" time="2.137" timestamp="2020-06-07T14:18:12">
  <properties></properties>
  <testcase classname="com.example.LiveTopicCounterTest" name="LiveTopicCounter should raise an error when the supplied topic does not exist" time="0.079">
  </testcase>
  <testcase classname="com.example.LiveTopicCounterTest" name="LiveTopicCounter should skip this test" time="0.001">
    <skipped/>
  </testcase>
</testsuite>
`

const failedTestSuiteXML = `
<testsuite hostname="lenstop" name="com.example.LiveTopicCounterTest" tests="5" errors="0" failures="1" skipped="0" time="2.137" timestamp="2020-06-07T14:18:13">
  <properties></properties>
  <testcase classname="com.example.LiveTopicCounterTest" name="LiveTopicCounter should raise an error when the supplied topic does not exist" time="0.079">
  </testcase><testcase classname="com.example.LiveTopicCounterTest" name="TopicCounter should return a one element stream when called on an empty topic" time="0.466">
  </testcase><testcase classname="com.example.LiveTopicCounterTest" name="TopicCounter should return a running count of the records in a topic, terminating when the topic endOffset is reached" time="0.571">
com.example
  </testcase><testcase classname="com.example.LiveTopicCounterTest" name="TopicCounter should count a compacted topic and return a lower number than the total records produced" time="0.56">
  </testcase><testcase classname="com.example.LiveTopicCounterTest" name="TopicCounter should count a partitioned topic" time="0.461">
    <failure message="100 did not equal 101" type="org.scalatest.exceptions.TestFailedException">stack-trace...</failure>
  </testcase>
  <system-out><![CDATA[]]></system-out>
  <system-err><![CDATA[]]></system-err>
</testsuite>
`

const nestedTestSuitesXML = `<?xml version="1.0" encoding="UTF-8"?>
<testsuites>
  <testsuite name="root">
    <testsuite name="pkg.Child" time="0.5" timestamp="2021-01-02T03:04:05">
      <testcase name="a" classname="pkg.Child" time="0.2"/>
      <testcase name="b" classname="pkg.Child" time="0.3">
        <error message="boom" type="java.lang.IllegalStateException">trace</error>
      </testcase>
    </testsuite>
  </testsuite>
  <testsuite name="pkg.Sibling" time="1.0">
    <testcase name="c" classname="pkg.Sibling" time="1.0"/>
  </testsuite>
</testsuites>`

func TestParseSuites_Success(t *testing.T) {
	suites, err := ParseSuites(strings.NewReader(successTestSuiteXML))
	require.NoError(t, err)
	require.Len(t, suites, 1)

	suite := suites[0]
	assert.Equal(t, "com.example.LiveTopicCounterTest", suite.Name)
	assert.Equal(t, 2137*time.Millisecond, suite.Elapsed.Std())
	assert.Equal(t, time.Date(2020, 6, 7, 14, 18, 12, 0, time.UTC), suite.Timestamp.Time())
	require.Len(t, suite.TestCases, 2)
	assert.Equal(t, 79*time.Millisecond, suite.TestCases[0].Time.Std())
	assert.Nil(t, suite.TestCases[0].Failure)
	assert.False(t, suite.TestCases[0].IsSkipped())
	assert.True(t, suite.TestCases[1].IsSkipped())

	assert.Equal(t, models.Summary{
		Time:    models.Duration(2137 * time.Millisecond),
		Tests:   2,
		Skipped: 1,
	}, suite.Summary)
	assert.True(t, suite.IsSuccessful())
}

func TestParseSuites_Failed(t *testing.T) {
	suites, err := ParseSuites(strings.NewReader(failedTestSuiteXML))
	require.NoError(t, err)
	require.Len(t, suites, 1)

	assert.Equal(t, 5, suites[0].Summary.Tests)
	assert.Equal(t, 1, suites[0].Summary.Failures)

	failed, ok := suites[0].AsFailed()
	require.True(t, ok)
	require.Len(t, failed.FailedTestCases, 1)

	tc := failed.FailedTestCases[0]
	assert.Equal(t, "TopicCounter should count a partitioned topic", tc.Name)
	assert.Equal(t, 461*time.Millisecond, tc.Time.Std())
	assert.Equal(t, models.Failure{
		Message:    "100 did not equal 101",
		Type:       "org.scalatest.exceptions.TestFailedException",
		StackTrace: "stack-trace...",
	}, tc.Failure)
}

func TestParseSuites_NestedTestSuites(t *testing.T) {
	suites, err := ParseSuites(strings.NewReader(nestedTestSuitesXML))
	require.NoError(t, err)
	require.Len(t, suites, 2)

	assert.Equal(t, "pkg.Child", suites[0].Name)
	assert.Equal(t, 1, suites[0].Summary.Errors)
	assert.False(t, suites[0].IsSuccessful())
	assert.Equal(t, "pkg.Sibling", suites[1].Name)
	assert.True(t, suites[1].IsSuccessful())
}

func TestParseSuites_Invalid(t *testing.T) {
	tests := map[string]string{
		"empty":        "   ",
		"not xml":      "{\"tests\": 1}",
		"unknown root": "<report><testcase name=\"a\"/></report>",
		"bad time":     `<testsuite name="s" time="soon"></testsuite>`,
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSuites(strings.NewReader(input))
			assert.Error(t, err)
		})
	}
}

// createReportDir nests a report directory depth levels below baseDir
// and fills it with successful and failed report files.
func createReportDir(t *testing.T, baseDir, reportDirname string, depth, failed, successful int) string {
	t.Helper()
	reportsPath := baseDir
	for n := 0; n < depth; n++ {
		reportsPath = filepath.Join(reportsPath, strconv.Itoa(n))
	}
	reportsPath = filepath.Join(reportsPath, reportDirname)
	require.NoError(t, os.MkdirAll(reportsPath, 0755))

	for n := 0; n < successful; n++ {
		name := filepath.Join(reportsPath, fmt.Sprintf("%d.xml", n))
		require.NoError(t, os.WriteFile(name, []byte(successTestSuiteXML), 0644))
	}
	for n := successful; n < successful+failed; n++ {
		name := filepath.Join(reportsPath, fmt.Sprintf("%d.xml", n))
		require.NoError(t, os.WriteFile(name, []byte(failedTestSuiteXML), 0644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(reportsPath, "output.txt"), []byte("ignored"), 0644))
	return reportsPath
}

func TestDiscover(t *testing.T) {
	baseDir := t.TempDir()
	reportsPath := createReportDir(t, baseDir, "testreports", 3, 3, 7)

	files, err := Discover(baseDir, "**/testreports")
	require.NoError(t, err)
	require.Len(t, files, 10)
	for _, f := range files {
		assert.Equal(t, reportsPath, filepath.Dir(f))
		assert.Equal(t, ".xml", filepath.Ext(f))
	}

	direct, err := Discover(baseDir, "**/testreports/*.xml")
	require.NoError(t, err)
	assert.Equal(t, files, direct)
}

func TestDiscover_NoMatches(t *testing.T) {
	files, err := Discover(t.TempDir(), "**/target/**/test-reports")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestDiscover_InvalidPattern(t *testing.T) {
	_, err := Discover(t.TempDir(), "**/[unclosed")
	assert.Error(t, err)
}

func TestReader_FailedTestSuites(t *testing.T) {
	baseDir := t.TempDir()
	createReportDir(t, baseDir, "testreports", 3, 3, 7)

	cfg := config.NewConfig()
	cfg.JUnit.ReportDirPattern = "**/testreports"
	cfg.JUnit.ParserPoolSize = 2

	suites, summary, err := NewReader(baseDir, cfg.JUnit).Read(context.Background())
	require.NoError(t, err)
	require.Len(t, suites, 10)

	failed := 0
	for _, s := range suites {
		if _, ok := s.AsFailed(); ok {
			failed++
		}
	}
	assert.Equal(t, 3, failed)
	assert.Equal(t, 7*2+3*5, summary.Tests)
	assert.Equal(t, 3, summary.Failures)
	assert.Equal(t, 7, summary.Skipped)
	assert.Equal(t, models.Summarize(suites), summary)
}

func TestReader_CollectsParseErrors(t *testing.T) {
	baseDir := t.TempDir()
	reportsPath := createReportDir(t, baseDir, "testreports", 1, 1, 1)
	require.NoError(t, os.WriteFile(filepath.Join(reportsPath, "broken.xml"), []byte("<testsuite"), 0644))

	var progress strings.Builder
	reader := NewReader(baseDir, config.JUnitConfig{ReportDirPattern: "**/testreports"}).WithProgress(&progress)

	suites, summary, err := reader.Read(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.xml")
	assert.Len(t, suites, 2)
	assert.Equal(t, 7, summary.Tests)
}

func TestReadOutcome(t *testing.T) {
	baseDir := t.TempDir()
	createReportDir(t, baseDir, "testreports", 2, 2, 1)

	cfg := config.NewConfig()
	cfg.JUnit.ReportDirPattern = "**/testreports"

	outcome, parsed, err := ReadOutcome(context.Background(), baseDir, cfg)
	require.NoError(t, err)
	assert.Equal(t, 3, parsed)
	assert.False(t, outcome.IsSuccessful())
	assert.Len(t, outcome.Failed, 2)

	green := t.TempDir()
	createReportDir(t, green, "testreports", 1, 0, 2)
	outcome, _, err = ReadOutcome(context.Background(), green, cfg)
	require.NoError(t, err)
	assert.True(t, outcome.IsSuccessful())
	assert.Empty(t, outcome.Failed)
}

func TestReadOutcome_KeepsParsedSuitesOnParseError(t *testing.T) {
	baseDir := t.TempDir()
	reportsPath := createReportDir(t, baseDir, "testreports", 1, 1, 1)
	require.NoError(t, os.WriteFile(filepath.Join(reportsPath, "truncated.xml"), []byte(`<testsuite name="x"><testcase`), 0644))

	cfg := config.NewConfig()
	cfg.JUnit.ReportDirPattern = "**/testreports"

	outcome, parsed, err := ReadOutcome(context.Background(), baseDir, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "truncated.xml")
	assert.Equal(t, 2, parsed)
	assert.False(t, outcome.IsSuccessful())
	assert.Len(t, outcome.Failed, 1)
}

func TestParseReportSorting(t *testing.T) {
	tests := []struct {
		input    string
		expected SortingOrder
		wantErr  bool
	}{
		{input: "time", expected: Desc},
		{input: "TIME asc", expected: Asc},
		{input: "time DESC", expected: Desc},
		{input: "time sideways", wantErr: true},
		{input: "name ASC", wantErr: true},
		{input: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			sorting, err := ParseReportSorting(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, sorting.Order)
		})
	}
}

func TestReportSorting_Apply(t *testing.T) {
	suite := func(name string, d time.Duration) models.SuiteResult {
		return models.SuiteResult{
			Summary:   models.Summary{Time: models.Duration(d)},
			TestSuite: models.TestSuite{Name: name},
		}
	}
	suites := []models.SuiteResult{suite("mid", time.Second), suite("slow", time.Minute), suite("fast", time.Millisecond)}

	ReportSorting{Order: Desc}.Apply(suites)
	assert.Equal(t, []string{"slow", "mid", "fast"}, names(suites))

	ReportSorting{Order: Asc}.Apply(suites)
	assert.Equal(t, []string{"fast", "mid", "slow"}, names(suites))
}

func names(suites []models.SuiteResult) []string {
	out := make([]string, 0, len(suites))
	for _, s := range suites {
		out = append(out, s.Name)
	}
	return out
}
