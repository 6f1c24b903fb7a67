package models

import (
	"encoding/json"
	"encoding/xml"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSuite() TestSuite {
	return TestSuite{
		Name:      "com.example.LiveTopicCounterTest",
		Elapsed:   Duration(250 * time.Millisecond),
		Timestamp: Timestamp(time.Date(2020, 6, 7, 14, 18, 12, 0, time.UTC)),
		TestCases: []TestCase{
			{
				Name:      "LiveTopicCounter should raise an error when the supplied topic does not exist",
				ClassName: "com.example.LiveTopicCounterTest",
				Time:      Duration(79 * time.Millisecond),
				Failure: &Failure{
					Message:    "100 did not equal 101",
					Type:       "org.scalatest.exceptions.TestFailedException",
					StackTrace: "stack-trace...",
				},
			},
			{
				Name:      "LiveTopicCounter should skip this test",
				ClassName: "com.example.LiveTopicCounterTest",
				Time:      Duration(time.Millisecond),
				SkipMark:  &SkipMarker{},
			},
		},
	}
}

func TestTestSuite_WithSummary(t *testing.T) {
	suite := sampleSuite()
	suite.TestCases = append(suite.TestCases,
		TestCase{Name: "errored", Error: &Failure{Type: "java.lang.NullPointerException"}},
		TestCase{Name: "skipped wins over failure", Failure: &Failure{}, SkipMark: &SkipMarker{}},
		TestCase{Name: "passed"},
	)

	result := suite.WithSummary()

	assert.Equal(t, Summary{
		Time:     Duration(250 * time.Millisecond),
		Tests:    5,
		Failures: 1,
		Errors:   1,
		Skipped:  2,
	}, result.Summary)
	assert.False(t, result.IsSuccessful())
	assert.Equal(t, 1, result.Summary.Passed())
}

func TestSuiteResult_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(sampleSuite().WithSummary())
	require.NoError(t, err)

	expected := `{
	  "tests": 2,
	  "errors": 0,
	  "failures": 1,
	  "skipped": 1,
	  "time": 250,
	  "timestamp": "2020-06-07T14:18:12",
	  "name": "com.example.LiveTopicCounterTest",
	  "testcase": [
	    {
	      "classname": "com.example.LiveTopicCounterTest",
	      "failure": {
	        "message": "100 did not equal 101",
	        "stackTrace": "stack-trace...",
	        "type": "org.scalatest.exceptions.TestFailedException"
	      },
	      "error": null,
	      "name": "LiveTopicCounter should raise an error when the supplied topic does not exist",
	      "skipped": false,
	      "time": 79
	    },
	    {
	      "classname": "com.example.LiveTopicCounterTest",
	      "failure": null,
	      "error": null,
	      "name": "LiveTopicCounter should skip this test",
	      "skipped": true,
	      "time": 1
	    }
	  ]
	}`
	assert.JSONEq(t, expected, string(data))
}

func TestSuiteResult_AsFailed(t *testing.T) {
	result := sampleSuite().WithSummary()

	failed, ok := result.AsFailed()
	require.True(t, ok)

	assert.Equal(t, result.Summary, failed.Summary)
	assert.Equal(t, "com.example.LiveTopicCounterTest", failed.Name)
	require.Len(t, failed.FailedTestCases, 1)
	assert.Equal(t, "100 did not equal 101", failed.FailedTestCases[0].Failure.Message)

	data, err := json.Marshal(failed)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"failedTestcases":[`)
	assert.Contains(t, string(data), `"stackTrace":"stack-trace..."`)
}

func TestSuiteResult_AsFailedUsesErrorWhenNoFailure(t *testing.T) {
	suite := TestSuite{Name: "s", TestCases: []TestCase{
		{Name: "boom", Error: &Failure{Message: "exploded", Type: "RuntimeException"}},
	}}

	failed, ok := suite.WithSummary().AsFailed()

	require.True(t, ok)
	assert.Equal(t, "exploded", failed.FailedTestCases[0].Failure.Message)
}

func TestSuiteResult_AsFailedWithoutFailures(t *testing.T) {
	suite := TestSuite{Name: "green", TestCases: []TestCase{{Name: "ok"}, {Name: "skip", SkipMark: &SkipMarker{}}}}

	_, ok := suite.WithSummary().AsFailed()

	assert.False(t, ok)
}

func TestSummary_Add(t *testing.T) {
	total := Summary{}
	total.Add(Summary{Time: Duration(time.Second), Tests: 3, Failures: 1})
	total.Add(Summary{Time: Duration(2 * time.Second), Tests: 4, Errors: 2, Skipped: 1})

	assert.Equal(t, Summary{Time: Duration(3 * time.Second), Tests: 7, Failures: 1, Errors: 2, Skipped: 1}, total)
	assert.False(t, total.IsSuccessful())
}

func TestDuration_UnmarshalXMLAttr(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected time.Duration
		wantErr  bool
	}{
		{name: "fractional seconds", value: "2.137", expected: 2137 * time.Millisecond},
		{name: "negative time", value: "-0.5", expected: 500 * time.Millisecond},
		{name: "empty", value: "", expected: 0},
		{name: "thousands separator", value: "1,200.5", expected: 1200500 * time.Millisecond},
		{name: "garbage", value: "fast", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration
			err := d.UnmarshalXMLAttr(xml.Attr{Value: tt.value})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, float64(tt.expected), float64(d.Std()), float64(time.Microsecond))
		})
	}
}

func TestTimestamp_RoundTrip(t *testing.T) {
	var ts Timestamp
	require.NoError(t, ts.UnmarshalXMLAttr(xml.Attr{Value: "2020-06-07T14:18:13"}))
	assert.Equal(t, time.Date(2020, 6, 7, 14, 18, 13, 0, time.UTC), ts.Time())

	data, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2020-06-07T14:18:13"`, string(data))

	var decoded Timestamp
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, ts.Time(), decoded.Time())
}

func TestNewFullReport(t *testing.T) {
	green := TestSuite{Name: "green", TestCases: []TestCase{{Name: "ok"}}}.WithSummary()
	red := sampleSuite().WithSummary()
	suites := []SuiteResult{green, red}

	report := NewFullReport(Summarize(suites), suites, nil)

	assert.Equal(t, 3, report.Summary.Tests)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, red.Name, report.Failed[0].Name)

	data, err := json.Marshal(report)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"githubEvent":null`)
	assert.Contains(t, string(data), `"allSuites":[`)
}

func TestNewRunOutcome(t *testing.T) {
	green := TestSuite{Name: "green", TestCases: []TestCase{{Name: "ok"}}}.WithSummary()
	red := sampleSuite().WithSummary()

	success := NewRunOutcome(green.Summary, []SuiteResult{green})
	assert.True(t, success.IsSuccessful())
	assert.Empty(t, success.Failed)

	suites := []SuiteResult{green, red}
	failure := NewRunOutcome(Summarize(suites), suites)
	assert.False(t, failure.IsSuccessful())
	require.Len(t, failure.Failed, 1)
	assert.Equal(t, red.Name, failure.Failed[0].Name)
}
