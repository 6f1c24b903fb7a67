package gauge

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/getgauge/gauge-proto/go/gauge_messages"
	"google.golang.org/protobuf/proto"

	"github.com/lirany1/cikit/pkg/logger"
	"github.com/lirany1/cikit/pkg/models"
)

// Failure types assigned to converted Gauge failures
const (
	StepFailure     = "StepFailure"
	HookFailure     = "HookFailure"
	ScenarioFailure = "ScenarioFailure"
)

const (
	beforeSuite = "Before Suite"
	afterSuite  = "After Suite"
)

// ReadResultFile reads a serialized ProtoSuiteResult
func ReadResultFile(path string) (*gauge_messages.ProtoSuiteResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read gauge result %s: %w", path, err)
	}
	result := &gauge_messages.ProtoSuiteResult{}
	if err := proto.Unmarshal(data, result); err != nil {
		return nil, fmt.Errorf("failed to decode gauge result %s: %w", path, err)
	}
	return result, nil
}

// ReadSuites reads a serialized ProtoSuiteResult and converts it to suites
func ReadSuites(path string, timestamp time.Time) ([]models.SuiteResult, models.Summary, error) {
	result, err := ReadResultFile(path)
	if err != nil {
		return nil, models.Summary{}, err
	}
	suites := ConvertSuiteResult(result, timestamp)
	return suites, models.Summarize(suites), nil
}

// ConvertSuiteResult maps a Gauge suite result onto JUnit style suites.
// Every spec becomes a suite and every scenario a test case; suite hook
// failures become suites of their own.
func ConvertSuiteResult(result *gauge_messages.ProtoSuiteResult, timestamp time.Time) []models.SuiteResult {
	suites := make([]models.SuiteResult, 0, len(result.GetSpecResults())+2)

	if hook := result.GetPreHookFailure(); hook != nil {
		suites = append(suites, hookSuite(beforeSuite, hook, timestamp))
	}
	for _, spec := range result.GetSpecResults() {
		suites = append(suites, convertSpecResult(spec, timestamp))
	}
	if hook := result.GetPostHookFailure(); hook != nil {
		suites = append(suites, hookSuite(afterSuite, hook, timestamp))
	}
	return suites
}

func convertSpecResult(spec *gauge_messages.ProtoSpecResult, timestamp time.Time) models.SuiteResult {
	protoSpec := spec.GetProtoSpec()
	name := protoSpec.GetSpecHeading()
	if name == "" {
		name = protoSpec.GetFileName()
	}

	suite := models.TestSuite{
		Name:      name,
		Elapsed:   millis(spec.GetExecutionTime()),
		Timestamp: models.Timestamp(timestamp),
		TestCases: make([]models.TestCase, 0),
	}

	for _, item := range protoSpec.GetItems() {
		var scenario *gauge_messages.ProtoScenario
		switch item.GetItemType() {
		case gauge_messages.ProtoItem_Scenario:
			scenario = item.GetScenario()
		case gauge_messages.ProtoItem_TableDrivenScenario:
			scenario = item.GetTableDrivenScenario().GetScenario()
		}
		if scenario == nil {
			continue
		}
		suite.TestCases = append(suite.TestCases, convertScenario(scenario, protoSpec.GetFileName()))
	}

	return suite.WithSummary()
}

func convertScenario(scenario *gauge_messages.ProtoScenario, className string) models.TestCase {
	tc := models.TestCase{
		Name:      scenario.GetScenarioHeading(),
		ClassName: className,
		Time:      millis(scenario.GetExecutionTime()),
	}

	if scenario.GetSkipped() {
		tc.SkipMark = &models.SkipMarker{Message: strings.Join(scenario.GetSkipErrors(), "\n")}
		return tc
	}

	if hook := scenario.GetPreHookFailure(); hook != nil {
		tc.Failure = hookFailure(hook)
		return tc
	}

	for _, item := range scenario.GetScenarioItems() {
		if item.GetItemType() != gauge_messages.ProtoItem_Step {
			continue
		}
		step := item.GetStep()
		exec := step.GetStepExecutionResult().GetExecutionResult()
		if exec.GetFailed() {
			logger.Debugf("Scenario '%s' failed at step: %s", tc.Name, step.GetParsedText())
			tc.Failure = &models.Failure{
				Message:    exec.GetErrorMessage(),
				Type:       StepFailure,
				StackTrace: exec.GetStackTrace(),
			}
			return tc
		}
	}

	if hook := scenario.GetPostHookFailure(); hook != nil {
		tc.Failure = hookFailure(hook)
		return tc
	}

	if scenario.GetFailed() {
		tc.Failure = &models.Failure{
			Message: "scenario failed",
			Type:    ScenarioFailure,
		}
	}
	return tc
}

func hookSuite(name string, hook *gauge_messages.ProtoHookFailure, timestamp time.Time) models.SuiteResult {
	return models.TestSuite{
		Name:      name,
		Timestamp: models.Timestamp(timestamp),
		TestCases: []models.TestCase{{
			Name:    name,
			Failure: hookFailure(hook),
		}},
	}.WithSummary()
}

func hookFailure(hook *gauge_messages.ProtoHookFailure) *models.Failure {
	return &models.Failure{
		Message:    hook.GetErrorMessage(),
		Type:       HookFailure,
		StackTrace: hook.GetStackTrace(),
	}
}

func millis(ms int64) models.Duration {
	return models.Duration(time.Duration(ms) * time.Millisecond)
}
