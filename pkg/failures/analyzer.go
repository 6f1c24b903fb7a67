package failures

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/lirany1/cikit/pkg/models"
)

var (
	uuidPattern   = regexp.MustCompile(`(?i)[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)
	pathPattern   = regexp.MustCompile(`/[^\s]+`)
	numberPattern = regexp.MustCompile(`\d+`)
)

// Analyzer groups failed test cases by their probable root cause
type Analyzer struct{}

// NewAnalyzer creates a new failure analyzer
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// ErrorType represents different categories of test failures
type ErrorType string

const (
	ErrorTypeAssertion   ErrorType = "Assertion Failure"
	ErrorTypeTimeout     ErrorType = "Timeout"
	ErrorTypeNetwork     ErrorType = "Network Error"
	ErrorTypeNullPointer ErrorType = "Null Pointer"
	ErrorTypeFileSystem  ErrorType = "File System"
	ErrorTypeDatabase    ErrorType = "Database"
	ErrorTypeEnvironment ErrorType = "Environment"
	ErrorTypeUnknown     ErrorType = "Unknown Error"
)

// FailureGroup represents a group of similar failures
type FailureGroup struct {
	Signature      string    `json:"signature"`
	ErrorType      ErrorType `json:"errorType"`
	FailureType    string    `json:"failureType"`
	RootCause      string    `json:"rootCause"`
	Count          int       `json:"count"`
	AffectedTests  []string  `json:"affectedTests"`
	AffectedSuites []string  `json:"affectedSuites"`
	Severity       string    `json:"severity"` // "critical", "high", "medium"
	SuggestedFix   string    `json:"suggestedFix"`
}

// ClassifyError determines the type of error based on message and stack trace
func (a *Analyzer) ClassifyError(errorMsg, stackTrace string) ErrorType {
	combined := strings.ToLower(errorMsg + " " + stackTrace)

	assertionPatterns := []string{
		"assertion", "assert", "expected", "actual", "should be",
		"must be", "equals", "not equal",
	}
	if containsAny(combined, assertionPatterns) {
		return ErrorTypeAssertion
	}

	if containsAny(combined, []string{"timeout", "timed out", "deadline exceeded"}) {
		return ErrorTypeTimeout
	}

	networkPatterns := []string{
		"connection refused", "network", "socket", "http",
		"connection reset", "connection closed", "dns",
	}
	if containsAny(combined, networkPatterns) {
		return ErrorTypeNetwork
	}

	if containsAny(combined, []string{"null", "nil", "none"}) {
		return ErrorTypeNullPointer
	}

	filePatterns := []string{
		"file not found", "no such file", "permission denied",
		"directory", "path",
	}
	if containsAny(combined, filePatterns) {
		return ErrorTypeFileSystem
	}

	dbPatterns := []string{
		"database", "sql", "query", "transaction",
		"duplicate key", "constraint",
	}
	if containsAny(combined, dbPatterns) {
		return ErrorTypeDatabase
	}

	envPatterns := []string{
		"environment", "config", "configuration",
		"property", "variable not set",
	}
	if containsAny(combined, envPatterns) {
		return ErrorTypeEnvironment
	}

	return ErrorTypeUnknown
}

// GenerateErrorSignature creates a signature shared by similar errors.
// UUIDs, file paths and numbers are normalized before hashing.
func (a *Analyzer) GenerateErrorSignature(errorMsg, errorType string) string {
	cleaned := uuidPattern.ReplaceAllString(errorMsg, "UUID")
	cleaned = pathPattern.ReplaceAllString(cleaned, "/PATH")
	cleaned = numberPattern.ReplaceAllString(cleaned, "N")

	hash := md5.Sum([]byte(fmt.Sprintf("%s:%s", errorType, cleaned)))
	return hex.EncodeToString(hash[:])
}

// GroupFailures groups the failed test cases of the given suites by
// signature. Groups are ordered by descending count.
func (a *Analyzer) GroupFailures(suites []models.FailedSuiteResult) []*FailureGroup {
	groups := make(map[string]*FailureGroup)

	for _, suite := range suites {
		for _, tc := range suite.FailedTestCases {
			errorMsg := failureMessage(tc.Failure)
			if errorMsg == "" {
				continue
			}

			errorType := a.ClassifyError(tc.Failure.Type+" "+errorMsg, tc.Failure.StackTrace)
			signature := a.GenerateErrorSignature(errorMsg, tc.Failure.Type)
			testName := suite.Name + " > " + tc.Name

			if group, exists := groups[signature]; exists {
				group.Count++
				group.AffectedTests = append(group.AffectedTests, testName)
				if !contains(group.AffectedSuites, suite.Name) {
					group.AffectedSuites = append(group.AffectedSuites, suite.Name)
				}
				continue
			}
			groups[signature] = &FailureGroup{
				Signature:      signature,
				ErrorType:      errorType,
				FailureType:    tc.Failure.Type,
				RootCause:      a.extractRootCause(errorMsg),
				Count:          1,
				AffectedTests:  []string{testName},
				AffectedSuites: []string{suite.Name},
				SuggestedFix:   a.getPatternBasedSuggestion(errorType),
			}
		}
	}

	result := make([]*FailureGroup, 0, len(groups))
	for _, group := range groups {
		group.Severity = a.calculateSeverity(group.ErrorType, group.Count)
		result = append(result, group)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Signature < result[j].Signature
	})

	return result
}

// failureMessage prefers the failure message and falls back to the
// first line of the stack trace
func failureMessage(f models.Failure) string {
	if msg := strings.TrimSpace(f.Message); msg != "" {
		return msg
	}
	return strings.TrimSpace(strings.SplitN(strings.TrimSpace(f.StackTrace), "\n", 2)[0])
}

// extractRootCause extracts the main error message
func (a *Analyzer) extractRootCause(errorMsg string) string {
	rootCause := strings.TrimSpace(strings.SplitN(errorMsg, "\n", 2)[0])
	if runes := []rune(rootCause); len(runes) > 150 {
		return string(runes[:150]) + "..."
	}
	return rootCause
}

// calculateSeverity determines severity based on error type and frequency
func (a *Analyzer) calculateSeverity(errorType ErrorType, count int) string {
	if count >= 3 {
		return "critical"
	}

	switch errorType {
	case ErrorTypeAssertion:
		if count >= 2 {
			return "high"
		}
		return "medium"
	case ErrorTypeTimeout, ErrorTypeNetwork, ErrorTypeNullPointer:
		return "high"
	case ErrorTypeDatabase:
		return "critical"
	default:
		return "medium"
	}
}

// getPatternBasedSuggestion returns rule-based fix suggestions
func (a *Analyzer) getPatternBasedSuggestion(errorType ErrorType) string {
	switch errorType {
	case ErrorTypeAssertion:
		return "Review test expectations and verify they match actual behavior. Check if application logic changed or test data is outdated."
	case ErrorTypeTimeout:
		return "Increase timeout values or investigate performance degradation. Check for slow external dependencies or resource constraints."
	case ErrorTypeNetwork:
		return "Verify network connectivity, check service availability, and ensure proper error handling for network failures."
	case ErrorTypeNullPointer:
		return "Add null checks before accessing objects. Verify object initialization and data flow in the application."
	case ErrorTypeFileSystem:
		return "Verify file paths, check file permissions, and ensure required files exist before test execution."
	case ErrorTypeDatabase:
		return "Check database connection, verify schema integrity, and ensure test data is properly set up."
	case ErrorTypeEnvironment:
		return "Review environment configuration, check required properties are set, and verify environment setup scripts."
	default:
		return "Review error logs and stack trace for more details. Consider adding more specific error handling."
	}
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
