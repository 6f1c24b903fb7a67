package junit

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"

	"github.com/lirany1/cikit/pkg/models"
)

type xmlRootName struct {
	XMLName xml.Name
}

type xmlTestSuites struct {
	Suites []xmlTestSuite `xml:"testsuite"`
}

type xmlTestSuite struct {
	models.TestSuite
	Suites []xmlTestSuite `xml:"testsuite"`
}

// ParseSuites reads a JUnit report with either a <testsuite> or a
// <testsuites> root. Nested suites are flattened; a suite that only
// groups other suites is dropped.
func ParseSuites(r io.Reader) ([]models.SuiteResult, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty report")
	}

	var root xmlRootName
	if err := xml.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	var suites []xmlTestSuite
	switch root.XMLName.Local {
	case "testsuite":
		var ts xmlTestSuite
		if err := xml.Unmarshal(raw, &ts); err != nil {
			return nil, fmt.Errorf("failed to parse testsuite: %w", err)
		}
		suites = flatten(ts)
	case "testsuites":
		var tss xmlTestSuites
		if err := xml.Unmarshal(raw, &tss); err != nil {
			return nil, fmt.Errorf("failed to parse testsuites: %w", err)
		}
		for _, child := range tss.Suites {
			suites = append(suites, flatten(child)...)
		}
	default:
		return nil, fmt.Errorf("unexpected root element <%s>", root.XMLName.Local)
	}

	results := make([]models.SuiteResult, 0, len(suites))
	for _, s := range suites {
		results = append(results, s.TestSuite.WithSummary())
	}
	return results, nil
}

// ParseFile parses the JUnit report at path
func ParseFile(path string) ([]models.SuiteResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open report file: %w", err)
	}
	defer f.Close()

	return ParseSuites(f)
}

func flatten(ts xmlTestSuite) []xmlTestSuite {
	var out []xmlTestSuite
	if len(ts.TestCases) > 0 || len(ts.Suites) == 0 {
		out = append(out, ts)
	}
	for _, child := range ts.Suites {
		out = append(out, flatten(child)...)
	}
	return out
}
