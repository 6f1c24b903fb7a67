// Package view renders the test report as static HTML. Every view is a
// pure function of its input.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/lirany1/cikit/pkg/failures"
	"github.com/lirany1/cikit/pkg/models"
	"github.com/lirany1/cikit/pkg/summarybar"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Assets holds the stylesheets referenced by rendered pages
//
//go:embed assets
var Assets embed.FS

var templates = template.Must(template.New("views").Funcs(template.FuncMap{
	"duration":    ShowDuration,
	"failedCount": failedCount,
	"isSelected": func(s Selection, i int) bool {
		return s.Is(SuiteKey(i))
	},
	"toggleHref": func(s Selection, i int) string {
		return PageFor(s.Toggle(SuiteKey(i)))
	},
	"summaryData": summaryData,
	"failedData":  failedData,
}).ParseFS(templateFS, "templates/*.tmpl"))

type summaryView struct {
	Summary      models.Summary
	Distribution summarybar.Distribution
}

type failedSuitesView struct {
	Failed    []models.FailedSuiteResult
	Selection Selection
}

func summaryData(s models.Summary) summaryView {
	return summaryView{
		Summary:      s,
		Distribution: summarybar.Allocate(s, summarybar.DefaultSlots).Clamped(),
	}
}

func failedData(failed []models.FailedSuiteResult, sel Selection) failedSuitesView {
	return failedSuitesView{Failed: failed, Selection: sel}
}

func failedCount(s models.Summary) int {
	return s.Failures + s.Errors
}

// Page is a complete report page
type Page struct {
	Title       string
	Report      models.FullReport
	Selection   Selection
	Patterns    []*failures.FailureGroup
	Stylesheets []string
}

// RenderPage writes the page to w
func RenderPage(w io.Writer, p Page) error {
	if p.Title == "" {
		p.Title = "Test report"
	}
	if err := templates.ExecuteTemplate(w, "page", p); err != nil {
		return fmt.Errorf("failed to render page: %w", err)
	}
	return nil
}

// Summary renders the summary line and the summary bar. The bar is
// omitted when no test ran.
func Summary(s models.Summary) (template.HTML, error) {
	return render("summary", summaryData(s))
}

// FailedSuites renders the failed suites table. Only the selected suite
// lists its failed test cases.
func FailedSuites(failed []models.FailedSuiteResult, sel Selection) (template.HTML, error) {
	return render("failedSuites", failedData(failed, sel))
}

// FailedTestCase renders a failed test case row with its stack trace
// behind a disclosure
func FailedTestCase(tc models.FailedTestCase) (template.HTML, error) {
	return render("failedTestCase", tc)
}

// AllSuites renders the table of every suite
func AllSuites(suites []models.SuiteResult) (template.HTML, error) {
	return render("allSuites", suites)
}

// GithubContext renders the pull request header, or nothing when ctx is nil
func GithubContext(ctx *models.GithubContext) (template.HTML, error) {
	return render("githubContext", ctx)
}

// Patterns renders the failure pattern section, or nothing without groups
func Patterns(groups []*failures.FailureGroup) (template.HTML, error) {
	return render("patterns", groups)
}

func render(name string, data interface{}) (template.HTML, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return template.HTML(buf.String()), nil
}
