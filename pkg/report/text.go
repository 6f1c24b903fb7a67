package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lirany1/cikit/pkg/models"
	"github.com/lirany1/cikit/pkg/view"
)

const indent = " "

// TextReport renders suites for a terminal
type TextReport struct {
	w     io.Writer
	green lipgloss.Style
	red   lipgloss.Style
	blue  lipgloss.Style
	bold  lipgloss.Style
}

// NewTextReport creates a text report writing to w. Colors are only
// emitted when w is a terminal.
func NewTextReport(w io.Writer) *TextReport {
	r := lipgloss.NewRenderer(w)
	return &TextReport{
		w:     w,
		green: r.NewStyle().Foreground(lipgloss.Color("2")),
		red:   r.NewStyle().Foreground(lipgloss.Color("1")),
		blue:  r.NewStyle().Foreground(lipgloss.Color("4")),
		bold:  r.NewStyle().Bold(true),
	}
}

// Render writes the summary block followed by every suite and its cases
func (t *TextReport) Render(summary models.Summary, suites []models.SuiteResult) error {
	var b strings.Builder
	t.summary(&b, summary)
	for _, s := range suites {
		t.suite(&b, s, 0)
	}
	_, err := io.WriteString(t.w, b.String())
	return err
}

func (t *TextReport) summary(b *strings.Builder, s models.Summary) {
	fmt.Fprintf(b, "> %-20s:%s\n", "Duration", view.HumanDuration(s.Time.Std()))
	fmt.Fprintf(b, "> %-20s:%-4d\n", "Tests run", s.Tests)
	fmt.Fprintf(b, "> %-20s:%-4d\n", "Failures", s.Failures)
	fmt.Fprintf(b, "> %-20s:%-4d\n", "Errors", s.Errors)
	fmt.Fprintf(b, "> %-20s:%-4d\n", "Skipped", s.Skipped)
	b.WriteString("\n")
}

func (t *TextReport) suite(b *strings.Builder, s models.SuiteResult, depth int) {
	glyph := t.green.Render("✓")
	if !s.IsSuccessful() {
		glyph = t.red.Render("✗")
	}
	fmt.Fprintf(b, "%s%s %-10s %s\n", strings.Repeat(indent, depth), glyph, view.HumanDuration(s.Summary.Time.Std()), t.bold.Render(s.Name))
	for _, tc := range s.TestCases {
		t.testCase(b, tc, depth+1)
	}
}

func (t *TextReport) testCase(b *strings.Builder, tc models.TestCase, depth int) {
	var glyph string
	switch tc.Outcome() {
	case models.OutcomeSkipped:
		glyph = t.blue.Render("↪")
	case models.OutcomeFailure:
		glyph = t.red.Render("✗")
	default:
		glyph = "-"
	}
	fmt.Fprintf(b, "%s%s %-10s %s\n", strings.Repeat(indent, depth), glyph, view.HumanDuration(tc.Time.Std()), tc.Name)

	if failed, ok := tc.AsFailed(); ok && !tc.IsSkipped() {
		message := failed.Failure.Message
		if message == "" {
			message = failed.Failure.Type
		}
		fmt.Fprintf(b, "%s-- %s\n", strings.Repeat(indent, depth), t.red.Render(message))
	}
}

// RenderOutcome writes the summary block followed by the failed suites
// and their failed cases
func (t *TextReport) RenderOutcome(outcome models.RunOutcome) error {
	var b strings.Builder
	t.summary(&b, outcome.Summary)
	if outcome.IsSuccessful() {
		fmt.Fprintf(&b, "%s %s\n", t.green.Render("✓"), "Test suite passed")
	}
	for _, s := range outcome.Failed {
		fmt.Fprintf(&b, "%s %s\n", t.red.Render("✗"), t.bold.Render(s.Name))
		for _, tc := range s.FailedTestCases {
			fmt.Fprintf(&b, "%s%s %-10s %s\n", indent, t.red.Render("✗"), view.HumanDuration(tc.Time.Std()), tc.Name)
		}
	}
	_, err := io.WriteString(t.w, b.String())
	return err
}
