// Package notify delivers the outcome of a test run to people.
package notify

import (
	"context"
	"io"

	"github.com/lirany1/cikit/pkg/github"
	"github.com/lirany1/cikit/pkg/models"
	"github.com/lirany1/cikit/pkg/report"
)

// Notifier delivers a run outcome
type Notifier interface {
	Notify(ctx context.Context, outcome models.RunOutcome, gh *github.Context) error
}

// ConsoleNotifier prints the outcome with the text renderer
type ConsoleNotifier struct {
	w io.Writer
}

// NewConsoleNotifier creates a console notifier writing to w
func NewConsoleNotifier(w io.Writer) *ConsoleNotifier {
	return &ConsoleNotifier{w: w}
}

// Notify prints the outcome
func (n *ConsoleNotifier) Notify(_ context.Context, outcome models.RunOutcome, _ *github.Context) error {
	return report.NewTextReport(n.w).RenderOutcome(outcome)
}

// CommentNotifier comments the outcome on the built commit
type CommentNotifier struct {
	publisher *github.CommentPublisher
	reportURL string
}

// NewCommentNotifier creates a commit comment notifier. reportURL may be empty.
func NewCommentNotifier(publisher *github.CommentPublisher, reportURL string) *CommentNotifier {
	return &CommentNotifier{publisher: publisher, reportURL: reportURL}
}

// Notify publishes the commit comment
func (n *CommentNotifier) Notify(ctx context.Context, outcome models.RunOutcome, gh *github.Context) error {
	return n.publisher.Publish(ctx, outcome, gh, n.reportURL)
}
