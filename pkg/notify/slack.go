package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/lirany1/cikit/pkg/config"
	"github.com/lirany1/cikit/pkg/github"
	"github.com/lirany1/cikit/pkg/logger"
	"github.com/lirany1/cikit/pkg/models"
	"github.com/lirany1/cikit/pkg/view"
	"github.com/lirany1/cikit/pkg/webhook"
)

// Blocks is a Slack Block Kit message
type Blocks struct {
	Blocks []Block `json:"blocks"`
}

// Block is a section or a divider
type Block struct {
	Type   string `json:"type"`
	Text   *Text  `json:"text,omitempty"`
	Fields []Text `json:"fields,omitempty"`
}

// Text is a Block Kit text object
type Text struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// PlainText creates a plain_text object
func PlainText(s string) Text {
	return Text{Type: "plain_text", Text: s}
}

// Mrkdwn creates a mrkdwn text object
func Mrkdwn(s string) Text {
	return Text{Type: "mrkdwn", Text: s}
}

// Divider creates a divider block
func Divider() Block {
	return Block{Type: "divider"}
}

// Section creates a section block
func Section(text Text, fields ...Text) Block {
	return Block{Type: "section", Text: &text, Fields: fields}
}

// SlackNotifier posts the outcome to a Slack incoming webhook
type SlackNotifier struct {
	cfg    *config.SlackConfig
	poster *webhook.Poster
}

// NewSlackNotifier creates a Slack notifier
func NewSlackNotifier(cfg *config.SlackConfig, opts ...webhook.Option) *SlackNotifier {
	return &SlackNotifier{cfg: cfg, poster: webhook.NewPoster(opts...)}
}

// Headline formats the first line of the message
func (n *SlackNotifier) Headline(outcome models.RunOutcome, gh *github.Context) string {
	var b strings.Builder
	if gh != nil {
		if handle, ok := n.cfg.HandleFor(gh.Actor); ok {
			fmt.Fprintf(&b, "<@%s> ", handle)
		}
		b.WriteString("build for " + gh.Subject())
	} else {
		b.WriteString("build")
	}
	if outcome.IsSuccessful() {
		b.WriteString(" :heavy_check_mark:")
	} else {
		b.WriteString(" :heavy_exclamation_mark:")
	}
	return b.String()
}

// Message builds the Block Kit message for the outcome
func (n *SlackNotifier) Message(outcome models.RunOutcome, gh *github.Context) Blocks {
	s := outcome.Summary
	summary := Section(Mrkdwn(n.Headline(outcome, gh)),
		PlainText("total_time"), PlainText(view.HumanDuration(s.Time.Std())),
		PlainText("tests"), PlainText(strconv.Itoa(s.Tests)),
		PlainText("failures"), PlainText(strconv.Itoa(s.Failures)),
		PlainText("errors"), PlainText(strconv.Itoa(s.Errors)),
		PlainText("skipped"), PlainText(strconv.Itoa(s.Skipped)),
	)

	message := Blocks{Blocks: []Block{summary, Divider()}}
	if !outcome.IsSuccessful() {
		var b strings.Builder
		b.WriteString("*Failed test suites:*\n")
		for _, suite := range outcome.Failed {
			fmt.Fprintf(&b, "- `%s`\n", suite.Name)
		}
		message.Blocks = append(message.Blocks, Section(Mrkdwn(b.String())))
	}
	return message
}

// Notify posts the message. A non-2xx answer is logged as a warning.
func (n *SlackNotifier) Notify(ctx context.Context, outcome models.RunOutcome, gh *github.Context) error {
	if n.cfg == nil || n.cfg.WebhookURL == "" {
		logger.Warn("No configuration found for Slack notifications. Doing nothing")
		return nil
	}

	resp, err := n.poster.PostJSON(ctx, n.cfg.WebhookURL, n.Message(outcome, gh))
	if err != nil {
		return fmt.Errorf("failed to notify slack: %w", err)
	}
	if !resp.OK() {
		logger.Warnf("Server responded with non-successful status code %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
