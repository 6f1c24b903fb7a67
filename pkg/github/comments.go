package github

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/lirany1/cikit/pkg/config"
	"github.com/lirany1/cikit/pkg/logger"
	"github.com/lirany1/cikit/pkg/models"
	"github.com/lirany1/cikit/pkg/webhook"
)

// CommentPublisher posts the build outcome as a commit comment
type CommentPublisher struct {
	apiURL string
	token  string
	client *http.Client
}

// NewCommentPublisher creates a publisher. client may be nil.
func NewCommentPublisher(cfg config.GitHubConfig, client *http.Client) *CommentPublisher {
	apiURL := strings.TrimRight(cfg.APIURL, "/")
	if apiURL == "" {
		apiURL = "https://api.github.com"
	}
	return &CommentPublisher{apiURL: apiURL, token: cfg.Token, client: client}
}

// CommentBody formats the comment for the outcome
func CommentBody(outcome models.RunOutcome, reportURL string) string {
	var comment string
	if outcome.IsSuccessful() {
		comment = ":heavy_check_mark: Test suite passed!"
	} else {
		comment = fmt.Sprintf(":x: Test suite failed with _%d_ errors", len(outcome.Failed))
	}
	if reportURL != "" {
		comment += fmt.Sprintf("\n\n:bookmark_tabs: [Test report](%s)", reportURL)
	}
	return comment
}

// Publish comments on the built commit. A non-2xx answer is logged as a warning.
func (p *CommentPublisher) Publish(ctx context.Context, outcome models.RunOutcome, gh *Context, reportURL string) error {
	if gh == nil || gh.Repository == "" || gh.SHA == "" {
		return fmt.Errorf("github context has no repository or sha")
	}
	token := p.token
	if token == "" {
		token = gh.Token
	}

	opts := []webhook.Option{
		webhook.WithHTTPClient(p.client),
		webhook.WithHeader("Accept", "application/vnd.github+json"),
		webhook.WithHeader("User-Agent", "cikit"),
	}
	if token != "" {
		opts = append(opts, webhook.WithHeader("Authorization", "token "+token))
	}

	endpoint := fmt.Sprintf("%s/repos/%s/commits/%s/comments", p.apiURL, gh.Repository, gh.SHA)
	resp, err := webhook.NewPoster(opts...).PostJSON(ctx, endpoint, map[string]string{
		"body": CommentBody(outcome, reportURL),
	})
	if err != nil {
		return fmt.Errorf("failed to publish commit comment: %w", err)
	}
	if !resp.OK() {
		logger.Warnf("Server responded with non-successful status code %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
