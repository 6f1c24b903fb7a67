// Package github reads the GitHub Actions context of a build and
// publishes the build outcome as a commit comment.
package github

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/lirany1/cikit/pkg/models"
)

// ID is an identifier GitHub serializes either as a string or a number
type ID string

// UnmarshalJSON accepts both string and numeric ids
func (id *ID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", string(data), err)
	}
	*id = ID(n.String())
	return nil
}

// Context is the subset of the GitHub Actions context cikit uses,
// as produced by ${{ toJson(github) }}
type Context struct {
	Token      string `json:"token"`
	SHA        string `json:"sha"`
	RunID      ID     `json:"run_id"`
	Actor      string `json:"actor"`
	Repository string `json:"repository"`
	Event      Event  `json:"event"`
}

// Event is the webhook payload that triggered the workflow. Only pull
// request events carry the fields below.
type Event struct {
	Number      int          `json:"number"`
	PullRequest *PullRequest `json:"pull_request"`
	Sender      *User        `json:"sender"`
}

// PullRequest is the pull request of a pull request event
type PullRequest struct {
	Title   string `json:"title"`
	HTMLURL string `json:"html_url"`
}

// User is a GitHub account
type User struct {
	AvatarURL string `json:"avatar_url"`
	Login     string `json:"login"`
	URL       string `json:"url"`
	HTMLURL   string `json:"html_url"`
}

// ReadContext reads a context file
func ReadContext(path string) (*Context, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read github context: %w", err)
	}
	var ctx Context
	if err := json.Unmarshal(data, &ctx); err != nil {
		return nil, fmt.Errorf("failed to parse github context %s: %w", path, err)
	}
	return &ctx, nil
}

// IsPullRequest reports whether the event is a pull request event
func (e Event) IsPullRequest() bool {
	return e.PullRequest != nil
}

// View returns the pull request header of the report, or nil when the
// build was not triggered by a pull request
func (c *Context) View() *models.GithubContext {
	if c == nil || !c.Event.IsPullRequest() {
		return nil
	}
	view := &models.GithubContext{
		Number: c.Event.Number,
		PullRequest: models.PullRequest{
			Title:   c.Event.PullRequest.Title,
			HTMLURL: c.Event.PullRequest.HTMLURL,
		},
	}
	if sender := c.Event.Sender; sender != nil {
		htmlURL := sender.HTMLURL
		if htmlURL == "" {
			htmlURL = sender.URL
		}
		view.Sender = models.GithubUser{
			AvatarURL: sender.AvatarURL,
			Login:     sender.Login,
			HTMLURL:   htmlURL,
		}
	}
	return view
}

// Subject describes what was built, e.g. "PR <url|title>" or "commit <sha>",
// in Slack link syntax
func (c *Context) Subject() string {
	if c.Event.IsPullRequest() {
		return fmt.Sprintf("PR <%s|%s>", c.Event.PullRequest.HTMLURL, c.Event.PullRequest.Title)
	}
	if c.SHA != "" {
		return "commit " + c.SHA
	}
	return "run " + strconv.Quote(string(c.RunID))
}
