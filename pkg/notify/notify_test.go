package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lirany1/cikit/pkg/config"
	"github.com/lirany1/cikit/pkg/github"
	"github.com/lirany1/cikit/pkg/models"
	"github.com/lirany1/cikit/pkg/webhook"
)

func prContext() *github.Context {
	return &github.Context{
		SHA:        "6dcb09b",
		RunID:      "1",
		Actor:      "OctoCat",
		Repository: "acme/app",
		Event: github.Event{
			Number:      42,
			PullRequest: &github.PullRequest{Title: "Fix counter", HTMLURL: "https://github.com/acme/app/pull/42"},
		},
	}
}

func failedOutcome() models.RunOutcome {
	return models.RunOutcome{
		Summary: models.Summary{Time: models.Duration(time.Second + time.Millisecond), Tests: 10, Failures: 2, Errors: 1, Skipped: 3},
		Failed: []models.FailedTestSuite{
			{Name: "com.example.FirstTest", FailedTestCases: []models.FailedTestCase{{Name: "counts"}}},
			{Name: "com.example.SecondTest"},
		},
	}
}

func TestSerializeBlocks(t *testing.T) {
	blocks := Blocks{Blocks: []Block{Section(PlainText("some text")), Divider()}}

	data, err := json.Marshal(blocks)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"blocks": [
			{"type": "section", "text": {"type": "plain_text", "text": "some text"}},
			{"type": "divider"}
		]
	}`, string(data))
}

func TestSlackNotifier_Headline(t *testing.T) {
	cfg := &config.SlackConfig{WebhookURL: "http://unused", UserHandles: map[string]string{"octocat": "U024BE7LH"}}
	n := NewSlackNotifier(cfg)

	success := models.RunOutcome{Summary: models.Summary{Tests: 1}}
	assert.Equal(t,
		"<@U024BE7LH> build for PR <https://github.com/acme/app/pull/42|Fix counter> :heavy_check_mark:",
		n.Headline(success, prContext()))

	push := prContext()
	push.Actor = "hubot"
	push.Event = github.Event{}
	assert.Equal(t, "build for commit 6dcb09b :heavy_exclamation_mark:", n.Headline(failedOutcome(), push))
}

func TestSlackNotifier_Message(t *testing.T) {
	n := NewSlackNotifier(&config.SlackConfig{WebhookURL: "http://unused"})

	message := n.Message(failedOutcome(), prContext())
	require.Len(t, message.Blocks, 3)

	summary := message.Blocks[0]
	assert.Equal(t, "section", summary.Type)
	assert.Equal(t, "mrkdwn", summary.Text.Type)
	assert.Equal(t, []Text{
		PlainText("total_time"), PlainText("1s 1ms"),
		PlainText("tests"), PlainText("10"),
		PlainText("failures"), PlainText("2"),
		PlainText("errors"), PlainText("1"),
		PlainText("skipped"), PlainText("3"),
	}, summary.Fields)

	assert.Equal(t, "divider", message.Blocks[1].Type)
	assert.Equal(t, "*Failed test suites:*\n- `com.example.FirstTest`\n- `com.example.SecondTest`\n", message.Blocks[2].Text.Text)

	green := n.Message(models.RunOutcome{Summary: models.Summary{Tests: 1}}, prContext())
	assert.Len(t, green.Blocks, 2)
}

func TestSlackNotifier_Notify(t *testing.T) {
	var received Blocks
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &received))
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	n := NewSlackNotifier(&config.SlackConfig{WebhookURL: server.URL}, webhook.WithHTTPClient(server.Client()))
	require.NoError(t, n.Notify(context.Background(), failedOutcome(), prContext()))

	require.Len(t, received.Blocks, 3)
	assert.Contains(t, received.Blocks[0].Text.Text, ":heavy_exclamation_mark:")
}

func TestSlackNotifier_NonSuccessIsNotFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_blocks", http.StatusBadRequest)
	}))
	defer server.Close()

	n := NewSlackNotifier(&config.SlackConfig{WebhookURL: server.URL})
	assert.NoError(t, n.Notify(context.Background(), failedOutcome(), nil))
}

func TestSlackNotifier_WithoutConfigDoesNothing(t *testing.T) {
	assert.NoError(t, NewSlackNotifier(nil).Notify(context.Background(), failedOutcome(), prContext()))
}

func TestConsoleNotifier(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewConsoleNotifier(&buf).Notify(context.Background(), failedOutcome(), nil))

	out := buf.String()
	assert.Contains(t, out, "> Tests run           :10")
	assert.Contains(t, out, "✗ com.example.FirstTest")
	assert.Contains(t, out, " ✗ 0ms        counts")
}

func TestCommentNotifier(t *testing.T) {
	var payload map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	publisher := github.NewCommentPublisher(config.GitHubConfig{APIURL: server.URL}, server.Client())
	n := NewCommentNotifier(publisher, "https://storage.googleapis.com/b/1/index.html")
	require.NoError(t, n.Notify(context.Background(), failedOutcome(), prContext()))

	assert.Contains(t, payload["body"], ":x: Test suite failed with _2_ errors")
	assert.Contains(t, payload["body"], "(https://storage.googleapis.com/b/1/index.html)")
}
