package notify

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// SlackNotifier posts to a Slack incoming webhook.
type SlackNotifier struct {
	webhookURL string
	channel    string
	username   string
	iconEmoji  string
	client     *http.Client
}

type SlackOption func(*SlackNotifier)

func WithSlackChannel(channel string) SlackOption {
	return func(s *SlackNotifier) {
		s.channel = channel
	}
}

func WithSlackUsername(username string) SlackOption {
	return func(s *SlackNotifier) {
		s.username = username
	}
}

func NewSlackNotifier(webhookURL string, opts ...SlackOption) *SlackNotifier {
	s := &SlackNotifier{
		webhookURL: webhookURL,
		username:   "hitcase",
		iconEmoji:  ":test_tube:",
		client:     &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SlackNotifier) Name() string {
	return "slack"
}

type slackMessage struct {
	Channel     string            `json:"channel,omitempty"`
	Username    string            `json:"username,omitempty"`
	IconEmoji   string            `json:"icon_emoji,omitempty"`
	Attachments []slackAttachment `json:"attachments"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Text   string       `json:"text,omitempty"`
	Fields []slackField `json:"fields,omitempty"`
	Footer string       `json:"footer,omitempty"`
	TS     int64        `json:"ts,omitempty"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

func (s *SlackNotifier) Notify(ctx context.Context, summary *RunSummary) error {
	color := "good"
	if !summary.success() {
		color = "danger"
	}

	fields := []slackField{
		{Title: "Requests", Value: strconv.Itoa(summary.Total), Short: true},
		{Title: "Passed", Value: strconv.Itoa(summary.Passed), Short: true},
		{Title: "Failed", Value: strconv.Itoa(summary.Failed), Short: true},
		{Title: "Skipped", Value: strconv.Itoa(summary.Skipped), Short: true},
		{Title: "Duration", Value: summary.Duration.Round(time.Millisecond).String(), Short: true},
		{Title: "p95", Value: summary.P95.Round(time.Millisecond).String(), Short: true},
	}
	if summary.Environment != "" {
		fields = append(fields, slackField{Title: "Environment", Value: summary.Environment, Short: true})
	}

	var text strings.Builder
	for _, f := range summary.Failures {
		fmt.Fprintf(&text, "• `%s`\n", f.Path)
		for _, m := range f.Messages {
			fmt.Fprintf(&text, "  - %s\n", m)
		}
	}

	return postJSON(ctx, s.client, s.webhookURL, slackMessage{
		Channel:   s.channel,
		Username:  s.username,
		IconEmoji: s.iconEmoji,
		Attachments: []slackAttachment{{
			Color:  color,
			Title:  summary.title(),
			Text:   text.String(),
			Fields: fields,
			Footer: "hitcase " + summary.Workspace,
			TS:     time.Now().Unix(),
		}},
	}, http.StatusOK)
}
