package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// TeamsNotifier posts an Adaptive Card to a Microsoft Teams webhook.
type TeamsNotifier struct {
	webhookURL string
	client     *http.Client
}

func NewTeamsNotifier(webhookURL string) *TeamsNotifier {
	return &TeamsNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *TeamsNotifier) Name() string {
	return "teams"
}

type teamsMessage struct {
	Type        string      `json:"type"`
	Attachments []teamsCard `json:"attachments"`
}

type teamsCard struct {
	ContentType string           `json:"contentType"`
	Content     teamsCardContent `json:"content"`
}

type teamsCardContent struct {
	Schema  string       `json:"$schema"`
	Type    string       `json:"type"`
	Version string       `json:"version"`
	Body    []teamsBlock `json:"body"`
}

type teamsBlock struct {
	Type      string      `json:"type"`
	Size      string      `json:"size,omitempty"`
	Weight    string      `json:"weight,omitempty"`
	Text      string      `json:"text,omitempty"`
	Color     string      `json:"color,omitempty"`
	Wrap      bool        `json:"wrap,omitempty"`
	Facts     []teamsFact `json:"facts,omitempty"`
	Separator bool        `json:"separator,omitempty"`
}

type teamsFact struct {
	Title string `json:"title"`
	Value string `json:"value"`
}

func (t *TeamsNotifier) Notify(ctx context.Context, summary *RunSummary) error {
	color := "good"
	if !summary.success() {
		color = "attention"
	}

	facts := []teamsFact{
		{Title: "Requests", Value: fmt.Sprint(summary.Total)},
		{Title: "Passed", Value: fmt.Sprint(summary.Passed)},
		{Title: "Failed", Value: fmt.Sprint(summary.Failed)},
		{Title: "Skipped", Value: fmt.Sprint(summary.Skipped)},
		{Title: "Duration", Value: summary.Duration.Round(time.Millisecond).String()},
	}
	if summary.Environment != "" {
		facts = append(facts, teamsFact{Title: "Environment", Value: summary.Environment})
	}

	body := []teamsBlock{
		{Type: "TextBlock", Size: "Large", Weight: "Bolder", Text: summary.title(), Color: color},
		{Type: "FactSet", Facts: facts, Separator: true},
	}
	for _, f := range summary.Failures {
		body = append(body, teamsBlock{Type: "TextBlock", Text: fmt.Sprintf("- `%s`", f.Path), Wrap: true})
		for _, m := range f.Messages {
			body = append(body, teamsBlock{Type: "TextBlock", Text: "  - " + m, Wrap: true})
		}
	}

	return postJSON(ctx, t.client, t.webhookURL, teamsMessage{
		Type: "message",
		Attachments: []teamsCard{{
			ContentType: "application/vnd.microsoft.card.adaptive",
			Content: teamsCardContent{
				Schema:  "http://adaptivecards.io/schemas/adaptive-card.json",
				Type:    "AdaptiveCard",
				Version: "1.2",
				Body:    body,
			},
		}},
	}, http.StatusOK, http.StatusAccepted)
}
